package posting

import (
	"fmt"
	"strings"
	"time"
)

// Field names used as keys of the per-field confidence map and in
// structured extraction results.
const (
	FieldTitle        = "title"
	FieldCompany      = "company"
	FieldLocation     = "location"
	FieldJobType      = "job_type"
	FieldSalaryMin    = "salary_min"
	FieldSalaryMax    = "salary_max"
	FieldRequirements = "requirements"
	FieldDescription  = "description"
)

// SettableFields lists every field an extractor may populate on a posting.
var SettableFields = []string{
	FieldTitle,
	FieldCompany,
	FieldLocation,
	FieldJobType,
	FieldSalaryMin,
	FieldSalaryMax,
	FieldRequirements,
	FieldDescription,
}

// JobType classifies the employment arrangement of a posting.
type JobType string

const (
	FullTime   JobType = "full_time"
	PartTime   JobType = "part_time"
	Contract   JobType = "contract"
	Remote     JobType = "remote"
	Internship JobType = "internship"
	Unknown    JobType = "unknown"
)

// ParseJobType maps free-form job type text to the enum. Unrecognized
// input yields Unknown, never an error.
func ParseJobType(s string) JobType {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "full_time", "full time", "fulltime", "permanent":
		return FullTime
	case "part_time", "part time", "parttime", "temporary":
		return PartTime
	case "contract", "contractual", "freelance", "consultant":
		return Contract
	case "remote", "work from home", "wfh", "online":
		return Remote
	case "internship", "intern", "trainee":
		return Internship
	default:
		return Unknown
	}
}

// RawMessage is an inbound chat message before any processing. Identity is
// the (SourceChannelID, MessageID) pair.
type RawMessage struct {
	SourceChannelID string    `json:"source_channel_id"`
	MessageID       string    `json:"message_id"`
	PostedAt        time.Time `json:"posted_at"`
	Text            string    `json:"text"`
}

// Key returns the message identity used for logging and tracing.
func (m RawMessage) Key() string {
	return m.SourceChannelID + "/" + m.MessageID
}

// JobPosting is a structured job offer extracted from a chat message.
// Confidence records, per settable field, how certain the extractor was;
// fields absent from the map were never extracted.
type JobPosting struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Company         string             `json:"company,omitempty"`
	Location        string             `json:"location,omitempty"`
	JobType         JobType            `json:"job_type"`
	SalaryMin       int                `json:"salary_min,omitempty"`
	SalaryMax       int                `json:"salary_max,omitempty"`
	Description     string             `json:"description,omitempty"`
	Requirements    string             `json:"requirements,omitempty"`
	Confidence      map[string]float64 `json:"confidence,omitempty"`
	Fingerprint     string             `json:"fingerprint"`
	SourceChannelID string             `json:"source_channel_id"`
	SourceMessageID string             `json:"source_message_id"`
	FirstSeenAt     time.Time          `json:"first_seen_at"`
	IsActive        bool               `json:"is_active"`
}

// Validate checks the invariants every posting must satisfy before it is
// handed to the store.
func (p *JobPosting) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("posting title must not be empty")
	}
	if strings.TrimSpace(p.Fingerprint) == "" {
		return fmt.Errorf("posting fingerprint must not be empty")
	}
	for field := range p.Confidence {
		if !isSettable(field) {
			return fmt.Errorf("confidence key %q is not a settable field", field)
		}
	}
	return nil
}

// Age reports how long ago the posting was first seen.
func (p *JobPosting) Age(now time.Time) time.Duration {
	return now.Sub(p.FirstSeenAt)
}

// SearchText returns the combined text the matching engine scans for
// query keywords outside the title.
func (p *JobPosting) SearchText() string {
	return p.Description + " " + p.Requirements
}

func isSettable(field string) bool {
	for _, f := range SettableFields {
		if f == field {
			return true
		}
	}
	return false
}
