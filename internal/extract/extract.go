// Package extract turns a normalized candidate message into a structured
// job posting draft with per-field confidence. Extraction is layered: a
// rule-based pass provides the baseline and an optional NLP pass may
// override individual fields it resolved with higher confidence.
package extract

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/addislabs/jobsift/internal/posting"
	"github.com/addislabs/jobsift/internal/textnorm"
)

// Candidate is one extracted field value with the extractor's confidence
// in it, in [0,1]. Field names are the posting.Field* constants.
type Candidate struct {
	Field      string
	Value      string
	Confidence float64
}

// Extractor is a single extraction capability. Implementations must treat
// the input as normalized text and must not fail on absent fields; an empty
// result slice is the normal outcome for unextractable messages.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, normalized string) ([]Candidate, error)
}

// BuildDraft assembles a posting draft from merged extraction results.
// Only the title is mandatory; ok is false when no usable title was
// extracted and the message should be rejected. Display fields are
// re-cased from their normalized form.
func BuildDraft(msg posting.RawMessage, merged map[string]Candidate, now time.Time) (*posting.JobPosting, bool) {
	title, ok := merged[posting.FieldTitle]
	if !ok || strings.TrimSpace(title.Value) == "" {
		return nil, false
	}

	draft := &posting.JobPosting{
		ID:              uuid.NewString(),
		Title:           textnorm.TitleCase(title.Value),
		JobType:         posting.Unknown,
		Confidence:      make(map[string]float64, len(merged)),
		SourceChannelID: msg.SourceChannelID,
		SourceMessageID: msg.MessageID,
		FirstSeenAt:     now.UTC(),
		IsActive:        true,
	}

	for field, c := range merged {
		draft.Confidence[field] = c.Confidence
		switch field {
		case posting.FieldCompany:
			draft.Company = textnorm.TitleCase(c.Value)
		case posting.FieldLocation:
			draft.Location = textnorm.TitleCase(c.Value)
		case posting.FieldJobType:
			draft.JobType = posting.ParseJobType(c.Value)
		case posting.FieldSalaryMin:
			draft.SalaryMin = parseAmount(c.Value)
		case posting.FieldSalaryMax:
			draft.SalaryMax = parseAmount(c.Value)
		case posting.FieldRequirements:
			draft.Requirements = c.Value
		case posting.FieldDescription:
			draft.Description = c.Value
		}
	}

	return draft, true
}

func parseAmount(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
