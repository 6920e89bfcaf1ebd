package extract

import (
	"testing"
	"time"

	"github.com/addislabs/jobsift/internal/posting"
)

func TestBuildDraft(t *testing.T) {
	t.Parallel()

	msg := posting.RawMessage{
		SourceChannelID: "jobs_addis",
		MessageID:       "104",
		PostedAt:        time.Now(),
		Text:            "irrelevant here",
	}
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	merged := map[string]Candidate{
		posting.FieldTitle:       {posting.FieldTitle, "python developer", 0.8},
		posting.FieldCompany:     {posting.FieldCompany, "zemen bank", 1.0},
		posting.FieldLocation:    {posting.FieldLocation, "addis ababa", 0.6},
		posting.FieldJobType:     {posting.FieldJobType, "full time", 0.5},
		posting.FieldSalaryMin:   {posting.FieldSalaryMin, "15,000", 0.9},
		posting.FieldSalaryMax:   {posting.FieldSalaryMax, "20,000", 0.9},
		posting.FieldDescription: {posting.FieldDescription, "python developer wanted", 1.0},
	}

	draft, ok := BuildDraft(msg, merged, now)
	if !ok {
		t.Fatalf("expected a draft")
	}

	if draft.ID == "" {
		t.Fatalf("expected a generated id")
	}
	if draft.Title != "Python Developer" {
		t.Fatalf("unexpected title: %q", draft.Title)
	}
	if draft.Company != "Zemen Bank" {
		t.Fatalf("unexpected company: %q", draft.Company)
	}
	if draft.Location != "Addis Ababa" {
		t.Fatalf("unexpected location: %q", draft.Location)
	}
	if draft.JobType != posting.FullTime {
		t.Fatalf("unexpected job type: %q", draft.JobType)
	}
	if draft.SalaryMin != 15000 || draft.SalaryMax != 20000 {
		t.Fatalf("unexpected salary: %d-%d", draft.SalaryMin, draft.SalaryMax)
	}
	if draft.SourceChannelID != "jobs_addis" || draft.SourceMessageID != "104" {
		t.Fatalf("source identity not carried: %q/%q", draft.SourceChannelID, draft.SourceMessageID)
	}
	if !draft.FirstSeenAt.Equal(now) {
		t.Fatalf("unexpected first seen: %v", draft.FirstSeenAt)
	}
	if !draft.IsActive {
		t.Fatalf("new draft must be active")
	}
	if draft.Confidence[posting.FieldTitle] != 0.8 {
		t.Fatalf("title confidence not carried: %v", draft.Confidence)
	}
}

func TestBuildDraftNoTitle(t *testing.T) {
	t.Parallel()

	merged := map[string]Candidate{
		posting.FieldCompany: {posting.FieldCompany, "zemen bank", 1.0},
	}

	if _, ok := BuildDraft(posting.RawMessage{}, merged, time.Now()); ok {
		t.Fatalf("expected rejection without a title")
	}

	merged[posting.FieldTitle] = Candidate{posting.FieldTitle, "   ", 1.0}
	if _, ok := BuildDraft(posting.RawMessage{}, merged, time.Now()); ok {
		t.Fatalf("expected rejection for a blank title")
	}
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect int
	}{
		{"15000", 15000},
		{"15,000", 15000},
		{" 9,500 ", 9500},
		{"not a number", 0},
		{"-5", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := parseAmount(tt.input); got != tt.expect {
			t.Fatalf("parseAmount(%q) = %d, expected %d", tt.input, got, tt.expect)
		}
	}
}
