package posting

import (
	"testing"
	"time"
)

func TestParseJobType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect JobType
	}{
		{"full_time", FullTime},
		{"full time", FullTime},
		{"Part Time", PartTime},
		{"contract", Contract},
		{"REMOTE", Remote},
		{"internship", Internship},
		{"whatever", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		if got := ParseJobType(tt.input); got != tt.expect {
			t.Fatalf("ParseJobType(%q) = %q, expected %q", tt.input, got, tt.expect)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *JobPosting {
		return &JobPosting{
			ID:          "id",
			Title:       "Cashier",
			Fingerprint: "fp",
			Confidence:  map[string]float64{FieldTitle: 1},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid posting rejected: %v", err)
	}

	p := base()
	p.Title = "  "
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for blank title")
	}

	p = base()
	p.Fingerprint = ""
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for missing fingerprint")
	}

	p = base()
	p.Confidence["made_up_field"] = 0.5
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for unknown confidence key")
	}
}

func TestRawMessageKey(t *testing.T) {
	t.Parallel()

	m := RawMessage{SourceChannelID: "jobs_addis", MessageID: "104"}
	if m.Key() != "jobs_addis/104" {
		t.Fatalf("unexpected key: %q", m.Key())
	}
}

func TestAgeAndSearchText(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	p := &JobPosting{
		FirstSeenAt:  now.Add(-48 * time.Hour),
		Description:  "sell things",
		Requirements: "be friendly",
	}

	if got := p.Age(now); got != 48*time.Hour {
		t.Fatalf("unexpected age: %v", got)
	}
	if got := p.SearchText(); got != "sell things be friendly" {
		t.Fatalf("unexpected search text: %q", got)
	}
}
