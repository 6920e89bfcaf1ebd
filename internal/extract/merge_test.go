package extract

import (
	"testing"

	"github.com/addislabs/jobsift/internal/posting"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rule   []Candidate
		nlp    []Candidate
		floor  float64
		expect map[string]string
	}{
		{
			name: "higher confidence wins",
			rule: []Candidate{{posting.FieldTitle, "barista needed", 0.5}},
			nlp:  []Candidate{{posting.FieldTitle, "barista", 0.9}},
			expect: map[string]string{
				posting.FieldTitle: "barista",
			},
		},
		{
			name: "rule wins on tie",
			rule: []Candidate{{posting.FieldCompany, "zemen bank", 0.8}},
			nlp:  []Candidate{{posting.FieldCompany, "zemen", 0.8}},
			expect: map[string]string{
				posting.FieldCompany: "zemen bank",
			},
		},
		{
			name:  "below floor dropped",
			rule:  []Candidate{{posting.FieldJobType, "remote", 0.5}},
			nlp:   []Candidate{{posting.FieldLocation, "adama", 0.3}},
			floor: 0.4,
			expect: map[string]string{
				posting.FieldJobType: "remote",
			},
		},
		{
			name: "disjoint fields union",
			rule: []Candidate{{posting.FieldTitle, "cashier", 1.0}},
			nlp:  []Candidate{{posting.FieldCompany, "dashen brewery", 0.7}},
			expect: map[string]string{
				posting.FieldTitle:   "cashier",
				posting.FieldCompany: "dashen brewery",
			},
		},
		{
			name:   "both empty",
			expect: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			merged := Merge(tt.rule, tt.nlp, tt.floor)
			if len(merged) != len(tt.expect) {
				t.Fatalf("expected %d fields, got %d: %v", len(tt.expect), len(merged), merged)
			}
			for field, value := range tt.expect {
				got, ok := merged[field]
				if !ok {
					t.Fatalf("field %s missing", field)
				}
				if got.Value != value {
					t.Fatalf("field %s: expected %q, got %q", field, value, got.Value)
				}
			}
		})
	}
}
