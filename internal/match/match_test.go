package match

import (
	"testing"
	"time"

	"github.com/addislabs/jobsift/internal/posting"
)

func activePosting(id, title string, age time.Duration) *posting.JobPosting {
	return &posting.JobPosting{
		ID:          id,
		Title:       title,
		Fingerprint: id,
		Description: title,
		FirstSeenAt: time.Now().UTC().Add(-age),
		JobType:     posting.Unknown,
		IsActive:    true,
	}
}

func resultIDs(results *Results) []string {
	ids := make([]string, 0, results.Len())
	for _, r := range results.All() {
		ids = append(ids, r.Posting.ID)
	}
	return ids
}

func TestMatchEmptyQueryOrdersByRecency(t *testing.T) {
	t.Parallel()

	corpus := []*posting.JobPosting{
		activePosting("old", "Cook", 3*24*time.Hour),
		activePosting("new", "Cashier", time.Hour),
		activePosting("mid", "Guard", 24*time.Hour),
	}

	results := NewEngine(DefaultConfig()).Match(Query{MaxExperience: -1}, corpus)

	ids := resultIDs(results)
	expect := []string{"new", "mid", "old"}
	if len(ids) != len(expect) {
		t.Fatalf("expected %d results, got %v", len(expect), ids)
	}
	for i := range expect {
		if ids[i] != expect[i] {
			t.Fatalf("expected order %v, got %v", expect, ids)
		}
	}
}

func TestMatchTitleHitOutranksBodyHit(t *testing.T) {
	t.Parallel()

	inTitle := activePosting("title-hit", "Python Developer", time.Hour)
	inBody := activePosting("body-hit", "Backend Engineer", time.Hour)
	inBody.Description = "must know python and django"

	query := Query{Keywords: []string{"python"}, MaxExperience: -1}
	results := NewEngine(DefaultConfig()).Match(query, []*posting.JobPosting{inBody, inTitle})

	ids := resultIDs(results)
	if len(ids) != 2 || ids[0] != "title-hit" || ids[1] != "body-hit" {
		t.Fatalf("expected title hit first, got %v", ids)
	}
	if !results.All()[0].MatchedTerms.Contains("python") {
		t.Fatalf("matched terms not recorded")
	}
}

func TestMatchStemming(t *testing.T) {
	t.Parallel()

	p := activePosting("dev", "Senior Developer", time.Hour)

	query := Query{Keywords: []string{"developers"}, MaxExperience: -1}
	results := NewEngine(DefaultConfig()).Match(query, []*posting.JobPosting{p})

	if results.Len() != 1 {
		t.Fatalf("expected suffix-stemmed keyword to match, got %d results", results.Len())
	}
}

func TestMatchHardFilters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   Query
		posting func() *posting.JobPosting
		kept    bool
	}{
		{
			name:  "job type mismatch excluded despite perfect keywords",
			query: Query{Keywords: []string{"developer"}, JobTypeFilter: posting.Remote, MaxExperience: -1},
			posting: func() *posting.JobPosting {
				p := activePosting("p", "Developer", time.Hour)
				p.JobType = posting.FullTime
				return p
			},
			kept: false,
		},
		{
			name:  "salary below minimum excluded",
			query: Query{Keywords: []string{"developer"}, MinSalary: 10000, MaxExperience: -1},
			posting: func() *posting.JobPosting {
				p := activePosting("p", "Developer", time.Hour)
				p.SalaryMin = 5000
				p.SalaryMax = 8000
				return p
			},
			kept: false,
		},
		{
			name:  "unknown salary passes the minimum filter",
			query: Query{Keywords: []string{"developer"}, MinSalary: 10000, MaxExperience: -1},
			posting: func() *posting.JobPosting {
				return activePosting("p", "Developer", time.Hour)
			},
			kept: true,
		},
		{
			name:  "experience requirement above maximum excluded",
			query: Query{Keywords: []string{"developer"}, MaxExperience: 2},
			posting: func() *posting.JobPosting {
				p := activePosting("p", "Developer", time.Hour)
				p.Requirements = "5+ years experience with go"
				return p
			},
			kept: false,
		},
		{
			name:  "experience requirement within maximum kept",
			query: Query{Keywords: []string{"developer"}, MaxExperience: 3},
			posting: func() *posting.JobPosting {
				p := activePosting("p", "Developer", time.Hour)
				p.Requirements = "2 years experience"
				return p
			},
			kept: true,
		},
		{
			name:  "inactive posting never returned",
			query: Query{MaxExperience: -1},
			posting: func() *posting.JobPosting {
				p := activePosting("p", "Developer", time.Hour)
				p.IsActive = false
				return p
			},
			kept: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			results := NewEngine(DefaultConfig()).Match(tt.query, []*posting.JobPosting{tt.posting()})
			if kept := results.Len() == 1; kept != tt.kept {
				t.Fatalf("expected kept=%v, got %d results", tt.kept, results.Len())
			}
		})
	}
}

func TestMatchThresholdCutsWeakMatches(t *testing.T) {
	t.Parallel()

	// No keyword hit and three-week-old posting: the composite drops below
	// the default threshold.
	p := activePosting("weak", "Warehouse Supervisor", 21*24*time.Hour)

	query := Query{Keywords: []string{"nurse"}, MaxExperience: -1}
	results := NewEngine(DefaultConfig()).Match(query, []*posting.JobPosting{p})

	if results.Len() != 0 {
		t.Fatalf("expected weak match to be cut, got %d results", results.Len())
	}
}

func TestResultsPage(t *testing.T) {
	t.Parallel()

	corpus := make([]*posting.JobPosting, 0, 25)
	for i := 0; i < 25; i++ {
		corpus = append(corpus, activePosting(string(rune('a'+i)), "Clerk", time.Duration(i)*time.Minute))
	}

	results := NewEngine(DefaultConfig()).Match(Query{MaxExperience: -1}, corpus)
	if results.Len() != 25 {
		t.Fatalf("expected 25 results, got %d", results.Len())
	}

	first := results.Page(0, 10)
	second := results.Page(10, 10)
	last := results.Page(20, 10)

	if len(first) != 10 || len(second) != 10 || len(last) != 5 {
		t.Fatalf("unexpected page sizes: %d %d %d", len(first), len(second), len(last))
	}
	if first[0].Posting.ID != results.All()[0].Posting.ID {
		t.Fatalf("page one must start at the top result")
	}
	if got := results.Page(30, 10); got != nil {
		t.Fatalf("out-of-range page must be empty, got %d", len(got))
	}
	if got := results.Page(0, 0); got != nil {
		t.Fatalf("zero-size page must be empty, got %d", len(got))
	}

	// Pages are restartable: asking for the same page twice gives the same
	// slice of the sorted set.
	again := results.Page(10, 10)
	for i := range second {
		if second[i].Posting.ID != again[i].Posting.ID {
			t.Fatalf("page not stable across calls")
		}
	}
}
