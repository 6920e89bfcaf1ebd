// Package match ranks stored postings against an interpreted user query
// with a composite keyword/location/recency score.
package match

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/addislabs/jobsift/internal/posting"
)

// Weights assigns relative importance to the scored components. Hard
// filters are not weighted: failing one excludes the posting outright.
type Weights struct {
	Keyword  float64 `mapstructure:"keyword"`
	Location float64 `mapstructure:"location"`
	Recency  float64 `mapstructure:"recency"`
}

// Config is the immutable tuning snapshot for the engine.
type Config struct {
	// MatchThreshold is the minimum composite score a posting must reach
	// to appear in results.
	MatchThreshold float64 `mapstructure:"match-threshold"`
	// BodyHitWeight discounts keyword hits found only in the description
	// or requirements relative to title hits (title hit counts as 1.0).
	BodyHitWeight float64 `mapstructure:"body-hit-weight"`
	// RecencyHalfLife controls the exponential age decay of the recency
	// component; a posting this old scores 0.5 on recency.
	RecencyHalfLife time.Duration `mapstructure:"recency-half-life"`

	Weights Weights `mapstructure:"weights"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:  0.3,
		BodyHitWeight:   0.5,
		RecencyHalfLife: 7 * 24 * time.Hour,
		Weights: Weights{
			Keyword:  3,
			Location: 1,
			Recency:  1,
		},
	}
}

// Result is one scored posting. Ordering within a result set is descending
// score, ties broken by descending FirstSeenAt.
type Result struct {
	Posting      *posting.JobPosting
	Score        float64
	MatchedTerms mapset.Set[string]
}

// Results is a finished, stably sorted result set. Each Match call
// recomputes it from scratch (restartable, no hidden cursor); pages are
// served from the already sorted set without rescanning the corpus.
type Results struct {
	items []Result
}

// Len returns the number of postings above the match threshold.
func (r *Results) Len() int { return len(r.items) }

// Page returns the bounded slice [offset, offset+size). Out-of-range pages
// are empty, never an error.
func (r *Results) Page(offset, size int) []Result {
	if offset < 0 || size <= 0 || offset >= len(r.items) {
		return nil
	}
	end := offset + size
	if end > len(r.items) {
		end = len(r.items)
	}
	return r.items[offset:end]
}

// All returns the full ordered result set.
func (r *Results) All() []Result { return r.items }

// Engine scores postings against queries using a fixed config snapshot.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

var requiredYearsRe = regexp.MustCompile(`(\d{1,2})\s*\+?\s*years?`)

// Match scores every active posting in the corpus. Hard filters run first
// and exclude regardless of keyword strength; the composite score is the
// weighted mean of the components applicable to this query, so a query
// with no keywords ranks purely by location and recency.
func (e *Engine) Match(query Query, corpus []*posting.JobPosting) *Results {
	now := time.Now().UTC()
	results := make([]Result, 0, len(corpus))

	for _, p := range corpus {
		if p == nil || !p.IsActive {
			continue
		}
		if !passesFilters(query, p) {
			continue
		}

		matched := mapset.NewSet[string]()
		var score, total float64

		if len(query.Keywords) > 0 {
			score += e.cfg.Weights.Keyword * e.keywordScore(query.Keywords, p, matched)
			total += e.cfg.Weights.Keyword
		}
		if query.LocationFilter != "" {
			score += e.cfg.Weights.Location * locationScore(query.LocationFilter, p.Location)
			total += e.cfg.Weights.Location
		}
		score += e.cfg.Weights.Recency * e.recencyScore(p.Age(now))
		total += e.cfg.Weights.Recency

		if total == 0 {
			continue
		}

		composite := score / total
		if composite < e.cfg.MatchThreshold {
			continue
		}

		results = append(results, Result{Posting: p, Score: composite, MatchedTerms: matched})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Posting.FirstSeenAt.After(results[j].Posting.FirstSeenAt)
	})

	return &Results{items: results}
}

// passesFilters applies the gating, unscored filters: job type, minimum
// salary and maximum required experience. Postings that do not state a
// salary or an experience requirement pass the respective filter.
func passesFilters(q Query, p *posting.JobPosting) bool {
	if q.JobTypeFilter != posting.Unknown && q.JobTypeFilter != "" && p.JobType != q.JobTypeFilter {
		return false
	}

	if q.MinSalary > 0 {
		offered := p.SalaryMax
		if offered == 0 {
			offered = p.SalaryMin
		}
		if offered > 0 && offered < q.MinSalary {
			return false
		}
	}

	if q.MaxExperience >= 0 {
		if years, ok := requiredYears(p.Requirements); ok && years > q.MaxExperience {
			return false
		}
	}

	return true
}

func requiredYears(requirements string) (int, bool) {
	m := requiredYearsRe.FindStringSubmatch(strings.ToLower(requirements))
	if m == nil {
		return 0, false
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return years, true
}

// keywordScore is the fraction of query keywords found in the posting,
// each hit weighted by where it landed: title hits count fully, hits only
// in the body are discounted by BodyHitWeight.
func (e *Engine) keywordScore(keywords []string, p *posting.JobPosting, matched mapset.Set[string]) float64 {
	title := strings.ToLower(p.Title)
	body := strings.ToLower(p.SearchText())

	var sum float64
	for _, kw := range keywords {
		switch {
		case containsStemmed(title, kw):
			sum += 1
			matched.Add(kw)
		case containsStemmed(body, kw):
			sum += e.cfg.BodyHitWeight
			matched.Add(kw)
		}
	}
	return sum / float64(len(keywords))
}

func locationScore(filter, location string) float64 {
	filter = strings.ToLower(strings.TrimSpace(filter))
	location = strings.ToLower(strings.TrimSpace(location))
	if filter == "" || location == "" {
		return 0
	}
	if strings.Contains(location, filter) || strings.Contains(filter, location) {
		return 1
	}
	return 0
}

// recencyScore decays exponentially with posting age. The decay is capped
// at 1 for brand-new postings, so recency gives a bounded boost and can
// never dominate a keyword mismatch.
func (e *Engine) recencyScore(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	half := e.cfg.RecencyHalfLife
	if half <= 0 {
		return 0
	}
	return math.Exp2(-float64(age) / float64(half))
}

// containsStemmed reports whether text contains kw directly or with a
// naive suffix stem, so "developers" still hits "developer".
func containsStemmed(text, kw string) bool {
	if strings.Contains(text, kw) {
		return true
	}
	for _, suffix := range []string{"ing", "ers", "er", "es", "s"} {
		if stem := strings.TrimSuffix(kw, suffix); stem != kw && len(stem) >= 3 && strings.Contains(text, stem) {
			return true
		}
	}
	return false
}
