// Package detect classifies whether a normalized chat message plausibly
// describes a job opening, gating the more expensive extraction stage.
package detect

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Signal names reported in Score.Signals.
const (
	SignalKeyword      = "job_keyword"
	SignalFieldMarker  = "field_marker"
	SignalSalaryFigure = "salary_figure"
	SignalLocation     = "location_marker"
	SignalStructure    = "structured_body"
	SignalLength       = "length_in_bounds"
)

// Score is the detector verdict for a single message. It is produced once
// and never mutated.
type Score struct {
	IsCandidate bool
	Value       float64
	Signals     mapset.Set[string]
}

// Weights assigns the relative contribution of each independent signal.
type Weights struct {
	Keyword      float64 `mapstructure:"keyword"`
	FieldMarker  float64 `mapstructure:"field-marker"`
	SalaryFigure float64 `mapstructure:"salary-figure"`
	Location     float64 `mapstructure:"location"`
	Structure    float64 `mapstructure:"structure"`
	Length       float64 `mapstructure:"length"`
}

func (w Weights) total() float64 {
	return w.Keyword + w.FieldMarker + w.SalaryFigure + w.Location + w.Structure + w.Length
}

// Config is an immutable snapshot of the detector tuning. Build it once per
// run and pass it in explicitly; the zero value is not usable, start from
// DefaultConfig.
type Config struct {
	// DetectionThreshold is the minimum score for IsCandidate.
	DetectionThreshold float64 `mapstructure:"detection-threshold"`
	// MinMessageLen and MaxMessageLen bound plausible posting sizes in runes.
	MinMessageLen int `mapstructure:"min-message-len"`
	MaxMessageLen int `mapstructure:"max-message-len"`

	Keywords     []string `mapstructure:"keywords"`
	SkipPatterns []string `mapstructure:"skip-patterns"`
	Locations    []string `mapstructure:"locations"`

	Weights Weights `mapstructure:"weights"`
}

// DefaultConfig returns the tuned defaults, vocabulary included. The keyword
// and location lists carry the Ethiopian market terms the feed was built
// around; both are plain substrings matched against normalized text.
func DefaultConfig() Config {
	return Config{
		DetectionThreshold: 0.35,
		MinMessageLen:      40,
		MaxMessageLen:      8000,
		Keywords: []string{
			"job", "vacancy", "hiring", "recruitment", "position", "career",
			"employment", "opportunity", "opening", "apply", "wanted",
			"sera", "sira", "kifiya", "mirmera",
		},
		SkipPatterns: []string{
			"main menu", "back to", "contact support", "update preferences",
			"select job categories", "subscription", "payment received",
			"forwarded job", "matched job", "database error",
		},
		Locations: []string{
			"addis ababa", "adama", "dire dawa", "mekelle", "gondar",
			"bahir dar", "hawassa", "jimma", "dessie", "remote",
		},
		Weights: Weights{
			Keyword:      3,
			FieldMarker:  3,
			SalaryFigure: 2,
			Location:     1,
			Structure:    1,
			Length:       1,
		},
	}
}

var (
	fieldMarkerRe  = regexp.MustCompile(`(?m)^(?:job title|position|vacancy|company|organization|work location|location|salary|compensation|deadline|requirements?|qualifications?|experience|job type):`)
	salaryFigureRe = regexp.MustCompile(`\d[\d,]{2,}\s*(?:-|to|–)?\s*[\d,]*\s*(?:etb|birr|br|usd)\b|\bsalary\b`)
	bulletLineRe   = regexp.MustCompile(`(?m)^(?:[-•●]|\d+\.)\s+\S`)
)

// Detector scores normalized messages against a fixed config snapshot.
type Detector struct {
	cfg Config
}

// New creates a Detector. The config is copied and treated as immutable.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect computes the weighted signal score for a normalized message. It
// never fails; empty input, skip-pattern chatter and keyword-free text all
// yield a zero score before any further pattern work runs.
func (d *Detector) Detect(normalized string) Score {
	score := Score{Signals: mapset.NewSet[string]()}
	if normalized == "" {
		return score
	}

	for _, pat := range d.cfg.SkipPatterns {
		if strings.Contains(normalized, pat) {
			return score
		}
	}

	// Keyword presence gates everything else: the common case is ordinary
	// chatter with no job vocabulary at all, and it must stay cheap.
	keyword := false
	for _, kw := range d.cfg.Keywords {
		if containsWord(normalized, kw) {
			keyword = true
			break
		}
	}
	if !keyword {
		return score
	}
	score.Signals.Add(SignalKeyword)

	if fieldMarkerRe.MatchString(normalized) {
		score.Signals.Add(SignalFieldMarker)
	}
	if salaryFigureRe.MatchString(normalized) {
		score.Signals.Add(SignalSalaryFigure)
	}
	for _, loc := range d.cfg.Locations {
		if strings.Contains(normalized, loc) {
			score.Signals.Add(SignalLocation)
			break
		}
	}
	if len(bulletLineRe.FindAllStringIndex(normalized, 2)) >= 2 {
		score.Signals.Add(SignalStructure)
	}
	if n := len([]rune(normalized)); n >= d.cfg.MinMessageLen && n <= d.cfg.MaxMessageLen {
		score.Signals.Add(SignalLength)
	}

	w := d.cfg.Weights
	fired := 0.0
	for _, sig := range score.Signals.ToSlice() {
		switch sig {
		case SignalKeyword:
			fired += w.Keyword
		case SignalFieldMarker:
			fired += w.FieldMarker
		case SignalSalaryFigure:
			fired += w.SalaryFigure
		case SignalLocation:
			fired += w.Location
		case SignalStructure:
			fired += w.Structure
		case SignalLength:
			fired += w.Length
		}
	}

	if total := w.total(); total > 0 {
		score.Value = fired / total
	}
	if score.Value > 1 {
		score.Value = 1
	}
	score.IsCandidate = score.Value >= d.cfg.DetectionThreshold

	return score
}

// containsWord reports whether kw occurs in text with a word boundary in
// front of it, so "sera" does not fire inside "miserable" while "apply"
// still matches "applying".
func containsWord(text, kw string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		at := idx + i
		before := at == 0 || !isWordRune(rune(text[at-1]))
		if before {
			return true
		}
		idx = at + len(kw)
	}
}

func isWordRune(r rune) bool {
	return r == '_' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9')
}
