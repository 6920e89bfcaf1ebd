package match

import (
	"strings"

	"github.com/addislabs/jobsift/internal/posting"
	"github.com/addislabs/jobsift/internal/textnorm"
)

// Query is an interpreted user search request. It is ephemeral, built per
// request. A zero MinSalary and a negative MaxExperience mean the
// respective filter is absent.
type Query struct {
	RawText        string
	Keywords       []string
	LocationFilter string
	JobTypeFilter  posting.JobType
	MinSalary      int
	MaxExperience  int
}

// jobTypePhrases are scanned in free-text queries to lift a job type
// filter out of the keyword stream.
var jobTypePhrases = []string{
	"full time", "part time", "contract", "freelance", "remote",
	"work from home", "internship", "intern",
}

// ParseQuery interprets free search text: normalization, keyword
// extraction, and recognition of a location or job type mentioned inline.
// locations is the known city vocabulary shared with the detector.
// Structured filters (salary, experience) come from the caller, typically
// command flags, and are set on the returned query afterwards.
func ParseQuery(raw string, locations []string, normalizer *textnorm.Normalizer) Query {
	q := Query{
		RawText:       raw,
		JobTypeFilter: posting.Unknown,
		MaxExperience: -1,
	}

	normalized := normalizer.Normalize(raw)
	if normalized == "" {
		return q
	}

	for _, phrase := range jobTypePhrases {
		if strings.Contains(normalized, phrase) {
			q.JobTypeFilter = posting.ParseJobType(phrase)
			break
		}
	}

	for _, city := range locations {
		if strings.Contains(normalized, city) {
			q.LocationFilter = city
			break
		}
	}

	// Location words stay out of the keyword list so a city mention is a
	// filter, not a second scoring hit.
	keywordText := normalized
	if q.LocationFilter != "" {
		keywordText = strings.ReplaceAll(keywordText, q.LocationFilter, " ")
	}

	seen := make(map[string]bool)
	for _, tok := range textnorm.Tokens(keywordText) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		q.Keywords = append(q.Keywords, tok)
	}

	return q
}
