package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/addislabs/jobsift/internal/posting"
)

// Confidence tiers assigned by the rule extractor. An explicit labelled
// line is an exact structural match; everything else is inference.
const (
	confExact     = 1.0
	confInline    = 0.9
	confHeuristic = 0.8
	confCityScan  = 0.6
	confKeyword   = 0.5
)

type fieldPattern struct {
	field      string
	re         *regexp.Regexp
	confidence float64
}

// Ordered per-field patterns; for each field the first match wins.
var rulePatterns = []fieldPattern{
	{posting.FieldTitle, regexp.MustCompile(`(?m)^(?:job title|position|role|vacancy|job):\s*(.+)$`), confExact},
	{posting.FieldTitle, regexp.MustCompile(`\bhiring\s+(?:an?\s+)?([a-z0-9][a-z0-9+#/ -]*?)(?:\s+(?:in|at|for)\s|[,.!\n]|$)`), confHeuristic},

	{posting.FieldCompany, regexp.MustCompile(`(?m)^(?:company|organization|employer):\s*(.+)$`), confExact},

	{posting.FieldLocation, regexp.MustCompile(`(?m)^(?:work location|location|city|place of work):\s*(.+)$`), confExact},

	{posting.FieldJobType, regexp.MustCompile(`(?m)^(?:job type|employment type):\s*(.+)$`), confExact},
}

var (
	salaryLineRe   = regexp.MustCompile(`(?m)^(?:salary|compensation|salary/compensation|pay):\s*(.+)$`)
	salaryRangeRe  = regexp.MustCompile(`([\d,]{3,})\s*(?:-|–|to)\s*([\d,]{3,})\s*(?:etb|birr|br|usd)?`)
	salarySingleRe = regexp.MustCompile(`(?:salary|compensation|pay)\s*:?\s*([\d,]{3,})\s*(?:etb|birr|br|usd)?`)

	requirementsHeadRe = regexp.MustCompile(`(?m)^(?:requirements?|qualifications?):\s*`)

	descriptionNoiseRe = regexp.MustCompile(`https?://\S+|@\w+|share this post|forward this message|join this channel|click here`)
	spaceRunRe         = regexp.MustCompile(`\s+`)
)

// jobTypeKeywords infer a job type from vocabulary anywhere in the text
// when no explicit "job type:" line exists. Multi-word phrases are tried
// before single words so "full time" beats a stray "contract" mention.
var jobTypeKeywords = []struct {
	keyword string
	value   string
}{
	{"work from home", "remote"},
	{"part time", "part_time"},
	{"full time", "full_time"},
	{"internship", "internship"},
	{"intern", "internship"},
	{"trainee", "internship"},
	{"freelance", "contract"},
	{"contract", "contract"},
	{"permanent", "full_time"},
	{"wfh", "remote"},
	{"remote", "remote"},
}

// RuleExtractor applies a fixed ordered pattern table per field. It is the
// deterministic baseline extractor and never returns an error.
type RuleExtractor struct {
	locations []string
}

// NewRuleExtractor creates the rule-based extractor. locations is the known
// city vocabulary used for the location fallback scan.
func NewRuleExtractor(locations []string) *RuleExtractor {
	return &RuleExtractor{locations: locations}
}

func (e *RuleExtractor) Name() string { return "rules" }

// Extract runs every field's pattern list against the normalized text. The
// first matching pattern per field wins; fields with no match are simply
// absent from the result.
func (e *RuleExtractor) Extract(_ context.Context, normalized string) ([]Candidate, error) {
	if normalized == "" {
		return nil, nil
	}

	found := make(map[string]Candidate)

	for _, p := range rulePatterns {
		if _, ok := found[p.field]; ok {
			continue
		}
		if m := p.re.FindStringSubmatch(normalized); m != nil {
			value := strings.TrimSpace(m[1])
			if value != "" {
				found[p.field] = Candidate{Field: p.field, Value: value, Confidence: p.confidence}
			}
		}
	}

	if _, ok := found[posting.FieldTitle]; !ok {
		if title := firstLineTitle(normalized); title != "" {
			found[posting.FieldTitle] = Candidate{Field: posting.FieldTitle, Value: title, Confidence: confKeyword}
		}
	}

	if _, ok := found[posting.FieldLocation]; !ok {
		for _, city := range e.locations {
			if strings.Contains(normalized, city) {
				found[posting.FieldLocation] = Candidate{Field: posting.FieldLocation, Value: city, Confidence: confCityScan}
				break
			}
		}
	}

	if _, ok := found[posting.FieldJobType]; !ok {
		for _, jt := range jobTypeKeywords {
			if containsKeyword(normalized, jt.keyword) {
				found[posting.FieldJobType] = Candidate{Field: posting.FieldJobType, Value: jt.value, Confidence: confKeyword}
				break
			}
		}
	}

	extractSalary(normalized, found)

	if req := requirementsBlock(normalized); req != "" {
		found[posting.FieldRequirements] = Candidate{Field: posting.FieldRequirements, Value: req, Confidence: confExact}
	}

	found[posting.FieldDescription] = Candidate{
		Field:      posting.FieldDescription,
		Value:      cleanDescription(normalized),
		Confidence: confExact,
	}

	out := make([]Candidate, 0, len(found))
	for _, c := range found {
		out = append(out, c)
	}
	return out, nil
}

// extractSalary resolves salary_min and salary_max. An explicit salary line
// is exact; a bare "15000-20000 etb" range elsewhere in the text is close
// behind; a single figure next to a salary word sets only the minimum.
func extractSalary(text string, found map[string]Candidate) {
	confidence := confInline
	scope := text
	if m := salaryLineRe.FindStringSubmatch(text); m != nil {
		scope = m[1]
		confidence = confExact
	}

	if m := salaryRangeRe.FindStringSubmatch(scope); m != nil {
		found[posting.FieldSalaryMin] = Candidate{Field: posting.FieldSalaryMin, Value: m[1], Confidence: confidence}
		found[posting.FieldSalaryMax] = Candidate{Field: posting.FieldSalaryMax, Value: m[2], Confidence: confidence}
		return
	}

	if m := salarySingleRe.FindStringSubmatch(text); m != nil {
		if confidence == confInline {
			confidence = 0.7
		}
		found[posting.FieldSalaryMin] = Candidate{Field: posting.FieldSalaryMin, Value: m[1], Confidence: confidence}
	}
}

// containsKeyword reports whether keyword occurs in text delimited by
// non-word runes on both sides, so "intern" never fires inside
// "international". The keyword may itself contain spaces.
func containsKeyword(text, keyword string) bool {
	for from := 0; ; {
		at := strings.Index(text[from:], keyword)
		if at < 0 {
			return false
		}
		at += from

		end := at + len(keyword)
		if (at == 0 || !isWordByte(text[at-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		from = at + 1
	}
}

// isWordByte covers the normalized (lowercased) alphabet; multi-byte runes
// count as boundaries.
func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// firstLineTitle treats a short leading line as the title, the common shape
// of unlabelled postings. Lines that look like headers or labels are skipped.
func firstLineTitle(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	if line == "" || len([]rune(line)) > 80 || strings.HasSuffix(line, ":") || strings.Contains(line, ":") {
		return ""
	}
	return line
}

// requirementsBlock returns the text between a requirements header and the
// next blank line or labelled line.
func requirementsBlock(text string) string {
	loc := requirementsHeadRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	rest := text[loc[1]:]
	var lines []string
	for _, line := range strings.Split(rest, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		if len(lines) > 0 && fieldLabelRe.MatchString(trimmed) {
			break
		}
		lines = append(lines, trimmed)
	}
	return strings.Join(lines, "\n")
}

var fieldLabelRe = regexp.MustCompile(`^[a-z/ ]{2,24}:\s`)

// cleanDescription strips link/mention spam from the message body,
// mirroring what the feed itself considers noise.
func cleanDescription(text string) string {
	cleaned := descriptionNoiseRe.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(cleaned, " "))
}
