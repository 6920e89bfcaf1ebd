package extract

// Merge combines the rule-based baseline with the optional NLP results into
// one value per field. It is a pure data combination, independent of which
// extractors actually ran:
//
//   - for each field the candidate with higher confidence wins,
//   - on a tie the rule-based value wins (deterministic, no dependency on
//     an optional resource),
//   - candidates below floor are dropped so the field stays unset rather
//     than guessed.
func Merge(rule, nlp []Candidate, floor float64) map[string]Candidate {
	merged := make(map[string]Candidate, len(rule))

	for _, c := range rule {
		if c.Confidence < floor {
			continue
		}
		if prev, ok := merged[c.Field]; !ok || c.Confidence > prev.Confidence {
			merged[c.Field] = c
		}
	}

	for _, c := range nlp {
		if c.Confidence < floor {
			continue
		}
		if prev, ok := merged[c.Field]; !ok || c.Confidence > prev.Confidence {
			merged[c.Field] = c
		}
	}

	return merged
}
