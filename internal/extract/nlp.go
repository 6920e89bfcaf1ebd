package extract

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/addislabs/jobsift/internal/ai"
)

// NLPExtractor adapts an ai.Recognizer into the common extraction
// capability. The recognizer is optional infrastructure: when it is absent
// or failing, Extract degrades to an empty contribution so the rule-based
// baseline still stands. The degradation is logged once at warning level,
// not per message.
type NLPExtractor struct {
	recognizer ai.Recognizer
	logger     *zap.Logger
	warnOnce   sync.Once
}

// NewNLPExtractor wraps recognizer; a nil recognizer yields a permanently
// empty extractor.
func NewNLPExtractor(recognizer ai.Recognizer, log *zap.Logger) *NLPExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &NLPExtractor{recognizer: recognizer, logger: log}
}

func (e *NLPExtractor) Name() string { return "nlp" }

// Extract maps recognized entities to field candidates. It never returns an
// error: recognizer failure is expected degradation, not a pipeline fault.
func (e *NLPExtractor) Extract(ctx context.Context, normalized string) ([]Candidate, error) {
	if e.recognizer == nil || normalized == "" {
		return nil, nil
	}

	entities, err := e.recognizer.Recognize(ctx, normalized)
	if err != nil {
		e.warnOnce.Do(func() {
			e.logger.Warn("nlp recognizer unavailable, continuing with rule-based extraction only",
				zap.Error(err),
			)
		})
		return nil, nil
	}

	candidates := make([]Candidate, 0, len(entities))
	for _, ent := range entities {
		candidates = append(candidates, Candidate{
			Field:      ent.Field,
			Value:      ent.Value,
			Confidence: ent.Confidence,
		})
	}
	return candidates, nil
}
