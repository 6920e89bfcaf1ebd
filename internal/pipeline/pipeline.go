// Package pipeline orchestrates the per-message ingestion flow:
// normalize, detect, extract, deduplicate, persist. Each invocation is
// stateless and safe to run concurrently with others; the store is the
// only shared collaborator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/addislabs/jobsift/internal/dedup"
	"github.com/addislabs/jobsift/internal/detect"
	"github.com/addislabs/jobsift/internal/extract"
	"github.com/addislabs/jobsift/internal/logger"
	"github.com/addislabs/jobsift/internal/posting"
	"github.com/addislabs/jobsift/internal/store"
	"github.com/addislabs/jobsift/internal/textnorm"
)

// Outcome classifies how a message left the pipeline. Every value except
// Accepted is a normal rejection, reported as data and logged at
// informational severity or below, never as an error.
type Outcome string

const (
	Accepted     Outcome = "accepted"
	NotCandidate Outcome = "not_candidate"
	NoTitle      Outcome = "no_title"
	Duplicate    Outcome = "duplicate"
)

// Result describes one pipeline invocation.
type Result struct {
	Outcome        Outcome
	PostingID      string
	DuplicateOf    string
	DetectionScore float64
}

// Deps aggregates the collaborators a Pipeline runs against.
type Deps struct {
	Normalizer *textnorm.Normalizer
	Detector   *detect.Detector
	// Extractors run in order; the first is the rule-based baseline and
	// later ones may override fields with higher confidence.
	Extractors []extract.Extractor
	Checker    *dedup.Checker
	Store      store.Store
	// Seen is the optional fingerprint cache, primed on every accept.
	Seen   *dedup.SeenCache
	Logger *zap.Logger
}

// Config carries the pipeline's own tunables.
type Config struct {
	// ConfidenceFloor is the minimum per-field confidence for an extracted
	// value to be kept; fields below it stay unset rather than guessed.
	ConfidenceFloor float64 `mapstructure:"confidence-floor"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{ConfidenceFloor: 0.4}
}

// Pipeline processes inbound messages one at a time.
type Pipeline struct {
	cfg  Config
	deps Deps
}

// New creates a Pipeline. Normalizer, Detector, at least one Extractor and
// the Store are required.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Normalizer == nil || deps.Detector == nil || deps.Store == nil {
		return nil, errors.New("normalizer, detector and store are required")
	}
	if len(deps.Extractors) == 0 {
		return nil, errors.New("at least one extractor is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, deps: deps}, nil
}

// Process runs the full ingestion flow for one raw message. Rejections are
// normal results; only collaborator failures (store unreachable, timeout)
// surface as errors, leaving retry policy to the caller.
func (p *Pipeline) Process(ctx context.Context, msg posting.RawMessage) (*Result, error) {
	log := logger.WithFields(p.deps.Logger, logger.SourceFields(msg.SourceChannelID, msg.MessageID)...)

	normalized := p.deps.Normalizer.Normalize(msg.Text)

	score := p.deps.Detector.Detect(normalized)
	if !score.IsCandidate {
		log.Debug("message rejected",
			zap.String("stage", "detect"),
			zap.Float64("score", score.Value),
			zap.Any("signals", score.Signals.ToSlice()),
		)
		return &Result{Outcome: NotCandidate, DetectionScore: score.Value}, nil
	}

	log.Debug("candidate detected",
		zap.Float64("score", score.Value),
		zap.Any("signals", score.Signals.ToSlice()),
	)

	merged := p.runExtractors(ctx, normalized, log)

	draft, ok := extract.BuildDraft(msg, merged, time.Now())
	if !ok {
		log.Info("message rejected",
			zap.String("stage", "extract"),
			zap.String("reason", "no usable title"),
			zap.String("preview", logger.TruncateForLog(normalized, 80)),
		)
		return &Result{Outcome: NoTitle, DetectionScore: score.Value}, nil
	}
	draft.Fingerprint = dedup.Fingerprint(draft.Title, draft.Company, draft.Location)

	decision, err := p.deps.Checker.Check(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if decision.Duplicate {
		log.Info("message rejected",
			zap.String("stage", "dedup"),
			zap.String("duplicate_of", decision.MatchedID),
			zap.Bool("exact", decision.Exact),
			zap.Float64("similarity", decision.Similarity),
		)
		return &Result{Outcome: Duplicate, DuplicateOf: decision.MatchedID, DetectionScore: score.Value}, nil
	}

	id, err := p.deps.Store.Insert(ctx, draft)
	if errors.Is(err, store.ErrConflict) {
		// Lost a race with a concurrent identical message; the store's
		// uniqueness contract is the final word.
		log.Info("message rejected",
			zap.String("stage", "insert"),
			zap.String("reason", "fingerprint conflict"),
		)
		return &Result{Outcome: Duplicate, DetectionScore: score.Value}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert posting: %w", err)
	}

	if p.deps.Seen != nil {
		p.deps.Seen.Remember(ctx, draft.Fingerprint, id)
	}

	log.Info("posting accepted",
		zap.String(logger.FieldPosting, id),
		zap.String("title", draft.Title),
		zap.String("company", draft.Company),
		zap.String("location", draft.Location),
		zap.Float64("score", score.Value),
	)

	return &Result{Outcome: Accepted, PostingID: id, DetectionScore: score.Value}, nil
}

// runExtractors merges the candidates of every configured extractor. The
// first extractor's results seed the merge; subsequent extractors only win
// fields they resolved with strictly higher confidence.
func (p *Pipeline) runExtractors(ctx context.Context, normalized string, log *zap.Logger) map[string]extract.Candidate {
	baseline, err := p.deps.Extractors[0].Extract(ctx, normalized)
	if err != nil {
		// The rule extractor never errors; treat a custom baseline's
		// failure like an empty result.
		log.Warn("baseline extractor failed", zap.Error(err))
	}

	var overrides []extract.Candidate
	for _, e := range p.deps.Extractors[1:] {
		candidates, err := e.Extract(ctx, normalized)
		if err != nil {
			log.Warn("extractor failed, skipping",
				zap.String("extractor", e.Name()),
				zap.Error(err),
			)
			continue
		}
		overrides = append(overrides, candidates...)
	}

	return extract.Merge(baseline, overrides, p.cfg.ConfidenceFloor)
}
