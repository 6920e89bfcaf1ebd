// Package sweeper runs the periodic retention job that deactivates postings
// older than the configured time to live.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/addislabs/jobsift/internal/store"
)

// Config carries the sweeper schedule and retention policy.
type Config struct {
	// Schedule is a cron spec, e.g. "@every 6h".
	Schedule string `mapstructure:"schedule"`
	// PostingTTL is how long an accepted posting stays active.
	PostingTTL time.Duration `mapstructure:"posting-ttl"`
}

// DefaultConfig returns the tuned defaults: sweep every six hours, keep
// postings active for thirty days.
func DefaultConfig() Config {
	return Config{
		Schedule:   "@every 6h",
		PostingTTL: 30 * 24 * time.Hour,
	}
}

// Sweeper wraps robfig/cron around the store's retention operation.
type Sweeper struct {
	cfg    Config
	store  store.Store
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a Sweeper. The store is required.
func New(cfg Config, st store.Store, logger *zap.Logger) (*Sweeper, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultConfig().Schedule
	}
	if cfg.PostingTTL <= 0 {
		cfg.PostingTTL = DefaultConfig().PostingTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sweeper{
		cfg:    cfg,
		store:  st,
		cron:   cron.New(),
		logger: logger,
	}, nil
}

// Start registers the retention job and starts the scheduler. One sweep runs
// immediately so a long schedule does not delay the first cleanup.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("register retention job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("retention sweeper started",
		zap.String("schedule", s.cfg.Schedule),
		zap.Duration("posting_ttl", s.cfg.PostingTTL),
	)

	go s.Sweep(ctx)

	return nil
}

// Stop shuts the scheduler down. Running jobs are allowed to finish.
func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("retention sweeper stopped")
}

// Sweep deactivates every active posting older than the TTL. Errors are
// logged, not returned; the next tick retries.
func (s *Sweeper) Sweep(ctx context.Context) {
	n, err := s.store.DeactivateOlderThan(ctx, s.cfg.PostingTTL)
	if err != nil {
		s.logger.Error("retention sweep failed", zap.Error(err))
		return
	}

	if n > 0 {
		s.logger.Info("retention sweep complete",
			zap.Int("deactivated", n),
			zap.Duration("posting_ttl", s.cfg.PostingTTL),
		)
		return
	}
	s.logger.Debug("retention sweep complete, nothing to deactivate")
}
