// Package dedup suppresses re-insertion of postings already seen, either
// verbatim (exact fingerprint) or re-broadcast with minor edits
// (token-set similarity).
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/addislabs/jobsift/internal/posting"
	"github.com/addislabs/jobsift/internal/textnorm"
)

// Fingerprint digests the normalized identity fields of a posting. It is
// stable under whitespace, case and markup variation of the same content.
func Fingerprint(title, company, location string) string {
	n := textnorm.New(nil)
	h := sha256.New()
	h.Write([]byte(n.Normalize(title)))
	h.Write([]byte{'|'})
	h.Write([]byte(n.Normalize(company)))
	h.Write([]byte{'|'})
	h.Write([]byte(n.Normalize(location)))
	return hex.EncodeToString(h.Sum(nil))
}

// Decision is the deduplication verdict for a draft posting. A duplicate
// decision references the stored posting it matched, so the caller can bump
// a repost counter on it.
type Decision struct {
	Duplicate  bool
	MatchedID  string
	Exact      bool
	Similarity float64
}

// Config tunes the two-stage duplicate check. All values are named
// tunables surfaced through file configuration.
type Config struct {
	// RecencyWindow bounds both the exact and fuzzy scans: postings older
	// than this are never considered duplicate ancestors.
	RecencyWindow time.Duration `mapstructure:"recency-window"`
	// NearDuplicateThreshold is the minimum description token-set Jaccard
	// similarity that rejects a draft as a near-duplicate.
	NearDuplicateThreshold float64 `mapstructure:"near-duplicate-threshold"`
	// TitleOverlapPrefilter is the coarse title token overlap required
	// before the description similarity is computed at all.
	TitleOverlapPrefilter float64 `mapstructure:"title-overlap-prefilter"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		RecencyWindow:          14 * 24 * time.Hour,
		NearDuplicateThreshold: 0.75,
		TitleOverlapPrefilter:  0.5,
	}
}

// Lookup is the slice of the persistence contract the checker needs.
type Lookup interface {
	FindByFingerprint(ctx context.Context, fingerprint string) (*posting.JobPosting, error)
	FindRecent(ctx context.Context, window time.Duration) ([]*posting.JobPosting, error)
}

// Checker runs the two-stage duplicate check: an O(1) exact fingerprint
// lookup, then a fuzzy scan bounded to the recency window and gated by a
// cheap title-overlap prefilter.
type Checker struct {
	cfg    Config
	lookup Lookup
	seen   *SeenCache
	logger *zap.Logger
}

// New creates a Checker. seen may be nil when no cache is configured.
func New(cfg Config, lookup Lookup, seen *SeenCache, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{cfg: cfg, lookup: lookup, seen: seen, logger: log}
}

// Check decides whether draft duplicates a stored posting. The draft's
// Fingerprint must already be set. Store failures propagate; cache
// failures quietly fall through to the store.
func (c *Checker) Check(ctx context.Context, draft *posting.JobPosting) (Decision, error) {
	if c.seen != nil {
		if id, ok := c.seen.Find(ctx, draft.Fingerprint); ok {
			return Decision{Duplicate: true, MatchedID: id, Exact: true, Similarity: 1}, nil
		}
	}

	existing, err := c.lookup.FindByFingerprint(ctx, draft.Fingerprint)
	if err != nil {
		return Decision{}, err
	}
	if existing != nil && withinWindow(existing, c.cfg.RecencyWindow) {
		return Decision{Duplicate: true, MatchedID: existing.ID, Exact: true, Similarity: 1}, nil
	}

	recent, err := c.lookup.FindRecent(ctx, c.cfg.RecencyWindow)
	if err != nil {
		return Decision{}, err
	}

	draftTitle := textnorm.TokenSet(draft.Title)
	draftBody := textnorm.TokenSet(draft.Description)

	for _, p := range recent {
		if overlap(draftTitle, textnorm.TokenSet(p.Title)) < c.cfg.TitleOverlapPrefilter {
			continue
		}

		similarity := Jaccard(draftBody, textnorm.TokenSet(p.Description))
		if similarity >= c.cfg.NearDuplicateThreshold {
			c.logger.Debug("near-duplicate posting",
				zap.String("matched_id", p.ID),
				zap.Float64("similarity", similarity),
			)
			return Decision{Duplicate: true, MatchedID: p.ID, Similarity: similarity}, nil
		}
	}

	return Decision{}, nil
}

// Jaccard computes token-set similarity in [0,1]. Two empty sets are
// treated as dissimilar: a posting with no body text says nothing.
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}

	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// overlap reports the fraction of the smaller title's tokens shared with
// the other title.
func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	inter := 0
	for tok := range small {
		if large[tok] {
			inter++
		}
	}
	return float64(inter) / float64(len(small))
}

func withinWindow(p *posting.JobPosting, window time.Duration) bool {
	return time.Since(p.FirstSeenAt) <= window
}
