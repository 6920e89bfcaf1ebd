package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/addislabs/jobsift/internal/posting"
)

// Memory is a mutex-guarded in-memory Store. It backs package tests and the
// run command's dry-run mode, and mirrors the Postgres fingerprint
// uniqueness contract so duplicate races resolve the same way.
type Memory struct {
	mu       sync.Mutex
	postings map[string]*posting.JobPosting // keyed by id
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{postings: make(map[string]*posting.JobPosting)}
}

func (s *Memory) FindByFingerprint(_ context.Context, fingerprint string) (*posting.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.postings {
		if p.IsActive && p.Fingerprint == fingerprint {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *Memory) FindRecent(_ context.Context, window time.Duration) ([]*posting.JobPosting, error) {
	cutoff := time.Now().UTC().Add(-window)
	return s.collect(func(p *posting.JobPosting) bool {
		return p.IsActive && p.FirstSeenAt.After(cutoff)
	}), nil
}

func (s *Memory) FindActive(_ context.Context) ([]*posting.JobPosting, error) {
	return s.collect(func(p *posting.JobPosting) bool { return p.IsActive }), nil
}

func (s *Memory) Insert(_ context.Context, p *posting.JobPosting) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.postings {
		if existing.IsActive && existing.Fingerprint == p.Fingerprint {
			return "", ErrConflict
		}
	}

	clone := *p
	s.postings[p.ID] = &clone
	return p.ID, nil
}

func (s *Memory) DeactivateOlderThan(_ context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, p := range s.postings {
		if p.IsActive && p.FirstSeenAt.Before(cutoff) {
			p.IsActive = false
			n++
		}
	}
	return n, nil
}

// Len reports how many postings are stored, active or not.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.postings)
}

func (s *Memory) collect(keep func(*posting.JobPosting) bool) []*posting.JobPosting {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*posting.JobPosting
	for _, p := range s.postings {
		if keep(p) {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FirstSeenAt.After(out[j].FirstSeenAt)
	})
	return out
}
