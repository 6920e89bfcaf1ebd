package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/addislabs/jobsift/internal/posting"
)

// uniqueViolation is the Postgres error code raised by the fingerprint
// unique index when two pipeline invocations race to insert the same
// posting.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS job_postings (
    id                TEXT PRIMARY KEY,
    title             TEXT NOT NULL,
    company           TEXT NOT NULL DEFAULT '',
    location          TEXT NOT NULL DEFAULT '',
    job_type          TEXT NOT NULL DEFAULT 'unknown',
    salary_min        BIGINT NOT NULL DEFAULT 0,
    salary_max        BIGINT NOT NULL DEFAULT 0,
    description       TEXT NOT NULL DEFAULT '',
    requirements      TEXT NOT NULL DEFAULT '',
    confidence        JSONB NOT NULL DEFAULT '{}',
    fingerprint       TEXT NOT NULL,
    source_channel_id TEXT NOT NULL,
    source_message_id TEXT NOT NULL,
    first_seen_at     TIMESTAMPTZ NOT NULL,
    is_active         BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE UNIQUE INDEX IF NOT EXISTS job_postings_active_fingerprint
    ON job_postings (fingerprint) WHERE is_active;
CREATE INDEX IF NOT EXISTS job_postings_first_seen_at
    ON job_postings (first_seen_at DESC);
`

const selectColumns = `id, title, company, location, job_type, salary_min, salary_max,
    description, requirements, confidence, fingerprint, source_channel_id, source_message_id,
    first_seen_at, is_active`

// Postgres is the pgx-backed Store implementation. The fingerprint
// uniqueness contract lives in a partial unique index over active rows, so
// the database is the final arbiter for concurrent duplicate inserts.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPool creates and verifies a pgx connection pool.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}

	return pool, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the postings table and indexes when absent.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) FindByFingerprint(ctx context.Context, fingerprint string) (*posting.JobPosting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM job_postings WHERE fingerprint = $1 AND is_active`,
		fingerprint,
	)

	p, err := scanPosting(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return p, nil
}

func (s *Postgres) FindRecent(ctx context.Context, window time.Duration) ([]*posting.JobPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM job_postings
		 WHERE is_active AND first_seen_at >= $1
		 ORDER BY first_seen_at DESC`,
		time.Now().UTC().Add(-window),
	)
	if err != nil {
		return nil, fmt.Errorf("find recent: %w", err)
	}
	defer rows.Close()

	return collectPostings(rows)
}

func (s *Postgres) FindActive(ctx context.Context) ([]*posting.JobPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM job_postings
		 WHERE is_active
		 ORDER BY first_seen_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("find active: %w", err)
	}
	defer rows.Close()

	return collectPostings(rows)
}

func (s *Postgres) Insert(ctx context.Context, p *posting.JobPosting) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	confidence, err := json.Marshal(p.Confidence)
	if err != nil {
		return "", fmt.Errorf("marshal confidence: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO job_postings (`+selectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.Title, p.Company, p.Location, string(p.JobType), p.SalaryMin, p.SalaryMax,
		p.Description, p.Requirements, confidence, p.Fingerprint, p.SourceChannelID, p.SourceMessageID,
		p.FirstSeenAt, p.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", ErrConflict
		}
		return "", fmt.Errorf("insert posting: %w", err)
	}

	return p.ID, nil
}

func (s *Postgres) DeactivateOlderThan(ctx context.Context, age time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_postings SET is_active = FALSE
		 WHERE is_active AND first_seen_at < $1`,
		time.Now().UTC().Add(-age),
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate postings: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanPosting(row pgx.Row) (*posting.JobPosting, error) {
	var (
		p          posting.JobPosting
		jobType    string
		confidence []byte
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Company, &p.Location, &jobType, &p.SalaryMin, &p.SalaryMax,
		&p.Description, &p.Requirements, &confidence, &p.Fingerprint, &p.SourceChannelID, &p.SourceMessageID,
		&p.FirstSeenAt, &p.IsActive,
	)
	if err != nil {
		return nil, err
	}
	p.JobType = posting.JobType(jobType)
	if len(confidence) > 0 {
		if err := json.Unmarshal(confidence, &p.Confidence); err != nil {
			return nil, fmt.Errorf("unmarshal confidence: %w", err)
		}
	}
	return &p, nil
}

func collectPostings(rows pgx.Rows) ([]*posting.JobPosting, error) {
	var out []*posting.JobPosting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
