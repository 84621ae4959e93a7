package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/storage"
)

func (s *Store) UpsertPosting(ctx context.Context, p *jobs.Posting) (string, error) {
	if p == nil || p.ExternalID == "" {
		return "", fmt.Errorf("posting external id is required")
	}

	var extensions []byte
	if p.Extensions != nil {
		raw, err := json.Marshal(p.Extensions)
		if err != nil {
			return "", fmt.Errorf("encode extensions: %w", err)
		}
		extensions = raw
	}
	options := p.ApplyOptions
	if options == nil {
		options = []jobs.ApplyOption{}
	}
	applyOptions, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("encode apply options: %w", err)
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, external_id, title, company, location, description, via, strategy, extensions, apply_options)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (external_id) DO UPDATE SET
		   title = EXCLUDED.title,
		   company = EXCLUDED.company,
		   location = EXCLUDED.location,
		   description = EXCLUDED.description,
		   via = EXCLUDED.via,
		   strategy = EXCLUDED.strategy,
		   extensions = EXCLUDED.extensions,
		   apply_options = EXCLUDED.apply_options,
		   updated_at = now()
		 RETURNING id`,
		storage.PostingID(p.ExternalID), p.ExternalID, p.Title, p.Company, p.Location,
		p.Description, p.Via, string(p.Strategy), extensions, applyOptions,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert posting: %w", err)
	}
	return id, nil
}

const postingColumns = `j.id, j.external_id, j.title, j.company, j.location, j.description, j.via, j.strategy, j.extensions, j.apply_options`

func scanPosting(row interface{ Scan(...any) error }, extra ...any) (*jobs.Posting, error) {
	var (
		p            jobs.Posting
		strategy     string
		extensions   []byte
		applyOptions []byte
	)
	dest := append([]any{
		&p.InternalID, &p.ExternalID, &p.Title, &p.Company, &p.Location,
		&p.Description, &p.Via, &strategy, &extensions, &applyOptions,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.Strategy = jobs.Strategy(strategy)
	if len(extensions) > 0 {
		p.Extensions = &jobs.Extensions{}
		if err := json.Unmarshal(extensions, p.Extensions); err != nil {
			return nil, fmt.Errorf("decode extensions: %w", err)
		}
	}
	if len(applyOptions) > 0 {
		if err := json.Unmarshal(applyOptions, &p.ApplyOptions); err != nil {
			return nil, fmt.Errorf("decode apply options: %w", err)
		}
	}
	return &p, nil
}

func (s *Store) GetPosting(ctx context.Context, id string) (*jobs.Posting, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postingColumns+` FROM jobs j WHERE j.id = $1`, id)
	p, err := scanPosting(row)
	if err != nil {
		return nil, notFound(err, "get posting")
	}
	return p, nil
}

func (s *Store) UpsertAnnotation(ctx context.Context, a jobs.Annotation) error {
	if a.Status == "" {
		a.Status = jobs.MatchStatusNew
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_matches (id, user_id, job_id, search_id, relevance_score, match_reason, fallback, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   relevance_score = EXCLUDED.relevance_score,
		   match_reason = EXCLUDED.match_reason,
		   fallback = EXCLUDED.fallback`,
		storage.AnnotationID(a.UserID, a.PostingID, a.SessionID), a.UserID, a.PostingID,
		nullable(a.SessionID), a.Score, a.Reason, a.Fallback, a.Status,
	)
	if err != nil {
		return notFound(err, "upsert annotation")
	}
	return nil
}

func (s *Store) PurgeStalePostings(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM jobs j
		 WHERE j.updated_at < $1
		   AND NOT EXISTS (SELECT 1 FROM job_matches m WHERE m.job_id = j.id)`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("purge stale postings: %w", err)
	}
	return tag.RowsAffected(), nil
}
