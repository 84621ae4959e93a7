package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/storage"
)

func (s *Store) EnsureMatch(ctx context.Context, userID, postingID string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`UPDATE job_matches SET status = $3
		 WHERE id = (
		   SELECT id FROM job_matches
		   WHERE user_id = $1 AND job_id = $2
		   ORDER BY created_at, id LIMIT 1
		 )
		 RETURNING id`,
		userID, postingID, jobs.MatchStatusInterviewing,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("ensure match: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO job_matches (id, user_id, job_id, match_reason, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
		 RETURNING id`,
		storage.AnnotationID(userID, postingID, ""), userID, postingID,
		storage.ManualPrepReason, jobs.MatchStatusInterviewing,
	).Scan(&id)
	if err != nil {
		return "", notFound(err, "create match")
	}
	return id, nil
}

func (s *Store) CreateInterview(ctx context.Context, i jobs.Interview) (string, error) {
	if i.Status == "" {
		i.Status = jobs.InterviewStatusScheduled
	}
	if i.Date.IsZero() {
		i.Date = time.Now().UTC()
	}

	id := storage.NewID()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO interviews (id, user_id, job_match_id, title, company, status, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, i.UserID, nullable(i.MatchID), i.Title, i.Company, i.Status, i.Date,
	)
	if err != nil {
		return "", notFound(err, "create interview")
	}
	return id, nil
}

func (s *Store) SavePrepMaterial(ctx context.Context, m jobs.PrepMaterial) (string, error) {
	id := storage.NewID()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prep_materials (id, interview_id, type, content) VALUES ($1, $2, $3, $4)`,
		id, m.InterviewID, m.Type, []byte(m.Content),
	)
	if err != nil {
		return "", notFound(err, "save prep material")
	}
	return id, nil
}

const interviewColumns = `id, user_id, COALESCE(job_match_id, ''), title, company, status, date`

func scanInterview(row pgx.Row) (jobs.Interview, error) {
	var i jobs.Interview
	err := row.Scan(&i.ID, &i.UserID, &i.MatchID, &i.Title, &i.Company, &i.Status, &i.Date)
	return i, err
}

func (s *Store) ListInterviews(ctx context.Context, userID string) ([]jobs.Interview, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list interviews query: %w", err)
	}
	defer rows.Close()

	out := make([]jobs.Interview, 0)
	for rows.Next() {
		i, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("list interviews scan: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *Store) GetInterview(ctx context.Context, userID, id string) (*jobs.Interview, error) {
	i, err := scanInterview(s.pool.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err != nil {
		return nil, notFound(err, "get interview")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, interview_id, type, content, created_at
		 FROM prep_materials WHERE interview_id = $1 ORDER BY created_at`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("prep materials query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m       jobs.PrepMaterial
			content []byte
		)
		if err := rows.Scan(&m.ID, &m.InterviewID, &m.Type, &content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("prep materials scan: %w", err)
		}
		m.Content = content
		i.Materials = append(i.Materials, m)
	}
	return &i, rows.Err()
}

func (s *Store) DeleteInterviews(ctx context.Context, userID string, ids []string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM interviews WHERE user_id = $1 AND id = ANY($2)`,
		userID, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("delete interviews: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) TrackedPostingIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT j.external_id
		 FROM interviews i
		 JOIN job_matches m ON m.id = i.job_match_id
		 JOIN jobs j ON j.id = m.job_id
		 WHERE i.user_id = $1
		 ORDER BY j.external_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("tracked postings query: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("tracked postings scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
