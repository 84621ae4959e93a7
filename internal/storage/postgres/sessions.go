package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/storage"
)

func (s *Store) CreateSession(ctx context.Context, session jobs.Session) (string, error) {
	filters, err := json.Marshal(session.Filters)
	if err != nil {
		return "", fmt.Errorf("encode filters: %w", err)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	id := storage.NewID()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO job_searches (id, user_id, roles, locations, keywords, filters, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, session.UserID, orEmpty(session.Roles), orEmpty(session.Locations), orEmpty(session.Keywords),
		filters, session.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func (s *Store) ListSessions(ctx context.Context, userID string) ([]jobs.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, roles, locations, keywords, filters, created_at
		 FROM job_searches WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions query: %w", err)
	}
	defer rows.Close()

	out := make([]jobs.Session, 0)
	for rows.Next() {
		var (
			session jobs.Session
			filters []byte
		)
		if err := rows.Scan(&session.ID, &session.UserID, &session.Roles, &session.Locations,
			&session.Keywords, &filters, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("list sessions scan: %w", err)
		}
		if len(filters) > 0 {
			if err := json.Unmarshal(filters, &session.Filters); err != nil {
				return nil, fmt.Errorf("decode filters: %w", err)
			}
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSession(ctx context.Context, userID, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM job_searches WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) SessionMatches(ctx context.Context, userID, sessionID string) ([]jobs.Match, error) {
	var owner string
	err := s.pool.QueryRow(ctx, `SELECT user_id FROM job_searches WHERE id = $1`, sessionID).Scan(&owner)
	if err != nil {
		return nil, notFound(err, "lookup session")
	}
	if owner != userID {
		return nil, storage.ErrNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+postingColumns+`,
		        m.id, m.user_id, m.job_id, COALESCE(m.search_id, ''), m.relevance_score,
		        m.match_reason, m.fallback, m.status, m.created_at
		 FROM job_matches m
		 JOIN jobs j ON j.id = m.job_id
		 WHERE m.search_id = $1 AND m.user_id = $2
		 ORDER BY m.relevance_score DESC, m.created_at, m.id`,
		sessionID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("session matches query: %w", err)
	}
	defer rows.Close()

	out := make([]jobs.Match, 0)
	for rows.Next() {
		var m jobs.Match
		p, err := scanPosting(rows,
			&m.ID, &m.Annotation.UserID, &m.Annotation.PostingID, &m.Annotation.SessionID,
			&m.Annotation.Score, &m.Annotation.Reason, &m.Annotation.Fallback, &m.Annotation.Status,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("session matches scan: %w", err)
		}
		m.Posting = *p
		out = append(out, m)
	}
	return out, rows.Err()
}
