package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/storage"
)

func (s *Store) UploadResumeFile(ctx context.Context, path, contentType string, data []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO resume_files (path, content_type, data) VALUES ($1, $2, $3)`,
		path, contentType, data,
	)
	if err != nil {
		return fmt.Errorf("upload resume file: %w", err)
	}
	return nil
}

func (s *Store) SaveResume(ctx context.Context, r jobs.Resume) (string, error) {
	var profile []byte
	if r.Profile != nil {
		raw, err := json.Marshal(r.Profile)
		if err != nil {
			return "", fmt.Errorf("encode profile: %w", err)
		}
		profile = raw
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	id := storage.NewID()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO resumes (id, user_id, file_path, original_name, structured_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, r.UserID, r.FilePath, r.OriginalName, profile, r.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("save resume: %w", err)
	}
	return id, nil
}

func (s *Store) LatestResume(ctx context.Context, userID string) (*jobs.Resume, error) {
	var (
		r       jobs.Resume
		profile []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, file_path, original_name, structured_data, created_at
		 FROM resumes WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&r.ID, &r.UserID, &r.FilePath, &r.OriginalName, &profile, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err, "latest resume")
	}
	if len(profile) > 0 {
		r.Profile = &jobs.Profile{}
		if err := json.Unmarshal(profile, r.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	return &r, nil
}
