// Package resume turns an uploaded resume file into a stored structured profile.
package resume

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/ai"
	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/logger"
	"github.com/spigell/prepscout/internal/storage"
	"github.com/spigell/prepscout/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

var ErrNotConfigured = errors.New("resume parsing requires an ai client")

type Store interface {
	UploadResumeFile(ctx context.Context, path, contentType string, data []byte) error
	SaveResume(ctx context.Context, r jobs.Resume) (string, error)
}

type Upload struct {
	UserID      string
	FileName    string
	ContentType string
	Data        []byte
}

type Service struct {
	generator ai.Generator
	store     Store
	logger    *zap.Logger
	maxLogLen int
	now       func() time.Time
}

func New(generator ai.Generator, store Store, log *zap.Logger, maxLogLength int) *Service {
	log = logger.WithFields(log)
	if generator != nil {
		log = logger.WithCommonFields(log, ai.Provider(generator), generator.Model())
	}
	return &Service{generator: generator, store: store, logger: log, maxLogLen: maxLogLength, now: time.Now}
}

// Ingest stores the file, extracts its text, parses it into a profile and
// saves the resume record.
func (s *Service) Ingest(ctx context.Context, u Upload) (*jobs.Resume, error) {
	if s == nil || s.generator == nil || s.store == nil {
		return nil, ErrNotConfigured
	}
	log := s.logger.With(zap.String(logger.FieldUser, u.UserID), zap.String("file", u.FileName))

	text, err := ExtractText(u.FileName, u.ContentType, u.Data)
	if err != nil {
		return nil, err
	}
	log.Debug("resume text extracted", zap.Int("text_length", utf8.RuneCountInString(text)))

	path := storage.ResumePath(u.UserID, Extension(u.FileName), s.now())
	if err := s.store.UploadResumeFile(ctx, path, u.ContentType, u.Data); err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	profile, err := s.parse(ctx, log, text)
	if err != nil {
		return nil, err
	}

	r := jobs.Resume{
		UserID:       u.UserID,
		FilePath:     path,
		OriginalName: u.FileName,
		Profile:      profile,
		CreatedAt:    s.now().UTC(),
	}
	id, err := s.store.SaveResume(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to save resume data: %w", err)
	}
	r.ID = id

	log.Info("resume saved", zap.String("path", path), zap.Int("skill_groups", len(profile.Skills)))
	return &r, nil
}

func (s *Service) parse(ctx context.Context, log *zap.Logger, text string) (*jobs.Profile, error) {
	prompt := strings.ReplaceAll(promptTemplate, "{{RESUME_TEXT}}", text)
	log.Debug("resume parse request", zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)))

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract profile: %w", err)
	}
	log.Debug("resume parse response", zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)))

	var profile jobs.Profile
	if err := ai.DecodeJSON(raw, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}
