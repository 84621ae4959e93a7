// Package prep builds interview study guides from web research and the
// candidate's resume.
package prep

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/ai"
	"github.com/spigell/prepscout/internal/events"
	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/logger"
	"github.com/spigell/prepscout/internal/serpapi"
	"github.com/spigell/prepscout/internal/storage"
	"github.com/spigell/prepscout/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

var (
	ErrNotConfigured = errors.New("prep generation requires search and ai clients")
	// ErrResumeRequired is returned when the user has not uploaded a resume yet.
	ErrResumeRequired = errors.New("resume not found, please upload a resume first")
)

type Store interface {
	GetPosting(ctx context.Context, id string) (*jobs.Posting, error)
	LatestResume(ctx context.Context, userID string) (*jobs.Resume, error)
	EnsureMatch(ctx context.Context, userID, postingID string) (string, error)
	CreateInterview(ctx context.Context, i jobs.Interview) (string, error)
	SavePrepMaterial(ctx context.Context, m jobs.PrepMaterial) (string, error)
}

type Service struct {
	searcher  serpapi.Searcher
	generator ai.Generator
	store     Store
	publisher events.Publisher
	logger    *zap.Logger
	maxLogLen int
	now       func() time.Time
}

func New(searcher serpapi.Searcher, generator ai.Generator, store Store, publisher events.Publisher, log *zap.Logger, maxLogLength int) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	log = logger.WithFields(log)
	if generator != nil {
		log = logger.WithCommonFields(log, ai.Provider(generator), generator.Model())
	}
	return &Service{
		searcher:  searcher,
		generator: generator,
		store:     store,
		publisher: publisher,
		logger:    log,
		maxLogLen: maxLogLength,
		now:       time.Now,
	}
}

type Outcome struct {
	InterviewID string           `json:"interview_id"`
	MatchID     string           `json:"match_id"`
	Guide       *jobs.StudyGuide `json:"study_guide"`
}

// Generate researches the company of a stored posting, synthesizes a study
// guide and records it as a scheduled interview of the user.
func (s *Service) Generate(ctx context.Context, userID, postingID string) (*Outcome, error) {
	if s == nil || s.searcher == nil || s.generator == nil || s.store == nil {
		return nil, ErrNotConfigured
	}
	log := s.logger.With(zap.String(logger.FieldUser, userID), zap.String("job_id", postingID))

	posting, err := s.store.GetPosting(ctx, postingID)
	if err != nil {
		return nil, fmt.Errorf("load posting: %w", err)
	}

	resume, err := s.store.LatestResume(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrResumeRequired
	}
	if err != nil {
		return nil, fmt.Errorf("load resume: %w", err)
	}

	log.Info("researching company", zap.String("company", posting.Company), zap.String("title", posting.Title))
	findings := research(ctx, log, s.searcher, topics(posting.Company, posting.Title, s.now()))

	guide, err := s.synthesize(ctx, log, posting, resume.Profile, findings)
	if err != nil {
		return nil, err
	}
	content, err := json.Marshal(guide)
	if err != nil {
		return nil, fmt.Errorf("encode study guide: %w", err)
	}

	matchID, err := s.store.EnsureMatch(ctx, userID, posting.InternalID)
	if err != nil {
		return nil, fmt.Errorf("ensure match: %w", err)
	}

	interviewID, err := s.store.CreateInterview(ctx, jobs.Interview{
		UserID:  userID,
		MatchID: matchID,
		Title:   posting.Title,
		Company: posting.Company,
		Status:  jobs.InterviewStatusScheduled,
		Date:    s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create interview: %w", err)
	}

	if _, err := s.store.SavePrepMaterial(ctx, jobs.PrepMaterial{
		InterviewID: interviewID,
		Type:        jobs.PrepTypeStudyGuide,
		Content:     content,
	}); err != nil {
		return nil, fmt.Errorf("save study guide: %w", err)
	}

	s.publisher.Publish(ctx, events.Event{
		Type:        events.TypePrepGenerated,
		UserID:      userID,
		PostingID:   posting.InternalID,
		InterviewID: interviewID,
	})
	log.Info("study guide generated", zap.String("interview_id", interviewID))

	return &Outcome{InterviewID: interviewID, MatchID: matchID, Guide: guide}, nil
}

func (s *Service) synthesize(ctx context.Context, log *zap.Logger, posting *jobs.Posting, profile *jobs.Profile, research string) (*jobs.StudyGuide, error) {
	prompt, err := buildPrompt(posting, profile, research)
	if err != nil {
		return nil, err
	}
	log.Debug("study guide request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate study guide: %w", err)
	}
	log.Debug("study guide response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	var guide jobs.StudyGuide
	if err := ai.DecodeJSON(raw, &guide); err != nil {
		return nil, fmt.Errorf("decode study guide: %w", err)
	}
	return &guide, nil
}

func buildPrompt(posting *jobs.Posting, profile *jobs.Profile, research string) (string, error) {
	var proficiency any = map[string]any{}
	if profile != nil && len(profile.TechnicalProficiency) > 0 {
		proficiency = profile.TechnicalProficiency
	}
	proficiencyJSON, err := json.MarshalIndent(proficiency, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal proficiency: %w", err)
	}

	return strings.NewReplacer(
		"{{TITLE}}", posting.Title,
		"{{COMPANY}}", posting.Company,
		"{{DESCRIPTION}}", posting.Description,
		"{{PROFICIENCY_JSON}}", string(proficiencyJSON),
		"{{RESEARCH}}", research,
	).Replace(promptTemplate), nil
}
