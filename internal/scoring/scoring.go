package scoring

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/ai"
	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/logger"
	"github.com/spigell/prepscout/internal/utils"
)

// ErrNotConfigured means no scoring oracle is available.
var ErrNotConfigured = errors.New("scoring oracle is not configured")

const (
	ReasonItemFailed  = "Analysis failed for this item"
	ReasonBatchFailed = "AI analysis failed"

	maxScore            = 100
	defaultMaxLogLength = 200
)

//go:embed prompt.md
var promptTemplate string

type Scorer struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func New(generator ai.Generator, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}
	if generator != nil {
		log = logger.WithCommonFields(log, ai.Provider(generator), generator.Model())
	}

	return &Scorer{generator: generator, logger: log, maxLogLen: maxLogLength}
}

type ranking struct {
	score  int
	reason string
}

type jobPayload struct {
	JobID       string `json:"job_id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

// Score annotates postings in place with one batched oracle call and sorts them
// by descending score. It reports whether the whole batch fell back. Oracle
// failures never surface as errors.
func (s *Scorer) Score(ctx context.Context, profile any, postings *jobs.Postings) (bool, error) {
	if postings.Len() == 0 {
		return false, nil
	}
	if s == nil || s.generator == nil {
		return false, ErrNotConfigured
	}

	rankings, err := s.rank(ctx, profile, postings)
	if err != nil {
		s.logger.Warn("scoring oracle failed, falling back to unscored postings",
			zap.Int("postings", postings.Len()),
			zap.Error(err),
		)
		for _, p := range postings.Items {
			p.Score, p.Reason, p.Fallback = 0, ReasonBatchFailed, true
		}
		return true, nil
	}

	missing := 0
	for _, p := range postings.Items {
		r, ok := rankings[p.ExternalID]
		if !ok || p.ExternalID == "" {
			missing++
			p.Score, p.Reason, p.Fallback = 0, ReasonItemFailed, true
			continue
		}
		p.Score, p.Reason, p.Fallback = r.score, r.reason, false
	}
	postings.SortByScore()

	s.logger.Info("postings scored",
		zap.Int("postings", postings.Len()),
		zap.Int("rankings", len(rankings)),
		zap.Int("missing", missing),
	)

	return false, nil
}

func (s *Scorer) rank(ctx context.Context, profile any, postings *jobs.Postings) (map[string]ranking, error) {
	prompt, err := buildPrompt(profile, postings)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("scoring request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("scoring response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	return parseRankings(raw)
}

func buildPrompt(profile any, postings *jobs.Postings) (string, error) {
	if profile == nil {
		profile = map[string]any{}
	}
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile: %w", err)
	}

	payload := make([]jobPayload, 0, postings.Len())
	for _, p := range postings.Items {
		payload = append(payload, jobPayload{JobID: p.ExternalID, Title: p.Title, Company: p.Company, Description: p.Description})
	}
	jobsJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal postings: %w", err)
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Profile:\n{{PROFILE_JSON}}\n\nJobs:\n{{JOBS_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{JOBS_JSON}}", string(jobsJSON))
	return prompt, nil
}

// parseRankings reads {"rankings": [...]} or a bare array. Later entries for
// the same job id replace earlier ones.
func parseRankings(raw string) (map[string]ranking, error) {
	var data any
	if err := ai.DecodeJSON(raw, &data); err != nil {
		return nil, err
	}

	var items []any
	switch v := data.(type) {
	case map[string]any:
		list, ok := v["rankings"].([]any)
		if !ok {
			return nil, errors.New(`response has no "rankings" array`)
		}
		items = list
	case []any:
		items = v
	default:
		return nil, fmt.Errorf("unexpected response type %T", data)
	}

	rankings := make(map[string]ranking, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		idValue, _ := ai.FirstOf(entry, "job_id", "jobId", "id")
		id := ai.CoerceString(idValue)
		if id == "" {
			continue
		}

		scoreValue, _ := ai.FirstOf(entry, "matchScore", "match_score", "score")
		reasonValue, _ := ai.FirstOf(entry, "matchReason", "match_reason", "reason")

		reason := ai.CoerceString(reasonValue)
		if reason == "" {
			reason = ReasonItemFailed
		}
		rankings[id] = ranking{score: clamp(ai.CoerceFloat(scoreValue)), reason: reason}
	}

	return rankings, nil
}

func clamp(score float64) int {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return int(math.Round(score))
}
