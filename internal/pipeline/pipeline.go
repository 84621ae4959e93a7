// Package pipeline runs one search end to end: discovery, exclusion filters,
// scoring and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/discovery"
	"github.com/spigell/prepscout/internal/events"
	"github.com/spigell/prepscout/internal/filtering"
	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/logger"
	"github.com/spigell/prepscout/internal/storage"
)

type Discoverer interface {
	Discover(ctx context.Context, req jobs.SearchRequest) (*discovery.Result, error)
}

type Scorer interface {
	Score(ctx context.Context, profile any, postings *jobs.Postings) (bool, error)
}

// Sink is the part of the store a search run writes to.
type Sink interface {
	CreateSession(ctx context.Context, s jobs.Session) (string, error)
	UpsertPosting(ctx context.Context, p *jobs.Posting) (string, error)
	UpsertAnnotation(ctx context.Context, a jobs.Annotation) error
	LatestResume(ctx context.Context, userID string) (*jobs.Resume, error)
	TrackedPostingIDs(ctx context.Context, userID string) ([]string, error)
}

type Pipeline struct {
	discoverer Discoverer
	scorer     Scorer
	sink       Sink
	publisher  events.Publisher
	filters    filtering.Config
	logger     *zap.Logger
}

type Option func(*Pipeline)

// WithSink enables sessions and persistence.
func WithSink(sink Sink) Option {
	return func(p *Pipeline) { p.sink = sink }
}

func WithPublisher(publisher events.Publisher) Option {
	return func(p *Pipeline) {
		if publisher != nil {
			p.publisher = publisher
		}
	}
}

func WithFilters(cfg filtering.Config) Option {
	return func(p *Pipeline) { p.filters = cfg }
}

func New(discoverer Discoverer, scorer Scorer, log *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		discoverer: discoverer,
		scorer:     scorer,
		publisher:  events.Nop{},
		logger:     logger.WithFields(log),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type Input struct {
	UserID  string
	Request jobs.SearchRequest
	// Profile overrides the latest stored resume when set.
	Profile *jobs.Profile
}

type Result struct {
	SessionID string
	Postings  *jobs.Postings
	// Fallback reports that the whole batch is unscored.
	Fallback bool
	Warning  string
	Failures map[jobs.Strategy]error
}

// Run executes one search. Discovery and scoring configuration errors are
// returned; session, filter and persistence failures only degrade the result.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	started := time.Now()
	if err := in.Request.Validate(); err != nil {
		return nil, err
	}
	in.Request.Normalize()

	sessionID := p.createSession(ctx, in)
	log := logger.WithRun(p.logger, in.UserID, sessionID)

	found, err := p.discoverer.Discover(ctx, in.Request)
	if err != nil {
		return nil, fmt.Errorf("discover postings: %w", err)
	}

	postings := found.Postings
	if postings == nil {
		postings = &jobs.Postings{}
	}
	postings = p.filter(ctx, log, in.UserID, postings)

	fallback, err := p.scorer.Score(ctx, p.profile(ctx, log, in), postings)
	if err != nil {
		return nil, fmt.Errorf("score postings: %w", err)
	}

	persisted := p.persist(ctx, log, in.UserID, sessionID, postings)

	p.publisher.Publish(ctx, events.Event{
		Type:      events.TypeSearchCompleted,
		UserID:    in.UserID,
		SessionID: sessionID,
		Count:     postings.Len(),
		Fallback:  fallback,
	})

	log.Info("search completed",
		zap.Int("postings", postings.Len()),
		zap.Int("persisted", persisted),
		zap.Bool("fallback", fallback),
		zap.Duration("took", time.Since(started)),
	)

	return &Result{
		SessionID: sessionID,
		Postings:  postings,
		Fallback:  fallback,
		Warning:   found.Warning,
		Failures:  found.Failures,
	}, nil
}

func (p *Pipeline) createSession(ctx context.Context, in Input) string {
	if p.sink == nil || in.UserID == "" {
		return ""
	}
	id, err := p.sink.CreateSession(ctx, jobs.NewSession(in.UserID, in.Request))
	if err != nil {
		p.logger.Warn("creating search session failed, history will not be recorded",
			zap.String(logger.FieldUser, in.UserID),
			zap.Error(err),
		)
		return ""
	}
	return id
}

func (p *Pipeline) filter(ctx context.Context, log *zap.Logger, userID string, postings *jobs.Postings) *jobs.Postings {
	deps := filtering.Deps{Logger: log, UserID: userID}
	if p.sink != nil {
		deps.Tracker = p.sink
	}

	cfg := p.filters
	filtered, err := filtering.Run(ctx, &cfg, deps, filtering.Default(), postings)
	if err != nil {
		log.Warn("exclusion filters failed, keeping unfiltered postings", zap.Error(err))
		return postings
	}
	return filtered
}

func (p *Pipeline) profile(ctx context.Context, log *zap.Logger, in Input) any {
	if in.Profile != nil {
		return in.Profile
	}
	if p.sink == nil || in.UserID == "" {
		return nil
	}

	resume, err := p.sink.LatestResume(ctx, in.UserID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Info("no resume uploaded, scoring without a profile")
		return nil
	case err != nil:
		log.Warn("loading latest resume failed, scoring without a profile", zap.Error(err))
		return nil
	}
	if resume.Profile == nil {
		return nil
	}
	return resume.Profile
}

// persist writes postings and verdicts one by one. A failed posting is logged
// and skipped.
func (p *Pipeline) persist(ctx context.Context, log *zap.Logger, userID, sessionID string, postings *jobs.Postings) int {
	if p.sink == nil || userID == "" {
		return 0
	}

	persisted := 0
	for _, posting := range postings.Items {
		if posting.ExternalID == "" {
			log.Debug("posting without identifier is not persisted", zap.String("title", posting.Title))
			continue
		}

		id, err := p.sink.UpsertPosting(ctx, posting)
		if err != nil {
			log.Warn("persisting posting failed",
				zap.String("external_id", posting.ExternalID),
				zap.Error(err),
			)
			continue
		}
		posting.InternalID = id

		err = p.sink.UpsertAnnotation(ctx, jobs.Annotation{
			UserID:    userID,
			PostingID: id,
			SessionID: sessionID,
			Score:     posting.Score,
			Reason:    posting.Reason,
			Fallback:  posting.Fallback,
			Status:    jobs.MatchStatusNew,
		})
		if err != nil {
			log.Warn("persisting match failed",
				zap.String("external_id", posting.ExternalID),
				zap.Error(err),
			)
			continue
		}
		persisted++
	}
	return persisted
}
