package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/ai"
	"github.com/spigell/prepscout/internal/ai/claude"
	"github.com/spigell/prepscout/internal/ai/gemini"
	"github.com/spigell/prepscout/internal/discovery"
	"github.com/spigell/prepscout/internal/events"
	"github.com/spigell/prepscout/internal/pipeline"
	"github.com/spigell/prepscout/internal/prep"
	"github.com/spigell/prepscout/internal/resume"
	"github.com/spigell/prepscout/internal/scoring"
	"github.com/spigell/prepscout/internal/secrets"
	"github.com/spigell/prepscout/internal/serpapi"
	"github.com/spigell/prepscout/internal/storage"
	"github.com/spigell/prepscout/internal/storage/memory"
	"github.com/spigell/prepscout/internal/storage/postgres"
	"github.com/spigell/prepscout/internal/storage/supabase"
)

// services holds every long-lived client of a process.
type services struct {
	store     storage.Store
	redis     *redis.Client
	publisher events.Publisher
	searcher  serpapi.Searcher
	generator ai.Generator

	pipeline *pipeline.Pipeline
	prep     *prep.Service
	resumes  *resume.Service
}

// buildServices creates the clients described by config. Missing search or AI
// credentials are logged and leave the dependent operations unconfigured.
func buildServices(ctx context.Context, config *Config, logger *zap.Logger) (*services, error) {
	s := &services{publisher: events.Nop{}}

	store, err := newStore(ctx, config.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", config.Storage.Backend, err)
	}
	s.store = store

	if url := strings.TrimSpace(config.Events.RedisURL); url != "" {
		client, err := events.NewRedisClient(ctx, url)
		if err != nil {
			logger.Warn("events disabled", zap.Error(err))
		} else {
			s.redis = client
			s.publisher = events.NewRedis(client, config.Events.Channel, logger)
		}
	}

	searcher, err := newSearcher(config.SerpAPI, logger)
	if err != nil {
		logger.Warn("search api is not configured", zap.Error(err),
			zap.String("hint", "set SERPAPI_KEY or serpapi.api-key-file"),
		)
	} else {
		s.searcher = searcher
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("ai provider is not configured", zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY or ANTHROPIC_API_KEY for the selected ai.provider"),
		)
	} else {
		s.generator = generator
	}

	maxLog := config.AI.MaxLogLength

	s.pipeline = pipeline.New(
		discovery.New(s.searcher, logger, config.Discovery),
		scoring.New(s.generator, logger, maxLog),
		logger,
		pipeline.WithSink(s.store),
		pipeline.WithPublisher(s.publisher),
		pipeline.WithFilters(config.Filters),
	)
	s.prep = prep.New(s.searcher, s.generator, s.store, s.publisher, logger, maxLog)
	s.resumes = resume.New(s.generator, s.store, logger, maxLog)

	return s, nil
}

func (s *services) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

func newStore(ctx context.Context, cfg *StorageConfig, logger *zap.Logger) (storage.Store, error) {
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case "", storage.BackendMemory:
		logger.Info("using in-memory store, data is lost on exit")
		return memory.New(), nil
	case storage.BackendPostgres:
		return postgres.Open(ctx, logger, cfg.DatabaseURL)
	case storage.BackendSupabase:
		if cfg.Supabase == nil {
			return nil, supabase.ErrNotConfigured
		}
		key, err := secrets.Load(secrets.Source{
			Name:  "supabase key",
			File:  cfg.Supabase.KeyFile,
			Value: cfg.Supabase.Key,
			Env:   "SUPABASE_KEY",
		})
		if err != nil {
			return nil, err
		}
		return supabase.New(logger, cfg.Supabase.URL, key)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

func newSearcher(cfg *SerpAPIConfig, logger *zap.Logger) (serpapi.Searcher, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "serpapi api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   "SERPAPI_KEY",
	})
	if err != nil {
		return nil, err
	}

	client, err := serpapi.New(logger, apiKey,
		serpapi.WithBaseURL(cfg.BaseURL),
		serpapi.WithTimeout(cfg.Timeout),
		serpapi.WithLimiter(serpapi.NewLimiter(cfg.RatePerSecond, cfg.Burst)),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, error) {
	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", ai.ProviderGemini:
		gc := cfg.Gemini
		if gc == nil {
			gc = &GeminiConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  gc.APIKeyFile,
			Value: gc.APIKey,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		generator, err := gemini.NewGenerator(ctx, logger, apiKey, gemini.Options{Model: gc.Model, MaxRetries: gc.MaxRetries})
		if err != nil {
			return nil, err
		}
		return generator, nil
	case ai.ProviderClaude:
		cc := cfg.Claude
		if cc == nil {
			cc = &ClaudeConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "anthropic api key",
			File:  cc.APIKeyFile,
			Value: cc.APIKey,
			Env:   "ANTHROPIC_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		generator, err := claude.NewGenerator(logger, apiKey, claude.Options{Model: cc.Model, MaxTokens: cc.MaxTokens, MaxRetries: cc.MaxRetries})
		if err != nil {
			return nil, err
		}
		return generator, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}
