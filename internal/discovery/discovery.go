package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/serpapi"
)

var (
	// ErrNotConfigured means there is no search API client.
	ErrNotConfigured = errors.New("search api is not configured")
	// ErrAllStrategiesFailed is returned when every strategy failed and nothing was found.
	ErrAllStrategiesFailed = errors.New("all search strategies failed, please check API quota or try again")
)

// NoResultsWarning is attached to a successful result without postings.
const NoResultsWarning = "no postings found, try broader roles or locations"

type Options struct {
	ResultCap     int    `mapstructure:"result-cap"`
	DefaultRegion string `mapstructure:"default-region"`
}

func (o Options) withDefaults() Options {
	if o.ResultCap <= 0 {
		o.ResultCap = DefaultResultCap
	}
	if o.DefaultRegion == "" {
		o.DefaultRegion = DefaultRegion
	}
	return o
}

type Service struct {
	searcher serpapi.Searcher
	logger   *zap.Logger
	opts     Options
}

func New(searcher serpapi.Searcher, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{searcher: searcher, logger: logger, opts: opts.withDefaults()}
}

type Result struct {
	Postings *jobs.Postings
	// Failures holds the error of every strategy that failed.
	Failures map[jobs.Strategy]error
	Warning  string
}

// Discover formulates, dispatches, normalizes and aggregates one search.
func (s *Service) Discover(ctx context.Context, req jobs.SearchRequest) (*Result, error) {
	if s == nil || s.searcher == nil {
		return nil, ErrNotConfigured
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Normalize()

	queries := Formulate(req, s.opts)
	for _, q := range queries {
		s.logger.Debug("formulated query",
			zap.String("strategy", string(q.Strategy)),
			zap.String("engine", q.Params.Engine),
			zap.String("query", q.Params.Query),
		)
	}

	outcomes := Dispatch(ctx, s.logger, s.searcher, queries)
	result, err := Aggregate(s.logger, outcomes, req.Locations)
	if err != nil {
		return nil, err
	}

	s.logger.Info("discovery completed",
		zap.Int("postings", result.Postings.Len()),
		zap.Int("failed_strategies", len(result.Failures)),
	)

	return result, nil
}

// Aggregate concatenates normalized outcomes in strategy order and applies the
// failure policy.
func Aggregate(logger *zap.Logger, outcomes []Outcome, locations []string) (*Result, error) {
	byStrategy := make(map[jobs.Strategy]Outcome, len(outcomes))
	for _, o := range outcomes {
		byStrategy[o.Strategy] = o
	}

	result := &Result{Postings: &jobs.Postings{}, Failures: map[jobs.Strategy]error{}}
	for _, strategy := range jobs.Strategies {
		o, ok := byStrategy[strategy]
		if !ok {
			continue
		}
		if o.Err != nil {
			result.Failures[strategy] = o.Err
			continue
		}
		result.Postings.Items = append(result.Postings.Items, Normalize(logger, strategy, o.Payload, locations)...)
	}

	if result.Postings.Len() == 0 {
		if len(outcomes) > 0 && len(result.Failures) == len(outcomes) {
			return nil, fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(failureList(result.Failures)...))
		}
		result.Warning = NoResultsWarning
	}

	return result, nil
}

func failureList(failures map[jobs.Strategy]error) []error {
	errs := make([]error, 0, len(failures))
	for _, strategy := range jobs.Strategies {
		if err, ok := failures[strategy]; ok {
			errs = append(errs, fmt.Errorf("%s: %w", strategy, err))
		}
	}
	return errs
}
