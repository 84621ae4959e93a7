package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/serpapi"
)

// Outcome is the settled result of one strategy call.
type Outcome struct {
	Strategy jobs.Strategy
	Payload  map[string]any
	Err      error
	Took     time.Duration
}

// Dispatch runs every query concurrently and waits for all of them to settle.
// Outcomes are returned in the order of queries.
func Dispatch(ctx context.Context, logger *zap.Logger, searcher serpapi.Searcher, queries []Query) []Outcome {
	outcomes := make([]Outcome, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(slot int, q Query) {
			defer wg.Done()

			started := time.Now()
			params := q.Params
			payload, err := searcher.Search(ctx, &params)
			outcomes[slot] = Outcome{Strategy: q.Strategy, Payload: payload, Err: err, Took: time.Since(started)}
		}(i, q)
	}
	wg.Wait()

	for _, o := range outcomes {
		fields := []zap.Field{
			zap.String("strategy", string(o.Strategy)),
			zap.Duration("took", o.Took),
		}
		if o.Err != nil {
			logger.Warn("search strategy failed", append(fields, zap.Error(o.Err))...)
			continue
		}
		logger.Debug("search strategy settled", append(fields, zap.Int("items", rawItemCount(o)))...)
	}

	return outcomes
}

func rawItemCount(o Outcome) int {
	key := "organic_results"
	if o.Strategy == jobs.AggregatorSweep {
		key = "jobs_results"
	}
	items, _ := o.Payload[key].([]any)
	return len(items)
}
