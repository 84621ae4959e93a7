package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/jobs"
)

type trackedFilter struct {
	enabled bool
	reason  string
}

// NewTracked creates a filter that removes postings the user already has interviews for.
func NewTracked() Filter {
	return &trackedFilter{enabled: true}
}

func (f *trackedFilter) Name() string { return "tracked" }

func (f *trackedFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *trackedFilter) IsEnabled() bool { return f.enabled }

func (f *trackedFilter) Validate(cfg *Config) error {
	if cfg == nil || !cfg.SkipTracked {
		f.Disable("skip-tracked is off")
	}
	return nil
}

func (f *trackedFilter) Apply(ctx context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if deps.Tracker == nil || deps.UserID == "" {
		if deps.Logger != nil {
			deps.Logger.Debug("tracker is not configured; skipping tracked filter")
		}
		return p, unchanged(p), nil
	}

	tracked, err := deps.Tracker.TrackedPostingIDs(ctx, deps.UserID)
	if err != nil {
		return p, Step{}, fmt.Errorf("get tracked postings: %w", err)
	}

	excluded := p.Exclude(jobs.PostingIDField, tracked)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings already tracked as interviews",
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *trackedFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{"skip_tracked": strconv.FormatBool(f.enabled)},
	}
}
