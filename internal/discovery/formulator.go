package discovery

import (
	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/serpapi"
)

const (
	DefaultResultCap = 5
	DefaultRegion    = "United States"
)

// Query is one formulated search call.
type Query struct {
	Strategy jobs.Strategy
	Params   serpapi.Params
}

// Formulate builds exactly one query per strategy, in aggregation order.
func Formulate(req jobs.SearchRequest, opts Options) []Query {
	opts = opts.withDefaults()
	tbs := dateRange(req.Filters.DatePosted)

	direct := (&query{}).
		require("sites", siteFilter(atsSites)).
		require("roles", disjunction(req.Roles)).
		require("locations", disjunction(req.Locations)).
		withFilters(req.Filters)

	informal := (&query{}).
		require("site", "site:linkedin.com/posts").
		require("hiring", quote("hiring")).
		require("roles", disjunction(req.Roles)).
		require("keyword", quote(req.TopKeyword())).
		withFilters(req.Filters)

	var firstRole string
	if len(req.Roles) > 0 {
		firstRole = req.Roles[0]
	}
	sweep := (&query{}).
		optional("role", firstRole).
		optional("keyword", req.TopKeyword()).
		withFilters(req.Filters)

	location := opts.DefaultRegion
	if len(req.Locations) > 0 && req.Locations[0] != "" {
		location = req.Locations[0]
	}

	return []Query{
		{
			Strategy: jobs.DirectListing,
			Params:   serpapi.Params{Engine: serpapi.EngineGoogle, Query: direct.String(), Num: opts.ResultCap, TBS: tbs},
		},
		{
			Strategy: jobs.InformalPost,
			Params:   serpapi.Params{Engine: serpapi.EngineGoogle, Query: informal.String(), Num: opts.ResultCap, TBS: tbs},
		},
		{
			Strategy: jobs.AggregatorSweep,
			Params:   serpapi.Params{Engine: serpapi.EngineGoogleJobs, Query: sweep.String(), Location: location},
		},
	}
}
