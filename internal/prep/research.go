package prep

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/serpapi"
)

const (
	researchResults = 5
	noResults       = "No specific results found."
)

type topic struct {
	category string
	query    string
}

// topics lists the research queries in the order they appear in the prompt.
func topics(company, title string, now time.Time) []topic {
	year := now.Year()
	return []topic{
		{
			category: "Interview Experiences",
			query:    fmt.Sprintf(`site:glassdoor.com OR site:reddit.com OR site:teamblind.com "%s" "%s" interview questions`, company, title),
		},
		{
			category: "Culture",
			query:    fmt.Sprintf(`"%s" engineering culture values principles`, company),
		},
		{
			category: "News",
			query:    fmt.Sprintf(`"%s" recent news technology product launch %d %d`, company, year-1, year),
		},
		{
			category: "Salary",
			query:    fmt.Sprintf(`"%s" "%s" salary levels.fyi`, company, title),
		},
	}
}

type organicResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// research runs every topic concurrently and renders the sections in topic
// order. A failed query renders as having no results.
func research(ctx context.Context, log *zap.Logger, searcher serpapi.Searcher, list []topic) string {
	sections := make([]string, len(list))

	var wg sync.WaitGroup
	for i, t := range list {
		wg.Add(1)
		go func(i int, t topic) {
			defer wg.Done()

			payload, err := searcher.Search(ctx, &serpapi.Params{
				Engine: serpapi.EngineGoogle,
				Query:  t.query,
				Num:    researchResults,
			})
			if err != nil {
				log.Warn("research query failed", zap.String("category", t.category), zap.Error(err))
			}
			sections[i] = fmt.Sprintf("### %s\nQuery: %s\nResults:\n%s", t.category, t.query, snippets(log.With(zap.String("category", t.category)), payload))
		}(i, t)
	}
	wg.Wait()

	return strings.Join(sections, "\n\n")
}

func snippets(log *zap.Logger, payload map[string]any) string {
	if payload == nil {
		return noResults
	}

	var resp organicResponse
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &resp,
	})
	if err == nil {
		err = decoder.Decode(payload)
	}
	if err != nil {
		log.Debug("partially malformed research payload", zap.Error(err))
	}

	lines := make([]string, 0, researchResults)
	for _, r := range resp.OrganicResults {
		if len(lines) == researchResults {
			break
		}
		lines = append(lines, fmt.Sprintf("[Source: %s] %s", r.Title, r.Snippet))
	}
	if len(lines) == 0 {
		return noResults
	}
	return strings.Join(lines, "\n")
}
