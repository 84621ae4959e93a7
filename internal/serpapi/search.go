package serpapi

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

const (
	SearchPath = "/search.json"

	EngineGoogle     = "google"
	EngineGoogleJobs = "google_jobs"
)

// noResults is how the API reports an empty result page. It is not a failure.
const noResults = "hasn't returned any results"

type Params struct {
	// serp is the query parameter name. Zero values are not sent.
	Engine   string `serp:"engine"`
	Query    string `serp:"q"`
	Location string `serp:"location"`
	Num      int    `serp:"num"`
	TBS      string `serp:"tbs"`
}

// Search runs one call against the search endpoint.
func (c *Client) Search(ctx context.Context, params *Params) (map[string]any, error) {
	if params == nil || strings.TrimSpace(params.Query) == "" {
		return nil, fmt.Errorf("search query is required")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	q := buildParams(params)
	q.Set("api_key", c.apiKey)

	var payload map[string]any
	if err := c.getJSON(ctx, c.APIURL+SearchPath, q, &payload); err != nil {
		return nil, err
	}

	if msg, ok := payload["error"].(string); ok && msg != "" && !strings.Contains(msg, noResults) {
		return nil, fmt.Errorf("search api error: %s", msg)
	}

	return payload, nil
}

func buildParams(params *Params) url.Values {
	q := url.Values{}
	value := reflect.ValueOf(params).Elem()
	for _, field := range reflect.VisibleFields(value.Type()) {
		key := field.Tag.Get("serp")
		if key == "" {
			continue
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", value.FieldByIndex(field.Index).Interface()))
		if s != "" && s != "0" {
			q.Set(key, s)
		}
	}

	return q
}
