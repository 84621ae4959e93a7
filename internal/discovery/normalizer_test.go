package discovery

import (
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/jobs"
)

func TestNormalizeDirectListing(t *testing.T) {
	payload := map[string]any{"organic_results": []any{
		map[string]any{"title": "Senior Go Engineer", "link": "https://boards.greenhouse.io/acme/1", "displayed_link": "boards.greenhouse.io › acme", "snippet": "Build <b>APIs</b> &amp; services"},
		map[string]any{"title": "No link"},
		map[string]any{"title": "Staff SRE", "link": "https://jobs.lever.co/globex/2"},
	}}

	postings := Normalize(zap.NewNop(), jobs.DirectListing, payload, []string{"Berlin"})
	if len(postings) != 3 {
		t.Fatalf("expected 3 postings, got %d", len(postings))
	}

	first := postings[0]
	if first.ExternalID != "https://boards.greenhouse.io/acme/1" || first.Company != "boards.greenhouse.io › acme" {
		t.Fatalf("unexpected posting %+v", first)
	}
	if first.Description != "Build APIs & services" {
		t.Fatalf("expected plain text description, got %q", first.Description)
	}
	if first.Location != "Berlin" || first.Via != directVia || first.Strategy != jobs.DirectListing {
		t.Fatalf("unexpected posting %+v", first)
	}
	if want := []jobs.ApplyOption{{Title: directApplyTitle, Link: first.ExternalID}}; !reflect.DeepEqual(first.ApplyOptions, want) {
		t.Fatalf("unexpected apply options %+v", first.ApplyOptions)
	}
	if linkless := postings[1]; linkless.ExternalID != "" || linkless.Title != "No link" || len(linkless.ApplyOptions) != 0 {
		t.Fatalf("expected linkless result kept with empty id, got %+v", linkless)
	}
	if postings[2].Company != directCompanyFallback {
		t.Fatalf("expected fallback company, got %q", postings[2].Company)
	}
}

func TestNormalizeInformalPost(t *testing.T) {
	payload := map[string]any{"organic_results": []any{
		map[string]any{"title": "We're hiring!", "link": "https://linkedin.com/posts/1", "snippet": "DM me"},
	}}

	postings := Normalize(zap.NewNop(), jobs.InformalPost, payload, nil)
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	p := postings[0]
	if p.Company != informalCompany || p.Via != informalVia || p.Location != jobs.DefaultLocation || p.ApplyOptions[0].Title != informalApplyTitle {
		t.Fatalf("unexpected posting %+v", p)
	}
}

func TestNormalizeAggregatorSweep(t *testing.T) {
	payload := map[string]any{"jobs_results": []any{
		map[string]any{
			"title":        "Platform Engineer",
			"company_name": "Initech",
			"location":     "Austin, TX",
			"via":          "via LinkedIn",
			"description":  "Own the <b>platform</b>\n\n- on-call  rota",
			"job_id":       "eyJqb2IiOjF9",
			"detected_extensions": map[string]any{
				"posted_at":     "3 days ago",
				"schedule_type": "Full-time",
			},
			"apply_options": []any{map[string]any{"title": "LinkedIn", "link": "https://linkedin.com/jobs/1"}},
		},
		map[string]any{"title": "No id", "apply_options": []any{map[string]any{"title": "Site", "link": "https://initech.com/jobs/2"}}},
		map[string]any{"title": "Nothing to key on"},
	}}

	postings := Normalize(zap.NewNop(), jobs.AggregatorSweep, payload, []string{"Berlin"})
	if len(postings) != 3 {
		t.Fatalf("expected 3 postings, got %d", len(postings))
	}

	p := postings[0]
	if p.ExternalID != "eyJqb2IiOjF9" || p.Company != "Initech" || p.Location != "Austin, TX" || p.Via != "via LinkedIn" {
		t.Fatalf("unexpected posting %+v", p)
	}
	if p.Extensions == nil || p.Extensions.PostedAt != "3 days ago" || p.Extensions.ScheduleType != "Full-time" {
		t.Fatalf("unexpected extensions %+v", p.Extensions)
	}
	if p.Description != "Own the <b>platform</b>\n\n- on-call  rota" {
		t.Fatalf("expected description as delivered, got %q", p.Description)
	}
	if postings[1].ExternalID != "https://initech.com/jobs/2" || postings[1].Extensions != nil {
		t.Fatalf("unexpected fallback posting %+v", postings[1])
	}
	if postings[2].ExternalID != "" || postings[2].Title != "Nothing to key on" {
		t.Fatalf("expected keyless result kept with empty id, got %+v", postings[2])
	}
}

func TestNormalizeToleratesMalformedFields(t *testing.T) {
	payload := map[string]any{"jobs_results": []any{
		map[string]any{"title": 42, "company_name": []any{"x"}, "job_id": "id-1"},
	}}

	postings := Normalize(zap.NewNop(), jobs.AggregatorSweep, payload, nil)
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	if postings[0].Title != "42" || postings[0].ExternalID != "id-1" {
		t.Fatalf("unexpected posting %+v", postings[0])
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	payload := map[string]any{"organic_results": []any{
		map[string]any{"title": "A", "link": "https://a", "snippet": "<p>x</p>"},
		map[string]any{"title": "B", "link": "https://b"},
	}}

	first := Normalize(nil, jobs.DirectListing, payload, []string{"Remote"})
	second := Normalize(nil, jobs.DirectListing, payload, []string{"Remote"})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalizer is not deterministic")
	}

	if got := Normalize(nil, jobs.DirectListing, nil, nil); got != nil {
		t.Fatalf("expected nil for absent payload, got %v", got)
	}
}
