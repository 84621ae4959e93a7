package discovery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/jobs"
)

const (
	directCompanyFallback = "Direct Apply"
	directVia             = "Company Portal"
	directApplyTitle      = "Apply Direct"

	informalCompany    = "LinkedIn Network"
	informalVia        = "LinkedIn Post"
	informalApplyTitle = "View Post"
)

type organicResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
}

type organicResult struct {
	Title         string `json:"title"`
	Link          string `json:"link"`
	DisplayedLink string `json:"displayed_link"`
	Snippet       string `json:"snippet"`
}

type jobsResponse struct {
	JobsResults []jobsResult `json:"jobs_results"`
}

type jobsResult struct {
	Title              string `json:"title"`
	CompanyName        string `json:"company_name"`
	Location           string `json:"location"`
	Via                string `json:"via"`
	Description        string `json:"description"`
	JobID              string `json:"job_id"`
	DetectedExtensions struct {
		PostedAt     string `json:"posted_at"`
		ScheduleType string `json:"schedule_type"`
		Salary       string `json:"salary"`
	} `json:"detected_extensions"`
	ApplyOptions []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"apply_options"`
}

// Normalize maps a raw strategy payload to postings. A nil payload yields no
// postings. Fields of an unexpected type decode to zero values.
func Normalize(logger *zap.Logger, strategy jobs.Strategy, payload map[string]any, locations []string) []*jobs.Posting {
	if payload == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	location := jobs.DefaultLocation
	if len(locations) > 0 && strings.TrimSpace(locations[0]) != "" {
		location = strings.TrimSpace(locations[0])
	}

	switch strategy {
	case jobs.DirectListing, jobs.InformalPost:
		var resp organicResponse
		if err := decode(payload, &resp); err != nil {
			logger.Debug("partially malformed search payload", zap.String("strategy", string(strategy)), zap.Error(err))
		}
		return normalizeOrganic(strategy, resp.OrganicResults, location)
	case jobs.AggregatorSweep:
		var resp jobsResponse
		if err := decode(payload, &resp); err != nil {
			logger.Debug("partially malformed search payload", zap.String("strategy", string(strategy)), zap.Error(err))
		}
		return normalizeJobs(resp.JobsResults)
	default:
		return nil
	}
}

func normalizeOrganic(strategy jobs.Strategy, results []organicResult, location string) []*jobs.Posting {
	postings := make([]*jobs.Posting, 0, len(results))
	for _, r := range results {
		// A result without a link is kept with an empty id. Persistence skips it.
		link := strings.TrimSpace(r.Link)
		p := &jobs.Posting{
			ExternalID:  link,
			Title:       strings.TrimSpace(r.Title),
			Location:    location,
			Description: plainText(r.Snippet),
			Strategy:    strategy,
		}
		if strategy == jobs.DirectListing {
			p.Company = directCompanyFallback
			if displayed := strings.TrimSpace(r.DisplayedLink); displayed != "" {
				p.Company = displayed
			}
			p.Via = directVia
			if link != "" {
				p.ApplyOptions = []jobs.ApplyOption{{Title: directApplyTitle, Link: link}}
			}
		} else {
			p.Company = informalCompany
			p.Via = informalVia
			if link != "" {
				p.ApplyOptions = []jobs.ApplyOption{{Title: informalApplyTitle, Link: link}}
			}
		}
		postings = append(postings, p)
	}
	return postings
}

func normalizeJobs(results []jobsResult) []*jobs.Posting {
	postings := make([]*jobs.Posting, 0, len(results))
	for _, r := range results {
		p := &jobs.Posting{
			ExternalID:  strings.TrimSpace(r.JobID),
			Title:       strings.TrimSpace(r.Title),
			Company:     strings.TrimSpace(r.CompanyName),
			Location:    strings.TrimSpace(r.Location),
			Description: strings.TrimSpace(r.Description),
			Via:         strings.TrimSpace(r.Via),
			Strategy:    jobs.AggregatorSweep,
		}
		for _, opt := range r.ApplyOptions {
			p.ApplyOptions = append(p.ApplyOptions, jobs.ApplyOption{Title: opt.Title, Link: opt.Link})
		}
		ext := r.DetectedExtensions
		if ext.PostedAt != "" || ext.ScheduleType != "" || ext.Salary != "" {
			p.Extensions = &jobs.Extensions{PostedAt: ext.PostedAt, ScheduleType: ext.ScheduleType, Salary: ext.Salary}
		}
		if p.ExternalID == "" {
			// May stay empty. Such postings are returned but never stored.
			p.ExternalID = p.ApplyURL()
		}
		postings = append(postings, p)
	}
	return postings
}

func decode(input any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

var spaces = regexp.MustCompile(`\s+`)

// plainText strips markup and collapses whitespace. Only organic snippets carry
// markup; every other field is used as delivered.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
