package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Strategy names the discovery technique that produced a posting.
type Strategy string

const (
	DirectListing   Strategy = "DirectListing"
	InformalPost    Strategy = "InformalPost"
	AggregatorSweep Strategy = "AggregatorSweep"
)

// Strategies lists every strategy in aggregation order.
var Strategies = []Strategy{DirectListing, InformalPost, AggregatorSweep}

const (
	PostingIDField      = "ID"
	PostingCompanyField = "Company"
)

type Postings struct {
	Items []*Posting
}

type Posting struct {
	// InternalID is assigned by the store.
	InternalID   string        `json:"id,omitempty"`
	ExternalID   string        `json:"external_id"`
	Title        string        `json:"title"`
	Company      string        `json:"company"`
	Location     string        `json:"location"`
	Description  string        `json:"description"`
	Via          string        `json:"via"`
	Extensions   *Extensions   `json:"extensions,omitempty"`
	ApplyOptions []ApplyOption `json:"apply_options,omitempty"`
	Strategy     Strategy      `json:"strategy"`

	Score    int    `json:"score"`
	Reason   string `json:"reason,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

type Extensions struct {
	PostedAt     string `json:"posted_at,omitempty"`
	ScheduleType string `json:"schedule_type,omitempty"`
	Salary       string `json:"salary,omitempty"`
}

type ApplyOption struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// ApplyURL returns the first usable apply link, falling back to the external id
// when it looks like a URL.
func (p *Posting) ApplyURL() string {
	for _, opt := range p.ApplyOptions {
		if link := strings.TrimSpace(opt.Link); link != "" {
			return link
		}
	}
	if strings.HasPrefix(p.ExternalID, "http") {
		return p.ExternalID
	}
	return ""
}

func (p *Posting) GetStringField(name string) string {
	switch name {
	case PostingIDField:
		return p.ExternalID
	case PostingCompanyField:
		return p.Company
	default:
		return ""
	}
}

func (v *Postings) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Items)
}

// FindByID looks a posting up by its external id.
func (v *Postings) FindByID(id string) *Posting {
	for _, posting := range v.Items {
		if posting.ExternalID == id {
			return posting
		}
	}
	return nil
}

// SortByScore orders postings by descending score keeping the input order of ties.
func (v *Postings) SortByScore() {
	sort.SliceStable(v.Items, func(i, j int) bool {
		return v.Items[i].Score > v.Items[j].Score
	})
}

// Exclude drops postings whose field equals one of targets (case-insensitive)
// and returns the external ids of the dropped postings. Order is preserved.
func (v *Postings) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			set[t] = struct{}{}
		}
	}

	var excluded []string
	kept := v.Items[:0]
	for _, posting := range v.Items {
		if _, ok := set[strings.ToLower(posting.GetStringField(name))]; ok {
			excluded = append(excluded, posting.ExternalID)
			continue
		}
		kept = append(kept, posting)
	}
	v.Items = kept

	return excluded
}

// ReportBySource groups postings by their source label for terminal output.
func (v *Postings) ReportBySource() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range v.Items {
		key := fmt.Sprintf("%s (%s)", posting.Via, posting.Strategy)
		entry := map[string]string{
			"title":    posting.Title,
			"company":  posting.Company,
			"location": posting.Location,
			"url":      posting.ApplyURL(),
			"score":    fmt.Sprintf("%d", posting.Score),
		}
		if posting.Reason != "" {
			entry["reason"] = posting.Reason
		}
		if posting.Fallback {
			entry["fallback"] = "true"
		}
		report[key] = append(report[key], entry)
	}
	return report
}

func (v *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ExcludedPostings is the on-disk list of postings the user never wants to see again.
type ExcludedPostings struct {
	Items []*ExcludedPosting
}

type ExcludedPosting struct {
	ID         string
	URL        string
	Company    string
	ExcludedAt time.Time
}

func (v *Postings) ToExcluded() *ExcludedPostings {
	excluded := &ExcludedPostings{}
	for _, posting := range v.Items {
		excluded.Items = append(excluded.Items, &ExcludedPosting{
			ID:         posting.ExternalID,
			URL:        posting.ApplyURL(),
			Company:    posting.Company,
			ExcludedAt: time.Now().UTC(),
		})
	}
	return excluded
}

// LoadExcluded reads an exclude file. A missing or empty file yields an empty list.
func LoadExcluded(path string) (*ExcludedPostings, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ExcludedPostings{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedPostings{}, nil
	}

	var excluded ExcludedPostings
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

func (e *ExcludedPostings) Append(s *ExcludedPostings) {
	e.Items = append(e.Items, s.Items...)
}

func (e *ExcludedPostings) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (e *ExcludedPostings) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
