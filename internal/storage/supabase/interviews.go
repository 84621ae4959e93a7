package supabase

import (
	"context"
	"fmt"
	"sort"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/storage"
)

func (s *Store) EnsureMatch(ctx context.Context, userID, postingID string) (string, error) {
	if _, err := s.GetPosting(ctx, postingID); err != nil {
		return "", fmt.Errorf("posting %s: %w", postingID, err)
	}

	var rows []matchRow
	if err := s.client.DB.From(tableMatches).Select("*").Eq("user_id", userID).Eq("job_id", postingID).Execute(&rows); err != nil {
		return "", fmt.Errorf("lookup match: %w", err)
	}

	if len(rows) > 0 {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
		id := rows[0].ID
		var res []matchRow
		update := map[string]any{"status": jobs.MatchStatusInterviewing}
		if err := s.client.DB.From(tableMatches).Update(update).Eq("id", id).Execute(&res); err != nil {
			return "", fmt.Errorf("update match status: %w", err)
		}
		return id, nil
	}

	row := matchRow{
		ID:        storage.AnnotationID(userID, postingID, ""),
		UserID:    userID,
		JobID:     postingID,
		Reason:    storage.ManualPrepReason,
		Status:    jobs.MatchStatusInterviewing,
		CreatedAt: s.now(),
	}
	var res []matchRow
	if err := s.client.DB.From(tableMatches).Insert(row).Execute(&res); err != nil {
		return "", fmt.Errorf("create match: %w", err)
	}
	return row.ID, nil
}

func (s *Store) CreateInterview(_ context.Context, i jobs.Interview) (string, error) {
	now := s.now()
	if i.Status == "" {
		i.Status = jobs.InterviewStatusScheduled
	}
	if i.Date.IsZero() {
		i.Date = now
	}
	row := interviewRow{
		ID:         storage.NewID(),
		UserID:     i.UserID,
		JobMatchID: optional(i.MatchID),
		Title:      i.Title,
		Company:    i.Company,
		Status:     i.Status,
		Date:       i.Date,
		CreatedAt:  now,
	}
	var res []interviewRow
	if err := s.client.DB.From(tableInterviews).Insert(row).Execute(&res); err != nil {
		return "", fmt.Errorf("create interview: %w", err)
	}
	return row.ID, nil
}

func (s *Store) SavePrepMaterial(_ context.Context, m jobs.PrepMaterial) (string, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	row := prepRow{
		ID:          storage.NewID(),
		InterviewID: m.InterviewID,
		Type:        m.Type,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
	var res []prepRow
	if err := s.client.DB.From(tablePrepMaterials).Insert(row).Execute(&res); err != nil {
		return "", fmt.Errorf("save prep material: %w", err)
	}
	return row.ID, nil
}

func (s *Store) interviews(userID string) ([]interviewRow, error) {
	var rows []interviewRow
	if err := s.client.DB.From(tableInterviews).Select("*").Eq("user_id", userID).Execute(&rows); err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (s *Store) ListInterviews(_ context.Context, userID string) ([]jobs.Interview, error) {
	rows, err := s.interviews(userID)
	if err != nil {
		return nil, err
	}
	out := make([]jobs.Interview, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.interview())
	}
	return out, nil
}

func (s *Store) GetInterview(_ context.Context, userID, id string) (*jobs.Interview, error) {
	var rows []interviewRow
	if err := s.client.DB.From(tableInterviews).Select("*").Eq("id", id).Eq("user_id", userID).Execute(&rows); err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	i := rows[0].interview()

	var materials []prepRow
	if err := s.client.DB.From(tablePrepMaterials).Select("*").Eq("interview_id", id).Execute(&materials); err != nil {
		return nil, fmt.Errorf("load prep materials: %w", err)
	}
	sort.SliceStable(materials, func(a, b int) bool { return materials[a].CreatedAt.Before(materials[b].CreatedAt) })
	for _, m := range materials {
		i.Materials = append(i.Materials, jobs.PrepMaterial(m))
	}
	return &i, nil
}

func (s *Store) DeleteInterviews(_ context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var owned []interviewRow
	if err := s.client.DB.From(tableInterviews).Select("*").In("id", ids).Eq("user_id", userID).Execute(&owned); err != nil {
		return 0, fmt.Errorf("lookup interviews: %w", err)
	}
	if len(owned) == 0 {
		return 0, nil
	}

	var res []interviewRow
	if err := s.client.DB.From(tableInterviews).Delete().In("id", ids).Eq("user_id", userID).Execute(&res); err != nil {
		return 0, fmt.Errorf("delete interviews: %w", err)
	}
	return int64(len(owned)), nil
}

func (s *Store) TrackedPostingIDs(_ context.Context, userID string) ([]string, error) {
	rows, err := s.interviews(userID)
	if err != nil {
		return nil, err
	}
	matchIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.JobMatchID != nil {
			matchIDs = append(matchIDs, *r.JobMatchID)
		}
	}
	if len(matchIDs) == 0 {
		return []string{}, nil
	}

	var matches []matchRow
	if err := s.client.DB.From(tableMatches).Select("*").In("id", matchIDs).Execute(&matches); err != nil {
		return nil, fmt.Errorf("load tracked matches: %w", err)
	}
	postingIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		postingIDs = append(postingIDs, m.JobID)
	}
	postings, err := s.postingsByID(postingIDs)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(postings))
	for _, p := range postings {
		if _, dup := seen[p.ExternalID]; dup || p.ExternalID == "" {
			continue
		}
		seen[p.ExternalID] = struct{}{}
		out = append(out, p.ExternalID)
	}
	sort.Strings(out)
	return out, nil
}
