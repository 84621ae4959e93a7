// Package storagetest holds behaviour checks every storage backend must pass.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/storage"
)

// Run exercises store against the storage contract. user must be unique per run
// when the backend is shared.
func Run(t *testing.T, store storage.Store, user string) {
	t.Helper()
	ctx := context.Background()

	t.Run("posting round trip keeps external id", func(t *testing.T) {
		p := &jobs.Posting{
			ExternalID:   "https://boards.greenhouse.io/acme/jobs/" + user,
			Title:        "Go Engineer",
			Company:      "Acme",
			Location:     "Remote",
			Via:          "Company Portal",
			Strategy:     jobs.DirectListing,
			ApplyOptions: []jobs.ApplyOption{{Title: "Apply Direct", Link: "https://boards.greenhouse.io/acme/jobs/" + user}},
			Score:        77,
		}
		id, err := store.UpsertPosting(ctx, p)
		if err != nil {
			t.Fatalf("upsert posting: %v", err)
		}
		if id != storage.PostingID(p.ExternalID) {
			t.Fatalf("expected deterministic id, got %s", id)
		}

		p.Title = "Senior Go Engineer"
		again, err := store.UpsertPosting(ctx, p)
		if err != nil || again != id {
			t.Fatalf("second upsert must hit the same row: id=%s err=%v", again, err)
		}

		got, err := store.GetPosting(ctx, id)
		if err != nil {
			t.Fatalf("get posting: %v", err)
		}
		if got.ExternalID != p.ExternalID || got.Title != "Senior Go Engineer" || got.Strategy != jobs.DirectListing {
			t.Fatalf("unexpected stored posting %+v", got)
		}
		if len(got.ApplyOptions) != 1 || got.ApplyOptions[0].Link != p.ApplyOptions[0].Link {
			t.Fatalf("apply options lost: %+v", got.ApplyOptions)
		}

		if _, err := store.GetPosting(ctx, storage.PostingID("missing-"+user)); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("session matches ordered by score", func(t *testing.T) {
		sessionID, err := store.CreateSession(ctx, jobs.NewSession(user, jobs.SearchRequest{Roles: []string{"dev"}, Keywords: []string{"go"}}))
		if err != nil {
			t.Fatalf("create session: %v", err)
		}

		scores := map[string]int{"a": 40, "b": 90, "c": 65}
		for _, key := range []string{"a", "b", "c"} {
			id, err := store.UpsertPosting(ctx, &jobs.Posting{ExternalID: user + "-" + key, Title: key, Strategy: jobs.AggregatorSweep})
			if err != nil {
				t.Fatalf("upsert posting: %v", err)
			}
			ann := jobs.Annotation{UserID: user, PostingID: id, SessionID: sessionID, Score: 1, Reason: "first"}
			if err := store.UpsertAnnotation(ctx, ann); err != nil {
				t.Fatalf("upsert annotation: %v", err)
			}
			ann.Score, ann.Reason = scores[key], "second"
			if err := store.UpsertAnnotation(ctx, ann); err != nil {
				t.Fatalf("overwrite annotation: %v", err)
			}
		}

		matches, err := store.SessionMatches(ctx, user, sessionID)
		if err != nil {
			t.Fatalf("session matches: %v", err)
		}
		if len(matches) != 3 {
			t.Fatalf("expected 3 matches, got %d", len(matches))
		}
		want := []string{"b", "c", "a"}
		for i, m := range matches {
			if m.Posting.Title != want[i] || m.Annotation.Reason != "second" || m.Annotation.Status != jobs.MatchStatusNew {
				t.Fatalf("match %d: unexpected %+v", i, m)
			}
		}

		sessions, err := store.ListSessions(ctx, user)
		if err != nil || len(sessions) == 0 {
			t.Fatalf("list sessions: %v %v", sessions, err)
		}

		if _, err := store.SessionMatches(ctx, "someone-else", sessionID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("foreign session must be hidden, got %v", err)
		}
		if err := store.DeleteSession(ctx, "someone-else", sessionID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("foreign delete must fail, got %v", err)
		}
		if err := store.DeleteSession(ctx, user, sessionID); err != nil {
			t.Fatalf("delete session: %v", err)
		}
		if _, err := store.SessionMatches(ctx, user, sessionID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("deleted session must be gone, got %v", err)
		}
	})

	t.Run("resumes", func(t *testing.T) {
		if _, err := store.LatestResume(ctx, user+"-nobody"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		path := storage.ResumePath(user, "pdf", time.Now())
		if err := store.UploadResumeFile(ctx, path, "application/pdf", []byte("%PDF-1.4")); err != nil {
			t.Fatalf("upload: %v", err)
		}
		first := jobs.Resume{UserID: user, FilePath: path, OriginalName: "cv.pdf", Profile: &jobs.Profile{Summary: "old"}, CreatedAt: time.Now().Add(-time.Hour).UTC()}
		if _, err := store.SaveResume(ctx, first); err != nil {
			t.Fatalf("save resume: %v", err)
		}
		second := jobs.Resume{UserID: user, FilePath: path, OriginalName: "cv2.pdf", Profile: &jobs.Profile{Summary: "new", Skills: []jobs.SkillGroup{{Category: "Lang", Items: []string{"Go"}}}}}
		if _, err := store.SaveResume(ctx, second); err != nil {
			t.Fatalf("save resume: %v", err)
		}

		latest, err := store.LatestResume(ctx, user)
		if err != nil {
			t.Fatalf("latest resume: %v", err)
		}
		if latest.OriginalName != "cv2.pdf" || latest.Profile == nil || latest.Profile.Summary != "new" {
			t.Fatalf("unexpected latest resume %+v", latest)
		}
	})

	t.Run("interviews", func(t *testing.T) {
		postingID, err := store.UpsertPosting(ctx, &jobs.Posting{ExternalID: user + "-prep", Title: "SRE", Company: "Globex"})
		if err != nil {
			t.Fatalf("upsert posting: %v", err)
		}

		matchID, err := store.EnsureMatch(ctx, user, postingID)
		if err != nil {
			t.Fatalf("ensure match: %v", err)
		}
		again, err := store.EnsureMatch(ctx, user, postingID)
		if err != nil || again != matchID {
			t.Fatalf("ensure match must reuse the match: %s %v", again, err)
		}

		interviewID, err := store.CreateInterview(ctx, jobs.Interview{UserID: user, MatchID: matchID, Title: "SRE", Company: "Globex"})
		if err != nil {
			t.Fatalf("create interview: %v", err)
		}
		content, _ := json.Marshal(jobs.StudyGuide{CompanyCulture: []string{"Ownership"}})
		if _, err := store.SavePrepMaterial(ctx, jobs.PrepMaterial{InterviewID: interviewID, Type: jobs.PrepTypeStudyGuide, Content: content}); err != nil {
			t.Fatalf("save prep material: %v", err)
		}

		got, err := store.GetInterview(ctx, user, interviewID)
		if err != nil {
			t.Fatalf("get interview: %v", err)
		}
		if got.Status != jobs.InterviewStatusScheduled || len(got.Materials) != 1 || got.Materials[0].Type != jobs.PrepTypeStudyGuide {
			t.Fatalf("unexpected interview %+v", got)
		}
		var guide jobs.StudyGuide
		if err := json.Unmarshal(got.Materials[0].Content, &guide); err != nil || len(guide.CompanyCulture) != 1 {
			t.Fatalf("unexpected prep content %s: %v", got.Materials[0].Content, err)
		}

		tracked, err := store.TrackedPostingIDs(ctx, user)
		if err != nil {
			t.Fatalf("tracked postings: %v", err)
		}
		if len(tracked) != 1 || tracked[0] != user+"-prep" {
			t.Fatalf("unexpected tracked postings %v", tracked)
		}

		list, err := store.ListInterviews(ctx, user)
		if err != nil || len(list) != 1 {
			t.Fatalf("list interviews: %v %v", list, err)
		}

		if _, err := store.GetInterview(ctx, "someone-else", interviewID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("foreign interview must be hidden, got %v", err)
		}
		if n, err := store.DeleteInterviews(ctx, "someone-else", []string{interviewID}); err != nil || n != 0 {
			t.Fatalf("foreign delete must be a no-op: n=%d err=%v", n, err)
		}
		if n, err := store.DeleteInterviews(ctx, user, []string{interviewID}); err != nil || n != 1 {
			t.Fatalf("delete interviews: n=%d err=%v", n, err)
		}
		if _, err := store.GetInterview(ctx, user, interviewID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("deleted interview must be gone, got %v", err)
		}
	})

	t.Run("purge stale postings keeps matched ones", func(t *testing.T) {
		orphanID, err := store.UpsertPosting(ctx, &jobs.Posting{ExternalID: user + "-orphan", Title: "Gone soon"})
		if err != nil {
			t.Fatalf("upsert posting: %v", err)
		}
		matchedID := storage.PostingID(user + "-prep")

		if _, err := store.PurgeStalePostings(ctx, time.Now().Add(-time.Hour)); err != nil {
			t.Fatalf("purge: %v", err)
		}
		if _, err := store.GetPosting(ctx, orphanID); err != nil {
			t.Fatalf("recently seen posting must survive, got %v", err)
		}

		purged, err := store.PurgeStalePostings(ctx, time.Now().Add(time.Hour))
		if err != nil || purged < 1 {
			t.Fatalf("purge: purged=%d err=%v", purged, err)
		}
		if _, err := store.GetPosting(ctx, orphanID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("unreferenced posting must be purged, got %v", err)
		}
		if _, err := store.GetPosting(ctx, matchedID); err != nil {
			t.Fatalf("posting with a match must survive, got %v", err)
		}
	})
}
