package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liac-group/outreach-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetBatch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		batch, err := s.CreateBatch(ctx, "remote fintech startups hiring engineers")
		require.NoError(t, err)
		assert.NotEmpty(t, batch.ID)
		assert.Equal(t, model.BatchStatusProcessing, batch.Status)

		got, err := s.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, batch.ID, got.ID)
		assert.Equal(t, "remote fintech startups hiring engineers", got.Query)
		assert.Equal(t, model.BatchStatusProcessing, got.Status)
	})

	t.Run("UpdateBatchStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		batch, err := s.CreateBatch(ctx, "q")
		require.NoError(t, err)

		require.NoError(t, s.UpdateBatchStatus(ctx, batch.ID, model.BatchStatusCompleted))

		got, err := s.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BatchStatusCompleted, got.Status)
	})

	t.Run("UpdateBatchStatusNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.UpdateBatchStatus(context.Background(), "nonexistent-id", model.BatchStatusCompleted)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("UpdateBatchStats", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		batch, err := s.CreateBatch(ctx, "q")
		require.NoError(t, err)

		stats := model.BatchStats{
			JobsSeen:             12,
			CompaniesProcessed:   5,
			CompaniesBlacklisted: 2,
			ContactsFound:        7,
		}
		require.NoError(t, s.UpdateBatchStats(ctx, batch.ID, stats))

		got, err := s.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, stats, got.Stats)
	})

	t.Run("ListBatches", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.CreateBatch(ctx, "first")
		require.NoError(t, err)
		_, err = s.CreateBatch(ctx, "second")
		require.NoError(t, err)

		all, err := s.ListBatches(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		one, err := s.ListBatches(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, one, 1)
	})

	t.Run("JobPostingsRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		batch, err := s.CreateBatch(ctx, "q")
		require.NoError(t, err)

		jobs := []model.JobPosting{
			{Title: "Staff Engineer", Company: "Acme", Location: "Remote", URL: "https://x/1", Remote: true, Salary: "$180k", PostedAt: time.Now().UTC().Truncate(time.Second)},
			{Title: "Data Engineer", Company: "Globex", Location: "NYC", URL: "https://x/2"},
		}
		require.NoError(t, s.SaveJobPostings(ctx, batch.ID, jobs))

		got, err := s.JobPostings(ctx, batch.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)

		titles := []string{got[0].Title, got[1].Title}
		assert.ElementsMatch(t, []string{"Staff Engineer", "Data Engineer"}, titles)
	})

	t.Run("StageOutcomesAppendOnly", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		base := time.Now().UTC().Truncate(time.Second)
		outs := []model.StageOutcome{
			{BatchID: "b1", Company: "acme", Stage: model.StageDomain, Success: true, Timestamp: base},
			{BatchID: "b1", Company: "acme", Stage: model.StageIdentity, Success: false, Error: "transient: timeout", Timestamp: base.Add(time.Second)},
			{BatchID: "b1", Company: "acme", Stage: model.StageIdentity, Success: true, Detail: map[string]any{"linkedin_id": "acme"}, Timestamp: base.Add(2 * time.Second)},
		}
		for _, o := range outs {
			require.NoError(t, s.AppendStageOutcome(ctx, o))
		}

		got, err := s.StageOutcomes(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, got, 3, "every attempt stays on record")
		assert.Equal(t, model.StageDomain, got[0].Stage)
		assert.False(t, got[1].Success)
		assert.Equal(t, "transient: timeout", got[1].Error)
		assert.Equal(t, "acme", got[2].Detail["linkedin_id"])
	})

	t.Run("CompanySummaryUpsert", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		sum := model.CompanySummary{BatchID: "b1", Company: "acme", State: model.StateQualified, Domain: "acme.com"}
		require.NoError(t, s.UpsertCompanySummary(ctx, sum))

		sum.State = model.StateDone
		sum.ContactsFound = 3
		require.NoError(t, s.UpsertCompanySummary(ctx, sum))

		got, err := s.CompanySummaries(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, got, 1, "one rollup per company")
		assert.Equal(t, model.StateDone, got[0].State)
		assert.Equal(t, 3, got[0].ContactsFound)
	})

	t.Run("ContactsRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		contacts := []model.Contact{
			{ID: "c1", Company: "acme", FirstName: "Jane", LastName: "Doe", Email: "jane@acme.com", Score: 0.9},
			{ID: "c2", Company: "acme", FirstName: "Sam", LastName: "Hill", Score: 0.5},
		}
		require.NoError(t, s.SaveContacts(ctx, "b1", contacts))
		// Saving the same IDs again must not duplicate rows.
		require.NoError(t, s.SaveContacts(ctx, "b1", contacts))

		got, err := s.ContactsByBatch(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "jane@acme.com", got[0].Email, "sorted score descending within company")
	})

	t.Run("CampaignRecordLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, found, err := s.CampaignRecord(ctx, "b1", "acme")
		require.NoError(t, err)
		assert.False(t, found)

		rec := model.CampaignRecord{
			CampaignID:     "camp-1",
			BatchID:        "b1",
			Company:        "acme",
			EnrolledEmails: []string{"jane@acme.com"},
			Outcome:        "enrolled",
		}
		require.NoError(t, s.SaveCampaignRecord(ctx, rec))

		got, found, err := s.CampaignRecord(ctx, "b1", "acme")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "camp-1", got.CampaignID)
		assert.True(t, got.Enrolled("jane@acme.com"))

		rec.EnrolledEmails = append(rec.EnrolledEmails, "sam@acme.com")
		require.NoError(t, s.SaveCampaignRecord(ctx, rec))

		got, _, err = s.CampaignRecord(ctx, "b1", "acme")
		require.NoError(t, err)
		assert.Len(t, got.EnrolledEmails, 2)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
