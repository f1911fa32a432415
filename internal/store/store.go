// Package store persists batches, per-stage outcomes, company rollups,
// contacts and campaign records. Two backends: Postgres (pgx) for shared
// deployments and SQLite for single-machine use.
package store

import (
	"context"

	"github.com/liac-group/outreach-cli/internal/model"
)

// Store defines the persistence interface for the outreach pipeline.
type Store interface {
	// Batches
	CreateBatch(ctx context.Context, query string) (*model.Batch, error)
	UpdateBatchStatus(ctx context.Context, batchID string, status model.BatchStatus) error
	UpdateBatchStats(ctx context.Context, batchID string, stats model.BatchStats) error
	GetBatch(ctx context.Context, batchID string) (*model.Batch, error)
	ListBatches(ctx context.Context, limit int) ([]model.Batch, error)

	// Job postings discovered by a batch
	SaveJobPostings(ctx context.Context, batchID string, jobs []model.JobPosting) error
	JobPostings(ctx context.Context, batchID string) ([]model.JobPosting, error)

	// Stage outcomes: append-only audit trail, one row per stage attempt
	AppendStageOutcome(ctx context.Context, out model.StageOutcome) error
	StageOutcomes(ctx context.Context, batchID string) ([]model.StageOutcome, error)

	// Company summaries: one rollup per (batch, company), upserted
	UpsertCompanySummary(ctx context.Context, s model.CompanySummary) error
	CompanySummaries(ctx context.Context, batchID string) ([]model.CompanySummary, error)

	// Contacts
	SaveContacts(ctx context.Context, batchID string, contacts []model.Contact) error
	ContactsByBatch(ctx context.Context, batchID string) ([]model.Contact, error)

	// Campaign records
	CampaignRecord(ctx context.Context, batchID, company string) (*model.CampaignRecord, bool, error)
	SaveCampaignRecord(ctx context.Context, rec model.CampaignRecord) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
