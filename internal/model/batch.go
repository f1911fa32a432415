package model

import "time"

// BatchStatus represents the lifecycle state of a hunt batch.
type BatchStatus string

const (
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusCancelled  BatchStatus = "cancelled"
	BatchStatusFailed     BatchStatus = "failed"
)

// Batch represents one hunt run: a parsed query plus the job postings it
// discovered, processed as a unit by the orchestrator.
type Batch struct {
	ID        string      `json:"id"`
	Query     string      `json:"query"`
	Status    BatchStatus `json:"status"`
	Stats     BatchStats  `json:"stats"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// BatchStats accumulates per-batch counters as companies complete.
type BatchStats struct {
	JobsSeen             int `json:"jobs_seen"`
	CompaniesProcessed   int `json:"companies_processed"`
	CompaniesBlacklisted int `json:"companies_blacklisted"`
	CompaniesFailed      int `json:"companies_failed"`
	DuplicatesSkipped    int `json:"duplicates_skipped"`
	ContactsFound        int `json:"contacts_found"`
	CampaignsCreated     int `json:"campaigns_created"`
}

// Options carries the recognized per-batch configuration knobs passed in by
// the caller alongside the job postings.
type Options struct {
	EnforceSalary         bool    `json:"enforce_salary"`
	CreateCampaigns       bool    `json:"create_campaigns"`
	MinDecisionMakerScore float64 `json:"min_decision_maker_score"`
	MaxEmployeeCount      int     `json:"max_employee_count"`
	HoursOld              int     `json:"hours_old"`
}
