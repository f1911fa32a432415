package model

// UnitResult is the streamed per-unit output emitted as each (company, job)
// unit completes. Duplicate units are skipped silently and emit nothing.
type UnitResult struct {
	BatchID         string          `json:"batch_id"`
	Company         string          `json:"company"`
	JobTitle        string          `json:"job_title"`
	StageReached    CompanyState    `json:"stage_reached"`
	Blacklisted     bool            `json:"blacklisted"`
	BlacklistReason BlacklistReason `json:"blacklist_reason,omitempty"`
	ContactsFound   int             `json:"contacts_found"`
	CampaignID      string          `json:"campaign_id,omitempty"`
}

// CompanySummary is the rollup record persisted once per (batch, company)
// describing the final disposition.
type CompanySummary struct {
	BatchID         string          `json:"batch_id"`
	Company         string          `json:"company"`
	State           CompanyState    `json:"state"`
	Domain          string          `json:"domain,omitempty"`
	LinkedInID      string          `json:"linkedin_id,omitempty"`
	Bracket         EmployeeBracket `json:"employee_bracket,omitempty"`
	BlacklistReason BlacklistReason `json:"blacklist_reason,omitempty"`
	ContactsFound   int             `json:"contacts_found"`
	CampaignID      string          `json:"campaign_id,omitempty"`
	Error           string          `json:"error,omitempty"`
}
