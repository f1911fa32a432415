package model

import "time"

// CompanyState tracks how far a company has progressed through the pipeline.
type CompanyState string

const (
	StateNew              CompanyState = "new"
	StateDomainResolved   CompanyState = "domain_resolved"
	StateIdentityResolved CompanyState = "identity_resolved"
	StateAnalyzed         CompanyState = "analyzed"
	StateBlacklisted      CompanyState = "blacklisted"
	StateQualified        CompanyState = "qualified"
	StateContactsFound    CompanyState = "contacts_found"
	StateCampaignCreated  CompanyState = "campaign_created"
	StateDone             CompanyState = "done"
	StateFailed           CompanyState = "failed"
	StateCancelled        CompanyState = "cancelled"
)

// Terminal reports whether no further stages run for a company in this state.
func (s CompanyState) Terminal() bool {
	switch s {
	case StateBlacklisted, StateCampaignCreated, StateDone, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Stage names the pipeline stages in execution order. Stage names double as
// the provider keys used by the rate limiter and circuit breakers.
type Stage string

const (
	StageDomain   Stage = "domain"
	StageIdentity Stage = "identity"
	StageAnalyze  Stage = "analyze"
	StageContacts Stage = "contacts"
	StageCampaign Stage = "campaign"
)

// EmployeeBracket is a coarse company-size classification.
type EmployeeBracket string

const (
	BracketUnknown  EmployeeBracket = ""
	Bracket1To10    EmployeeBracket = "1-10"
	Bracket11To50   EmployeeBracket = "11-50"
	Bracket51To100  EmployeeBracket = "51-100"
	Bracket101To500 EmployeeBracket = "101-500"
	Bracket500Plus  EmployeeBracket = "500+"
)

// BracketFor maps a raw employee count to its bracket.
func BracketFor(count int) EmployeeBracket {
	switch {
	case count <= 0:
		return BracketUnknown
	case count <= 10:
		return Bracket1To10
	case count <= 50:
		return Bracket11To50
	case count <= 100:
		return Bracket51To100
	case count <= 500:
		return Bracket101To500
	default:
		return Bracket500Plus
	}
}

// Exceeds reports whether the bracket's lower bound is above max. Unknown
// brackets never exceed.
func (b EmployeeBracket) Exceeds(max int) bool {
	var lower int
	switch b {
	case Bracket1To10:
		lower = 1
	case Bracket11To50:
		lower = 11
	case Bracket51To100:
		lower = 51
	case Bracket101To500:
		lower = 101
	case Bracket500Plus:
		lower = 501
	default:
		return false
	}
	return lower > max
}

// Company is the per-company unit of pipeline work. Keyed by normalized name
// within a batch; several job postings may reference one Company. Analysis
// fields stay at their zero values until the corresponding stage fills them.
type Company struct {
	Name       string          `json:"name"`
	Key        string          `json:"key"` // normalized name
	Domain     string          `json:"domain,omitempty"`
	LinkedInID string          `json:"linkedin_id,omitempty"`
	Bracket    EmployeeBracket `json:"employee_bracket,omitempty"`
	HasTATeam  *bool           `json:"has_ta_team,omitempty"`
	State      CompanyState    `json:"state"`
	Jobs       []JobPosting    `json:"jobs,omitempty"`
}

// BlacklistReason explains why a company was cut from processing.
type BlacklistReason string

const (
	ReasonTooLarge         BlacklistReason = "too-large"
	ReasonHasTATeam        BlacklistReason = "has-ta-team"
	ReasonExplicit         BlacklistReason = "explicit"
	ReasonAlreadyProcessed BlacklistReason = "already-processed"
)

// StageOutcome is one row of the append-only per-stage audit trail.
type StageOutcome struct {
	BatchID   string         `json:"batch_id"`
	Company   string         `json:"company"`
	Stage     Stage          `json:"stage"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
