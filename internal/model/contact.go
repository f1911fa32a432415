package model

import "time"

// Contact is an outreach-ready person at a qualified company. Never mutated
// after creation: re-discovery creates new Contact rows.
type Contact struct {
	ID          string    `json:"id"`
	Company     string    `json:"company"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Title       string    `json:"title"`
	Email       string    `json:"email,omitempty"` // empty when unverified
	Confidence  float64   `json:"confidence"`
	Score       float64   `json:"score"` // combined decision-maker score
	LinkedInURL string    `json:"linkedin_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FullName joins the name parts for display and lead enrollment.
func (c Contact) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CampaignRecord records one delivery campaign created for a (batch, company)
// pair. Immutable once written; the dispatcher reuses it on re-dispatch.
type CampaignRecord struct {
	CampaignID     string    `json:"campaign_id"`
	BatchID        string    `json:"batch_id"`
	Company        string    `json:"company"`
	EnrolledEmails []string  `json:"enrolled_emails"`
	Outcome        string    `json:"outcome"`
	CreatedAt      time.Time `json:"created_at"`
}

// Enrolled reports whether email is already enrolled in this campaign.
func (r CampaignRecord) Enrolled(email string) bool {
	for _, e := range r.EnrolledEmails {
		if e == email {
			return true
		}
	}
	return false
}
