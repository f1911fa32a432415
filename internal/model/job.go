package model

import "time"

// JobPosting is a single job advertisement discovered by the search phase.
// Immutable once ingested; owned by the batch that discovered it.
type JobPosting struct {
	Title    string    `json:"title"`
	Company  string    `json:"company"`
	Location string    `json:"location"`
	URL      string    `json:"url"`
	PostedAt time.Time `json:"posted_at"`
	Remote   bool      `json:"remote"`
	Salary   string    `json:"salary,omitempty"`
}

// HasSalary reports whether the posting carries any salary text. Used by the
// enforce_salary option to drop postings without compensation info.
func (j JobPosting) HasSalary() bool {
	return j.Salary != ""
}
