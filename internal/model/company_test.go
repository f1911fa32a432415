package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBracketFor(t *testing.T) {
	tests := []struct {
		count int
		want  EmployeeBracket
	}{
		{0, BracketUnknown},
		{-5, BracketUnknown},
		{1, Bracket1To10},
		{10, Bracket1To10},
		{11, Bracket11To50},
		{50, Bracket11To50},
		{51, Bracket51To100},
		{100, Bracket51To100},
		{101, Bracket101To500},
		{500, Bracket101To500},
		{501, Bracket500Plus},
		{221000, Bracket500Plus},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BracketFor(tt.count), "count=%d", tt.count)
	}
}

func TestBracketExceeds(t *testing.T) {
	assert.False(t, BracketUnknown.Exceeds(100))
	assert.False(t, Bracket51To100.Exceeds(100))
	assert.True(t, Bracket101To500.Exceeds(100))
	assert.True(t, Bracket500Plus.Exceeds(100))
	assert.False(t, Bracket101To500.Exceeds(500))
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []CompanyState{StateBlacklisted, StateCampaignCreated, StateDone, StateFailed, StateCancelled} {
		assert.True(t, s.Terminal(), "state %s", s)
	}
	for _, s := range []CompanyState{StateNew, StateDomainResolved, StateIdentityResolved, StateAnalyzed, StateQualified, StateContactsFound} {
		assert.False(t, s.Terminal(), "state %s", s)
	}
}

func TestContactFullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", Contact{FirstName: "Jane", LastName: "Doe"}.FullName())
	assert.Equal(t, "Jane", Contact{FirstName: "Jane"}.FullName())
	assert.Equal(t, "Doe", Contact{LastName: "Doe"}.FullName())
}

func TestCampaignRecordEnrolled(t *testing.T) {
	r := CampaignRecord{EnrolledEmails: []string{"a@x.com", "b@x.com"}}
	assert.True(t, r.Enrolled("a@x.com"))
	assert.False(t, r.Enrolled("c@x.com"))
}

func TestJobPostingHasSalary(t *testing.T) {
	assert.True(t, JobPosting{Salary: "$100k"}.HasSalary())
	assert.False(t, JobPosting{}.HasSalary())
}
