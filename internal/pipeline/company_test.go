package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liac-group/outreach-cli/internal/model"
)

func TestGroupCompaniesFoldsNameVariants(t *testing.T) {
	jobs := []model.JobPosting{
		{Title: "Staff Engineer", Company: "Acme, Inc."},
		{Title: "Data Engineer", Company: "ACME INC"},
		{Title: "SRE", Company: "Globex LLC"},
		{Title: "Orphan", Company: "  "},
	}

	groups := GroupCompanies(jobs)
	require.Len(t, groups, 2)

	assert.Equal(t, "acme", groups[0].Key)
	assert.Equal(t, "Acme, Inc.", groups[0].Name, "display name comes from the first posting")
	assert.Len(t, groups[0].Jobs, 2)

	assert.Equal(t, "globex", groups[1].Key)
	assert.Len(t, groups[1].Jobs, 1)
}

func TestGroupCompaniesPreservesFirstAppearanceOrder(t *testing.T) {
	jobs := []model.JobPosting{
		{Title: "A", Company: "Zeta"},
		{Title: "B", Company: "Alpha"},
		{Title: "C", Company: "Zeta"},
	}

	groups := GroupCompanies(jobs)
	require.Len(t, groups, 2)
	assert.Equal(t, "zeta", groups[0].Key)
	assert.Equal(t, "alpha", groups[1].Key)
}

func TestFilterSalaried(t *testing.T) {
	jobs := []model.JobPosting{
		{Title: "A", Company: "X", Salary: "$120k-$150k"},
		{Title: "B", Company: "Y"},
	}

	kept := FilterSalaried(jobs)
	require.Len(t, kept, 1)
	assert.Equal(t, "A", kept[0].Title)
}
