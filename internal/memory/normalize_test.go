package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCompany(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  Acme, Inc.  ", "acme"},
		{"Globex Corporation", "globex"},
		{"Initech LLC", "initech"},
		{"Stark-Industries", "stark industries"},
		{"Johnson & Johnson", "johnson and johnson"},
		{"Café Müller GmbH", "cafe muller"},
		{"Wayne   Enterprises", "wayne enterprises"},
		{"Acme (Holdings) Ltd.", "acme holdings"},
		{"acme", "acme"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCompany(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeCompanySingleSuffixPass(t *testing.T) {
	// Only the outermost legal suffix is stripped.
	assert.Equal(t, "holdings co", NormalizeCompany("Holdings Co Inc"))
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Senior Software Engineer", "senior software engineer"},
		{"VP, Engineering", "vp engineering"},
		{"DevOps/SRE Lead", "devops sre lead"},
		{"Co-Founder", "co founder"},
		{"Engineer (Backend)", "engineer backend"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTitle(tt.in), "input %q", tt.in)
	}
}
