package hunter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liac-group/outreach-cli/internal/resilience"
)

func TestDomainSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/domain-search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "acme.com", q.Get("domain"))
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "senior,executive", q.Get("seniority"))

		_, _ = w.Write([]byte(`{"data": {
			"domain": "acme.com",
			"organization": "Acme Corp",
			"emails": [
				{"value": "jane.doe@acme.com", "type": "personal", "confidence": 95,
				 "first_name": "Jane", "last_name": "Doe", "position": "VP Sales", "seniority": "executive"},
				{"value": "info@acme.com", "type": "generic", "confidence": 80}
			]
		}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	result, err := client.DomainSearch(context.Background(), DomainSearchRequest{
		Domain:    "acme.com",
		Limit:     10,
		Seniority: "senior,executive",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", result.Organization)
	require.Len(t, result.Emails, 2)
	assert.Equal(t, "jane.doe@acme.com", result.Emails[0].Value)
	assert.Equal(t, "generic", result.Emails[1].Type)
}

func TestDomainSearchErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		transient  bool
		wantHint   time.Duration
	}{
		{"rate_limit", http.StatusTooManyRequests, "60", true, time.Minute},
		{"server_error", http.StatusServiceUnavailable, "", true, 0},
		{"bad_key", http.StatusUnauthorized, "", false, 0},
		{"bad_request", http.StatusBadRequest, "", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))

			_, err := client.DomainSearch(context.Background(), DomainSearchRequest{Domain: "acme.com"})
			require.Error(t, err)
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
			assert.Equal(t, tt.wantHint, resilience.RetryAfterHint(err))
		})
	}
}

func TestVerifyEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email-verifier", r.URL.Path)
		assert.Equal(t, "jane.doe@acme.com", r.URL.Query().Get("email"))

		_, _ = w.Write([]byte(`{"data": {
			"status": "valid", "result": "deliverable", "score": 97, "email": "jane.doe@acme.com"
		}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	v, err := client.VerifyEmail(context.Background(), "jane.doe@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "valid", v.Status)
	assert.Equal(t, 97, v.Score)
}
