package jobsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liac-group/outreach-cli/internal/resilience"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantJobs  int
		transient bool
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{"count": 2, "jobs": [
				{"title": "Software Engineer", "company": "Acme", "location": "Austin, TX", "job_url": "https://x/1", "salary": "$120k"},
				{"title": "Recruiter", "company": "Globex", "location": "Remote", "job_url": "https://x/2", "is_remote": true}
			]}`,
			wantJobs: 2,
		},
		{
			name:      "rate_limit",
			status:    http.StatusTooManyRequests,
			body:      `{"message": "rate limit"}`,
			wantErr:   "unexpected status 429",
			transient: true,
		},
		{
			name:    "auth_failure",
			status:  http.StatusUnauthorized,
			body:    `{"message": "bad key"}`,
			wantErr: "unexpected status 401",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{broken`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/getjobs", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("X-RapidAPI-Key"))

				var req SearchRequest
				raw, _ := io.ReadAll(r.Body)
				require.NoError(t, json.Unmarshal(raw, &req))
				assert.Equal(t, "software engineer", req.SearchTerm)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))

			resp, err := client.Search(context.Background(), SearchRequest{
				SearchTerm: "software engineer",
				Location:   "Austin, TX",
				HoursOld:   24,
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.transient, resilience.IsTransient(err))
				return
			}

			require.NoError(t, err)
			require.Len(t, resp.Jobs, tt.wantJobs)
			assert.Equal(t, "Acme", resp.Jobs[0].Company)
			assert.True(t, resp.Jobs[1].IsRemote)
		})
	}
}

func TestSearchRetryAfterForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), SearchRequest{SearchTerm: "x"})
	require.Error(t, err)
	assert.Equal(t, 12*time.Second, resilience.RetryAfterHint(err))
}

func TestSearchCountDefaultsToLen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jobs": [{"title": "a", "company": "b"}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), SearchRequest{SearchTerm: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
}
