package clearout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liac-group/outreach-cli/internal/resilience"
)

func TestAutocomplete(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     string
		wantMatches int
		transient   bool
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{"status": "success", "data": [
				{"name": "Acme Corp", "domain": "acme.com", "confidence_score": 90},
				{"name": "Acme Labs", "domain": "acmelabs.io", "confidence_score": 40}
			]}`,
			wantMatches: 2,
		},
		{
			name:        "no_matches",
			status:      http.StatusOK,
			body:        `{"status": "success", "data": []}`,
			wantMatches: 0,
		},
		{
			name:      "server_error",
			status:    http.StatusBadGateway,
			body:      `oops`,
			wantErr:   "unexpected status 502",
			transient: true,
		},
		{
			name:    "bad_request",
			status:  http.StatusBadRequest,
			body:    `{"status": "failed", "message": "query required"}`,
			wantErr: "unexpected status 400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "Acme", r.URL.Query().Get("query"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(WithBaseURL(srv.URL))

			resp, err := client.Autocomplete(context.Background(), "Acme")

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.transient, resilience.IsTransient(err))
				return
			}

			require.NoError(t, err)
			assert.Len(t, resp.Data, tt.wantMatches)
			if tt.wantMatches > 0 {
				assert.Equal(t, "acme.com", resp.Data[0].Domain)
				assert.InDelta(t, 90, resp.Data[0].Confidence, 0.001)
			}
		})
	}
}
