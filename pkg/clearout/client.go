// Package clearout provides a client for the Clearout company-autocomplete
// API, used to resolve company names to web domains.
package clearout

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/liac-group/outreach-cli/internal/resilience"
)

const defaultBaseURL = "https://api.clearout.io/public/companies/autocomplete"

// Client resolves company names to candidate domains.
type Client interface {
	Autocomplete(ctx context.Context, query string) (*AutocompleteResponse, error)
}

// AutocompleteResponse is the parsed Clearout response.
type AutocompleteResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Data    []Match `json:"data"`
}

// Match is one candidate company returned by the autocomplete.
type Match struct {
	Name       string  `json:"name"`
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence_score"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Clearout autocomplete client. The endpoint is public
// and takes no credentials.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Autocomplete(ctx context.Context, query string) (*AutocompleteResponse, error) {
	reqURL := c.baseURL + "?query=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "clearout: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.Transient(eris.Wrap(err, "clearout: send request"), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.Transient(eris.Wrap(err, "clearout: read response"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("clearout", resp.StatusCode, body, resp.Header.Get("Retry-After"))
	}

	var result AutocompleteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "clearout: unmarshal response")
	}

	return &result, nil
}
