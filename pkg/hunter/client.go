// Package hunter provides a client for the Hunter.io email-discovery API.
package hunter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/liac-group/outreach-cli/internal/resilience"
)

const defaultBaseURL = "https://api.hunter.io/v2"

// Client exposes the Hunter.io operations the pipeline uses.
type Client interface {
	// DomainSearch lists people and email addresses found for a domain.
	DomainSearch(ctx context.Context, req DomainSearchRequest) (*DomainSearchResult, error)
	// VerifyEmail checks deliverability of a single address.
	VerifyEmail(ctx context.Context, email string) (*Verification, error)
}

// DomainSearchRequest parameterizes GET /domain-search.
type DomainSearchRequest struct {
	Domain    string
	Limit     int
	Seniority string // comma-separated, e.g. "senior,executive"
}

// DomainSearchResult is the data block of the domain-search response.
type DomainSearchResult struct {
	Domain       string  `json:"domain"`
	Organization string  `json:"organization"`
	Emails       []Email `json:"emails"`
}

// Email is one address Hunter found on a domain.
type Email struct {
	Value      string `json:"value"`
	Type       string `json:"type"` // "personal" | "generic"
	Confidence int    `json:"confidence"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Position   string `json:"position"`
	Seniority  string `json:"seniority"`
	LinkedIn   string `json:"linkedin"`
}

// Verification is the data block of the email-verifier response.
type Verification struct {
	Status string `json:"status"` // "valid" | "invalid" | "accept_all" | "unknown"
	Result string `json:"result"` // "deliverable" | "undeliverable" | "risky"
	Score  int    `json:"score"`
	Email  string `json:"email"`
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
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Hunter.io client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
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

func (c *httpClient) DomainSearch(ctx context.Context, req DomainSearchRequest) (*DomainSearchResult, error) {
	q := url.Values{}
	q.Set("domain", req.Domain)
	q.Set("api_key", c.apiKey)
	if req.Limit > 0 {
		q.Set("limit", fmt.Sprint(req.Limit))
	}
	if req.Seniority != "" {
		q.Set("seniority", req.Seniority)
	}

	var out struct {
		Data DomainSearchResult `json:"data"`
	}
	if err := c.get(ctx, c.baseURL+"/domain-search?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *httpClient) VerifyEmail(ctx context.Context, email string) (*Verification, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("api_key", c.apiKey)

	var out struct {
		Data Verification `json:"data"`
	}
	if err := c.get(ctx, c.baseURL+"/email-verifier?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *httpClient) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "hunter: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.Transient(eris.Wrap(err, "hunter: send request"), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resilience.Transient(eris.Wrap(err, "hunter: read response"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return resilience.StatusError("hunter", resp.StatusCode, body, resp.Header.Get("Retry-After"))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "hunter: unmarshal response")
	}
	return nil
}
