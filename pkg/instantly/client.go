// Package instantly provides a client for the Instantly outbound-campaign
// API. Campaigns are created in draft status; nothing is sent from here.
package instantly

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/liac-group/outreach-cli/internal/resilience"
)

const defaultBaseURL = "https://api.instantly.ai/api/v2"

// Client exposes the campaign operations the dispatcher uses.
type Client interface {
	CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*Campaign, error)
	AddLeads(ctx context.Context, campaignID string, leads []Lead) (*AddLeadsResult, error)
	GetCampaign(ctx context.Context, campaignID string) (*Campaign, error)
}

// CreateCampaignRequest is the body for POST /campaigns.
type CreateCampaignRequest struct {
	Name            string `json:"name"`
	SubjectLine     string `json:"subject_line"`
	MessageTemplate string `json:"message_template"`
	SenderEmail     string `json:"sender_email,omitempty"`
	SenderName      string `json:"sender_name,omitempty"`
	Status          string `json:"status"`
}

// Campaign is the provider's campaign record.
type Campaign struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	LeadCount   int    `json:"lead_count"`
	SenderEmail string `json:"sender_email"`
}

// Lead is one enrollment in a campaign.
type Lead struct {
	Email        string            `json:"email"`
	FirstName    string            `json:"first_name,omitempty"`
	LastName     string            `json:"last_name,omitempty"`
	Company      string            `json:"company,omitempty"`
	JobTitle     string            `json:"job_title,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// AddLeadsResult reports how many leads the provider accepted.
type AddLeadsResult struct {
	AddedCount   int `json:"added_count"`
	SkippedCount int `json:"skipped_count"`
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

// NewClient creates an Instantly API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
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

func (c *httpClient) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*Campaign, error) {
	if req.Status == "" {
		req.Status = "draft"
	}

	var campaign Campaign
	if err := c.do(ctx, http.MethodPost, "/campaigns", req, &campaign, http.StatusCreated); err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (c *httpClient) AddLeads(ctx context.Context, campaignID string, leads []Lead) (*AddLeadsResult, error) {
	payload := struct {
		Leads []Lead `json:"leads"`
	}{Leads: leads}

	var result AddLeadsResult
	if err := c.do(ctx, http.MethodPost, "/campaigns/"+campaignID+"/leads", payload, &result, http.StatusCreated); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) GetCampaign(ctx context.Context, campaignID string) (*Campaign, error) {
	var campaign Campaign
	if err := c.do(ctx, http.MethodGet, "/campaigns/"+campaignID, nil, &campaign, http.StatusOK); err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, in, out any, wantStatus int) error {
	var reqBody io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "instantly: marshal request")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return eris.Wrap(err, "instantly: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.Transient(eris.Wrap(err, "instantly: send request"), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resilience.Transient(eris.Wrap(err, "instantly: read response"), resp.StatusCode)
	}

	if resp.StatusCode != wantStatus {
		return resilience.StatusError("instantly", resp.StatusCode, body, resp.Header.Get("Retry-After"))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return eris.Wrap(err, "instantly: unmarshal response")
		}
	}
	return nil
}
