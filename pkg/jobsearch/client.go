// Package jobsearch provides a client for the RapidAPI job-board search API.
package jobsearch

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

const defaultBaseURL = "https://jobs-search-api.p.rapidapi.com"

// Client searches job boards for open postings.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest is the request body for POST /getjobs.
type SearchRequest struct {
	SearchTerm    string   `json:"search_term"`
	Location      string   `json:"location,omitempty"`
	Sites         []string `json:"site_name,omitempty"`
	ResultsWanted int      `json:"results_wanted,omitempty"`
	HoursOld      int      `json:"hours_old,omitempty"`
	IsRemote      bool     `json:"is_remote,omitempty"`
}

// SearchResponse is the parsed search result set.
type SearchResponse struct {
	Count int   `json:"count"`
	Jobs  []Job `json:"jobs"`
}

// Job is a single posting as the job boards report it.
type Job struct {
	Title      string `json:"title"`
	Company    string `json:"company"`
	Location   string `json:"location"`
	JobURL     string `json:"job_url"`
	DatePosted string `json:"date_posted"`
	IsRemote   bool   `json:"is_remote"`
	Salary     string `json:"salary"`
	Site       string `json:"site"`
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

// NewClient creates a job-search client authenticated with a RapidAPI key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
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

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "jobsearch: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/getjobs", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "jobsearch: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-RapidAPI-Key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, resilience.Transient(eris.Wrap(err, "jobsearch: send request"), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.Transient(eris.Wrap(err, "jobsearch: read response"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("jobsearch", resp.StatusCode, respBody, resp.Header.Get("Retry-After"))
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "jobsearch: unmarshal response")
	}
	if result.Count == 0 {
		result.Count = len(result.Jobs)
	}

	return &result, nil
}
