// Package linkedin provides a client for the fresh-linkedin-scraper RapidAPI,
// used to confirm company identities and list employees.
package linkedin

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

const (
	defaultBaseURL = "https://fresh-linkedin-scraper-api.p.rapidapi.com/api/v1"
	defaultHost    = "fresh-linkedin-scraper-api.p.rapidapi.com"
)

// Client exposes the company endpoints of the scraper API.
type Client interface {
	// CompanyProfile fetches the profile for a LinkedIn company identifier.
	// found=false means the identifier resolved to nothing, not an error.
	CompanyProfile(ctx context.Context, company string) (profile *CompanyProfile, found bool, err error)
	// CompanyPeople lists employees, one page at a time (pages start at 1).
	CompanyPeople(ctx context.Context, company string, page int) ([]Person, error)
}

// CompanyProfile is the company data the scraper reports.
type CompanyProfile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	UniversalName string `json:"universal_name"`
	EmployeeCount int    `json:"employee_count"`
	Industry      string `json:"industry"`
	Website       string `json:"website"`
}

// Person is one employee entry from the people endpoint.
type Person struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Location string `json:"location"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHost overrides the RapidAPI host header.
func WithHost(host string) Option {
	return func(c *httpClient) {
		c.host = host
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
	host    string
	http    *http.Client
}

// NewClient creates a scraper client authenticated with a RapidAPI key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		host:    defaultHost,
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

func (c *httpClient) CompanyProfile(ctx context.Context, company string) (*CompanyProfile, bool, error) {
	reqURL := fmt.Sprintf("%s/company/profile?company=%s", c.baseURL, url.QueryEscape(company))

	env, statusCode, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, false, err
	}
	// The scraper reports unknown identifiers as 404 or success=false.
	if statusCode == http.StatusNotFound || !env.Success {
		return nil, false, nil
	}

	var profile CompanyProfile
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		return nil, false, eris.Wrap(err, "linkedin: unmarshal profile")
	}
	return &profile, true, nil
}

func (c *httpClient) CompanyPeople(ctx context.Context, company string, page int) ([]Person, error) {
	if page < 1 {
		page = 1
	}
	reqURL := fmt.Sprintf("%s/company/people?company=%s&page=%d", c.baseURL, url.QueryEscape(company), page)

	env, statusCode, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if statusCode == http.StatusNotFound || !env.Success {
		return nil, nil
	}

	var people []Person
	if err := json.Unmarshal(env.Data, &people); err != nil {
		return nil, eris.Wrap(err, "linkedin: unmarshal people")
	}
	return people, nil
}

func (c *httpClient) get(ctx context.Context, reqURL string) (*envelope, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "linkedin: create request")
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, resilience.Transient(eris.Wrap(err, "linkedin: send request"), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, resilience.Transient(eris.Wrap(err, "linkedin: read response"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return nil, resp.StatusCode, resilience.StatusError("linkedin", resp.StatusCode, body, resp.Header.Get("Retry-After"))
	}

	var env envelope
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, resp.StatusCode, eris.Wrap(err, "linkedin: unmarshal envelope")
		}
	}
	return &env, resp.StatusCode, nil
}
