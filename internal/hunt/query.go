// Package hunt turns a free-text recruiter query into a processed batch:
// parse, search the job boards, persist the postings and hand the batch to
// the orchestrator.
package hunt

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/pkg/anthropic"
)

// Gate paces outbound provider calls. Satisfied by ratelimit.Limiter.
type Gate interface {
	Acquire(ctx context.Context, providerKey string) (time.Time, error)
}

// Query is the structured search derived from a free-text recruiter prompt.
type Query struct {
	SearchTerm    string   `json:"search_term"`
	Location      string   `json:"location,omitempty"`
	Sites         []string `json:"site_name,omitempty"`
	HoursOld      int      `json:"hours_old,omitempty"`
	IsRemote      bool     `json:"is_remote,omitempty"`
	ResultsWanted int      `json:"results_wanted,omitempty"`
}

// DefaultSites are the job boards searched when the query names none.
func DefaultSites() []string {
	return []string{"linkedin", "indeed", "zip_recruiter"}
}

const parseSystemPrompt = `You are a recruiter assistant. Given a prompt like "Find me sales jobs in fintech in NYC", return JSON with:
- search_term: the main job title/role to search for
- location: the location to search in, or "" if none
- site_name: array of job boards, default ["linkedin", "indeed", "zip_recruiter"]
- hours_old: posting age limit in hours if the prompt mentions one, else 0
- is_remote: true if the prompt asks for remote roles
- results_wanted: default 200
Respond with raw JSON only, no markdown.`

// Parser extracts search parameters from a recruiter prompt. The model does
// the heavy lifting; a keyword heuristic covers model failures and keyless
// setups.
type Parser struct {
	claude anthropic.Client
	gate   Gate
	model  string
}

// NewParser creates a parser. claude may be nil, in which case only the
// heuristic runs.
func NewParser(claude anthropic.Client, gate Gate, model string) *Parser {
	return &Parser{claude: claude, gate: gate, model: model}
}

// Parse derives a Query from raw. Never fails: any model problem falls back
// to HeuristicParse.
func (p *Parser) Parse(ctx context.Context, raw string) Query {
	if p.claude == nil {
		return HeuristicParse(raw)
	}

	q, err := p.parseWithClaude(ctx, raw)
	if err != nil {
		zap.L().Warn("query parse fell back to heuristic", zap.Error(err))
		return HeuristicParse(raw)
	}
	return q
}

func (p *Parser) parseWithClaude(ctx context.Context, raw string) (Query, error) {
	if _, err := p.gate.Acquire(ctx, "claude"); err != nil {
		return Query{}, err
	}

	resp, err := p.claude.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: 256,
		System:    []anthropic.SystemBlock{{Text: parseSystemPrompt}},
		Messages:  []anthropic.Message{{Role: "user", Content: raw}},
	})
	if err != nil {
		return Query{}, err
	}
	resp.Usage.LogCost(p.model, "parse")

	var q Query
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &q); err != nil {
		return Query{}, err
	}
	if q.SearchTerm == "" {
		q.SearchTerm = raw
	}
	if len(q.Sites) == 0 {
		q.Sites = DefaultSites()
	}
	if q.ResultsWanted <= 0 {
		q.ResultsWanted = 200
	}
	return q, nil
}

var knownLocations = []string{
	"san francisco", "nyc", "new york", "austin", "seattle", "boston",
	"chicago", "denver", "los angeles", "london", "berlin",
}

var knownRoles = []string{
	"engineer", "manager", "director", "developer", "designer",
	"analyst", "sales", "marketing", "recruiter",
}

var hoursRe = regexp.MustCompile(`last (\d+) hours`)

// HeuristicParse is the no-model fallback: keyword spotting for location,
// role, remote and posting age.
func HeuristicParse(raw string) Query {
	lower := strings.ToLower(raw)

	q := Query{
		SearchTerm:    raw,
		Sites:         DefaultSites(),
		ResultsWanted: 200,
	}

	for _, loc := range knownLocations {
		if strings.Contains(lower, loc) {
			q.Location = loc
			break
		}
	}
	for _, role := range knownRoles {
		if strings.Contains(lower, role) {
			q.SearchTerm = role
			break
		}
	}
	if strings.Contains(lower, "remote") {
		q.IsRemote = true
	}
	if m := hoursRe.FindStringSubmatch(lower); m != nil {
		if hours, err := strconv.Atoi(m[1]); err == nil {
			q.HoursOld = hours
		}
	}
	return q
}

// stripFences removes a markdown code fence around a JSON answer.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
