package resolve

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/memory"
	"github.com/liac-group/outreach-cli/pkg/anthropic"
	"github.com/liac-group/outreach-cli/pkg/linkedin"
)

// Identity is a confirmed LinkedIn company identity.
type Identity struct {
	LinkedInID    string
	Name          string
	EmployeeCount int
	Industry      string
	Website       string
}

const identitySystemPrompt = `You are a LinkedIn company name resolver. Given a company name and optionally its website domain, return the exact LinkedIn company identifier. Respond with JSON only: {"linkedin_identifier": "<identifier>"}. Examples: "Microsoft" -> {"linkedin_identifier": "microsoft"}, "Apple Inc" -> {"linkedin_identifier": "apple"}. If unsure, give your best guess.`

// IdentityResolver maps a company (name + optional domain) to a LinkedIn
// identifier, confirmed against the company-profile endpoint.
type IdentityResolver struct {
	claude   anthropic.Client
	linkedin linkedin.Client
	gate     Gate
	model    string
}

// NewIdentityResolver creates a resolver over the Claude and LinkedIn clients.
func NewIdentityResolver(claude anthropic.Client, li linkedin.Client, gate Gate, model string) *IdentityResolver {
	return &IdentityResolver{
		claude:   claude,
		linkedin: li,
		gate:     gate,
		model:    model,
	}
}

// Resolve returns the confirmed identity for the company, or found=false
// when neither the resolved identifier nor the slug fallback matches a
// LinkedIn company.
func (r *IdentityResolver) Resolve(ctx context.Context, name, domain string) (Identity, bool, error) {
	candidates := make([]string, 0, 2)

	guess, err := r.resolveWithClaude(ctx, name, domain)
	if err != nil {
		return Identity{}, false, err
	}
	if guess != "" {
		candidates = append(candidates, guess)
	}

	if slug := Slugify(name); slug != "" && slug != guess {
		candidates = append(candidates, slug)
	}

	for _, candidate := range candidates {
		if _, err := r.gate.Acquire(ctx, "linkedin"); err != nil {
			return Identity{}, false, err
		}
		profile, found, err := r.linkedin.CompanyProfile(ctx, candidate)
		if err != nil {
			return Identity{}, false, err
		}
		if !found {
			continue
		}

		id := profile.UniversalName
		if id == "" {
			id = candidate
		}
		zap.L().Debug("identity confirmed",
			zap.String("company", name),
			zap.String("linkedin_id", id),
			zap.Int("employee_count", profile.EmployeeCount),
		)
		return Identity{
			LinkedInID:    id,
			Name:          profile.Name,
			EmployeeCount: profile.EmployeeCount,
			Industry:      profile.Industry,
			Website:       profile.Website,
		}, true, nil
	}

	return Identity{}, false, nil
}

func (r *IdentityResolver) resolveWithClaude(ctx context.Context, name, domain string) (string, error) {
	if _, err := r.gate.Acquire(ctx, "claude"); err != nil {
		return "", err
	}

	prompt := "Find the LinkedIn company identifier for: " + name
	if domain != "" {
		prompt += " (website: " + domain + ")"
	}

	resp, err := r.claude.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.model,
		MaxTokens: 128,
		System:    []anthropic.SystemBlock{{Text: identitySystemPrompt}},
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(r.model, "identity")

	var parsed struct {
		LinkedInIdentifier string `json:"linkedin_identifier"`
	}
	if err := json.Unmarshal([]byte(resp.Text()), &parsed); err != nil {
		// A malformed answer is not fatal: the slug fallback still runs.
		zap.L().Warn("unparseable identity response", zap.String("company", name))
		return "", nil
	}

	return CleanIdentifier(parsed.LinkedInIdentifier), nil
}

// CleanIdentifier normalizes a LinkedIn company identifier: lowercased, any
// URL prefix stripped.
func CleanIdentifier(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, prefix := range []string{"https://", "http://", "www.", "linkedin.com/company/"} {
		id = strings.TrimPrefix(id, prefix)
	}
	return strings.Trim(id, "/")
}

// Slugify derives the dashed LinkedIn-style slug from a company name.
func Slugify(name string) string {
	return strings.ReplaceAll(memory.NormalizeCompany(name), " ", "-")
}
