// Package analyze classifies companies by size and by whether they already
// run an internal talent acquisition team, then applies the blacklist policy
// that decides if outreach is worthwhile.
package analyze

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/memory"
	"github.com/liac-group/outreach-cli/internal/model"
	"github.com/liac-group/outreach-cli/pkg/anthropic"
	"github.com/liac-group/outreach-cli/pkg/linkedin"
)

// Gate paces outbound provider calls. Satisfied by ratelimit.Limiter.
type Gate interface {
	Acquire(ctx context.Context, providerKey string) (time.Time, error)
}

// taKeywords flag job titles that indicate a dedicated recruiting function.
var taKeywords = []string{
	"talent", "recruiter", "recruiting", "people ops", "hr",
	"human resources", "people partner", "talent acquisition",
	"talent partner", "people operations", "staffing",
}

// Result is the outcome of analyzing one company. A non-empty Blacklist
// reason means the company is cut from further stages.
type Result struct {
	Bracket   model.EmployeeBracket
	HasTATeam *bool
	TARoles   []string
	Blacklist model.BlacklistReason
	Detail    string
}

// Analyzer classifies companies. Size and an initial TA guess come from a
// micro-batched model call; the guess is refined against actual LinkedIn
// employee titles when the model is unsure.
type Analyzer struct {
	linkedin linkedin.Client
	gate     Gate
	batcher  *batcher

	maxEmployees int
	maxPages     int
	enterprise   map[string]struct{}
}

// Config tunes an Analyzer.
type Config struct {
	Model           string
	BatchSize       int
	MaxWait         time.Duration
	MaxEmployees    int // bracket lower bound above this blacklists as too-large
	MaxPeoplePages  int
	EnterpriseNames []string
}

// New creates an Analyzer. Start must be called before Analyze.
func New(claude anthropic.Client, li linkedin.Client, gate Gate, cfg Config) *Analyzer {
	if cfg.MaxEmployees <= 0 {
		cfg.MaxEmployees = 100
	}
	if cfg.MaxPeoplePages <= 0 {
		cfg.MaxPeoplePages = 3
	}
	enterprise := make(map[string]struct{}, len(cfg.EnterpriseNames))
	for _, name := range cfg.EnterpriseNames {
		enterprise[memory.NormalizeCompany(name)] = struct{}{}
	}
	return &Analyzer{
		linkedin:     li,
		gate:         gate,
		batcher:      newBatcher(claude, gate, cfg.Model, cfg.BatchSize, cfg.MaxWait),
		maxEmployees: cfg.MaxEmployees,
		maxPages:     cfg.MaxPeoplePages,
		enterprise:   enterprise,
	}
}

// Start launches the batching loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (a *Analyzer) Start(ctx context.Context) {
	go a.batcher.run(ctx)
}

// Analyze classifies one company. employeeCount, when known from an earlier
// stage, skips the model's size estimate. linkedInID may be empty, in which
// case no title refinement is possible.
func (a *Analyzer) Analyze(ctx context.Context, name, linkedInID string, employeeCount int) (Result, error) {
	if _, ok := a.enterprise[memory.NormalizeCompany(name)]; ok {
		return Result{
			Blacklist: model.ReasonExplicit,
			Detail:    "well-known enterprise",
		}, nil
	}

	res := Result{Bracket: model.BracketFor(employeeCount)}

	if res.Bracket == model.BracketUnknown || employeeCount <= 0 {
		cls, err := a.batcher.classify(ctx, name)
		if err != nil {
			return Result{}, err
		}
		if res.Bracket == model.BracketUnknown {
			res.Bracket = model.BracketFor(cls.EmployeeCount)
		}
		switch cls.HasTATeam {
		case "yes":
			res.HasTATeam = boolPtr(true)
		case "no":
			res.HasTATeam = boolPtr(false)
		}
	}

	// Size policy first: an oversized company is cut before any further
	// provider calls are spent on it.
	if res.Bracket.Exceeds(a.maxEmployees) {
		res.Blacklist = model.ReasonTooLarge
		res.Detail = string(res.Bracket) + " employees"
		return res, nil
	}

	if res.HasTATeam == nil && linkedInID != "" {
		hasTA, roles, err := a.detectTATeam(ctx, linkedInID)
		if err != nil {
			return Result{}, err
		}
		res.HasTATeam = hasTA
		res.TARoles = roles
	}

	if res.HasTATeam != nil && *res.HasTATeam {
		res.Blacklist = model.ReasonHasTATeam
		if len(res.TARoles) > 0 {
			res.Detail = strings.Join(res.TARoles, ", ")
		}
		zap.L().Info("internal TA team detected",
			zap.String("company", name),
			zap.Strings("roles", res.TARoles),
		)
	}
	return res, nil
}

// detectTATeam pages through the company's employees scanning titles for
// recruiting roles. Stops at the first hit or the first empty page.
func (a *Analyzer) detectTATeam(ctx context.Context, linkedInID string) (*bool, []string, error) {
	seen := 0
	for page := 1; page <= a.maxPages; page++ {
		if _, err := a.gate.Acquire(ctx, "linkedin"); err != nil {
			return nil, nil, err
		}
		people, err := a.linkedin.CompanyPeople(ctx, linkedInID, page)
		if err != nil {
			return nil, nil, err
		}
		if len(people) == 0 {
			break
		}
		seen += len(people)

		if roles := taRoles(people); len(roles) > 0 {
			return boolPtr(true), roles, nil
		}
	}
	if seen == 0 {
		// No employee data at all: the question stays open.
		return nil, nil, nil
	}
	return boolPtr(false), nil, nil
}

func taRoles(people []linkedin.Person) []string {
	var roles []string
	dup := make(map[string]struct{})
	for _, p := range people {
		title := strings.ToLower(p.Title)
		for _, kw := range taKeywords {
			if strings.Contains(title, kw) {
				if _, ok := dup[p.Title]; !ok {
					dup[p.Title] = struct{}{}
					roles = append(roles, p.Title)
				}
				break
			}
		}
	}
	return roles
}

func boolPtr(b bool) *bool { return &b }
