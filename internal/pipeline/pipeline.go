// Package pipeline orchestrates the per-company state machine over a batch
// of job postings: domain resolution, LinkedIn identity, size/TA analysis,
// contact discovery and optional campaign creation. Stage failures are scoped
// to one company; only store unavailability fails the batch.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/liac-group/outreach-cli/internal/analyze"
	"github.com/liac-group/outreach-cli/internal/blacklist"
	"github.com/liac-group/outreach-cli/internal/memory"
	"github.com/liac-group/outreach-cli/internal/model"
	"github.com/liac-group/outreach-cli/internal/resilience"
	"github.com/liac-group/outreach-cli/internal/resolve"
	"github.com/liac-group/outreach-cli/internal/store"
)

// Gate paces outbound provider calls and absorbs explicit backoff signals.
// Satisfied by ratelimit.Limiter.
type Gate interface {
	Acquire(ctx context.Context, providerKey string) (time.Time, error)
	Penalize(providerKey string, backoff time.Duration)
}

// DomainResolver maps a company name to its web domain.
type DomainResolver interface {
	Resolve(ctx context.Context, name string) (domain string, found bool, err error)
}

// IdentityResolver maps a company to a confirmed LinkedIn identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, name, domain string) (resolve.Identity, bool, error)
}

// Analyzer classifies a company's size bracket and TA-team presence.
type Analyzer interface {
	Analyze(ctx context.Context, name, linkedInID string, employeeCount int) (analyze.Result, error)
}

// ContactDiscoverer finds ranked decision-maker contacts for a company.
type ContactDiscoverer interface {
	Discover(ctx context.Context, company, linkedInID, domain string) ([]model.Contact, error)
}

// CampaignDispatcher creates or reuses a campaign and enrolls contacts.
type CampaignDispatcher interface {
	Dispatch(ctx context.Context, batchID string, co *model.Company, contacts []model.Contact) (*model.CampaignRecord, error)
}

// Blacklist answers and records company exclusions. Satisfied by
// blacklist.Registry.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, company string) (bool, blacklist.Entry, error)
	Add(ctx context.Context, company string, reason model.BlacklistReason, detail string) error
}

// Claims owns (company, title) unit dedup. Satisfied by
// memory.FingerprintStore.
type Claims interface {
	FingerprintFor(batchID, company, title string) string
	TryClaim(ctx context.Context, fp string) (memory.ClaimStatus, error)
	Complete(ctx context.Context, fp, outcome string) error
	Release(ctx context.Context, fp string) error
}

// Sink receives one UnitResult as each claimed (company, job) unit reaches a
// terminal state. Calls are serialized by the orchestrator.
type Sink func(model.UnitResult)

// Config tunes orchestration behavior.
type Config struct {
	// MaxConcurrentCompanies bounds the worker pool. Default: 5.
	MaxConcurrentCompanies int

	// DefaultRetry is the stage retry policy when no per-stage override
	// exists.
	DefaultRetry resilience.RetryConfig

	// StageRetries overrides the retry policy for individual stages.
	StageRetries map[model.Stage]resilience.RetryConfig
}

// Deps collects the orchestrator's collaborators.
type Deps struct {
	Store     store.Store
	Claims    Claims
	Blacklist Blacklist
	Gate      Gate
	Breakers  *resilience.ServiceBreakers

	Domains    DomainResolver
	Identities IdentityResolver
	Analyzer   Analyzer
	Contacts   ContactDiscoverer
	Campaigns  CampaignDispatcher
}

// Orchestrator drives a batch of job postings through the company state
// machine.
type Orchestrator struct {
	deps Deps
	cfg  Config
	sink Sink

	nowFunc func() time.Time
}

// New creates an orchestrator. sink may be nil.
func New(deps Deps, cfg Config, sink Sink) *Orchestrator {
	if cfg.MaxConcurrentCompanies <= 0 {
		cfg.MaxConcurrentCompanies = 5
	}
	if deps.Breakers == nil {
		deps.Breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	return &Orchestrator{
		deps:    deps,
		cfg:     cfg,
		sink:    sink,
		nowFunc: time.Now,
	}
}

// Run processes the batch's job postings to completion and returns the
// accumulated stats. Provider and stage errors are recorded per company; the
// returned error is non-nil only when the store itself is unreachable.
func (o *Orchestrator) Run(ctx context.Context, batchID string, jobs []model.JobPosting, opts model.Options) (model.BatchStats, error) {
	rs := &runState{sink: o.sink}
	rs.stats.JobsSeen = len(jobs)

	if opts.EnforceSalary {
		jobs = FilterSalaried(jobs)
	}
	companies := GroupCompanies(jobs)

	zap.L().Info("batch started",
		zap.String("batch_id", batchID),
		zap.Int("jobs", rs.stats.JobsSeen),
		zap.Int("companies", len(companies)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentCompanies)
	for _, co := range companies {
		g.Go(func() error {
			return o.processCompany(gctx, batchID, co, opts, rs)
		})
	}
	runErr := g.Wait()

	// Final batch bookkeeping survives cancellation so a cancelled batch is
	// still inspectable afterwards.
	finCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		if err := o.deps.Store.UpdateBatchStatus(finCtx, batchID, model.BatchStatusFailed); err != nil {
			zap.L().Error("marking batch failed", zap.String("batch_id", batchID), zap.Error(err))
		}
		return rs.stats, runErr
	}

	if err := o.deps.Store.UpdateBatchStats(finCtx, batchID, rs.stats); err != nil {
		return rs.stats, eris.Wrap(err, "saving batch stats")
	}
	status := model.BatchStatusCompleted
	if ctx.Err() != nil {
		status = model.BatchStatusCancelled
	}
	if err := o.deps.Store.UpdateBatchStatus(finCtx, batchID, status); err != nil {
		return rs.stats, eris.Wrap(err, "updating batch status")
	}

	zap.L().Info("batch finished",
		zap.String("batch_id", batchID),
		zap.String("status", string(status)),
		zap.Int("companies_processed", rs.stats.CompaniesProcessed),
		zap.Int("companies_blacklisted", rs.stats.CompaniesBlacklisted),
		zap.Int("companies_failed", rs.stats.CompaniesFailed),
		zap.Int("contacts_found", rs.stats.ContactsFound),
	)
	return rs.stats, nil
}

// runState accumulates batch counters and serializes sink emission across
// company workers.
type runState struct {
	mu    sync.Mutex
	stats model.BatchStats
	sink  Sink
}

func (rs *runState) bump(f func(*model.BatchStats)) {
	rs.mu.Lock()
	f(&rs.stats)
	rs.mu.Unlock()
}

func (rs *runState) emit(r model.UnitResult) {
	if rs.sink == nil {
		return
	}
	rs.mu.Lock()
	rs.sink(r)
	rs.mu.Unlock()
}
