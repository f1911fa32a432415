package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/analyze"
	"github.com/liac-group/outreach-cli/internal/blacklist"
	"github.com/liac-group/outreach-cli/internal/campaign"
	"github.com/liac-group/outreach-cli/internal/contacts"
	"github.com/liac-group/outreach-cli/internal/hunt"
	"github.com/liac-group/outreach-cli/internal/memory"
	"github.com/liac-group/outreach-cli/internal/model"
	"github.com/liac-group/outreach-cli/internal/pipeline"
	"github.com/liac-group/outreach-cli/internal/ratelimit"
	"github.com/liac-group/outreach-cli/internal/resilience"
	"github.com/liac-group/outreach-cli/internal/resolve"
	"github.com/liac-group/outreach-cli/internal/store"
	anthropicpkg "github.com/liac-group/outreach-cli/pkg/anthropic"
	"github.com/liac-group/outreach-cli/pkg/clearout"
	"github.com/liac-group/outreach-cli/pkg/hunter"
	"github.com/liac-group/outreach-cli/pkg/instantly"
	"github.com/liac-group/outreach-cli/pkg/jobsearch"
	"github.com/liac-group/outreach-cli/pkg/linkedin"
)

// appEnv holds the initialized store, dedup/blacklist backends, rate limiter
// and provider clients shared by the hunt/serve/blacklist/memory commands.
type appEnv struct {
	Store     store.Store
	KV        memory.KV
	Claims    *memory.FingerprintStore
	Blacklist *blacklist.Registry
	Limiter   *ratelimit.Limiter

	pipeDeps pipeline.Deps
	parser   *hunt.Parser
	search   jobsearch.Client

	redisClose func() error
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.redisClose != nil {
		_ = e.redisClose()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// Runner builds a hunt runner whose orchestrator streams unit results to
// sink. sink may be nil.
func (e *appEnv) Runner(sink pipeline.Sink) *hunt.Runner {
	orch := pipeline.New(e.pipeDeps, pipeline.Config{
		MaxConcurrentCompanies: cfg.Pipeline.MaxConcurrentCompanies,
		DefaultRetry: resilience.RetryConfig{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMS) * time.Millisecond,
		},
	}, sink)
	return hunt.NewRunner(e.search, e.parser, e.Store, orch, e.Limiter, cfg.JobSearch.Sites)
}

// batchOptions resolves per-batch options from config defaults.
func batchOptions() model.Options {
	return model.Options{
		EnforceSalary:         cfg.Pipeline.EnforceSalary,
		CreateCampaigns:       cfg.Pipeline.CreateCampaigns,
		MinDecisionMakerScore: cfg.Pipeline.MinDecisionMakerScore,
		MaxEmployeeCount:      cfg.Pipeline.MaxEmployeeCount,
		HoursOld:              cfg.Pipeline.HoursOld,
	}
}

// initEnv sets up the store, the KV backends, the rate limiter and every
// provider client, then wires the pipeline dependencies. ctx bounds the
// analyzer's batching goroutine; callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	env := &appEnv{}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	env.Store = st

	if cfg.Redis.Enabled {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "redis ping")
		}
		env.KV = memory.NewRedisKV(rc)
		env.redisClose = rc.Close
		zap.L().Info("shared memory on redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		env.KV = memory.NewMapKV()
	}

	env.Claims = memory.NewFingerprintStore(env.KV, memory.Policy{
		Scope:     memory.Scope(cfg.Pipeline.FingerprintScope),
		Staleness: cfg.Pipeline.StaleClaimAfter(),
	})
	env.Blacklist = blacklist.NewRegistry(env.KV, cfg.Blacklist.RecheckAfter())

	// Seeding the registry up front lets the pipeline's blacklist gate skip
	// well-known enterprises before the first provider call.
	for _, name := range cfg.Blacklist.EnterpriseNames {
		if err := env.Blacklist.Add(ctx, name, model.ReasonExplicit, "well-known enterprise"); err != nil {
			zap.L().Warn("seed enterprise blacklist", zap.String("company", name), zap.Error(err))
		}
	}

	limitOpts := make([]ratelimit.Option, 0, len(cfg.RateLimit.Providers))
	for key, pc := range cfg.RateLimit.Providers {
		limitOpts = append(limitOpts, ratelimit.WithProvider(key, ratelimit.ProviderConfig{
			MinInterval: time.Duration(pc.MinIntervalMS) * time.Millisecond,
			Burst:       pc.Burst,
		}))
	}
	env.Limiter = ratelimit.New(ratelimit.ProviderConfig{
		MinInterval: time.Duration(cfg.RateLimit.Default.MinIntervalMS) * time.Millisecond,
		Burst:       cfg.RateLimit.Default.Burst,
	}, limitOpts...)

	claudeClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	clearoutClient := clearout.NewClient(clearout.WithBaseURL(cfg.Clearout.BaseURL))
	linkedinClient := linkedin.NewClient(cfg.LinkedIn.Key,
		linkedin.WithBaseURL(cfg.LinkedIn.BaseURL),
		linkedin.WithHost(cfg.LinkedIn.Host),
	)
	hunterClient := hunter.NewClient(cfg.Hunter.Key, hunter.WithBaseURL(cfg.Hunter.BaseURL))
	instantlyClient := instantly.NewClient(cfg.Instantly.Key, instantly.WithBaseURL(cfg.Instantly.BaseURL))
	env.search = jobsearch.NewClient(cfg.JobSearch.Key, jobsearch.WithBaseURL(cfg.JobSearch.BaseURL))

	env.parser = hunt.NewParser(claudeClient, env.Limiter, cfg.Anthropic.Model)

	analyzer := analyze.New(claudeClient, linkedinClient, env.Limiter, analyze.Config{
		Model:           cfg.Anthropic.Model,
		BatchSize:       cfg.Analyzer.BatchSize,
		MaxWait:         cfg.Analyzer.MaxWait(),
		MaxEmployees:    cfg.Pipeline.MaxEmployeeCount,
		MaxPeoplePages:  cfg.LinkedIn.MaxPages,
		EnterpriseNames: cfg.Blacklist.EnterpriseNames,
	})
	analyzer.Start(ctx)

	tmpl, err := campaign.LoadTemplate(cfg.Campaign.TemplatePath)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "load campaign template")
	}

	env.pipeDeps = pipeline.Deps{
		Store:     env.Store,
		Claims:    env.Claims,
		Blacklist: env.Blacklist,
		Gate:      env.Limiter,
		Breakers:  resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
		Domains: resolve.NewDomainResolver(clearoutClient, env.Limiter,
			cfg.Clearout.MinConfidence, cfg.Clearout.SynthFallback),
		Identities: resolve.NewIdentityResolver(claudeClient, linkedinClient, env.Limiter, cfg.Anthropic.Model),
		Analyzer:   analyzer,
		Contacts: contacts.New(linkedinClient, hunterClient, env.Limiter, contacts.Config{
			MinDecisionMakerScore: cfg.Pipeline.MinDecisionMakerScore,
			TopContacts:           cfg.Pipeline.TopContacts,
			MaxPeoplePages:        cfg.LinkedIn.MaxPages,
			VerifyEmails:          true,
		}),
		Campaigns: campaign.New(instantlyClient, env.Store, env.Limiter, tmpl, cfg.Instantly.SenderEmails),
	}

	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
