package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	JobSearch JobSearchConfig `yaml:"jobsearch" mapstructure:"jobsearch"`
	Clearout  ClearoutConfig  `yaml:"clearout" mapstructure:"clearout"`
	LinkedIn  LinkedInConfig  `yaml:"linkedin" mapstructure:"linkedin"`
	Hunter    HunterConfig    `yaml:"hunter" mapstructure:"hunter"`
	Instantly InstantlyConfig `yaml:"instantly" mapstructure:"instantly"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Blacklist BlacklistConfig `yaml:"blacklist" mapstructure:"blacklist"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer" mapstructure:"analyzer"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Campaign  CampaignConfig  `yaml:"campaign" mapstructure:"campaign"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RedisConfig configures the optional shared dedup/blacklist backend. When
// disabled, an in-process map is used instead.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// JobSearchConfig holds job-board search settings.
type JobSearchConfig struct {
	BaseURL string   `yaml:"base_url" mapstructure:"base_url"`
	Key     string   `yaml:"key" mapstructure:"key"`
	Sites   []string `yaml:"sites" mapstructure:"sites"`
}

// ClearoutConfig holds Clearout domain-autocomplete settings.
type ClearoutConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	SynthFallback bool    `yaml:"synth_fallback" mapstructure:"synth_fallback"`
}

// LinkedInConfig holds the LinkedIn scraper API settings.
type LinkedInConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	Host     string `yaml:"host" mapstructure:"host"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	MaxPages int    `yaml:"max_pages" mapstructure:"max_pages"`
}

// HunterConfig holds Hunter.io contact-discovery settings.
type HunterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// InstantlyConfig holds Instantly campaign settings.
type InstantlyConfig struct {
	Key          string   `yaml:"key" mapstructure:"key"`
	BaseURL      string   `yaml:"base_url" mapstructure:"base_url"`
	SenderEmails []string `yaml:"sender_emails" mapstructure:"sender_emails"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PipelineConfig configures orchestration behavior.
type PipelineConfig struct {
	MaxConcurrentCompanies int     `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
	MinDecisionMakerScore  float64 `yaml:"min_decision_maker_score" mapstructure:"min_decision_maker_score"`
	MaxEmployeeCount       int     `yaml:"max_employee_count" mapstructure:"max_employee_count"`
	HoursOld               int     `yaml:"hours_old" mapstructure:"hours_old"`
	EnforceSalary          bool    `yaml:"enforce_salary" mapstructure:"enforce_salary"`
	CreateCampaigns        bool    `yaml:"create_campaigns" mapstructure:"create_campaigns"`
	TopContacts            int     `yaml:"top_contacts" mapstructure:"top_contacts"`
	FingerprintScope       string  `yaml:"fingerprint_scope" mapstructure:"fingerprint_scope"`
	StaleClaimAfterMins    int     `yaml:"stale_claim_after_mins" mapstructure:"stale_claim_after_mins"`
}

// BlacklistConfig configures exclusion policy.
type BlacklistConfig struct {
	// RecheckAfterHours > 0 lets a fresh batch re-evaluate entries older
	// than the window. Zero keeps entries permanent.
	RecheckAfterHours int      `yaml:"recheck_after_hours" mapstructure:"recheck_after_hours"`
	EnterpriseNames   []string `yaml:"enterprise_names" mapstructure:"enterprise_names"`
}

// AnalyzerConfig configures company-analysis micro-batching.
type AnalyzerConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	MaxWaitMS int `yaml:"max_wait_ms" mapstructure:"max_wait_ms"`
}

// ProviderRateConfig sets the pacing for one provider.
type ProviderRateConfig struct {
	MinIntervalMS int `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	Burst         int `yaml:"burst" mapstructure:"burst"`
}

// RateLimitConfig holds the default pacing plus per-provider overrides.
type RateLimitConfig struct {
	Default   ProviderRateConfig            `yaml:"default" mapstructure:"default"`
	Providers map[string]ProviderRateConfig `yaml:"providers" mapstructure:"providers"`
}

// RetryConfig configures the stage retry policy.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CampaignConfig configures campaign creation.
type CampaignConfig struct {
	TemplatePath string `yaml:"template_path" mapstructure:"template_path"`
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StaleClaimAfter returns the in-flight claim staleness window.
func (c PipelineConfig) StaleClaimAfter() time.Duration {
	return time.Duration(c.StaleClaimAfterMins) * time.Minute
}

// RecheckAfter returns the blacklist staleness window; zero means permanent.
func (c BlacklistConfig) RecheckAfter() time.Duration {
	return time.Duration(c.RecheckAfterHours) * time.Hour
}

// MaxWait returns the analyzer batching deadline.
func (c AnalyzerConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitMS) * time.Millisecond
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jobsearch.base_url", "https://jobs-search-api.p.rapidapi.com")
	v.SetDefault("jobsearch.sites", []string{"indeed", "linkedin", "zip_recruiter", "glassdoor"})
	v.SetDefault("clearout.base_url", "https://api.clearout.io/public/companies/autocomplete")
	v.SetDefault("clearout.min_confidence", 50)
	v.SetDefault("clearout.synth_fallback", false)
	v.SetDefault("linkedin.host", "fresh-linkedin-scraper-api.p.rapidapi.com")
	v.SetDefault("linkedin.base_url", "https://fresh-linkedin-scraper-api.p.rapidapi.com/api/v1")
	v.SetDefault("linkedin.max_pages", 3)
	v.SetDefault("hunter.base_url", "https://api.hunter.io/v2")
	v.SetDefault("instantly.base_url", "https://api.instantly.ai/api/v2")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("pipeline.max_concurrent_companies", 5)
	v.SetDefault("pipeline.min_decision_maker_score", 4)
	v.SetDefault("pipeline.max_employee_count", 100)
	v.SetDefault("pipeline.hours_old", 24)
	v.SetDefault("pipeline.enforce_salary", false)
	v.SetDefault("pipeline.create_campaigns", false)
	v.SetDefault("pipeline.top_contacts", 3)
	v.SetDefault("pipeline.fingerprint_scope", "global")
	v.SetDefault("pipeline.stale_claim_after_mins", 15)
	v.SetDefault("blacklist.recheck_after_hours", 0)
	v.SetDefault("analyzer.batch_size", 10)
	v.SetDefault("analyzer.max_wait_ms", 2000)
	v.SetDefault("ratelimit.default.min_interval_ms", 1000)
	v.SetDefault("ratelimit.default.burst", 1)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("campaign.template_path", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// AutomaticEnv resolves only keys viper already knows about. API keys
	// have no file defaults, so register them empty to make the
	// OUTREACH_*_KEY variables visible.
	v.SetDefault("jobsearch.key", "")
	v.SetDefault("clearout.key", "")
	v.SetDefault("linkedin.key", "")
	v.SetDefault("hunter.key", "")
	v.SetDefault("instantly.key", "")
	v.SetDefault("anthropic.key", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
