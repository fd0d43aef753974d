package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv      = "NOTESYNTH_CONFIG"
	databasePathEnv    = "NOTESYNTH_DATABASE_PATH"
	webhookURLEnv      = "NOTESYNTH_WEBHOOK_URL"
	mistralAPIKeyEnv   = "MISTRAL_API_KEY"
	openRouterWebKey   = "OPENROUTER_API_KEY"
	mistralProvider    = "mistral"
	openRouterProvider = "openrouter"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Providers     []ProviderConfig    `yaml:"providers"`
	Cleaning      CleaningConfig      `yaml:"cleaning"`
	Taxonomy      TaxonomyConfig      `yaml:"taxonomy"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Source        SourceConfig        `yaml:"source"`
	Export        ExportConfig        `yaml:"export"`
	Notifications NotificationConfig  `yaml:"notifications"`
	Reattribution ReattributionConfig `yaml:"reattribution"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// DatabaseConfig describes the audit store location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines when scheduled batch runs execute.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ProviderConfig defines one LLM endpoint of the failover pool. Providers
// are tried in declared order unless shuffling is enabled.
type ProviderConfig struct {
	Name              string  `yaml:"name"`
	URL               string  `yaml:"url"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"apiKey"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds"`
}

// CleaningConfig tunes the deterministic cleaning passes.
type CleaningConfig struct {
	RulesetPath string   `yaml:"rulesetPath"`
	Capitalize  bool     `yaml:"capitalize"`
	PIIColumns  []string `yaml:"piiColumns"`
	// Redact disables the LLM redaction sub-stage when false; the
	// deterministic passes always run.
	Redact bool `yaml:"redact"`
}

// TaxonomyConfig locates the classification inputs.
type TaxonomyConfig struct {
	RulesPath string `yaml:"rulesPath"`
	TreePath  string `yaml:"treePath"`
}

// PipelineConfig bounds batch processing.
type PipelineConfig struct {
	Workers      int `yaml:"workers"`
	TagBatchSize int `yaml:"tagBatchSize"`
}

// SourceConfig selects where raw records come from.
type SourceConfig struct {
	// Kind is "csv" or "html".
	Kind       string `yaml:"kind"`
	Path       string `yaml:"path"`
	IDColumn   string `yaml:"idColumn"`
	TextColumn string `yaml:"textColumn"`
	DateColumn string `yaml:"dateColumn"`
}

// ExportConfig selects where outcomes are written.
type ExportConfig struct {
	Path string `yaml:"path"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// WebhookConfig wires the advisor-synthesis delivery endpoint.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// ReattributionConfig tunes the client-transfer handshake.
type ReattributionConfig struct {
	// RecipientURL is the endpoint deciding on transfer offers.
	RecipientURL        string `yaml:"recipientUrl"`
	DecisionWaitSeconds int    `yaml:"decisionWaitSeconds"`
}

// DecisionWait returns the configured wait as a duration.
func (r ReattributionConfig) DecisionWait() time.Duration {
	if r.DecisionWaitSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.DecisionWaitSeconds) * time.Second
}

// LoggingConfig selects the log verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Providers) == 0 {
		cfg.Providers = defaultConfig().Providers
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(webhookURLEnv); v != "" {
		c.Notifications.Webhook.URL = v
	}

	for i := range c.Providers {
		if c.Providers[i].APIKey != "" {
			continue
		}
		switch c.Providers[i].Name {
		case mistralProvider:
			c.Providers[i].APIKey = os.Getenv(mistralAPIKeyEnv)
		case openRouterProvider:
			c.Providers[i].APIKey = os.Getenv(openRouterWebKey)
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if len(override.Providers) > 0 {
		base.Providers = override.Providers
	}

	if override.Cleaning.RulesetPath != "" {
		base.Cleaning.RulesetPath = override.Cleaning.RulesetPath
	}
	if override.Cleaning.Capitalize {
		base.Cleaning.Capitalize = true
	}
	if len(override.Cleaning.PIIColumns) > 0 {
		base.Cleaning.PIIColumns = override.Cleaning.PIIColumns
	}
	base.Cleaning.Redact = override.Cleaning.Redact || base.Cleaning.Redact

	if override.Taxonomy.RulesPath != "" {
		base.Taxonomy.RulesPath = override.Taxonomy.RulesPath
	}
	if override.Taxonomy.TreePath != "" {
		base.Taxonomy.TreePath = override.Taxonomy.TreePath
	}

	if override.Pipeline.Workers > 0 {
		base.Pipeline.Workers = override.Pipeline.Workers
	}
	if override.Pipeline.TagBatchSize > 0 {
		base.Pipeline.TagBatchSize = override.Pipeline.TagBatchSize
	}

	if override.Source.Kind != "" {
		base.Source.Kind = override.Source.Kind
	}
	if override.Source.Path != "" {
		base.Source.Path = override.Source.Path
	}
	if override.Source.IDColumn != "" {
		base.Source.IDColumn = override.Source.IDColumn
	}
	if override.Source.TextColumn != "" {
		base.Source.TextColumn = override.Source.TextColumn
	}
	if override.Source.DateColumn != "" {
		base.Source.DateColumn = override.Source.DateColumn
	}

	if override.Export.Path != "" {
		base.Export.Path = override.Export.Path
	}

	if override.Notifications.Webhook.URL != "" {
		base.Notifications.Webhook = override.Notifications.Webhook
	}

	if override.Reattribution.RecipientURL != "" {
		base.Reattribution.RecipientURL = override.Reattribution.RecipientURL
	}
	if override.Reattribution.DecisionWaitSeconds > 0 {
		base.Reattribution.DecisionWaitSeconds = override.Reattribution.DecisionWaitSeconds
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database:  DatabaseConfig{Path: "notesynth.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 7 * * *", Timezone: defaultTimezone, location: tz},
		Providers: []ProviderConfig{
			{
				Name:              mistralProvider,
				URL:               "https://api.mistral.ai/v1/chat/completions",
				Model:             "mistral-small-latest",
				RequestsPerSecond: 1,
				TimeoutSeconds:    60,
			},
			{
				Name:              openRouterProvider,
				URL:               "https://openrouter.ai/api/v1/chat/completions",
				Model:             "mistralai/mistral-small-3.2-24b-instruct:free",
				RequestsPerSecond: 1,
				TimeoutSeconds:    60,
			},
		},
		Cleaning: CleaningConfig{Redact: true},
		Pipeline: PipelineConfig{Workers: 2, TagBatchSize: 20},
		Source:   SourceConfig{Kind: "csv", Path: "notes.csv"},
		Export:   ExportConfig{Path: "outcomes.csv"},
		Reattribution: ReattributionConfig{
			DecisionWaitSeconds: 30,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
