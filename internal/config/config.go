// Package config loads and validates tracker configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	PDF       PDFConfig       `mapstructure:"pdf"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Store     StoreConfig     `mapstructure:"store"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ResolverConfig governs website discovery.
type ResolverConfig struct {
	SearchDelay     time.Duration `mapstructure:"search_delay"`
	SearchResults   int           `mapstructure:"search_results"`
	SourcePriority  []string      `mapstructure:"source_priority"`
	DirectoryURL    string        `mapstructure:"directory_url"`
	SearchEndpoint  string        `mapstructure:"search_endpoint"`
	ExcludedDomains []string      `mapstructure:"excluded_domains"`
}

// FetcherConfig controls HTTP fetching of municipal pages.
type FetcherConfig struct {
	Delay         time.Duration `mapstructure:"delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	MaxBodyBytes  int           `mapstructure:"max_body_bytes"`
}

// HeadlessConfig configures the optional rendering fallback.
type HeadlessConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxParallel  int           `mapstructure:"max_parallel"`
	NavTimeout   time.Duration `mapstructure:"nav_timeout"`
	MinBodyBytes int           `mapstructure:"min_body_bytes"`
}

// PDFConfig locates the pdftotext binary.
type PDFConfig struct {
	PdftotextPath string `mapstructure:"pdftotext_path"`
}

// ExtractConfig tunes commitment extraction.
type ExtractConfig struct {
	MinFields               int  `mapstructure:"min_fields"`
	WindowSentences         int  `mapstructure:"window_sentences"`
	MaxPagesPerMunicipality int  `mapstructure:"max_pages_per_municipality"`
	Force                   bool `mapstructure:"force"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ArchiveConfig selects where raw documents are archived.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// PublisherConfig selects where commitment notifications go.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HOUSING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("resolver.search_delay", 2*time.Second)
	v.SetDefault("resolver.search_results", 10)
	v.SetDefault("resolver.source_priority", []string{"directory", "search"})
	v.SetDefault("resolver.directory_url", "https://www.nj.gov/nj/gov/county/localgov.shtml")
	v.SetDefault("resolver.search_endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("resolver.excluded_domains", []string{
		"*.wikipedia.org",
		"*.facebook.com",
		"*.twitter.com",
		"x.com",
		"*.youtube.com",
		"*.linkedin.com",
		"*.instagram.com",
	})
	v.SetDefault("fetcher.delay", 1500*time.Millisecond)
	v.SetDefault("fetcher.timeout", 20*time.Second)
	v.SetDefault("fetcher.user_agent", "nj-housing-tracker/0.1 (+https://github.com/JakeFAU/nj-housing-tracker)")
	v.SetDefault("fetcher.respect_robots", true)
	v.SetDefault("fetcher.max_body_bytes", 20<<20)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout", 25*time.Second)
	v.SetDefault("headless.min_body_bytes", 2048)
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("extract.min_fields", 2)
	v.SetDefault("extract.window_sentences", 2)
	v.SetDefault("extract.max_pages_per_municipality", 10)
	v.SetDefault("extract.force", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "housing.db")
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.prefix", "documents")
	v.SetDefault("publisher.provider", "none")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Resolver.SearchDelay < 0 {
		return invalid("resolver.search_delay", "must be >= 0")
	}
	if c.Resolver.SearchResults <= 0 {
		return invalid("resolver.search_results", "must be > 0")
	}
	if err := validatePriority(c.Resolver.SourcePriority); err != nil {
		return err
	}
	if c.Fetcher.Delay < 0 {
		return invalid("fetcher.delay", "must be >= 0")
	}
	if c.Fetcher.Timeout <= 0 {
		return invalid("fetcher.timeout", "must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return invalid("headless.max_parallel", "must be > 0 when headless is enabled")
	}
	if c.Extract.MinFields < 1 || c.Extract.MinFields > housing.TargetFields {
		return invalid("extract.min_fields", fmt.Sprintf("must be between 1 and %d", housing.TargetFields))
	}
	if c.Extract.WindowSentences < 0 {
		return invalid("extract.window_sentences", "must be >= 0")
	}
	if c.Extract.MaxPagesPerMunicipality <= 0 {
		return invalid("extract.max_pages_per_municipality", "must be > 0")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return invalid("store.driver", fmt.Sprintf("unknown driver %q", c.Store.Driver))
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		return invalid("store.dsn", "is required")
	}
	switch c.Archive.Provider {
	case "", "none", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return invalid("archive.base_dir", "must be set when archive provider is local")
		}
	case "gcs":
		if c.Archive.Bucket == "" {
			return invalid("archive.bucket", "must be set when archive provider is gcs")
		}
	default:
		return invalid("archive.provider", fmt.Sprintf("unknown provider %q", c.Archive.Provider))
	}
	switch c.Publisher.Provider {
	case "", "none", "memory":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.Topic == "" {
			return invalid("publisher.topic", "project_id and topic must be set when publisher is pubsub")
		}
	default:
		return invalid("publisher.provider", fmt.Sprintf("unknown provider %q", c.Publisher.Provider))
	}
	return nil
}

// Priority converts the configured source order into candidate sources.
func (c ResolverConfig) Priority() []housing.CandidateSource {
	out := make([]housing.CandidateSource, 0, len(c.SourcePriority))
	for _, s := range c.SourcePriority {
		out = append(out, housing.CandidateSource(strings.ToLower(strings.TrimSpace(s))))
	}
	return out
}

func validatePriority(order []string) error {
	if len(order) == 0 {
		return invalid("resolver.source_priority", "must list at least one source")
	}
	seen := make(map[string]bool, len(order))
	for _, raw := range order {
		s := strings.ToLower(strings.TrimSpace(raw))
		switch housing.CandidateSource(s) {
		case housing.SourceDirectory, housing.SourceSearch:
		default:
			return invalid("resolver.source_priority", fmt.Sprintf("unknown source %q", raw))
		}
		if seen[s] {
			return invalid("resolver.source_priority", fmt.Sprintf("duplicate source %q", raw))
		}
		seen[s] = true
	}
	return nil
}

func invalid(field, reason string) error {
	return &housing.ConfigurationError{Field: field, Reason: reason}
}
