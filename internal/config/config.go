package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	RDAP        RDAPConfig        `yaml:"rdap" mapstructure:"rdap"`
	DNS         DNSConfig         `yaml:"dns" mapstructure:"dns"`
	Probe       ProbeConfig       `yaml:"probe" mapstructure:"probe"`
	Overpass    OverpassConfig    `yaml:"overpass" mapstructure:"overpass"`
	SearXNG     SearXNGConfig     `yaml:"searxng" mapstructure:"searxng"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Places      PlacesConfig      `yaml:"places" mapstructure:"places"`
	Foursquare  FoursquareConfig  `yaml:"foursquare" mapstructure:"foursquare"`
	Ntfy        NtfyConfig        `yaml:"ntfy" mapstructure:"ntfy"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	DailyTarget DailyTargetConfig `yaml:"daily_target" mapstructure:"daily_target"`
	Export      ExportConfig      `yaml:"export" mapstructure:"export"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// RDAPConfig configures the RDAP registration lookup.
type RDAPConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DNSConfig configures the authoritative resolver.
type DNSConfig struct {
	Server      string `yaml:"server" mapstructure:"server"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CheckWWW    bool   `yaml:"check_www" mapstructure:"check_www"`
}

// ProbeConfig configures HTTP and TCP reachability probes.
type ProbeConfig struct {
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	TCPEnabled     bool   `yaml:"tcp_enabled" mapstructure:"tcp_enabled"`
	TCPTimeoutSecs int    `yaml:"tcp_timeout_secs" mapstructure:"tcp_timeout_secs"`
	TCPPorts       []int  `yaml:"tcp_ports" mapstructure:"tcp_ports"`
}

// OverpassConfig configures the OSM import source.
type OverpassConfig struct {
	Endpoints      []string `yaml:"endpoints" mapstructure:"endpoints"`
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FilterChunk    int      `yaml:"filter_chunk" mapstructure:"filter_chunk"`
	ElementTypes   []string `yaml:"element_types" mapstructure:"element_types"`
	Retries        int      `yaml:"retries" mapstructure:"retries"`
	RetryDelaySecs int      `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	BBoxSplit      int      `yaml:"bbox_split" mapstructure:"bbox_split"`
	AreasFile      string   `yaml:"areas_file" mapstructure:"areas_file"`
	CategoriesFile string   `yaml:"categories_file" mapstructure:"categories_file"`
}

// SearXNGConfig configures the local meta-search aggregator.
type SearXNGConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings for the LLM verifier.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// FoursquareConfig holds Foursquare Places API settings.
type FoursquareConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// NtfyConfig configures best-effort push notifications.
type NtfyConfig struct {
	Server string `yaml:"server" mapstructure:"server"`
	Topic  string `yaml:"topic" mapstructure:"topic"`
}

// PipelineConfig configures the periodic pipeline loop.
type PipelineConfig struct {
	AutoStart         bool    `yaml:"auto_start" mapstructure:"auto_start"`
	IntervalSecs      int     `yaml:"interval_secs" mapstructure:"interval_secs"`
	VerifyAutoStart   bool    `yaml:"verify_auto_start" mapstructure:"verify_auto_start"`
	VerifyBatchPause  int     `yaml:"verify_batch_pause_secs" mapstructure:"verify_batch_pause_secs"`
	VerifyIdlePause   int     `yaml:"verify_idle_pause_secs" mapstructure:"verify_idle_pause_secs"`
	VerifyBatchLimit  int     `yaml:"verify_batch_limit" mapstructure:"verify_batch_limit"`
	VerifyMinScore    float64 `yaml:"verify_min_score" mapstructure:"verify_min_score"`
	ClassifierWorkers int     `yaml:"classifier_workers" mapstructure:"classifier_workers"`
}

// DailyTargetConfig configures the daily lead target engine.
type DailyTargetConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	Count                int     `yaml:"count" mapstructure:"count"`
	MinScore             float64 `yaml:"min_score" mapstructure:"min_score"`
	PlatformPrefix       string  `yaml:"platform_prefix" mapstructure:"platform_prefix"`
	RequireContact       bool    `yaml:"require_contact" mapstructure:"require_contact"`
	RequireQualification bool    `yaml:"require_qualification" mapstructure:"require_qualification"`
	RequireUnhosted      bool    `yaml:"require_unhosted" mapstructure:"require_unhosted"`
	AllowRecycle         bool    `yaml:"allow_recycle" mapstructure:"allow_recycle"`
}

// ExportConfig configures CSV export output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	MutationKey     string   `yaml:"mutation_key" mapstructure:"mutation_key"`
	LoopbackBypass  bool     `yaml:"loopback_bypass" mapstructure:"loopback_bypass"`
	FrontendOrigins []string `yaml:"frontend_origins" mapstructure:"frontend_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DLP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.batch_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.loopback_bypass", true)
	v.SetDefault("server.frontend_origins", []string{
		"http://localhost:5173", "http://127.0.0.1:5173",
		"http://localhost:8080", "http://127.0.0.1:8080",
	})
	v.SetDefault("rdap.base_url", "https://rdap.org/domain/")
	v.SetDefault("rdap.timeout_secs", 10)
	v.SetDefault("dns.server", "")
	v.SetDefault("dns.timeout_secs", 5)
	v.SetDefault("dns.check_www", true)
	v.SetDefault("probe.timeout_secs", 10)
	v.SetDefault("probe.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("probe.tcp_enabled", false)
	v.SetDefault("probe.tcp_timeout_secs", 3)
	v.SetDefault("probe.tcp_ports", []int{80, 443})
	v.SetDefault("overpass.endpoints", []string{"https://overpass-api.de/api/interpreter"})
	v.SetDefault("overpass.timeout_secs", 180)
	v.SetDefault("overpass.filter_chunk", 3)
	v.SetDefault("overpass.element_types", []string{"nwr"})
	v.SetDefault("overpass.retries", 3)
	v.SetDefault("overpass.retry_delay_secs", 5)
	v.SetDefault("overpass.bbox_split", 1)
	v.SetDefault("overpass.areas_file", "config/areas.json")
	v.SetDefault("overpass.categories_file", "config/categories.json")
	v.SetDefault("searxng.base_url", "http://localhost:8888")
	v.SetDefault("searxng.timeout_secs", 10)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("ntfy.server", "https://ntfy.sh")
	v.SetDefault("pipeline.interval_secs", 900)
	v.SetDefault("pipeline.verify_batch_pause_secs", 15)
	v.SetDefault("pipeline.verify_idle_pause_secs", 300)
	v.SetDefault("pipeline.verify_batch_limit", 25)
	v.SetDefault("pipeline.verify_min_score", 30)
	v.SetDefault("pipeline.classifier_workers", 5)
	v.SetDefault("daily_target.count", 100)
	v.SetDefault("daily_target.min_score", 40)
	v.SetDefault("daily_target.platform_prefix", "daily")
	v.SetDefault("daily_target.require_contact", true)
	v.SetDefault("daily_target.allow_recycle", true)
	v.SetDefault("export.dir", "./exports")

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

	if cfg.Pipeline.IntervalSecs < 30 {
		cfg.Pipeline.IntervalSecs = 30
	}
	if cfg.DailyTarget.Count < 1 {
		cfg.DailyTarget.Count = 1
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
