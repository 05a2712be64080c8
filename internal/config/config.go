package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/momentum/internal/alert"
	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/normalize"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Percent-change baselines a source may compute against.
const (
	BaselinePreviousClose = "previous_close"
	BaselineOpen          = "open"
)

type Config struct {
	Scanner   ScannerConfig             `mapstructure:"scanner"`
	Sources   map[string]SourceConfig   `mapstructure:"sources"`
	Signal    SignalConfig              `mapstructure:"signal"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Router    RouterConfig              `mapstructure:"router"`
	Alerts    AlertsConfig              `mapstructure:"alerts"`
	Archive   ArchiveConfig             `mapstructure:"archive"`
	Server    ServerConfig              `mapstructure:"server"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	LLM       LLMConfig                 `mapstructure:"llm"`
}

// ScannerConfig drives a scan cycle.
type ScannerConfig struct {
	Source         string        `mapstructure:"source"`
	Tickers        []string      `mapstructure:"tickers"`
	BuyingPower    float64       `mapstructure:"buying_power"`
	MaxPrice       float64       `mapstructure:"max_price"`
	MinVolume      int64         `mapstructure:"min_volume"`
	Interval       time.Duration `mapstructure:"interval"`
	Schedule       string        `mapstructure:"schedule"`
	ChangeBaseline string        `mapstructure:"change_baseline"`
	Top            int           `mapstructure:"top"`
}

// SourceConfig configures one data-source integration.
type SourceConfig struct {
	Enabled   bool                    `mapstructure:"enabled"`
	APIKey    string                  `mapstructure:"api_key"`
	APISecret string                  `mapstructure:"api_secret"`
	URL       string                  `mapstructure:"url"`
	Selector  string                  `mapstructure:"selector"`
	Columns   normalize.ColumnMapping `mapstructure:"columns"`
	CacheTTL  time.Duration           `mapstructure:"cache_ttl"`
}

// SignalConfig overrides engine policy. Zero values keep the defaults.
type SignalConfig struct {
	LongChange     float64 `mapstructure:"long_change"`
	ShortChange    float64 `mapstructure:"short_change"`
	FlatChange     float64 `mapstructure:"flat_change"`
	MomentumVolume int64   `mapstructure:"momentum_volume"`
	ThinVolume     int64   `mapstructure:"thin_volume"`
	EntryLow       float64 `mapstructure:"entry_low"`
	EntryHigh      float64 `mapstructure:"entry_high"`
	StopLoss       float64 `mapstructure:"stop_loss"`
	Target1        float64 `mapstructure:"target_1"`
	Target2        float64 `mapstructure:"target_2"`
}

type NotifierConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	// Webhook notifier fields
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	// Kafka notifier fields
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	// Email notifier fields
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

type RouterConfig struct {
	Cooldown      time.Duration `mapstructure:"cooldown"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	Signals       []string      `mapstructure:"signals"`
}

// AlertsConfig holds scan health rules, evaluated after every scan.
type AlertsConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	Rules    []alert.Rule  `mapstructure:"rules"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	APIKey  string `mapstructure:"api_key"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix("MOMENTUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("scanner.source", d.Scanner.Source)
	v.SetDefault("scanner.tickers", d.Scanner.Tickers)
	v.SetDefault("scanner.buying_power", d.Scanner.BuyingPower)
	v.SetDefault("scanner.max_price", d.Scanner.MaxPrice)
	v.SetDefault("scanner.min_volume", d.Scanner.MinVolume)
	v.SetDefault("scanner.interval", d.Scanner.Interval)
	v.SetDefault("scanner.change_baseline", d.Scanner.ChangeBaseline)
	for name, src := range d.Sources {
		v.SetDefault("sources."+name+".enabled", src.Enabled)
	}
	v.SetDefault("router.cooldown", d.Router.Cooldown)
	v.SetDefault("router.min_confidence", d.Router.MinConfidence)
	v.SetDefault("router.signals", d.Router.Signals)
	v.SetDefault("archive.type", d.Archive.Type)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Scanner: ScannerConfig{
			Source:         "yahoo",
			Tickers:        []string{"ACXP", "PTLE", "MSTY", "SINT", "TOP", "GNS"},
			BuyingPower:    20,
			MaxPrice:       5.00,
			MinVolume:      500_000,
			Interval:       5 * time.Minute,
			ChangeBaseline: BaselinePreviousClose,
		},
		Sources: map[string]SourceConfig{
			"yahoo": {Enabled: true},
		},
		Router: RouterConfig{
			Cooldown:      4 * time.Hour,
			MinConfidence: 0.6,
			Signals:       []string{string(core.SignalLong)},
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "data/scans",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Scanner validation
	if c.Scanner.BuyingPower < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("buying_power cannot be negative, got %f", c.Scanner.BuyingPower))
	}
	if c.Scanner.MaxPrice < 0 || c.Scanner.MinVolume < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_price and min_volume cannot be negative"))
	}
	switch c.Scanner.ChangeBaseline {
	case "", BaselinePreviousClose, BaselineOpen:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("change_baseline must be %q or %q, got %q",
				BaselinePreviousClose, BaselineOpen, c.Scanner.ChangeBaseline))
	}
	if c.Scanner.Schedule != "" {
		if _, err := cron.ParseStandard(c.Scanner.Schedule); err != nil {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("schedule %q: %w", c.Scanner.Schedule, err))
		}
	}
	if c.Scanner.Source != "" {
		if src, ok := c.Sources[c.Scanner.Source]; !ok || !src.Enabled {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("scanner source %q is not an enabled source", c.Scanner.Source))
		}
	}

	// Declared column mappings are validated once, here.
	for name, src := range c.Sources {
		if !src.Enabled || src.Columns.IsZero() {
			continue
		}
		if err := src.Columns.Validate(); err != nil {
			return fmt.Errorf("source %s: %w", name, err)
		}
	}

	// Router validation
	if c.Router.MinConfidence < 0 || c.Router.MinConfidence > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_confidence must be between 0 and 1, got %f", c.Router.MinConfidence))
	}
	if c.Router.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cooldown cannot be negative, got %s", c.Router.Cooldown))
	}
	for _, s := range c.Router.Signals {
		if _, ok := core.ParseSignal(s); !ok {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown signal %q", s))
		}
	}

	for i := range c.Alerts.Rules {
		if err := c.Alerts.Rules[i].Validate(); err != nil {
			return err
		}
	}

	if c.Archive.Enabled && c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("s3 bucket required when archive type is s3"))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	return nil
}
