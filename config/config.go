package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"tradescanner/models"
)

// Config is the scanner run configuration. It is built once at start-up and
// treated as read-only afterwards.
type Config struct {
	APIKeys          map[string]string `yaml:"api_keys" json:"api_keys"`
	APISecrets       map[string]string `yaml:"api_secrets" json:"api_secrets"`
	MinVolume        float64           `yaml:"min_volume" json:"min_volume"`
	MinPrice         float64           `yaml:"min_price" json:"min_price"`
	CacheDuration    int               `yaml:"cache_duration" json:"cache_duration"`
	Timeout          int               `yaml:"timeout" json:"timeout"`
	RetryAttempts    int               `yaml:"retry_attempts" json:"retry_attempts"`
	EnabledExchanges []string          `yaml:"enabled_exchanges" json:"enabled_exchanges"`
	LogLevel         string            `yaml:"log_level" json:"log_level"`
	LogFile          string            `yaml:"log_file" json:"log_file,omitempty"`
	OutputDir        string            `yaml:"output_dir" json:"output_dir"`

	Fetch     FetchConfig       `yaml:"fetch" json:"fetch"`
	Endpoints map[string]string `yaml:"endpoints" json:"endpoints,omitempty"`
	Logging   LoggingConfig     `yaml:"logging" json:"logging"`
	Storage   StorageConfig     `yaml:"storage" json:"storage"`
	Metrics   MetricsConfig     `yaml:"metrics" json:"metrics"`
	Analytics AnalyticsConfig   `yaml:"analytics" json:"analytics"`
}

// FetchConfig tunes request pacing and per-exchange batching.
type FetchConfig struct {
	RetryDelayMs     int `yaml:"retry_delay_ms" json:"retry_delay_ms"`
	RequestDelayMs   int `yaml:"request_delay_ms" json:"request_delay_ms"`
	PageDelayMs      int `yaml:"page_delay_ms" json:"page_delay_ms"`
	CoinbaseStatsCap int `yaml:"coinbase_stats_cap" json:"coinbase_stats_cap"`
	KrakenBatchSize  int `yaml:"kraken_batch_size" json:"kraken_batch_size"`
	MaxIdleConns     int `yaml:"max_idle_conns" json:"max_idle_conns"`
}

type LoggingConfig struct {
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
	MaxAge int    `yaml:"max_age" json:"max_age"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3" json:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	Bucket          string `yaml:"bucket" json:"bucket"`
	Region          string `yaml:"region" json:"region"`
	Endpoint        string `yaml:"endpoint" json:"endpoint,omitempty"`
	PathStyle       bool   `yaml:"path_style" json:"path_style"`
	Prefix          string `yaml:"prefix" json:"prefix"`
	AccessKeyID     string `yaml:"access_key_id" json:"-"`
	SecretAccessKey string `yaml:"secret_access_key" json:"-"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch" json:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Region    string `yaml:"region" json:"region"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Dashboard string `yaml:"dashboard" json:"dashboard"`
}

// AnalyticsConfig drives the session/fibonacci report.
type AnalyticsConfig struct {
	Ratio        float64 `yaml:"ratio" json:"ratio"`
	LogScale     bool    `yaml:"log_scale" json:"log_scale"`
	Reverse      bool    `yaml:"reverse" json:"reverse"`
	StrictBody   bool    `yaml:"strict_body" json:"strict_body"`
	Timezone     string  `yaml:"timezone" json:"timezone"`
	Weekday      string  `yaml:"weekday" json:"weekday"`
	StartHour    int     `yaml:"start_hour" json:"start_hour"`
	EndHour      int     `yaml:"end_hour" json:"end_hour"`
	MinuteDays   int     `yaml:"minute_days" json:"minute_days"`
	LookbackDays int     `yaml:"lookback_days" json:"lookback_days"`
}

var validLogLevels = map[string]bool{
	"DEBUG":    true,
	"INFO":     true,
	"WARNING":  true,
	"ERROR":    true,
	"CRITICAL": true,
}

// Default returns the built-in configuration.
func Default() *Config {
	enabled := make([]string, 0, 3)
	for _, ex := range models.Exchanges() {
		enabled = append(enabled, ex.String())
	}
	return &Config{
		APIKeys:          map[string]string{},
		APISecrets:       map[string]string{},
		MinVolume:        1000,
		MinPrice:         0.00001,
		CacheDuration:    300,
		Timeout:          10,
		RetryAttempts:    3,
		EnabledExchanges: enabled,
		LogLevel:         "INFO",
		OutputDir:        "out",
		Fetch: FetchConfig{
			RetryDelayMs:     300,
			RequestDelayMs:   300,
			PageDelayMs:      120,
			CoinbaseStatsCap: 100,
			KrakenBatchSize:  10,
			MaxIdleConns:     10,
		},
		Logging: LoggingConfig{Format: "json", Output: "stdout"},
		Metrics: MetricsConfig{CloudWatch: CloudWatchConfig{Namespace: "TradeScanner"}},
		Analytics: AnalyticsConfig{
			Ratio:        0.5,
			Timezone:     "America/New_York",
			Weekday:      "Friday",
			StartHour:    19,
			EndHour:      23,
			MinuteDays:   8,
			LookbackDays: 1000,
		},
	}
}

// LoadConfig builds a Config from defaults, the optional file at path (YAML
// or JSON) and environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	path = resolveEnvSpecificPath(path)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FromJSON decodes the JSON configuration shape on top of the defaults.
func FromJSON(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse json config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON encodes the configuration. Credentials are included; S3 keys are not.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Validate normalises names and checks every threshold.
func (c *Config) Validate() error {
	if len(c.EnabledExchanges) == 0 {
		return &ConfigurationError{Field: "enabled_exchanges", Reason: "at least one exchange must be enabled"}
	}
	seen := make(map[models.Exchange]bool, len(c.EnabledExchanges))
	normalized := make([]string, 0, len(c.EnabledExchanges))
	for _, name := range c.EnabledExchanges {
		ex, err := models.ParseExchange(name)
		if err != nil {
			return &ConfigurationError{Field: "enabled_exchanges", Reason: fmt.Sprintf("unknown exchange '%s'", name)}
		}
		if seen[ex] {
			continue
		}
		seen[ex] = true
		normalized = append(normalized, ex.String())
	}
	c.EnabledExchanges = normalized

	for name := range c.APIKeys {
		if _, err := models.ParseExchange(name); err != nil {
			return &ConfigurationError{Field: "api_keys", Reason: fmt.Sprintf("unknown exchange '%s'", name)}
		}
	}

	if c.MinVolume < 0 {
		return &ConfigurationError{Field: "min_volume", Reason: "must be greater than or equal to 0"}
	}
	if c.MinPrice <= 0 {
		return &ConfigurationError{Field: "min_price", Reason: "must be greater than 0"}
	}
	if c.CacheDuration < 0 {
		return &ConfigurationError{Field: "cache_duration", Reason: "must be greater than or equal to 0"}
	}
	if c.Timeout <= 0 {
		return &ConfigurationError{Field: "timeout", Reason: "must be greater than 0"}
	}
	if c.RetryAttempts < 1 {
		return &ConfigurationError{Field: "retry_attempts", Reason: "must be at least 1"}
	}

	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if !validLogLevels[c.LogLevel] {
		return &ConfigurationError{Field: "log_level", Reason: fmt.Sprintf("'%s' is not one of DEBUG, INFO, WARNING, ERROR, CRITICAL", c.LogLevel)}
	}

	if c.Fetch.RetryDelayMs < 0 || c.Fetch.RequestDelayMs < 0 || c.Fetch.PageDelayMs < 0 {
		return &ConfigurationError{Field: "fetch", Reason: "delays must be greater than or equal to 0"}
	}
	if c.Fetch.CoinbaseStatsCap <= 0 {
		return &ConfigurationError{Field: "fetch.coinbase_stats_cap", Reason: "must be greater than 0"}
	}
	if c.Fetch.KrakenBatchSize <= 0 {
		return &ConfigurationError{Field: "fetch.kraken_batch_size", Reason: "must be greater than 0"}
	}

	for name := range c.Endpoints {
		if _, err := models.ParseExchange(name); err != nil {
			return &ConfigurationError{Field: "endpoints", Reason: fmt.Sprintf("unknown exchange '%s'", name)}
		}
	}

	c.Storage.S3.Bucket = strings.TrimSpace(c.Storage.S3.Bucket)
	if c.Storage.S3.Enabled {
		if c.Storage.S3.Bucket == "" {
			return &ConfigurationError{Field: "storage.s3.bucket", Reason: "required when S3 is enabled"}
		}
		if c.Storage.S3.Region == "" {
			return &ConfigurationError{Field: "storage.s3.region", Reason: "required when S3 is enabled"}
		}
		if !isValidS3Bucket(c.Storage.S3.Bucket) {
			return &ConfigurationError{Field: "storage.s3.bucket", Reason: fmt.Sprintf("'%s' is invalid", c.Storage.S3.Bucket)}
		}
	}

	a := c.Analytics
	if a.Ratio < 0 || a.Ratio > 1 {
		return &ConfigurationError{Field: "analytics.ratio", Reason: "must be between 0 and 1"}
	}
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return &ConfigurationError{Field: "analytics.timezone", Reason: err.Error()}
	}
	if _, ok := parseWeekday(a.Weekday); !ok {
		return &ConfigurationError{Field: "analytics.weekday", Reason: fmt.Sprintf("'%s' is not a weekday", a.Weekday)}
	}
	if a.StartHour < 0 || a.EndHour > 23 || a.StartHour > a.EndHour {
		return &ConfigurationError{Field: "analytics.start_hour", Reason: "hours must satisfy 0 <= start_hour <= end_hour <= 23"}
	}
	if a.MinuteDays <= 0 || a.LookbackDays <= 0 {
		return &ConfigurationError{Field: "analytics.lookback_days", Reason: "lookbacks must be greater than 0"}
	}

	return nil
}

// Exchanges returns the enabled exchanges in configured order.
func (c *Config) Exchanges() []models.Exchange {
	out := make([]models.Exchange, 0, len(c.EnabledExchanges))
	for _, name := range c.EnabledExchanges {
		if ex, err := models.ParseExchange(name); err == nil {
			out = append(out, ex)
		}
	}
	return out
}

// Enabled reports whether ex is in the enabled set.
func (c *Config) Enabled(ex models.Exchange) bool {
	for _, e := range c.Exchanges() {
		if e == ex {
			return true
		}
	}
	return false
}

// Credentials returns the API key pair configured for ex.
func (c *Config) Credentials(ex models.Exchange) (key, secret string, ok bool) {
	key = c.APIKeys[ex.String()]
	secret = c.APISecrets[ex.String()]
	return key, secret, key != ""
}

// Endpoint returns the base URL override for ex, or fallback.
func (c *Config) Endpoint(ex models.Exchange, fallback string) string {
	if v := strings.TrimRight(c.Endpoints[ex.String()], "/"); v != "" {
		return v
	}
	return fallback
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheDuration) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Fetch.RetryDelayMs) * time.Millisecond
}

func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.Fetch.RequestDelayMs) * time.Millisecond
}

func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Fetch.PageDelayMs) * time.Millisecond
}

// Location returns the analytics reference timezone.
func (a AnalyticsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SessionWeekday returns the configured session weekday.
func (a AnalyticsConfig) SessionWeekday() time.Weekday {
	d, _ := parseWeekday(a.Weekday)
	return d
}

func parseWeekday(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(name)) {
			return d, true
		}
	}
	return time.Sunday, false
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
