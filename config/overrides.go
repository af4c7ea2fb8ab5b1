package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"tradescanner/models"
)

// Overrides carries command line values that take precedence over the file
// and environment. Nil or empty fields leave the loaded value untouched.
type Overrides struct {
	Exchanges []string
	MinVolume *float64
	MinPrice  *float64
	LogLevel  string
	NoCache   bool
}

// WithOverrides returns a validated copy of c with o applied.
func (c *Config) WithOverrides(o Overrides) (*Config, error) {
	out := c.clone()
	if len(o.Exchanges) > 0 {
		out.EnabledExchanges = append([]string(nil), o.Exchanges...)
	}
	if o.MinVolume != nil {
		out.MinVolume = *o.MinVolume
	}
	if o.MinPrice != nil {
		out.MinPrice = *o.MinPrice
	}
	if o.LogLevel != "" {
		out.LogLevel = o.LogLevel
	}
	if o.NoCache {
		out.CacheDuration = 0
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Config) clone() *Config {
	out := *c
	out.APIKeys = cloneMap(c.APIKeys)
	out.APISecrets = cloneMap(c.APISecrets)
	out.Endpoints = cloneMap(c.Endpoints)
	out.EnabledExchanges = append([]string(nil), c.EnabledExchanges...)
	return &out
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// applyEnv overlays credentials, thresholds and storage settings from the
// process environment.
func applyEnv(cfg *Config) error {
	if cfg.APIKeys == nil {
		cfg.APIKeys = map[string]string{}
	}
	if cfg.APISecrets == nil {
		cfg.APISecrets = map[string]string{}
	}
	for _, ex := range models.Exchanges() {
		prefix := strings.ToUpper(ex.String())
		if v := strings.TrimSpace(os.Getenv(prefix + "_API_KEY")); v != "" {
			cfg.APIKeys[ex.String()] = v
		}
		if v := strings.TrimSpace(os.Getenv(prefix + "_API_SECRET")); v != "" {
			cfg.APISecrets[ex.String()] = v
		}
	}

	floats := []struct {
		env string
		dst *float64
	}{
		{"SCANNER_MIN_VOLUME", &cfg.MinVolume},
		{"SCANNER_MIN_PRICE", &cfg.MinPrice},
	}
	for _, f := range floats {
		v := strings.TrimSpace(os.Getenv(f.env))
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ConfigurationError{Field: f.env, Reason: fmt.Sprintf("'%s' is not a number", v)}
		}
		*f.dst = n
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"SCANNER_CACHE_DURATION", &cfg.CacheDuration},
		{"SCANNER_TIMEOUT", &cfg.Timeout},
		{"SCANNER_RETRY_ATTEMPTS", &cfg.RetryAttempts},
	}
	for _, f := range ints {
		v := strings.TrimSpace(os.Getenv(f.env))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Field: f.env, Reason: fmt.Sprintf("'%s' is not an integer", v)}
		}
		*f.dst = n
	}

	if v := strings.TrimSpace(os.Getenv("SCANNER_ENABLED_EXCHANGES")); v != "" {
		cfg.EnabledExchanges = SplitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.LogFile = v
	}

	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("AWS_REGION"); v != "" && cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = strings.TrimSpace(v)
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = strings.TrimSpace(v)
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
