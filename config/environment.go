package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

// configDir holds environment specific files named <environment>.yml.
var configDir = "config"

var environmentAliases = map[string]string{
	"dev":  environmentDevelopment,
	"prod": environmentProduction,
	"stag": environmentStaging,
}

// getAppEnvironment reads the application environment from APP_ENV and
// defaults to development when no value is provided.
func getAppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// resolveEnvSpecificPath returns path unchanged when set. Otherwise it picks
// config/<environment>.yml (or .json) if such a file exists, and "" when none
// does so that defaults apply.
func resolveEnvSpecificPath(path string) string {
	if path != "" {
		return path
	}
	env := getAppEnvironment()
	for _, ext := range []string{".yml", ".yaml", ".json"} {
		candidate := filepath.Join(configDir, env+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// AppEnvironment exposes the normalised APP_ENV value.
func AppEnvironment() string {
	return getAppEnvironment()
}
