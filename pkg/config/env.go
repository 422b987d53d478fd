package config

import "strings"

// Deployment environments accepted in VISAEVAL_SERVER_ENVIRONMENT.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// normalizeEnvironment lower-cases env and maps an empty value to development.
func normalizeEnvironment(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		return EnvDevelopment
	}
	return env
}

// IsProductionLike is true for staging and production, where localhost
// backends and a missing LLM key are rejected at startup.
func IsProductionLike(env string) bool {
	switch normalizeEnvironment(env) {
	case EnvStaging, EnvProduction:
		return true
	}
	return false
}

func (s ServerConfig) IsDevelopment() bool {
	return normalizeEnvironment(s.Environment) == EnvDevelopment
}

func (s ServerConfig) IsProductionLike() bool {
	return IsProductionLike(s.Environment)
}
