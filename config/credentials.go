package config

import "os"

// Environment variable names for provider credentials. Each missing
// credential downgrades its provider to synthetic mode; none are required
// for the pipeline to complete.
const (
	EnvKeywordMetricsKey = "KEYWORD_METRICS_API_KEY"
	EnvLLMResearchKey    = "LLM_RESEARCH_API_KEY"
	EnvImageServiceURL   = "IMAGE_SERVICE_URL"
)

// Credentials holds provider secrets resolved from the environment.
type Credentials struct {
	KeywordMetricsKey string
	LLMResearchKey    string
	ImageServiceURL   string
}

// CredentialsFromEnv reads all provider credentials from the environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		KeywordMetricsKey: os.Getenv(EnvKeywordMetricsKey),
		LLMResearchKey:    os.Getenv(EnvLLMResearchKey),
		ImageServiceURL:   os.Getenv(EnvImageServiceURL),
	}
}

// Missing returns the environment variable names of unset credentials, in a
// stable order, for startup warnings and remediation hints.
func (c Credentials) Missing() []string {
	var missing []string
	if c.KeywordMetricsKey == "" {
		missing = append(missing, EnvKeywordMetricsKey)
	}
	if c.LLMResearchKey == "" {
		missing = append(missing, EnvLLMResearchKey)
	}
	if c.ImageServiceURL == "" {
		missing = append(missing, EnvImageServiceURL)
	}
	return missing
}
