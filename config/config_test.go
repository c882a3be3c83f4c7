package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Output.Dir != "output" {
		t.Errorf("expected default output dir output, got %s", cfg.Output.Dir)
	}
	if cfg.Providers.Timeout != 30*time.Second {
		t.Errorf("expected default provider timeout 30s, got %v", cfg.Providers.Timeout)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("expected default LLM timeout 60s, got %v", cfg.LLM.Timeout)
	}
	if cfg.Pipeline.MinScore != 85 {
		t.Errorf("expected default min score 85, got %d", cfg.Pipeline.MinScore)
	}
	if cfg.Pipeline.MaxIterations != 3 {
		t.Errorf("expected default max iterations 3, got %d", cfg.Pipeline.MaxIterations)
	}
	if cfg.Pipeline.StageTimeout != 10*time.Minute {
		t.Errorf("expected default stage timeout 10m, got %v", cfg.Pipeline.StageTimeout)
	}
	if cfg.Images.Count != 0 {
		t.Errorf("expected auto image count (0), got %d", cfg.Images.Count)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing output dir",
			modify:  func(c *Config) { c.Output.Dir = "" },
			wantErr: true,
		},
		{
			name:    "zero provider timeout",
			modify:  func(c *Config) { c.Providers.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "missing llm endpoint",
			modify:  func(c *Config) { c.LLM.Endpoint = "" },
			wantErr: true,
		},
		{
			name:    "temperature too low",
			modify:  func(c *Config) { c.LLM.Temperature = -0.1 },
			wantErr: true,
		},
		{
			name:    "temperature too high",
			modify:  func(c *Config) { c.LLM.Temperature = 1.1 },
			wantErr: true,
		},
		{
			name:    "min score zero",
			modify:  func(c *Config) { c.Pipeline.MinScore = 0 },
			wantErr: true,
		},
		{
			name:    "min score above 100",
			modify:  func(c *Config) { c.Pipeline.MinScore = 101 },
			wantErr: true,
		},
		{
			name:    "min score boundary low",
			modify:  func(c *Config) { c.Pipeline.MinScore = 1 },
			wantErr: false,
		},
		{
			name:    "min score boundary high",
			modify:  func(c *Config) { c.Pipeline.MinScore = 100 },
			wantErr: false,
		},
		{
			name:    "zero max iterations",
			modify:  func(c *Config) { c.Pipeline.MaxIterations = 0 },
			wantErr: true,
		},
		{
			name:    "image count above cap",
			modify:  func(c *Config) { c.Images.Count = 11 },
			wantErr: true,
		},
		{
			name:    "zero batch concurrency",
			modify:  func(c *Config) { c.Pipeline.BatchConcurrency = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
output:
  dir: "/srv/content"
providers:
  timeout: 45s
  min_interval: 2s
llm:
  model: "test-model"
  endpoint: "http://test:1234/v1"
  temperature: 0.5
  timeout: 2m
pipeline:
  min_score: 70
  max_iterations: 5
mirror:
  url: "nats://test:4222"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Output.Dir != "/srv/content" {
		t.Errorf("expected output dir /srv/content, got %s", cfg.Output.Dir)
	}
	if cfg.Providers.Timeout != 45*time.Second {
		t.Errorf("expected provider timeout 45s, got %v", cfg.Providers.Timeout)
	}
	if cfg.LLM.Model != "test-model" {
		t.Errorf("expected model test-model, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 2*time.Minute {
		t.Errorf("expected LLM timeout 2m, got %v", cfg.LLM.Timeout)
	}
	if cfg.Pipeline.MinScore != 70 {
		t.Errorf("expected min score 70, got %d", cfg.Pipeline.MinScore)
	}
	if cfg.Pipeline.MaxIterations != 5 {
		t.Errorf("expected max iterations 5, got %d", cfg.Pipeline.MaxIterations)
	}
	if cfg.Mirror.URL != "nats://test:4222" {
		t.Errorf("expected mirror URL nats://test:4222, got %s", cfg.Mirror.URL)
	}
	// Unset fields keep defaults
	if cfg.Pipeline.StageTimeout != 10*time.Minute {
		t.Errorf("expected default stage timeout, got %v", cfg.Pipeline.StageTimeout)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		LLM: LLMConfig{
			Model: "override-model",
		},
		Pipeline: PipelineConfig{
			MinScore: 60,
		},
	}

	base.Merge(override)

	if base.LLM.Model != "override-model" {
		t.Errorf("expected model override-model, got %s", base.LLM.Model)
	}
	// Endpoint should remain from base since override didn't set it
	if base.LLM.Endpoint != "http://localhost:11434/v1" {
		t.Errorf("expected endpoint to remain default, got %s", base.LLM.Endpoint)
	}
	if base.Pipeline.MinScore != 60 {
		t.Errorf("expected min score 60, got %d", base.Pipeline.MinScore)
	}
	if base.Pipeline.MaxIterations != 3 {
		t.Errorf("expected max iterations to remain default, got %d", base.Pipeline.MaxIterations)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "saved-model"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.LLM.Model != "saved-model" {
		t.Errorf("expected model saved-model, got %s", loaded.LLM.Model)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvKeywordMetricsKey, "kw-secret")
	t.Setenv(EnvLLMResearchKey, "")
	t.Setenv(EnvImageServiceURL, "")

	creds := CredentialsFromEnv()
	if creds.KeywordMetricsKey != "kw-secret" {
		t.Errorf("expected keyword metrics key from env, got %q", creds.KeywordMetricsKey)
	}

	missing := creds.Missing()
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing credentials, got %v", missing)
	}
	if missing[0] != EnvLLMResearchKey || missing[1] != EnvImageServiceURL {
		t.Errorf("missing credentials in unexpected order: %v", missing)
	}
}
