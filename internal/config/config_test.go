package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// validConfig returns a config that passes Validate, rooted under dir.
func validConfig(dir string) *Config {
	cfg := DefaultConfig()
	cfg.Agent.DataDir = dir
	cfg.Agent.ReportDir = filepath.Join(dir, "reports")
	cfg.Providers["dashscope"] = ProviderConfig{
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		APIKey:  "sk-test",
	}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Agent.Model != "dashscope/qwen-plus" {
		t.Errorf("expected default model dashscope/qwen-plus, got %s", cfg.Agent.Model)
	}
	if cfg.Agent.LogLevel != "info" {
		t.Errorf("expected logLevel info, got %s", cfg.Agent.LogLevel)
	}
	if cfg.Agent.AnalysisTool != "analyze_sentiment" {
		t.Errorf("expected analysis tool analyze_sentiment, got %s", cfg.Agent.AnalysisTool)
	}
	if cfg.Agent.EmailTool != "send_email_with_attachment" {
		t.Errorf("expected email tool send_email_with_attachment, got %s", cfg.Agent.EmailTool)
	}
	if _, ok := cfg.Providers["dashscope"]; !ok {
		t.Error("expected a dashscope provider entry")
	}
	if len(cfg.Hosts) != 1 || cfg.Hosts[0].Transport != "stdio" {
		t.Errorf("expected one stdio host, got %+v", cfg.Hosts)
	}
	if cfg.Tools.SMTP.Port != 587 {
		t.Errorf("expected SMTP port 587, got %d", cfg.Tools.SMTP.Port)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "subdir", "config.json")

	cfg := validConfig(dir)
	cfg.Agent.Model = "dashscope/qwen-max"
	cfg.Hosts = append(cfg.Hosts, HostConfig{
		Name:      "remote",
		Transport: "http",
		URL:       "http://localhost:8520",
		AuthToken: "token-123",
	})

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if loaded.Agent.Model != "dashscope/qwen-max" {
		t.Errorf("expected model dashscope/qwen-max, got %s", loaded.Agent.Model)
	}
	if len(loaded.Hosts) != 2 {
		t.Fatalf("expected 2 hosts, got %d", len(loaded.Hosts))
	}
	if loaded.Hosts[1].URL != "http://localhost:8520" {
		t.Errorf("expected host URL preserved, got %s", loaded.Hosts[1].URL)
	}
	if loaded.Hosts[1].AuthToken != "token-123" {
		t.Errorf("expected auth token preserved, got %s", loaded.Hosts[1].AuthToken)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(configPath, []byte("{ invalid json }"), 0640); err != nil {
		t.Fatalf("failed to write invalid JSON: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("expected error when loading invalid JSON, got nil")
	}
}

func TestLoadMergesWithDefaults(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "partial.json")

	partial := `{"agent": {"model": "dashscope/qwen-turbo", "dataDir": "` + dir + `", "reportDir": "` + filepath.Join(dir, "r") + `"}}`
	if err := os.WriteFile(configPath, []byte(partial), 0640); err != nil {
		t.Fatalf("failed to write partial config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load partial config: %v", err)
	}
	if loaded.Agent.Model != "dashscope/qwen-turbo" {
		t.Errorf("expected model dashscope/qwen-turbo, got %s", loaded.Agent.Model)
	}
	if loaded.Tools.Serper.BaseURL != "https://google.serper.dev" {
		t.Errorf("expected default serper base URL preserved, got %s", loaded.Tools.Serper.BaseURL)
	}
	if len(loaded.Hosts) != 1 {
		t.Errorf("expected default host preserved, got %d hosts", len(loaded.Hosts))
	}
}

func TestLoadCreatesDirs(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	cfg := validConfig(filepath.Join(dir, "data"))
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if _, err := os.Stat(loaded.Agent.ReportDir); err != nil {
		t.Errorf("expected report dir to be created, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	cfg := validConfig(dir)
	cfg.Providers["dashscope"] = ProviderConfig{BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1"}
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	t.Setenv("NEWSHOUND_DASHSCOPE_API_KEY", "sk-env")
	t.Setenv("SERPER_API_KEY", "serper-env")
	t.Setenv("SMTP_USER", "mailer@example.com")
	t.Setenv("SMTP_PASSWORD", "hunter2")
	t.Setenv("NEWSHOUND_JWT_SECRET", "jwt-env")

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if loaded.Providers["dashscope"].APIKey != "sk-env" {
		t.Errorf("expected provider key from env, got %q", loaded.Providers["dashscope"].APIKey)
	}
	if loaded.Tools.Serper.APIKey != "serper-env" {
		t.Errorf("expected serper key from env, got %q", loaded.Tools.Serper.APIKey)
	}
	if loaded.Tools.SMTP.User != "mailer@example.com" {
		t.Errorf("expected SMTP user from env, got %q", loaded.Tools.SMTP.User)
	}
	if loaded.Tools.SMTP.Password != "hunter2" {
		t.Errorf("expected SMTP password from env, got %q", loaded.Tools.SMTP.Password)
	}
	if loaded.Tools.JWTSecret != "jwt-env" {
		t.Errorf("expected JWT secret from env, got %q", loaded.Tools.JWTSecret)
	}
}

func TestEnvOverrideHyphenatedProvider(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	cfg := validConfig(dir)
	cfg.Providers["my-proxy"] = ProviderConfig{BaseURL: "http://localhost:9999"}
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	t.Setenv("NEWSHOUND_MY_PROXY_API_KEY", "sk-proxy")

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if loaded.Providers["my-proxy"].APIKey != "sk-proxy" {
		t.Errorf("expected hyphen mapped to underscore in env key, got %q", loaded.Providers["my-proxy"].APIKey)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bare model ref",
			mutate:  func(c *Config) { c.Agent.Model = "qwen-plus" },
			wantErr: ErrNoModel,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Agent.Model = "missing/qwen-plus" },
			wantErr: ErrNoProvider,
		},
		{
			name: "missing api key",
			mutate: func(c *Config) {
				c.Providers["dashscope"] = ProviderConfig{BaseURL: "https://example.com"}
			},
			wantErr: ErrNoAPIKey,
		},
		{
			name:    "no hosts",
			mutate:  func(c *Config) { c.Hosts = nil },
			wantErr: ErrNoHosts,
		},
		{
			name: "bad transport",
			mutate: func(c *Config) {
				c.Hosts = []HostConfig{{Name: "x", Transport: "carrier-pigeon"}}
			},
			wantErr: ErrBadTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(dir)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateOllamaNeedsNoKey(t *testing.T) {
	cfg := validConfig(t.TempDir())
	cfg.Agent.Model = "local/llama3"
	cfg.Providers["local"] = ProviderConfig{
		BaseURL: "http://localhost:11434",
		Type:    "ollama",
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected ollama provider to validate without key, got %v", err)
	}
}

func TestSplitModel(t *testing.T) {
	tests := []struct {
		ref      string
		provider string
		model    string
		ok       bool
	}{
		{"dashscope/qwen-plus", "dashscope", "qwen-plus", true},
		{"openai/gpt-4o-mini", "openai", "gpt-4o-mini", true},
		{"org/path/model", "org", "path/model", true},
		{"qwen-plus", "", "", false},
		{"/qwen-plus", "", "", false},
		{"dashscope/", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		provider, model, ok := SplitModel(tt.ref)
		if provider != tt.provider || model != tt.model || ok != tt.ok {
			t.Errorf("SplitModel(%q) = (%q, %q, %v), expected (%q, %q, %v)",
				tt.ref, provider, model, ok, tt.provider, tt.model, tt.ok)
		}
	}
}
