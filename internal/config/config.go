package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Configuration problems are fatal at startup: commands validate before any
// session work begins and bail out with one of these.
var (
	ErrNoProvider   = errors.New("config: no model provider configured")
	ErrNoAPIKey     = errors.New("config: provider API key missing")
	ErrNoModel      = errors.New("config: no model selected")
	ErrNoHosts      = errors.New("config: no tool hosts configured")
	ErrBadTransport = errors.New("config: unknown host transport")
)

// Config holds all newshound configuration
type Config struct {
	// Agent settings
	Agent AgentConfig `json:"agent"`

	// LLM provider settings
	Providers map[string]ProviderConfig `json:"providers"`

	// Tool hosts the session connects to
	Hosts []HostConfig `json:"hosts"`

	// Built-in tool host settings (cmd/newshound-tools)
	Tools ToolsConfig `json:"tools"`

	// Scheduled digest jobs
	Digests DigestsConfig `json:"digests,omitempty"`
}

type AgentConfig struct {
	// Model in "provider/model-id" form, e.g. "dashscope/qwen-plus"
	Model    string `json:"model"`
	DataDir  string `json:"dataDir"`
	LogLevel string `json:"logLevel"`

	// Report artifacts written by the analysis tool and attached by the
	// email tool land here.
	ReportDir string `json:"reportDir"`

	// Tool names that receive the session file defaults
	AnalysisTool string `json:"analysisTool"`
	EmailTool    string `json:"emailTool"`
}

type ProviderConfig struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
	// Type selects the wire protocol: "openai" (default), "anthropic", "ollama"
	Type string `json:"type,omitempty"`
}

// HostConfig describes one tool host connection.
type HostConfig struct {
	Name      string   `json:"name"`
	Transport string   `json:"transport"` // "stdio", "http", "ws", "mqtt"
	Command   string   `json:"command,omitempty"`
	Args      []string `json:"args,omitempty"`
	Env       []string `json:"env,omitempty"`
	URL       string   `json:"url,omitempty"`
	// JWT bearer for http/ws hosts
	AuthToken string `json:"authToken,omitempty"`
	// MQTT settings
	Broker       string `json:"broker,omitempty"`
	Port         int    `json:"port,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	RequestTopic string `json:"requestTopic,omitempty"`
	ReplyTopic   string `json:"replyTopic,omitempty"`
}

// ToolsConfig configures the built-in tool host.
type ToolsConfig struct {
	// Directory of TOML manifests merged over the built-in descriptors
	ManifestDir string `json:"manifestDir"`

	Serper SerperConfig `json:"serper"`
	SMTP   SMTPConfig   `json:"smtp"`

	// Model used by analyze_sentiment, "provider/model-id" form.
	// Empty means the agent model.
	SentimentModel string `json:"sentimentModel,omitempty"`

	// HS256 secret for http/ws serving; empty disables auth
	JWTSecret string `json:"jwtSecret,omitempty"`
}

type SerperConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	From     string `json:"from,omitempty"`
}

// DigestsConfig holds scheduled digest jobs
type DigestsConfig struct {
	Enabled bool        `json:"enabled"`
	Jobs    []DigestJob `json:"jobs,omitempty"`
}

// DigestJob defines a scheduled query whose report is mailed out
type DigestJob struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Query    string         `json:"query"`
	EmailTo  string         `json:"emailTo,omitempty"`
	Schedule ScheduleConfig `json:"schedule"`
	Enabled  bool           `json:"enabled"`
}

// ScheduleConfig defines when a digest job runs
type ScheduleConfig struct {
	Kind       string `json:"kind"` // "interval", "cron", "at"
	IntervalMs int64  `json:"intervalMs,omitempty"`
	Expr       string `json:"expr,omitempty"` // cron expression
	Time       string `json:"time,omitempty"` // "HH:MM" for daily
	Timezone   string `json:"timezone,omitempty"`
}

// DefaultPath returns the default config location (~/.newshound/config.json).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "newshound.json"
	}
	return filepath.Join(home, ".newshound", "config.json")
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".newshound")
	return &Config{
		Agent: AgentConfig{
			Model:        "dashscope/qwen-plus",
			DataDir:      dataDir,
			LogLevel:     "info",
			ReportDir:    filepath.Join(dataDir, "reports"),
			AnalysisTool: "analyze_sentiment",
			EmailTool:    "send_email_with_attachment",
		},
		Providers: map[string]ProviderConfig{
			"dashscope": {
				BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
			},
		},
		Hosts: []HostConfig{
			{
				Name:      "news",
				Transport: "stdio",
				Command:   "newshound-tools",
			},
		},
		Tools: ToolsConfig{
			Serper: SerperConfig{
				BaseURL: "https://google.serper.dev",
			},
			SMTP: SMTPConfig{
				Port: 587,
			},
		},
	}
}

// Load reads config from a JSON file and applies environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()

	// Ensure data directories exist
	if err := os.MkdirAll(cfg.Agent.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Agent.ReportDir, 0750); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	return cfg, nil
}

// Save writes config to a JSON file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0640)
}

// applyEnv overlays secrets from the environment so they never have to live
// in the config file. Provider keys follow NEWSHOUND_<PROVIDER>_API_KEY.
func (c *Config) applyEnv() {
	for name, prov := range c.Providers {
		envKey := "NEWSHOUND_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_API_KEY"
		if v := os.Getenv(envKey); v != "" {
			prov.APIKey = v
			c.Providers[name] = prov
		}
	}
	if v := os.Getenv("SERPER_API_KEY"); v != "" {
		c.Tools.Serper.APIKey = v
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		c.Tools.SMTP.User = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Tools.SMTP.Password = v
	}
	if v := os.Getenv("NEWSHOUND_JWT_SECRET"); v != "" {
		c.Tools.JWTSecret = v
	}
}

// Validate checks the settings an interactive session needs up front.
func (c *Config) Validate() error {
	providerName, _, ok := SplitModel(c.Agent.Model)
	if !ok {
		return fmt.Errorf("%w: agent.model must be \"provider/model-id\", got %q", ErrNoModel, c.Agent.Model)
	}

	prov, found := c.Providers[providerName]
	if !found {
		return fmt.Errorf("%w: %q", ErrNoProvider, providerName)
	}
	if prov.APIKey == "" && prov.Type != "ollama" {
		return fmt.Errorf("%w: set providers.%s.apiKey or NEWSHOUND_%s_API_KEY",
			ErrNoAPIKey, providerName, strings.ToUpper(providerName))
	}

	if len(c.Hosts) == 0 {
		return ErrNoHosts
	}
	for _, h := range c.Hosts {
		switch h.Transport {
		case "stdio", "http", "ws", "mqtt":
		default:
			return fmt.Errorf("%w: %q (host %q)", ErrBadTransport, h.Transport, h.Name)
		}
	}

	return nil
}

// SplitModel splits a "provider/model-id" reference.
func SplitModel(ref string) (provider, model string, ok bool) {
	idx := strings.Index(ref, "/")
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", false
	}
	return ref[:idx], ref[idx+1:], true
}
