package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrMissing is wrapped by every validation error about an absent setting.
var ErrMissing = errors.New("missing required setting")

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderBedrock   = "bedrock"
)

// Mode selects which collaborators Validate insists on.
type Mode int

const (
	// ModeOffline processes tickets supplied locally (static fixtures or a
	// JSON file); no ticket tracker is contacted.
	ModeOffline Mode = iota
	// ModeLive polls the ticket tracker.
	ModeLive
	// ModeFetch reads single tickets by key. It needs tracker credentials
	// but no project.
	ModeFetch
)

// Config holds every kbagent setting.
type Config struct {
	Jira       Jira       `yaml:"jira"       mapstructure:"jira"`
	Confluence Confluence `yaml:"confluence" mapstructure:"confluence"`
	LLM        LLM        `yaml:"llm"        mapstructure:"llm"`
	AWS        AWS        `yaml:"aws"        mapstructure:"aws"`
	Runtime    Runtime    `yaml:"runtime"    mapstructure:"runtime"`
	Prompts    Prompts    `yaml:"prompts"    mapstructure:"prompts"`
	Log        Log        `yaml:"log"        mapstructure:"log"`
}

// Jira holds JIRA connection settings.
type Jira struct {
	URL     string `yaml:"url"     mapstructure:"url"`
	Email   string `yaml:"email"   mapstructure:"email"`
	Token   string `yaml:"token"   mapstructure:"token"`
	Project string `yaml:"project" mapstructure:"project"`
}

// Confluence holds wiki connection settings. The whole block is optional.
type Confluence struct {
	URL        string `yaml:"url"         mapstructure:"url"`
	Email      string `yaml:"email"       mapstructure:"email"`
	Token      string `yaml:"token"       mapstructure:"token"`
	Space      string `yaml:"space"       mapstructure:"space"`
	ParentID   string `yaml:"parent_id"   mapstructure:"parent_id"`
	AutoSubmit bool   `yaml:"auto_submit" mapstructure:"auto_submit"`
}

// Configured reports whether any connection credential is set.
func (c Confluence) Configured() bool {
	return c.URL != "" || c.Email != "" || c.Token != ""
}

// LLM selects and parameterises the model provider.
type LLM struct {
	Provider       string  `yaml:"provider"    mapstructure:"provider"`
	APIKey         string  `yaml:"api_key"     mapstructure:"api_key"`
	BaseURL        string  `yaml:"base_url"    mapstructure:"base_url"`
	Model          string  `yaml:"model"       mapstructure:"model"`
	MaxTokens      int     `yaml:"max_tokens"  mapstructure:"max_tokens"`
	Temperature    float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSeconds int     `yaml:"timeout"     mapstructure:"timeout"`
}

// Timeout returns the per-request transport timeout.
func (l LLM) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// AWS holds Bedrock settings. Empty keys fall back to the default AWS
// credential chain.
type AWS struct {
	Region           string `yaml:"region"            mapstructure:"region"`
	AccessKeyID      string `yaml:"access_key_id"     mapstructure:"access_key_id"`
	SecretAccessKey  string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	InferenceProfile string `yaml:"inference_profile" mapstructure:"inference_profile"`
}

// Runtime controls the orchestrator.
type Runtime struct {
	Static              bool   `yaml:"static"        mapstructure:"static"`
	TestingMode         bool   `yaml:"testing_mode"  mapstructure:"testing_mode"`
	PollIntervalSeconds int    `yaml:"poll_interval" mapstructure:"poll_interval"`
	LookbackMinutes     int    `yaml:"lookback"      mapstructure:"lookback"`
	StatePath           string `yaml:"state_path"    mapstructure:"state_path"`
}

// PollInterval returns the sleep between live iterations.
func (r Runtime) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalSeconds) * time.Second
}

// Lookback returns the trailing resolution window.
func (r Runtime) Lookback() time.Duration {
	return time.Duration(r.LookbackMinutes) * time.Minute
}

// Prompts names .prompt files overriding the embedded defaults.
type Prompts struct {
	Analyzer string `yaml:"analyzer" mapstructure:"analyzer"`
	Search   string `yaml:"search"   mapstructure:"search"`
}

// Log controls the logger.
type Log struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// envBindings maps config keys to the environment variables that override
// them. Multiple names are tried in order.
var envBindings = map[string][]string{
	"jira.url":               {"JIRA_SERVER"},
	"jira.email":             {"JIRA_EMAIL"},
	"jira.token":             {"JIRA_API_TOKEN"},
	"jira.project":           {"JIRA_PROJECT_KEY"},
	"confluence.url":         {"CONFLUENCE_SERVER"},
	"confluence.email":       {"CONFLUENCE_EMAIL"},
	"confluence.token":       {"CONFLUENCE_API_TOKEN"},
	"confluence.space":       {"CONFLUENCE_SPACE_KEY"},
	"confluence.parent_id":   {"CONFLUENCE_PARENT_ID"},
	"confluence.auto_submit": {"CONFLUENCE_AUTO_SUBMIT"},
	"llm.provider":           {"LLM_PROVIDER"},
	"llm.api_key":            {"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"},
	"llm.base_url":           {"OPENAI_BASE_URL"},
	"llm.model":              {"OPENAI_MODEL", "LLM_MODEL"},
	"llm.max_tokens":         {"LLM_MAX_TOKENS"},
	"llm.temperature":        {"LLM_TEMPERATURE"},
	"llm.timeout":            {"LLM_TIMEOUT_SECONDS"},
	"aws.region":             {"AWS_REGION"},
	"aws.access_key_id":      {"AWS_ACCESS_KEY_ID"},
	"aws.secret_access_key":  {"AWS_SECRET_ACCESS_KEY"},
	"aws.inference_profile":  {"BEDROCK_INFERENCE_PROFILE"},
	"runtime.static":         {"USE_STATIC_TICKETS"},
	"runtime.testing_mode":   {"TESTING_MODE"},
	"runtime.poll_interval":  {"POLL_INTERVAL_SECONDS"},
	"runtime.lookback":       {"LOOKBACK_MINUTES"},
	"runtime.state_path":     {"KBAGENT_STATE_PATH"},
	"prompts.analyzer":       {"PROMPT_TICKET_ANALYZER"},
	"prompts.search":         {"PROMPT_CONFLUENCE_SEARCH"},
	"log.level":              {"KBAGENT_LOG_LEVEL"},
}

// DefaultPath returns the default config file path (~/.kbagent.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kbagent.yaml"
	}
	return filepath.Join(home, ".kbagent.yaml")
}

// Load reads config from the YAML file and applies env var overrides.
// configPath may be empty to use the default path.
func Load(configPath string) (Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = DefaultPath()
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout", 120)
	v.SetDefault("runtime.poll_interval", 30)
	v.SetDefault("runtime.lookback", 300)
	v.SetDefault("log.level", "info")

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	// Read the config file (ignore "not found" errors so env vars still work)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	return cfg, nil
}

// Validate checks that the settings required by mode are present.
func (c Config) Validate(mode Mode) error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if mode == ModeLive || mode == ModeFetch {
		if err := c.validateJira(mode == ModeLive); err != nil {
			return err
		}
	}
	if c.Confluence.Configured() {
		if err := c.validateConfluence(); err != nil {
			return err
		}
	}
	if c.Runtime.PollIntervalSeconds <= 0 {
		return fmt.Errorf("runtime.poll_interval must be positive, got %d", c.Runtime.PollIntervalSeconds)
	}
	if c.Runtime.LookbackMinutes <= 0 {
		return fmt.Errorf("runtime.lookback must be positive, got %d", c.Runtime.LookbackMinutes)
	}
	return nil
}

func (c Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		if c.LLM.APIKey == "" {
			return missing("llm.api_key")
		}
	case ProviderBedrock:
		if c.AWS.Region == "" {
			return missing("aws.region")
		}
		if c.LLM.Model == "" && c.AWS.InferenceProfile == "" {
			return missing("aws.inference_profile")
		}
	default:
		return fmt.Errorf("unknown llm.provider %q (want openai, anthropic, gemini or bedrock)", c.LLM.Provider)
	}
	return nil
}

func (c Config) validateJira(needProject bool) error {
	switch {
	case c.Jira.URL == "":
		return missing("jira.url")
	case c.Jira.Email == "":
		return missing("jira.email")
	case c.Jira.Token == "":
		return missing("jira.token")
	case needProject && c.Jira.Project == "":
		return missing("jira.project")
	}
	return nil
}

func (c Config) validateConfluence() error {
	if c.Confluence.URL == "" {
		return missing("confluence.url")
	}
	if c.Confluence.Email == "" {
		return missing("confluence.email")
	}
	if c.Confluence.Token == "" {
		return missing("confluence.token")
	}
	return nil
}

func missing(key string) error {
	return fmt.Errorf("%w: %s (set in config file or %s env var)", ErrMissing, key, strings.Join(envBindings[key], "/"))
}

// Save writes the config to the given path (or default path if empty).
func Save(cfg Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultPath()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
