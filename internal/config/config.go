package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type BrowserConfig struct {
	Engine         string `mapstructure:"engine"`
	Headless       bool   `mapstructure:"headless"`
	TimeoutMS      int    `mapstructure:"timeout_ms"`
	ViewportWidth  int    `mapstructure:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height"`
	ScreenshotDir  string `mapstructure:"screenshot_dir"`
	Install        bool   `mapstructure:"install"`
}

// Timeout is the per-operation browser timeout.
func (b BrowserConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMS) * time.Millisecond
}

type DispatchConfig struct {
	FailFast    bool          `mapstructure:"fail_fast"`
	ActionDelay time.Duration `mapstructure:"action_delay"`
}

// Config is read once at startup. It is passed by value and never mutated.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Log      LogConfig      `mapstructure:"log"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
}

var envBindings = map[string]string{
	"llm.api_key":             "OPENAI_API_KEY",
	"llm.model":               "OPENAI_MODEL",
	"llm.base_url":            "OPENAI_BASE_URL",
	"llm.timeout":             "LLM_TIMEOUT",
	"llm.temperature":         "LLM_TEMPERATURE",
	"llm.max_tokens":          "LLM_MAX_TOKENS",
	"log.level":               "LOG_LEVEL",
	"log.file":                "LOG_FILE",
	"browser.engine":          "BROWSER_ENGINE",
	"browser.headless":        "BROWSER_HEADLESS",
	"browser.timeout_ms":      "BROWSER_TIMEOUT",
	"browser.viewport_width":  "VIEWPORT_WIDTH",
	"browser.viewport_height": "VIEWPORT_HEIGHT",
	"browser.screenshot_dir":  "SCREENSHOT_DIR",
	"browser.install":         "BROWSER_INSTALL",
	"dispatch.fail_fast":      "FAIL_FAST",
	"dispatch.action_delay":   "ACTION_DELAY",
}

// SetDefaults initializes default values for every key.
func SetDefaults(v *viper.Viper) {
	// -- LLM --
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 1000)

	// -- Logging --
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	// -- Browser --
	v.SetDefault("browser.engine", EnginePlaywright)
	v.SetDefault("browser.headless", os.Getenv("NODE_ENV") == "production")
	v.SetDefault("browser.timeout_ms", 30000)
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.screenshot_dir", "screenshots")
	v.SetDefault("browser.install", true)

	// -- Dispatch --
	v.SetDefault("dispatch.fail_fast", false)
	v.SetDefault("dispatch.action_delay", "1s")
}

// LoadDotenv loads KEY=VALUE pairs from path into the process environment.
// Existing variables win over the file.
func LoadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func FromEnv() (Config, error) {
	v := viper.New()
	SetDefaults(v)
	return NewConfigFromViper(v)
}

func NewConfigFromViper(v *viper.Viper) (Config, error) {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("binding %s to %s: %w", key, env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Browser.Engine = strings.ToLower(strings.TrimSpace(cfg.Browser.Engine))

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for sane values. The API key is checked
// by the model client, so commands that never call the model can run without it.
func (c Config) Validate() error {
	var errs []error
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model must not be empty"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("llm.max_tokens must be a positive integer"))
	}
	if !validLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q must be one of DEBUG, INFO, WARN, ERROR, FATAL", c.Log.Level))
	}
	switch c.Browser.Engine {
	case EnginePlaywright, EngineChromedp:
	default:
		errs = append(errs, fmt.Errorf("browser.engine %q must be %q or %q", c.Browser.Engine, EnginePlaywright, EngineChromedp))
	}
	if c.Browser.TimeoutMS <= 0 {
		errs = append(errs, errors.New("browser.timeout_ms must be a positive integer"))
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, errors.New("browser viewport width and height must be positive integers"))
	}
	if strings.TrimSpace(c.Browser.ScreenshotDir) == "" {
		errs = append(errs, errors.New("browser.screenshot_dir must not be empty"))
	}
	if c.Dispatch.ActionDelay < 0 {
		errs = append(errs, errors.New("dispatch.action_delay must not be negative"))
	}
	return errors.Join(errs...)
}

// Secrets lists values that must never appear in logs.
func (c Config) Secrets() []string {
	if c.LLM.APIKey == "" {
		return nil
	}
	return []string{c.LLM.APIKey}
}

func validLevel(level string) bool {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "FATAL":
		return true
	}
	return false
}
