// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Login() LoginConfig
	Kite() KiteConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserExecPath(string)

	// Login Setters
	SetLoginCredentialsFile(string)
	SetLoginURL(string)
	SetLoginElementTimeout(time.Duration)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	LoginCfg   LoginConfig   `mapstructure:"login" yaml:"login"`
	KiteCfg    KiteConfig    `mapstructure:"kite" yaml:"kite"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Login() LoginConfig     { return c.LoginCfg }
func (c *Config) Kite() KiteConfig       { return c.KiteCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)        { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserExecPath(p string)      { c.BrowserCfg.ExecPath = p }
func (c *Config) SetLoginCredentialsFile(p string) { c.LoginCfg.CredentialsFile = p }
func (c *Config) SetLoginURL(u string)             { c.LoginCfg.LoginURL = u }
func (c *Config) SetLoginElementTimeout(d time.Duration) {
	c.LoginCfg.ElementTimeout = d
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names used for each log level on the console.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless Chrome instance that drives the login.
type BrowserConfig struct {
	Headless  bool     `mapstructure:"headless" yaml:"headless"`
	ExecPath  string   `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent string   `mapstructure:"user_agent" yaml:"user_agent"`
	NoSandbox bool     `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	Args      []string `mapstructure:"args" yaml:"args"`
	// StartTimeout bounds how long launching the browser process may take.
	StartTimeout time.Duration `mapstructure:"start_timeout" yaml:"start_timeout"`
}

// LoginConfig tunes the login state machine. All waits are bounded polls.
type LoginConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	// KeyringService enables the OS keyring fallback for password and PIN when non-empty.
	KeyringService string `mapstructure:"keyring_service" yaml:"keyring_service"`
	// LoginURL overrides the URL derived from the API key.
	LoginURL string `mapstructure:"login_url" yaml:"login_url"`

	ElementTimeout    time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	ErrorProbeTimeout time.Duration `mapstructure:"error_probe_timeout" yaml:"error_probe_timeout"`
	AdvanceTimeout    time.Duration `mapstructure:"advance_timeout" yaml:"advance_timeout"`
	TokenTimeout      time.Duration `mapstructure:"token_timeout" yaml:"token_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	CloseSettle       time.Duration `mapstructure:"close_settle" yaml:"close_settle"`
}

// KiteConfig describes the brokerage portal endpoints.
type KiteConfig struct {
	LoginBaseURL string `mapstructure:"login_base_url" yaml:"login_base_url"`
	APIVersion   string `mapstructure:"api_version" yaml:"api_version"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "kite-autologin")
	v.SetDefault("logger.log_file", "login.log")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.start_timeout", "30s")

	// -- Login --
	v.SetDefault("login.credentials_file", "login.json")
	v.SetDefault("login.keyring_service", "")
	v.SetDefault("login.login_url", "")
	v.SetDefault("login.element_timeout", "5s")
	v.SetDefault("login.error_probe_timeout", "1s")
	v.SetDefault("login.advance_timeout", "3s")
	v.SetDefault("login.token_timeout", "5s")
	v.SetDefault("login.poll_interval", "100ms")
	v.SetDefault("login.close_settle", "1s")

	// -- Kite --
	v.SetDefault("kite.login_base_url", "https://kite.zerodha.com/connect/login")
	v.SetDefault("kite.api_version", "3")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.LoginCfg.Validate(); err != nil {
		return fmt.Errorf("login configuration invalid: %w", err)
	}
	if c.KiteCfg.LoginBaseURL == "" && c.LoginCfg.LoginURL == "" {
		return fmt.Errorf("kite.login_base_url is required when login.login_url is not set")
	}
	return nil
}

// Validate checks that every wait in the login flow is bounded.
func (l LoginConfig) Validate() error {
	waits := []struct {
		name string
		d    time.Duration
	}{
		{"element_timeout", l.ElementTimeout},
		{"error_probe_timeout", l.ErrorProbeTimeout},
		{"advance_timeout", l.AdvanceTimeout},
		{"token_timeout", l.TokenTimeout},
		{"poll_interval", l.PollInterval},
	}
	for _, w := range waits {
		if w.d <= 0 {
			return fmt.Errorf("%s must be a positive duration", w.name)
		}
	}
	if l.PollInterval > l.ElementTimeout {
		return fmt.Errorf("poll_interval (%s) must not exceed element_timeout (%s)", l.PollInterval, l.ElementTimeout)
	}
	if l.CloseSettle < 0 {
		return fmt.Errorf("close_settle must not be negative")
	}
	return nil
}
