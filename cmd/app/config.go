package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Monitor deployment modes
const (
	// ModeFleet polls every node in the registry over SSH
	ModeFleet = "fleet"

	// ModeLocal monitors the machine the process runs on
	ModeLocal = "local"
)

// Notifier channels
const (
	ChannelTelegram = "telegram"
	ChannelLog      = "log"
	ChannelNoop     = "noop"
)

// Config holds the complete application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Monitor configuration
	Monitor MonitorConfig `mapstructure:"monitor"`

	// Thresholds holds the global alerting limits
	Thresholds ThresholdConfig `mapstructure:"thresholds"`

	// Notifier configuration
	Notifier NotifierConfig `mapstructure:"notifier"`

	// Telegram configuration
	Telegram TelegramConfig `mapstructure:"telegram"`

	// App configuration
	App AppConfig `mapstructure:"app"`

	// Nodes is the monitored node registry
	Nodes []NodeConfig `mapstructure:"nodes"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	// Port is the HTTP server port
	Port string `mapstructure:"port"`

	// ShutdownTimeout is the timeout for server shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MonitorConfig holds the scheduling loop configuration
type MonitorConfig struct {
	// Mode selects the deployment mode: "fleet" or "local"
	Mode string `mapstructure:"mode"`

	// Interval is the time between polling cycles
	Interval time.Duration `mapstructure:"interval"`

	// CollectTimeout bounds one node's collection; it must be shorter
	// than Interval so a stuck node cannot push a cycle past the next tick
	CollectTimeout time.Duration `mapstructure:"collect_timeout"`

	// NotifyTimeout bounds one alert delivery
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`

	// Cooldown is the minimum time between two alerts sharing the same
	// identity. With the default interval 300s and cooldown 300s every
	// breaching cycle re-emits; raise the cooldown above the interval to
	// suppress repeats across cycles.
	Cooldown time.Duration `mapstructure:"cooldown"`

	// Concurrency caps how many nodes are collected at once
	Concurrency int `mapstructure:"concurrency"`

	// RunOnStart fires the first cycle immediately instead of waiting
	// for the first tick
	RunOnStart bool `mapstructure:"run_on_start"`
}

// ThresholdConfig holds the global alerting limits. Values are
// percentages except gpu_temp which is degrees Celsius.
type ThresholdConfig struct {
	CPU     float64 `mapstructure:"cpu"`
	Memory  float64 `mapstructure:"memory"`
	Disk    float64 `mapstructure:"disk"`
	GPUTemp float64 `mapstructure:"gpu_temp"`
}

// ThresholdOverrides holds optional per-node limits; nil fields fall
// back to the global value
type ThresholdOverrides struct {
	CPU     *float64 `mapstructure:"cpu"`
	Memory  *float64 `mapstructure:"memory"`
	Disk    *float64 `mapstructure:"disk"`
	GPUTemp *float64 `mapstructure:"gpu_temp"`
}

// NotifierConfig selects the delivery channel
type NotifierConfig struct {
	// Channel is one of "telegram", "log", "noop"
	Channel string `mapstructure:"channel"`
}

// TelegramConfig holds Telegram Bot API configuration
type TelegramConfig struct {
	// BotToken is the bot token issued by BotFather
	BotToken string `mapstructure:"bot_token"`

	// ChatID is the chat the alerts are delivered to
	ChatID string `mapstructure:"chat_id"`

	// APIBase is the Bot API endpoint, overridable for tests
	APIBase string `mapstructure:"api_base"`

	// VerifyOnStart validates the credentials with a getMe call at startup
	VerifyOnStart bool `mapstructure:"verify_on_start"`
}

// AppConfig holds application configuration
type AppConfig struct {
	// Component is the name of the component
	Component string `mapstructure:"component"`

	// LogLevel is the log level
	LogLevel string `mapstructure:"log_level"`
}

// NodeConfig describes one monitored node in the configuration file
type NodeConfig struct {
	// Name uniquely identifies the node
	Name string `mapstructure:"name"`

	// Host is the SSH address
	Host string `mapstructure:"host"`

	// Port is the SSH port
	Port int `mapstructure:"port"`

	// User is the SSH login user
	User string `mapstructure:"user"`

	// KeyPath is the path to the SSH private key
	KeyPath string `mapstructure:"key_path"`

	// Service is the systemd unit that must be active on the node
	Service string `mapstructure:"service"`

	// Disabled removes the node from monitoring without deleting its entry
	Disabled bool `mapstructure:"disabled"`

	// Thresholds holds optional per-node limit overrides
	Thresholds *ThresholdOverrides `mapstructure:"thresholds"`
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure paths and file types
	configureViper(v)

	// Read configs file
	if err := readConfigs(v); err != nil {
		return nil, err
	}

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configs: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// configureViper sets up Viper configuration paths and types
func configureViper(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/gonka-monitor/")

	// Enable environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("GONKA")
}

// readConfigs attempts to read the configuration file
func readConfigs(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Only return error if it's not a "configs file not found" error
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read configs file: %w", err)
		}
		// Otherwise, continue with defaults and environment variables
	}
	return nil
}

// validateConfig validates the configuration. Misconfiguration is the
// only fatal condition in the system, so everything scheduler-fatal is
// rejected here before the loop starts.
func validateConfig(cfg *Config) error {
	// Validate server configuration
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	// Validate monitor configuration
	if cfg.Monitor.Mode != ModeFleet && cfg.Monitor.Mode != ModeLocal {
		return fmt.Errorf("monitor.mode must be %q or %q", ModeFleet, ModeLocal)
	}
	if cfg.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	if cfg.Monitor.Cooldown <= 0 {
		return fmt.Errorf("monitor.cooldown must be positive")
	}
	if cfg.Monitor.CollectTimeout <= 0 {
		return fmt.Errorf("monitor.collect_timeout must be positive")
	}
	if cfg.Monitor.CollectTimeout >= cfg.Monitor.Interval {
		return fmt.Errorf("monitor.collect_timeout must be shorter than monitor.interval")
	}
	if cfg.Monitor.NotifyTimeout <= 0 {
		return fmt.Errorf("monitor.notify_timeout must be positive")
	}
	if cfg.Monitor.Concurrency <= 0 {
		return fmt.Errorf("monitor.concurrency must be positive")
	}

	// Validate thresholds, global and per-node overrides alike.
	// Overrides are checked in every mode: local mode consults the
	// first node's override block too.
	if err := validateThresholds(&cfg.Thresholds); err != nil {
		return err
	}
	for i, node := range cfg.Nodes {
		if err := validateThresholdOverrides(i, node.Thresholds); err != nil {
			return err
		}
	}

	// Validate nodes for the fleet mode
	if cfg.Monitor.Mode == ModeFleet {
		enabled := 0
		for i, node := range cfg.Nodes {
			if node.Name == "" {
				return fmt.Errorf("nodes[%d].name is required", i)
			}
			if node.Host == "" {
				return fmt.Errorf("nodes[%d].host is required", i)
			}
			if !node.Disabled {
				enabled++
			}
		}
		if enabled == 0 {
			return fmt.Errorf("at least one enabled node is required in fleet mode")
		}
	}

	// Validate notifier configuration
	switch cfg.Notifier.Channel {
	case ChannelTelegram:
		if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.bot_token and telegram.chat_id are required for the telegram channel")
		}
	case ChannelLog, ChannelNoop:
	default:
		return fmt.Errorf("notifier.channel must be one of %q, %q, %q",
			ChannelTelegram, ChannelLog, ChannelNoop)
	}

	return nil
}

// validateThresholds rejects limits outside their meaningful range
func validateThresholds(t *ThresholdConfig) error {
	if t.CPU <= 0 || t.CPU > 100 {
		return fmt.Errorf("thresholds.cpu must be in (0, 100]")
	}
	if t.Memory <= 0 || t.Memory > 100 {
		return fmt.Errorf("thresholds.memory must be in (0, 100]")
	}
	if t.Disk <= 0 || t.Disk > 100 {
		return fmt.Errorf("thresholds.disk must be in (0, 100]")
	}
	if t.GPUTemp <= 0 {
		return fmt.Errorf("thresholds.gpu_temp must be positive")
	}
	return nil
}

// validateThresholdOverrides holds per-node overrides to the same
// bounds as the global limits
func validateThresholdOverrides(index int, o *ThresholdOverrides) error {
	if o == nil {
		return nil
	}
	if o.CPU != nil && (*o.CPU <= 0 || *o.CPU > 100) {
		return fmt.Errorf("nodes[%d].thresholds.cpu must be in (0, 100]", index)
	}
	if o.Memory != nil && (*o.Memory <= 0 || *o.Memory > 100) {
		return fmt.Errorf("nodes[%d].thresholds.memory must be in (0, 100]", index)
	}
	if o.Disk != nil && (*o.Disk <= 0 || *o.Disk > 100) {
		return fmt.Errorf("nodes[%d].thresholds.disk must be in (0, 100]", index)
	}
	if o.GPUTemp != nil && *o.GPUTemp <= 0 {
		return fmt.Errorf("nodes[%d].thresholds.gpu_temp must be positive", index)
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Monitor defaults
	v.SetDefault("monitor.mode", ModeFleet)
	v.SetDefault("monitor.interval", 300*time.Second)
	v.SetDefault("monitor.collect_timeout", 30*time.Second)
	v.SetDefault("monitor.notify_timeout", 10*time.Second)
	v.SetDefault("monitor.cooldown", 300*time.Second)
	v.SetDefault("monitor.concurrency", 8)
	v.SetDefault("monitor.run_on_start", true)

	// Threshold defaults
	v.SetDefault("thresholds.cpu", 90.0)
	v.SetDefault("thresholds.memory", 85.0)
	v.SetDefault("thresholds.disk", 90.0)
	v.SetDefault("thresholds.gpu_temp", 85.0)

	// Notifier defaults
	v.SetDefault("notifier.channel", ChannelLog)

	// Telegram defaults
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.verify_on_start", true)

	// App defaults
	v.SetDefault("app.component", "gonka-monitor")
	v.SetDefault("app.log_level", "info")
}
