// ABOUTME: Configuration loading and parsing for wardroom.
// ABOUTME: YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete wardroom configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Slack   SlackConfig   `yaml:"slack"`
	Limiter LimiterConfig `yaml:"limiter"`
	Intake  IntakeConfig  `yaml:"intake"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds the inbound HTTP listener configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// SlackConfig holds the workspace credentials. The access token carries the
// admin scopes (invite/kick/create); the bot token posts messages and
// receives events; the signing secret verifies inbound requests.
type SlackConfig struct {
	AccessToken   string `yaml:"access_token"`
	BotToken      string `yaml:"bot_token"`
	SigningSecret string `yaml:"signing_secret"`
}

// LimiterConfig paces outbound mutating platform calls.
type LimiterConfig struct {
	MinInterval time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	MinIntervalRaw string `yaml:"min_interval"`
}

// IntakeConfig describes the restricted-document intake pipeline.
type IntakeConfig struct {
	// ChannelID is the intake source channel documents are uploaded to.
	ChannelID string `yaml:"channel_id"`

	// Admins are user IDs whose uploads and messages bypass intake.
	Admins []string `yaml:"admins"`

	// Filetype is the platform type classification matching the document
	// signature (e.g. "pdf").
	Filetype string `yaml:"filetype"`

	// NamePrefix, when set, requires qualifying filenames to start with
	// it. Empty accepts any name of the configured filetype.
	NamePrefix string `yaml:"name_prefix"`

	// NameSeparator splits the routing token off the filename base;
	// "acme-nda.pdf" with separator "-" routes to project "acme".
	NameSeparator string `yaml:"name_separator"`

	// ChannelPrefix names the restricted target channel: <prefix><project>.
	ChannelPrefix string `yaml:"channel_prefix"`

	// AckMessageDelete posts an acknowledgment after deleting the upload
	// chat message.
	AckMessageDelete bool `yaml:"ack_message_delete"`
}

// StorageConfig holds the archival backend credentials.
type StorageConfig struct {
	DropboxToken string `yaml:"dropbox_token"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// defaultMinInterval matches the platform's tier-3 write budget.
const defaultMinInterval = 2 * time.Second

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses raw YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "0.0.0.0:3000"
	}
	if c.Limiter.MinInterval == 0 {
		c.Limiter.MinInterval = defaultMinInterval
	}
	if c.Intake.Filetype == "" {
		c.Intake.Filetype = "pdf"
	}
	if c.Intake.NameSeparator == "" {
		c.Intake.NameSeparator = "-"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first failure encountered.
func (c *Config) Validate() error {
	if c.Slack.AccessToken == "" {
		return fmt.Errorf("slack.access_token is required")
	}
	if c.Slack.BotToken == "" {
		return fmt.Errorf("slack.bot_token is required")
	}
	if c.Slack.SigningSecret == "" {
		return fmt.Errorf("slack.signing_secret is required")
	}
	if c.Intake.ChannelID == "" {
		return fmt.Errorf("intake.channel_id is required")
	}
	if c.Intake.ChannelPrefix == "" {
		return fmt.Errorf("intake.channel_prefix is required")
	}
	if c.Storage.DropboxToken == "" {
		return fmt.Errorf("storage.dropbox_token is required")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	if cfg.Limiter.MinIntervalRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(cfg.Limiter.MinIntervalRaw)
	if err != nil {
		return fmt.Errorf("parsing limiter.min_interval %q: %w", cfg.Limiter.MinIntervalRaw, err)
	}
	cfg.Limiter.MinInterval = d
	return nil
}

// IsIntakeAdmin reports whether id is on the configured administrator list.
func (c IntakeConfig) IsIntakeAdmin(id string) bool {
	for _, a := range c.Admins {
		if a == id {
			return true
		}
	}
	return false
}
