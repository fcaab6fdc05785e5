package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wesm/issue-overseer/internal/triage"
)

const (
	// EnvPrefix prefixes every environment override, e.g. OVERSEER_LOG_LEVEL
	EnvPrefix = "OVERSEER"

	// EnvGithubToken is the environment variable name for the GitHub API token
	EnvGithubToken = "GITHUB_TOKEN"

	// DefaultConfigName is the config file looked up in the working directory
	DefaultConfigName = ".issue-overseer"
)

// Config represents the application configuration
type Config struct {
	GitHub  GitHubConfig  `mapstructure:"github" yaml:"github"`
	Triage  TriageConfig  `mapstructure:"triage" yaml:"triage"`
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// GitHubConfig contains GitHub endpoints and credentials
type GitHubConfig struct {
	// Token is usually provided via the GITHUB_TOKEN env var
	Token      string `mapstructure:"token" yaml:"token"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	GraphQLURL string `mapstructure:"graphql_url" yaml:"graphql_url"`

	AppID              int64  `mapstructure:"app_id" yaml:"app_id"`
	InstallationID     int64  `mapstructure:"installation_id" yaml:"installation_id"`
	PrivateKeyFile     string `mapstructure:"private_key_file" yaml:"private_key_file"`
	PrivateKeySecret   string `mapstructure:"private_key_secret" yaml:"private_key_secret"`
	GCPCredentialsFile string `mapstructure:"gcp_credentials_file" yaml:"gcp_credentials_file"`

	HTTPCache bool `mapstructure:"http_cache" yaml:"http_cache"`
}

// TriageConfig contains classification settings
type TriageConfig struct {
	Strategy string   `mapstructure:"strategy" yaml:"strategy"`
	Bots     []string `mapstructure:"bots" yaml:"bots"`
}

// JournalConfig contains the optional run journal settings
type JournalConfig struct {
	// Path of the SQLite journal; empty disables it
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{HTTPCache: true},
		Triage: TriageConfig{
			Strategy: string(triage.FullWindow),
			Bots:     append([]string(nil), triage.DefaultBots...),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// SetDefaults registers defaults and environment bindings on v so that every
// key can be overridden from the environment.
func SetDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.graphql_url", "")
	v.SetDefault("github.app_id", 0)
	v.SetDefault("github.installation_id", 0)
	v.SetDefault("github.private_key_file", "")
	v.SetDefault("github.private_key_secret", "")
	v.SetDefault("github.gcp_credentials_file", "")
	v.SetDefault("github.http_cache", def.GitHub.HTTPCache)
	v.SetDefault("triage.strategy", def.Triage.Strategy)
	v.SetDefault("triage.bots", def.Triage.Bots)
	v.SetDefault("journal.path", "")
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", EnvGithubToken)
}

// Load loads configuration from the file and environment already set up on v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Triage.Strategy == "" {
		cfg.Triage.Strategy = def.Triage.Strategy
	}
	if cfg.Triage.Bots == nil {
		cfg.Triage.Bots = def.Triage.Bots
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}

	// The GraphQL endpoint of GitHub Enterprise lives next to the REST root.
	if cfg.GitHub.GraphQLURL == "" && cfg.GitHub.BaseURL != "" {
		base := strings.TrimSuffix(cfg.GitHub.BaseURL, "/")
		base = strings.TrimSuffix(base, "/api/v3")
		cfg.GitHub.GraphQLURL = base + "/api/graphql"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := triage.ParseStrategy(c.Triage.Strategy); err != nil {
		return err
	}

	if c.GitHub.Token == "" {
		if c.GitHub.AppID == 0 {
			return fmt.Errorf("GitHub token is required (set %s) unless a GitHub App is configured", EnvGithubToken)
		}
		if c.GitHub.InstallationID == 0 {
			return fmt.Errorf("GitHub App Installation ID is required")
		}
		if c.GitHub.PrivateKeyFile == "" && c.GitHub.PrivateKeySecret == "" {
			return fmt.Errorf("GitHub App private key file or secret path is required")
		}
	}

	return nil
}

// CreateDefaultConfig writes a default configuration file. An existing file
// is only replaced when force is set.
func CreateDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# issue-overseer configuration
# The GitHub token is read from the GITHUB_TOKEN environment variable.
# Every key can be overridden with OVERSEER_<SECTION>_<KEY>.

`

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
