package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AGRINOTIFY_DATABASE_URL.
const EnvPrefix = "AGRINOTIFY"

type Config struct {
	ServerPort     string         `mapstructure:"server_port"`
	JWTSecret      string         `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration  `mapstructure:"token_ttl"`
	AllowedOrigins []string       `mapstructure:"allowed_origins"`
	Database       DatabaseConfig `mapstructure:"database"`
	Ledger         LedgerConfig   `mapstructure:"ledger"`
	Settings       SettingsConfig `mapstructure:"settings"`
	Temporal       TemporalConfig `mapstructure:"temporal"`
	Email          EmailConfig    `mapstructure:"email"`
	Push           PushConfig     `mapstructure:"push"`
	Keyring        KeyringConfig  `mapstructure:"keyring"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

type LedgerConfig struct {
	Capacity int `mapstructure:"capacity"`
	// Encrypt seals title, body and deep link at rest with the keyring master key.
	Encrypt bool `mapstructure:"encrypt"`
}

type SettingsConfig struct {
	// Backend is "database" or "file".
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type EmailConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	From        string   `mapstructure:"from"`
	SMTPHost    string   `mapstructure:"smtp_host"`
	SMTPPort    int      `mapstructure:"smtp_port"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	Recipients  []string `mapstructure:"recipients"`
	MinPriority string   `mapstructure:"min_priority"`
}

type PushConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Platform string `mapstructure:"platform"`
	AppID    string `mapstructure:"app_id"`
}

type KeyringConfig struct {
	ServiceName   string   `mapstructure:"service_name"`
	MasterKeyName string   `mapstructure:"master_key_name"`
	FileDir       string   `mapstructure:"file_dir"`
	FilePassword  string   `mapstructure:"file_password"`
	Backends      []string `mapstructure:"backends"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "agrinotify.db")

	v.SetDefault("ledger.capacity", 100)
	v.SetDefault("ledger.encrypt", false)

	v.SetDefault("settings.backend", "database")
	v.SetDefault("settings.dir", "settings")

	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "AGRI_NOTIFY_REMINDERS")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.min_priority", "urgent")

	v.SetDefault("push.enabled", true)
	v.SetDefault("push.platform", "mock")

	v.SetDefault("keyring.service_name", "agri-notify")
	v.SetDefault("keyring.master_key_name", "storage-master-key")
	v.SetDefault("keyring.file_dir", "~/.agri-notify/keys")
}

// Load reads config.yaml from the given paths (default "." and "./config"),
// applies AGRINOTIFY_* environment overrides and validates the result.
// A missing file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("jwt_secret must be set")
	}
	if c.Ledger.Capacity <= 0 {
		return fmt.Errorf("ledger.capacity must be positive, got %d", c.Ledger.Capacity)
	}
	switch c.Settings.Backend {
	case "database", "file":
	default:
		return fmt.Errorf("settings.backend must be database or file, got %q", c.Settings.Backend)
	}
	if c.Email.Enabled && (c.Email.SMTPHost == "" || c.Email.From == "") {
		return errors.New("email.smtp_host and email.from are required when email is enabled")
	}
	return nil
}
