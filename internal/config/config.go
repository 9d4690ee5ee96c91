package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/pgvault/pgvault/internal/domain"
)

type Config struct {
	App           AppConfig       `mapstructure:"app"`
	Database      DatabaseConfig  `mapstructure:"database"`
	Backup        BackupConfig    `mapstructure:"backup"`
	Retention     RetentionConfig `mapstructure:"retention"`
	UploadTargets []UploadTarget  `mapstructure:"upload_targets"`
	Notify        NotifyConfig    `mapstructure:"notify"`
	Metrics       MetricsConfig   `mapstructure:"metrics"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type DatabaseConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	// Password may also be supplied via PGVAULT_DB_PASSWORD. It is handed to
	// each child process environment at call time, never exported globally.
	Password      string `mapstructure:"password"`
	AdminDatabase string `mapstructure:"admin_database"`
	SSLMode       string `mapstructure:"ssl_mode"`
}

type BackupConfig struct {
	OutputDir       string   `mapstructure:"output_dir"`
	ExcludeNames    []string `mapstructure:"exclude_names"`
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
	// ParallelDumps > 1 enables bounded parallel per-database dumps. Globals
	// are still dumped before any database and one failure aborts the run.
	ParallelDumps int `mapstructure:"parallel_dumps"`
	// Kinds maps a backup-kind label to a cron spec, used by serve mode.
	Kinds map[string]string `mapstructure:"kinds"`
}

type RetentionConfig struct {
	Mode       string `mapstructure:"mode"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxCount   int    `mapstructure:"max_count"`
}

type UploadTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// local mirror
	Path string `mapstructure:"path"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "pgvault")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.password", "")
	v.SetDefault("database.admin_database", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("backup.parallel_dumps", 1)
	v.SetDefault("retention.mode", "age")
	v.SetDefault("retention.max_age_days", 365)
	v.SetDefault("metrics.listen_addr", ":9464")

	if err := v.BindEnv("database.password", "PGVAULT_DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind password env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Backup.OutputDir == "" {
		return fmt.Errorf("backup.output_dir is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Backup.ParallelDumps < 1 {
		return fmt.Errorf("backup.parallel_dumps must be >= 1")
	}

	switch domain.RetentionMode(c.Retention.Mode) {
	case domain.RetentionByAge:
		if c.Retention.MaxAgeDays <= 0 {
			return fmt.Errorf("retention.max_age_days must be > 0 in age mode")
		}
	case domain.RetentionByCount:
		if c.Retention.MaxCount <= 0 {
			return fmt.Errorf("retention.max_count must be > 0 in count mode")
		}
	default:
		return fmt.Errorf("retention.mode must be %q or %q", domain.RetentionByAge, domain.RetentionByCount)
	}

	for i, target := range c.UploadTargets {
		if !target.Enabled {
			continue
		}
		switch target.Type {
		case "local":
			if target.Path == "" {
				return fmt.Errorf("upload_targets[%d]: path is required for local targets", i)
			}
		case "s3":
			if target.Bucket == "" {
				return fmt.Errorf("upload_targets[%d]: bucket is required for s3 targets", i)
			}
		case "gdrive":
			if target.CredentialsFile == "" || target.FolderID == "" {
				return fmt.Errorf("upload_targets[%d]: credentials_file and folder_id are required for gdrive targets", i)
			}
		default:
			return fmt.Errorf("upload_targets[%d]: unknown type %q", i, target.Type)
		}
	}

	return nil
}

// RetentionPolicy converts the raw config section into the domain policy.
func (c *Config) RetentionPolicy() domain.RetentionPolicy {
	return domain.RetentionPolicy{
		Mode:       domain.RetentionMode(c.Retention.Mode),
		MaxAgeDays: c.Retention.MaxAgeDays,
		MaxCount:   c.Retention.MaxCount,
	}
}

func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	var enabled []UploadTarget
	for _, target := range c.UploadTargets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}
