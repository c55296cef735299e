package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type ServerConfig struct {
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	DSN         string `yaml:"url" env:"DATABASE_URL"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"DATABASE_AUTO_MIGRATE"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL"`
}

type AdminConfig struct {
	Name     string `yaml:"name" env:"ADMIN_NAME"`
	Email    string `yaml:"email" env:"ADMIN_EMAIL"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort     int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUser     string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPassword string `yaml:"smtp_password" env:"SMTP_PASS"`
	FromEmail    string `yaml:"from_email" env:"SMTP_FROM"`
}

type TelegramConfig struct {
	BotToken   string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	WebhookURL string `yaml:"webhook_url" env:"TELEGRAM_WEBHOOK_URL"`
}

type RealtimeConfig struct {
	SessionBuffer  int    `yaml:"session_buffer" env:"REALTIME_SESSION_BUFFER"`
	DispatchBuffer int    `yaml:"dispatch_buffer" env:"REALTIME_DISPATCH_BUFFER"`
	AllowedOrigin  string `yaml:"allowed_origin" env:"CLIENT_URL"`
}

type JobsConfig struct {
	Enabled bool `yaml:"enabled" env:"JOBS_ENABLED"`
}

type ReportsConfig struct {
	FontPath string `yaml:"font_path" env:"REPORTS_FONT_PATH"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Admin    AdminConfig    `yaml:"admin"`
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Reports  ReportsConfig  `yaml:"reports"`
}

// Load reads the YAML file at path (a missing file is allowed), applies
// environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env only
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	cfg.applyDefaults()
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	return &cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Auth.AccessTTL == 0 {
		c.Auth.AccessTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTTL == 0 {
		c.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Realtime.SessionBuffer <= 0 {
		c.Realtime.SessionBuffer = 64
	}
	if c.Realtime.DispatchBuffer <= 0 {
		c.Realtime.DispatchBuffer = 1024
	}
	if c.Admin.Name == "" {
		c.Admin.Name = "Super Admin"
	}
}
