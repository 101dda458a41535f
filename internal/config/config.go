package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath         = "configs/config.yaml"
	DefaultDatabasePath = "data/expenses.db"
)

type Config struct {
	Database struct {
		Path   string       `yaml:"path"`
		Backup BackupConfig `yaml:"backup"`
	} `yaml:"database"`

	Reminder ReminderConfig `yaml:"reminder"`

	Alarm struct {
		// Backend selects where wake-up registrations live: "sqlite" or "redis".
		Backend          string `yaml:"backend"`
		TickSeconds      int    `yaml:"tick_seconds"`
		PrefsPollSeconds int    `yaml:"prefs_poll_seconds"`
	} `yaml:"alarm"`

	Telegram struct {
		BotToken      string  `yaml:"bot_token"`
		ChatID        int64   `yaml:"chat_id"`
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"telegram"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Debug bool `yaml:"debug"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// ReminderConfig holds presentation and timing settings of the daily
// reminder that are not user preferences.
type ReminderConfig struct {
	Timezone               string  `yaml:"timezone"`
	WakeLockTimeoutSeconds int     `yaml:"wake_lock_timeout_seconds"`
	Title                  string  `yaml:"title"`
	Body                   string  `yaml:"body"`
	DefaultSound           string  `yaml:"default_sound"`
	SoundsDir              string  `yaml:"sounds_dir"`
	PlayerCommand          string  `yaml:"player_command"`
	VibrationPatternMillis []int64 `yaml:"vibration_pattern_ms"`
}

// Load reads an optional .env file and then the YAML config at path.
// A missing YAML file is not an error; defaults are used instead.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("EXPENSE_CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Database.Backup.IntervalHours <= 0 {
		c.Database.Backup.IntervalHours = 24
	}
	if c.Database.Backup.StoragePath == "" {
		c.Database.Backup.StoragePath = "data/backups"
	}
	if c.Alarm.Backend == "" {
		c.Alarm.Backend = "sqlite"
	}
	if c.Alarm.TickSeconds <= 0 {
		c.Alarm.TickSeconds = 30
	}
	if c.Alarm.PrefsPollSeconds <= 0 {
		c.Alarm.PrefsPollSeconds = 5
	}
	if c.Reminder.WakeLockTimeoutSeconds <= 0 {
		c.Reminder.WakeLockTimeoutSeconds = 10
	}
	if c.Reminder.Title == "" {
		c.Reminder.Title = "¿Registraste tus gastos?"
	}
	if c.Reminder.Body == "" {
		c.Reminder.Body = "No olvides anotar lo que gastaste hoy"
	}
	if c.Reminder.DefaultSound == "" {
		c.Reminder.DefaultSound = "default"
	}
	if len(c.Reminder.VibrationPatternMillis) == 0 {
		c.Reminder.VibrationPatternMillis = []int64{0, 500, 200, 500}
	}
	if c.Telegram.RatePerSecond <= 0 {
		c.Telegram.RatePerSecond = 1
	}
	if c.Telegram.Burst <= 0 {
		c.Telegram.Burst = 1
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Alarm.Backend != "sqlite" && c.Alarm.Backend != "redis" {
		problems = append(problems, fmt.Sprintf("invalid alarm backend %q: must be sqlite or redis", c.Alarm.Backend))
	}
	if c.Alarm.Backend == "redis" && c.Redis.Address == "" {
		problems = append(problems, "redis.address is required when alarm.backend is redis")
	}
	if c.Redis.Address != "" {
		if _, _, err := net.SplitHostPort(c.Redis.Address); err != nil {
			problems = append(problems, fmt.Sprintf("invalid redis address %q: %v", c.Redis.Address, err))
		}
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid reminder timezone %q: %v", c.Reminder.Timezone, err))
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		problems = append(problems, "telegram.chat_id is required when telegram.bot_token is set")
	}
	for _, ms := range c.Reminder.VibrationPatternMillis {
		if ms < 0 {
			problems = append(problems, "reminder.vibration_pattern_ms must not contain negative values")
			break
		}
	}
	if c.Database.Backup.RetentionDays < 0 {
		problems = append(problems, "database.backup.retention_days must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Location returns the reminder time zone (local time when unset).
func (c *Config) Location() (*time.Location, error) {
	if c.Reminder.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Reminder.Timezone)
}

func (c *Config) WakeLockTimeout() time.Duration {
	return time.Duration(c.Reminder.WakeLockTimeoutSeconds) * time.Second
}

func (c *Config) AlarmTick() time.Duration {
	return time.Duration(c.Alarm.TickSeconds) * time.Second
}

func (c *Config) PrefsPollInterval() time.Duration {
	return time.Duration(c.Alarm.PrefsPollSeconds) * time.Second
}

// VibrationPattern converts the configured pattern to durations.
func (c *Config) VibrationPattern() []time.Duration {
	pattern := make([]time.Duration, len(c.Reminder.VibrationPatternMillis))
	for i, ms := range c.Reminder.VibrationPatternMillis {
		pattern[i] = time.Duration(ms) * time.Millisecond
	}
	return pattern
}
