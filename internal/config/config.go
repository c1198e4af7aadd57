package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"slotdesk/internal/slots"
)

// BackupConfig controls the periodic sqlite file backup.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	// Schedule holds the working-day defaults for slot generation.
	Schedule struct {
		StartHour           int `yaml:"start_hour"`
		EndHour             int `yaml:"end_hour"`
		SlotDurationMinutes int `yaml:"slot_duration_minutes"`
	} `yaml:"schedule"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Backup BackupConfig `yaml:"backup"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	API struct {
		Key            string  `yaml:"key"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"api"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Run on defaults when no config file is present.
	case err != nil:
		return nil, err
	default:
		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Server.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
			cfg.Server.Port = p
		} else {
			cfg.Server.Port = 3000
		}
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/slotdesk.db"
	}

	if cfg.Backup.Enabled {
		if cfg.Backup.Path == "" {
			cfg.Backup.Path = "backups"
		}
		if cfg.Backup.IntervalHours <= 0 {
			cfg.Backup.IntervalHours = 24
		}
		if cfg.Backup.RetentionDays <= 0 {
			cfg.Backup.RetentionDays = 14
		}
	}

	if cfg.API.RateLimitRPS <= 0 {
		cfg.API.RateLimitRPS = 5
	}
	if cfg.API.RateLimitBurst <= 0 {
		cfg.API.RateLimitBurst = 10
	}

	return &cfg, nil
}

// ScheduleParams returns the configured working day, falling back to the
// standard 9-17 hourly grid.
func (c *Config) ScheduleParams() slots.Params {
	p := slots.DefaultParams()
	if c.Schedule.StartHour > 0 || c.Schedule.EndHour > 0 {
		if c.Schedule.StartHour >= 0 && c.Schedule.EndHour > c.Schedule.StartHour {
			p.StartHour = c.Schedule.StartHour
			p.EndHour = c.Schedule.EndHour
		}
	}
	if c.Schedule.SlotDurationMinutes > 0 {
		p.DurationMinutes = c.Schedule.SlotDurationMinutes
	}
	return p
}

// CacheTTL returns the availability cache TTL; zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	if c.Redis.Address == "" || c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
