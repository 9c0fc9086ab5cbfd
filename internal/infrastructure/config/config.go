package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Exotel   ExotelConfig   `koanf:"exotel"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Report   ReportConfig   `koanf:"report"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type ExotelConfig struct {
	APIKey     string        `koanf:"api_key" validate:"required"`
	APIToken   string        `koanf:"api_token" validate:"required"`
	AccountSid string        `koanf:"account_sid" validate:"required"`
	BaseURL    string        `koanf:"base_url" validate:"required,url"`
	PageSize   int           `koanf:"page_size" validate:"gt=0,lte=100"`
	Timeout    time.Duration `koanf:"timeout"`

	// Requests per second against the provider API; zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`

	// Optional destination-number filter restricting analytics to calls
	// to one published exophone.
	Exophone string `koanf:"exophone"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MinConns        int           `koanf:"min_conns" validate:"gte=0"`
	MaxConns        int           `koanf:"max_conns" validate:"gt=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`

	LiveTable       string `koanf:"live_table"`
	LivePhoneColumn string `koanf:"live_phone_column"`
	HistoricalTable string `koanf:"historical_table"`
}

type RedisConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

type ReportConfig struct {
	Recipient string `koanf:"recipient" validate:"omitempty,email"`
	Time      string `koanf:"time" validate:"omitempty,datetime=15:04"`
	Timezone  string `koanf:"timezone"`

	Infobip InfobipConfig `koanf:"infobip"`
	SMTP    SMTPConfig    `koanf:"smtp"`
}

type InfobipConfig struct {
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	FromEmail string `koanf:"from_email"`
	FromName  string `koanf:"from_name"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Sender   string `koanf:"sender" validate:"omitempty,email"`
	Password string `koanf:"password"`
}

// Load reads configuration from defaults, an optional YAML file and CI_*
// environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Exotel: ExotelConfig{
			BaseURL:  "https://api.exotel.com/v1/Accounts",
			PageSize: 100,
			Timeout:  30 * time.Second,
		},
		Database: DatabaseConfig{
			MinConns:        1,
			MaxConns:        10,
			ConnMaxLifetime: 30 * time.Minute,
			LiveTable:       "flat_booking_orders",
			LivePhoneColumn: "tenant_phone_number",
			HistoricalTable: "all_tenants_data_upto_2025_09_09",
		},
		Redis: RedisConfig{
			TTL: 15 * time.Minute,
		},
		Report: ReportConfig{
			Time:     "09:30",
			Timezone: "Asia/Kolkata",
			Infobip: InfobipConfig{
				BaseURL:  "https://api.infobip.com",
				FromName: "Call Insights",
			},
			SMTP: SMTPConfig{
				Host: "smtp.zoho.com",
				Port: 587,
			},
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else {
		// Default config file is optional.
		_ = k.Load(file.Provider("configs/config.yaml"), yaml.Parser())
	}

	if err := k.Load(env.Provider("CI_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "CI_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
