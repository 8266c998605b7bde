package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Strum355/log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Token  string
	AppID  string
	Prefix string
	Theme  int

	SearchyURL        string
	MaxResults        int
	RetryAttempts     int
	RetryDelay        time.Duration
	RequestsPerSecond float64
	RequestTimeout    time.Duration

	RedisAddress   string
	SearchCacheTTL time.Duration
	DatabaseDSN    string

	PlayerSweepInterval time.Duration
	PlayerTTL           time.Duration
	Volume              float64
	QueueSweepInterval  time.Duration
	QueueTTL            time.Duration
	SelectionTimeout    time.Duration
}

func InitConfig() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, proceeding with defaults.")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	initDefaults()
	viper.AutomaticEnv()
}

// Load reads the configuration InitConfig set up and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Token:  viper.GetString("discord.token"),
		AppID:  viper.GetString("discord.app.id"),
		Prefix: viper.GetString("prefix"),
		Theme:  viper.GetInt("theme"),

		SearchyURL:        strings.TrimRight(viper.GetString("searchy.url"), "/"),
		MaxResults:        viper.GetInt("searchy.max_results"),
		RetryAttempts:     viper.GetInt("searchy.retry.attempts"),
		RetryDelay:        viper.GetDuration("searchy.retry.delay"),
		RequestsPerSecond: viper.GetFloat64("searchy.rate"),
		RequestTimeout:    viper.GetDuration("searchy.timeout"),

		RedisAddress:   viper.GetString("redis.address"),
		SearchCacheTTL: time.Duration(viper.GetInt("cache.search")) * time.Second,
		DatabaseDSN:    viper.GetString("database.dsn"),

		PlayerSweepInterval: viper.GetDuration("player.sweep_interval"),
		PlayerTTL:           viper.GetDuration("player.ttl"),
		Volume:              viper.GetFloat64("player.volume"),
		QueueSweepInterval:  viper.GetDuration("queue.sweep_interval"),
		QueueTTL:            viper.GetDuration("queue.ttl"),
		SelectionTimeout:    viper.GetDuration("selection.timeout"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}
	if c.AppID == "" {
		errs = append(errs, errors.New("discord.app.id is required"))
	}

	if u, err := url.Parse(c.SearchyURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("searchy.url %q is not a valid URL", c.SearchyURL))
	}
	if c.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("searchy.max_results must be positive, got %d", c.MaxResults))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("searchy.retry.attempts must be at least 1, got %d", c.RetryAttempts))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("searchy.retry.delay cannot be negative, got %s", c.RetryDelay))
	}

	for key, d := range map[string]time.Duration{
		"player.sweep_interval": c.PlayerSweepInterval,
		"queue.sweep_interval":  c.QueueSweepInterval,
		"selection.timeout":     c.SelectionTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}
	if c.Volume < 0 {
		errs = append(errs, fmt.Errorf("player.volume cannot be negative, got %v", c.Volume))
	}

	return errors.Join(errs...)
}
