package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/roomwatch/roomwatch/internal/model"
)

const (
	defaultAddr              = "127.0.0.1:8000"
	defaultRetentionInterval = time.Hour
)

// appConfig is the stub backend's runtime configuration.
type appConfig struct {
	Addr              string        `mapstructure:"addr" validate:"required,hostname_port"`
	DBPath            string        `mapstructure:"db-path"`
	QueryTimeout      time.Duration `mapstructure:"query-timeout" validate:"gt=0"`
	Cooldown          time.Duration `mapstructure:"cooldown" validate:"gt=0"`
	CacheExpiry       time.Duration `mapstructure:"cache-expiry" validate:"gtfield=Cooldown"`
	RetentionInterval time.Duration `mapstructure:"retention-interval" validate:"gt=0"`
	CatalogPath       string        `mapstructure:"catalog-path"`
	Timezone          string        `mapstructure:"timezone" validate:"required"`
	Seed              uint64        `mapstructure:"seed"`
	WarmOnStart       bool          `mapstructure:"warm-on-start"`
	LogLevel          string        `mapstructure:"log-level" validate:"oneof=debug info warn warning error"`
	LogFormat         string        `mapstructure:"log-format" validate:"oneof=text json"`

	Backup backupConfig `mapstructure:"backup"`
}

type backupConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval" validate:"gte=0"`
	Dir       string        `mapstructure:"dir" validate:"required_if=Enabled true"`
	KeepLast  int           `mapstructure:"keep-last" validate:"gte=0"`
	BucketURL string        `mapstructure:"bucket-url" validate:"omitempty,url"`
	Endpoint  string        `mapstructure:"s3-endpoint"`
	Region    string        `mapstructure:"s3-region"`
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	// A local .env is optional.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("ROOMWATCH_STUB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("addr", defaultAddr)
	v.SetDefault("db-path", filepath.Join(home, ".local", "share", "roomwatch", "stub.duckdb"))
	v.SetDefault("query-timeout", 30*time.Second)
	v.SetDefault("cooldown", model.DefaultRefreshCooldown)
	v.SetDefault("cache-expiry", model.DefaultCacheExpiry)
	v.SetDefault("retention-interval", defaultRetentionInterval)
	v.SetDefault("catalog-path", "")
	v.SetDefault("timezone", model.DefaultTimezone)
	v.SetDefault("seed", uint64(1))
	v.SetDefault("warm-on-start", true)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.interval", 6*time.Hour)
	v.SetDefault("backup.dir", filepath.Join(home, ".local", "share", "roomwatch", "backups"))
	v.SetDefault("backup.keep-last", 24)
	v.SetDefault("backup.bucket-url", "")
	v.SetDefault("backup.s3-endpoint", "")
	v.SetDefault("backup.s3-region", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "roomwatch", "stub.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}
