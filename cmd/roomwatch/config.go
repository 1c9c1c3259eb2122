package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/roomwatch/roomwatch/internal/model"
)

// cliConfig holds only TUI-relevant configuration.
type cliConfig struct {
	APIURL         string        `mapstructure:"api-url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request-timeout" validate:"gt=0"`
	TickInterval   time.Duration `mapstructure:"tick-interval" validate:"gt=0"`
	Timezone       string        `mapstructure:"timezone" validate:"required"`
	LogLevel       string        `mapstructure:"log-level" validate:"oneof=debug info warn warning error"`
	LogFormat      string        `mapstructure:"log-format" validate:"oneof=text json"`
	LogFile        string        `mapstructure:"log-file"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("ROOMWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api-url", model.DefaultAPIURL)
	v.SetDefault("request-timeout", model.DefaultRequestTimeout)
	v.SetDefault("tick-interval", model.DefaultTickInterval)
	v.SetDefault("timezone", model.DefaultTimezone)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("log-file", filepath.Join(home, ".local", "state", "roomwatch", "roomwatch.log"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "roomwatch", "config.yml"))
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
