package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/drakos74/smart-exec/internal/algo/fusion"
	"github.com/drakos74/smart-exec/internal/algo/strategy"
	"github.com/drakos74/smart-exec/internal/execution"
	"github.com/drakos74/smart-exec/internal/market"
	"github.com/drakos74/smart-exec/internal/model"
	"github.com/drakos74/smart-exec/internal/order"
)

// Path is the default location of the engine config.
const Path = "infra/config/engine.yaml"

// Environment overrides.
const (
	EnvLogLevel    = "SMART_EXEC_LOG_LEVEL"
	EnvAdminPort   = "SMART_EXEC_ADMIN_PORT"
	EnvMaxSlippage = "SMART_EXEC_MAX_SLIPPAGE"
)

// Log configures the process logger.
type Log struct {
	Level string `yaml:"level" json:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
}

// Admin configures the admin http server.
type Admin struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Port    int  `yaml:"port" json:"port" validate:"gte=0,lte=65535"`
}

// Config is the complete engine configuration.
type Config struct {
	Log        Log                   `yaml:"log" json:"log"`
	Admin      Admin                 `yaml:"admin" json:"admin"`
	Slippage   model.SlippageControl `yaml:"slippage" json:"slippage"`
	Market     market.Config         `yaml:"market" json:"market"`
	Fusion     fusion.Config         `yaml:"fusion" json:"fusion"`
	Execution  execution.Config      `yaml:"execution" json:"execution"`
	Orders     order.Config          `yaml:"orders" json:"orders"`
	Strategies []strategy.Config     `yaml:"strategies" json:"strategies" validate:"dive"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: Log{
			Level: "info",
		},
		Admin: Admin{
			Enabled: true,
			Port:    6122,
		},
		Slippage:   model.DefaultSlippageControl(),
		Market:     market.DefaultConfig(),
		Fusion:     fusion.DefaultConfig(),
		Execution:  execution.DefaultConfig(),
		Orders:     order.DefaultConfig(),
		Strategies: strategy.Defaults(),
	}
}

// Validate checks the config values.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			return fmt.Errorf("invalid config at %s (%s): %w", invalid[0].Namespace(), invalid[0].Tag(), err)
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Parse reads the yaml config on top of the defaults.
// Fields missing from the yaml keep their default value.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load loads the config from the given yaml file and applies the environment overrides.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not load config from %s: %w", path, err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg, err = Overlay(cfg, os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	log.Info().Str("path", path).Msg("loaded config")
	return cfg, nil
}

// LoadEnv loads the given env files into the process environment.
// Without any files it loads an optional '.env' from the working directory.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("could not load env files %v: %w", files, err)
	}
	return nil
}

// Overlay applies the environment overrides to the config.
func Overlay(cfg Config, lookup func(key string) (string, bool)) (Config, error) {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvAdminPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("could not parse %s=%s: %w", EnvAdminPort, v, err)
		}
		cfg.Admin.Port = port
	}
	if v, ok := lookup(EnvMaxSlippage); ok && v != "" {
		slippage, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("could not parse %s=%s: %w", EnvMaxSlippage, v, err)
		}
		cfg.Slippage.MaxSlippage = slippage
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Dump renders the config as yaml.
func Dump(cfg Config) ([]byte, error) {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not marshal config: %w", err)
	}
	return b, nil
}
