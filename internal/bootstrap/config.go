package bootstrap

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	kperrors "katapass/internal/errors"
)

const configSection = "katapass"

const DefaultRedisChannel = "katapass:decisions"

// Config mirrors the KATAPASS section of the config file.
type Config struct {
	Engine       string  `mapstructure:"engine"`
	Args         string  `mapstructure:"args"`
	Intercept    string  `mapstructure:"intercept"`
	Threshold    float64 `mapstructure:"threshold"`
	SyncPass     bool    `mapstructure:"sync_pass"`
	LogLevel     string  `mapstructure:"log_level"`
	LogOutput    string  `mapstructure:"log_output"`
	MonitorAddr  string  `mapstructure:"monitor_addr"`
	RedisUrl     string  `mapstructure:"redis_url"`
	RedisChannel string  `mapstructure:"redis_channel"`
}

type fileConfig struct {
	Katapass Config `mapstructure:"katapass"`
}

var requiredFields = []string{"engine", "args", "intercept"}

func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgPath)
	ext := strings.TrimPrefix(filepath.Ext(cfgPath), ".")
	if !slices.Contains(viper.SupportedExts, ext) {
		v.SetConfigType("ini")
	}

	v.SetDefault(configSection+".threshold", 0.5)
	v.SetDefault(configSection+".sync_pass", false)
	v.SetDefault(configSection+".log_level", "info")
	v.SetDefault(configSection+".log_output", "stderr")
	v.SetDefault(configSection+".redis_channel", DefaultRedisChannel)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file %s: %w", kperrors.ErrConfig, cfgPath, err)
	}

	for _, field := range requiredFields {
		if !v.IsSet(configSection + "." + field) {
			return nil, fmt.Errorf("%w: field missing from config: %s", kperrors.ErrConfig, strings.ToUpper(field))
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("%w: %w", kperrors.ErrConfig, err)
	}
	cfg := fc.Katapass

	if cfg.Engine == "" {
		return nil, fmt.Errorf("%w: ENGINE must not be empty", kperrors.ErrConfig)
	}
	if cfg.Intercept == "" {
		return nil, fmt.Errorf("%w: INTERCEPT must not be empty", kperrors.ErrConfig)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("%w: THRESHOLD %v outside [0, 1]", kperrors.ErrConfig, cfg.Threshold)
	}

	return &cfg, nil
}

// EngineArgs splits ARGS on spaces, dropping empty tokens.
func (c *Config) EngineArgs() []string {
	args := make([]string, 0)
	for _, arg := range strings.Split(c.Args, " ") {
		if arg != "" {
			args = append(args, arg)
		}
	}
	return args
}
