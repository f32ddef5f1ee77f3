package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PITCHCALL"

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"port":              "port",
	"log-level":         "log_level",
	"backend-url":       "backend_url",
	"connect-timeout":   "connect_timeout",
	"poll-interval":     "poll.interval",
	"poll-max-attempts": "poll.max_attempts",
	"video":             "media.video",
}

type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type MediaConfig struct {
	Video      bool     `mapstructure:"video"`
	ICEServers []string `mapstructure:"ice_servers"`
}

// StartLimitConfig caps call starts per identity; Max 0 disables the cap.
type StartLimitConfig struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

type Config struct {
	Mode           string           `mapstructure:"mode"`
	Port           int              `mapstructure:"port"`
	Secret         string           `mapstructure:"secret"`
	LogLevel       string           `mapstructure:"log_level"`
	BackendURL     string           `mapstructure:"backend_url"`
	TunnelBypass   bool             `mapstructure:"tunnel_bypass"`
	RequestTimeout time.Duration    `mapstructure:"request_timeout"`
	ConnectTimeout time.Duration    `mapstructure:"connect_timeout"`
	Poll           PollConfig       `mapstructure:"poll"`
	Media          MediaConfig      `mapstructure:"media"`
	StartLimit     StartLimitConfig `mapstructure:"start_limit"`
	ReadLimit      int64            `mapstructure:"read_limit"`
	PingPeriod     time.Duration    `mapstructure:"ping_period"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("backend_url", "http://localhost:8000")
	v.SetDefault("tunnel_bypass", true)
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("connect_timeout", "15s")
	v.SetDefault("poll.interval", "5s")
	v.SetDefault("poll.max_attempts", 24)
	v.SetDefault("media.video", false)
	v.SetDefault("media.ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("start_limit.max", 5)
	v.SetDefault("start_limit.window", "1m")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
}

// Load reads config/config.<CONFIG_ENV>.yaml, then PITCHCALL_* env vars, then flags.
// A missing file is not an error.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("backend", cfg.BackendURL).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Mode != "release" && c.Mode != "debug" {
		errs = append(errs, fmt.Errorf("mode must be release or debug, got %q", c.Mode))
	}
	if c.BackendURL == "" {
		errs = append(errs, errors.New("backend_url is required"))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, errors.New("poll.interval must be positive"))
	}
	if c.Poll.MaxAttempts <= 0 {
		errs = append(errs, errors.New("poll.max_attempts must be positive"))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("connect_timeout must be positive"))
	}
	if c.StartLimit.Max < 0 {
		errs = append(errs, errors.New("start_limit.max must not be negative"))
	}
	if c.StartLimit.Max > 0 && c.StartLimit.Window <= 0 {
		errs = append(errs, errors.New("start_limit.window must be positive when start_limit.max is set"))
	}
	return errors.Join(errs...)
}
