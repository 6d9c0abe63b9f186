package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const EnvPrefix = "PARLEY"

type Config struct {
	Mode             string        `mapstructure:"mode"`
	ServerURL        string        `mapstructure:"server_url"`
	WSURL            string        `mapstructure:"ws_url"`
	SessionCookie    string        `mapstructure:"session_cookie"`
	UserID           int64         `mapstructure:"user_id"`
	Username         string        `mapstructure:"username"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	RedialInterval   time.Duration `mapstructure:"redial_interval"`
	TypingIdle       time.Duration `mapstructure:"typing_idle"`
	TypingExpiry     time.Duration `mapstructure:"typing_expiry"`
	SearchDebounce   time.Duration `mapstructure:"search_debounce"`
	CaptureCommand   string        `mapstructure:"capture_command"`
	CaptureChunkSize int           `mapstructure:"capture_chunk_size"`
	CaptureFormat    string        `mapstructure:"capture_format"`
	StatusAddr       string        `mapstructure:"status_addr"`
	LogLevel         string        `mapstructure:"log_level"`
}

// New returns a viper instance with defaults and PARLEY_ environment
// overrides. Callers may bind flags into it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("server_url", "http://localhost:5000")
	v.SetDefault("ws_url", "ws://localhost:5000/ws")
	v.SetDefault("session_cookie", "")
	v.SetDefault("user_id", 0)
	v.SetDefault("username", "")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("redial_interval", "2s")
	v.SetDefault("typing_idle", "2s")
	v.SetDefault("typing_expiry", "6s")
	v.SetDefault("search_debounce", "300ms")
	v.SetDefault("capture_command", "arecord -q -f S16_LE -t wav -")
	v.SetDefault("capture_chunk_size", 4096)
	v.SetDefault("capture_format", "wav")
	v.SetDefault("status_addr", "")
	v.SetDefault("log_level", "info")
	return v
}

// Load reads config/config.<CONFIG_ENV>.yaml if present and decodes v.
func Load(v *viper.Viper) (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

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
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Str("server", cfg.ServerURL).
		Str("ws", cfg.WSURL).
		Str("status_addr", cfg.StatusAddr).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("server_url %q: want http(s) url", c.ServerURL))
	}
	if u, err := url.Parse(c.WSURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		errs = append(errs, fmt.Errorf("ws_url %q: want ws(s) url", c.WSURL))
	}
	for name, d := range map[string]time.Duration{
		"ping_period":     c.PingPeriod,
		"write_wait":      c.WriteWait,
		"redial_interval": c.RedialInterval,
		"typing_idle":     c.TypingIdle,
		"typing_expiry":   c.TypingExpiry,
		"search_debounce": c.SearchDebounce,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	switch c.CaptureFormat {
	case "wav", "webm", "ogg":
	default:
		errs = append(errs, fmt.Errorf("capture_format %q: want wav, webm or ogg", c.CaptureFormat))
	}
	if c.ReadLimit <= 0 {
		errs = append(errs, errors.New("read_limit must be positive"))
	}
	return errors.Join(errs...)
}
