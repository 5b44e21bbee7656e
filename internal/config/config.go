package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/app/orch"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "PAIR"

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	Secret     string        `mapstructure:"secret"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`

	SessionDuration time.Duration `mapstructure:"session_duration"`
	TurnDuration    time.Duration `mapstructure:"turn_duration"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	ReconnectWindow time.Duration `mapstructure:"reconnect_window"`
	CopyWindow      time.Duration `mapstructure:"copy_window"`
	DeletionBuffer  time.Duration `mapstructure:"deletion_buffer"`
	IdleExpiry      time.Duration `mapstructure:"idle_expiry"`
	DefaultLanguage string        `mapstructure:"default_language"`

	CreateRateLimit    int           `mapstructure:"create_rate_limit"`
	CreateRateInterval time.Duration `mapstructure:"create_rate_interval"`

	NatsURL     string `mapstructure:"nats_url"`
	NatsSubject string `mapstructure:"nats_subject"`

	SocketIOEnabled bool     `mapstructure:"socketio_enabled"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). A missing file
// is not an error: defaults and PAIR_* environment variables still apply.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Dur("session", cfg.SessionDuration).Dur("turn", cfg.TurnDuration).
		Bool("socketio", cfg.SocketIOEnabled).Bool("nats", cfg.NatsURL != "").Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 3001)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "pair-dev-secret")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "25s")
	v.SetDefault("send_buffer", 64)

	v.SetDefault("session_duration", "10m")
	v.SetDefault("turn_duration", "2m")
	v.SetDefault("tick_interval", "1s")
	v.SetDefault("reconnect_window", "30s")
	v.SetDefault("copy_window", "8s")
	v.SetDefault("deletion_buffer", "1s")
	v.SetDefault("idle_expiry", "13m")
	v.SetDefault("default_language", "javascript")

	v.SetDefault("create_rate_limit", 10)
	v.SetDefault("create_rate_interval", "1m")

	v.SetDefault("nats_url", "")
	v.SetDefault("nats_subject", "pair.sessions")

	v.SetDefault("socketio_enabled", true)
	v.SetDefault("allowed_origins", []string{"*"})
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.TickInterval <= 0:
		return fmt.Errorf("tick_interval must be positive")
	case c.SessionDuration <= 0 || c.TurnDuration <= 0:
		return fmt.Errorf("session_duration and turn_duration must be positive")
	case c.ReconnectWindow <= 0 || c.CopyWindow <= 0 || c.IdleExpiry <= 0:
		return fmt.Errorf("reconnect_window, copy_window and idle_expiry must be positive")
	case c.DeletionBuffer < 0:
		return fmt.Errorf("deletion_buffer must not be negative")
	case c.SendBuffer <= 0:
		return fmt.Errorf("send_buffer must be positive")
	}
	return nil
}

// Level maps log_level to a zerolog level, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) RoomDefaults() app.RoomDefaults {
	return app.RoomDefaults{
		SessionDuration: c.SessionDuration,
		TurnDuration:    c.TurnDuration,
		IdleExpiry:      c.IdleExpiry,
		Language:        c.DefaultLanguage,
	}
}

func (c *Config) Timing() orch.Timing {
	return orch.Timing{
		Tick:            c.TickInterval,
		ReconnectWindow: c.ReconnectWindow,
		CopyWindow:      c.CopyWindow,
		DeletionBuffer:  c.DeletionBuffer,
	}
}
