package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Match   MatchConfig   `mapstructure:"match"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Logging LoggingConfig `mapstructure:"logging"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

// HTTPConfig configures the websocket and room listing listener.
type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer   int           `mapstructure:"send_buffer"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// GRPCConfig configures the admin health listener.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// MatchConfig tunes every match the registry starts.
type MatchConfig struct {
	GracePeriod  time.Duration `mapstructure:"grace_period"`
	AIThinkDelay time.Duration `mapstructure:"ai_think_delay"`
	LogLimit     int           `mapstructure:"log_limit"`
	// Seed fixes shuffles for reproducible matches. 0 seeds from the clock.
	Seed         int64 `mapstructure:"seed"`
	ReplayFrames int   `mapstructure:"replay_frames"`
}

type CatalogConfig struct {
	Path        string `mapstructure:"path"`
	DefaultDeck string `mapstructure:"default_deck"`
}

// LoggingConfig controls logger level and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ArchiveConfig selects where finished matches are stored.
type ArchiveConfig struct {
	Driver  string        `mapstructure:"driver"`
	DSN     string        `mapstructure:"dsn"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Archive drivers.
const (
	ArchiveMemory   = "memory"
	ArchiveSQLite   = "sqlite"
	ArchivePostgres = "postgres"
)

// Load reads configuration from path, then applies TCG_* environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TCG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.http.allowed_origins", []string{"*"})
	v.SetDefault("server.http.read_timeout", 15*time.Second)
	v.SetDefault("server.http.write_timeout", 15*time.Second)
	v.SetDefault("server.http.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.http.send_buffer", 64)
	v.SetDefault("server.http.ping_interval", 30*time.Second)
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)

	v.SetDefault("match.grace_period", 60*time.Second)
	v.SetDefault("match.ai_think_delay", 800*time.Millisecond)
	v.SetDefault("match.log_limit", 50)
	v.SetDefault("match.seed", 0)
	v.SetDefault("match.replay_frames", 500)

	v.SetDefault("catalog.path", "config/catalog.yaml")
	v.SetDefault("catalog.default_deck", "starter")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("archive.driver", ArchiveMemory)
	v.SetDefault("archive.dsn", "")
	v.SetDefault("archive.timeout", 10*time.Second)
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Archive.Driver {
	case ArchiveMemory:
	case ArchiveSQLite, ArchivePostgres:
		if c.Archive.DSN == "" {
			return fmt.Errorf("archive driver %q requires archive.dsn", c.Archive.Driver)
		}
	default:
		return fmt.Errorf("unknown archive driver %q", c.Archive.Driver)
	}
	if c.Match.GracePeriod <= 0 {
		return fmt.Errorf("match.grace_period must be positive, got %s", c.Match.GracePeriod)
	}
	if c.Match.AIThinkDelay < 0 {
		return fmt.Errorf("match.ai_think_delay must not be negative, got %s", c.Match.AIThinkDelay)
	}
	if c.Server.HTTP.SendBuffer <= 0 {
		return fmt.Errorf("server.http.send_buffer must be positive, got %d", c.Server.HTTP.SendBuffer)
	}
	return nil
}
