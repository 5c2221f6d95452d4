package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Game      GameConfig      `mapstructure:"game"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port               int    `mapstructure:"port"`
	ReadTimeout        int    `mapstructure:"read_timeout"`
	WriteTimeout       int    `mapstructure:"write_timeout"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
	AllowedOrigins     string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// GameConfig holds the rules of the hunt.
type GameConfig struct {
	DistanceMeters      float64 `mapstructure:"distance_meters"`
	NearbyRadiusMeters  float64 `mapstructure:"nearby_radius_meters"`
	PointsPerFind       int     `mapstructure:"points_per_find"`
	SyncIntervalSeconds int     `mapstructure:"sync_interval_seconds"`
	TeamCacheTTLSeconds int     `mapstructure:"team_cache_ttl_seconds"`
	TeamLookupTimeoutMs int     `mapstructure:"team_lookup_timeout_ms"`
}

func (g GameConfig) SyncInterval() time.Duration {
	return time.Duration(g.SyncIntervalSeconds) * time.Second
}

func (g GameConfig) TeamLookupTimeout() time.Duration {
	return time.Duration(g.TeamLookupTimeoutMs) * time.Millisecond
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	BufferSize int    `mapstructure:"buffer_size"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.rate_limit_per_minute", 600)
	v.SetDefault("server.allowed_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mirage")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "mirage")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "mirage-scoring")
	v.SetDefault("game.distance_meters", 50.0)
	v.SetDefault("game.nearby_radius_meters", 600.0)
	v.SetDefault("game.points_per_find", 100)
	v.SetDefault("game.sync_interval_seconds", 15)
	v.SetDefault("game.team_cache_ttl_seconds", 30)
	v.SetDefault("game.team_lookup_timeout_ms", 1500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.buffer_size", 500)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: MIRAGE_DATABASE_HOST → database.host
	v.SetEnvPrefix("MIRAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names kept from the original deployment.
	_ = v.BindEnv("game.distance_meters", "MIRAGE_GAME_DISTANCE_METERS", "DISTANCE_METERS")
	_ = v.BindEnv("log.level", "MIRAGE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("server.port", "MIRAGE_SERVER_PORT", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, "server.rate_limit_per_minute must not be negative (0 disables limiting)")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	if c.Game.DistanceMeters <= 0 {
		errs = append(errs, fmt.Sprintf("game.distance_meters must be positive, got %v", c.Game.DistanceMeters))
	}
	if c.Game.NearbyRadiusMeters <= 0 {
		errs = append(errs, "game.nearby_radius_meters must be positive")
	}
	if c.Game.PointsPerFind < 0 {
		errs = append(errs, "game.points_per_find must not be negative")
	}
	if c.Game.SyncIntervalSeconds <= 0 {
		errs = append(errs, "game.sync_interval_seconds must be positive")
	}
	if c.Game.TeamLookupTimeoutMs <= 0 {
		errs = append(errs, "game.team_lookup_timeout_ms must be positive")
	}
	if c.Log.BufferSize <= 0 {
		errs = append(errs, "log.buffer_size must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
