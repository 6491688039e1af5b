package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
)

// Config holds runtime configuration values for the portal API.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	Timezone               string
	AllowOrigins           string
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	NotificationChannel    string
	JWTSecret              string
	JWTTTL                 time.Duration
	DashboardCacheTTL      time.Duration
	SSEKeepAlive           time.Duration
	LoginRateLimit         int
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	SeedEnabled            bool
	SeedToken              string
	MetricsToken           string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Location returns the time zone used to interpret date-only inputs.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "Course Portal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("database.driver", DatabaseDriverPostgres)
	v.SetDefault("notifications.channel", "portal")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("sse.keepalive", "30s")
	v.SetDefault("login.rate_limit", 10)
	v.SetDefault("cloudinary.folder", "portal/teachers")
	v.SetDefault("seed.enabled", false)

	jwtTTL, err := duration(v, "jwt.ttl")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := duration(v, "dashboard.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := duration(v, "sse.keepalive")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		Timezone:               v.GetString("app.timezone"),
		AllowOrigins:           v.GetString("cors.allow_origins"),
		DatabaseDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		NotificationChannel:    v.GetString("notifications.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 jwtTTL,
		DashboardCacheTTL:      cacheTTL,
		SSEKeepAlive:           keepAlive,
		LoginRateLimit:         v.GetInt("login.rate_limit"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
		MetricsToken:           v.GetString("metrics.token"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case DatabaseDriverPostgres, DatabaseDriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("invalid app timezone %q: %w", cfg.Timezone, err)
	}

	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}
