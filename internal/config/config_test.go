package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, "Course Portal API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, DatabaseDriverPostgres, cfg.DatabaseDriver)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Equal(t, 5*time.Minute, cfg.DashboardCacheTTL)
	require.Equal(t, 30*time.Second, cfg.SSEKeepAlive)
	require.Equal(t, 10, cfg.LoginRateLimit)
	require.Equal(t, "portal", cfg.NotificationChannel)
	require.Equal(t, "portal/teachers", cfg.CloudinaryUploadFolder)
}

func TestFromViperRequiresSecret(t *testing.T) {
	_, err := fromViper(viper.New())
	require.Error(t, err)
}

func TestFromViperRejectsMalformedDuration(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("dashboard.cache_ttl", "soon")

	_, err := fromViper(v)
	require.ErrorContains(t, err, "dashboard.cache_ttl")
}

func TestFromViperRejectsUnknownDriver(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("database.driver", "oracle")

	_, err := fromViper(v)
	require.Error(t, err)
}

func TestHTTPAddressKeepsColon(t *testing.T) {
	require.Equal(t, ":9000", Config{AppPort: ":9000"}.HTTPAddress())
}

func TestFromViperTimezone(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, time.UTC, cfg.Location())
	require.Equal(t, "*", cfg.AllowOrigins)

	v.Set("app.timezone", "Mars/Olympus")
	_, err = fromViper(v)
	require.ErrorContains(t, err, "timezone")
}
