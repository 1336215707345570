package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 100.0, cfg.Attendance.DefaultRadius)
	assert.True(t, cfg.Attendance.RequireQR)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.ReminderWindow)
	assert.Equal(t, 30*24*time.Hour, cfg.Scheduler.CleanupAge)
	assert.Equal(t, time.Duration(0), cfg.QR.MaxAge)
	assert.InDelta(t, 0.1, cfg.Scheduler.CapacityAlertRatio, 1e-9)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxIdleTime)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DEFAULT_GEOFENCE_RADIUS", "250")
	t.Setenv("ATTENDANCE_REQUIRE_QR", "false")
	t.Setenv("QR_TOKEN_MAX_AGE", "15m")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("DB_CONN_MAX_LIFETIME", "10m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250.0, cfg.Attendance.DefaultRadius)
	assert.False(t, cfg.Attendance.RequireQR)
	assert.Equal(t, 15*time.Minute, cfg.QR.MaxAge)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}

// chdir switches the working directory for the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
