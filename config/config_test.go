package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse()

	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, "sqlite3", c.Database.Driver)
	assert.Equal(t, time.Second, c.Outbox.PollInterval)
	assert.Equal(t, 10*time.Minute, c.CacheTTL)
	assert.Equal(t, []string{"*"}, c.HTTP.CORSOrigins)

	cal, err := c.HolidayCalendar()
	require.NoError(t, err)
	assert.IsType(t, generic.NoHolidays{}, cal)
}

func TestParse_PrefixedKeys(t *testing.T) {
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_DSN", "postgres://leave@localhost/leave")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "3")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LEAVE_HOLIDAYS", "2026-12-25, 2026-12-28")

	c, err := Parse()

	require.NoError(t, err)
	assert.Equal(t, "pgx", c.Database.Driver)
	assert.Equal(t, 3, c.Outbox.MaxAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.HTTP.CORSOrigins)

	cal, err := c.HolidayCalendar()
	require.NoError(t, err)
	assert.True(t, cal.IsHoliday(generic.MustDate("2026-12-28")))
	assert.False(t, cal.IsHoliday(generic.MustDate("2026-12-29")))
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"bad batch size", map[string]string{"OUTBOX_BATCH_SIZE": "0"}},
		{"calendar without shared id", map[string]string{"CALENDAR_ENABLED": "true"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"bad holiday", map[string]string{"LEAVE_HOLIDAYS": "25/12/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("HTTP_ADDR=:9999\n"), 0o600))
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")

	c, err := Load(file, filepath.Join(dir, ".env.local"))

	require.NoError(t, err)
	assert.Equal(t, ":9999", c.HTTP.Addr)
}
