package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/var/lib/ranstat"

[server]
addr = "127.0.0.1:8080"
shutdown_timeout_seconds = 30

[retention]
hourly_days = 90
weekly_days = 730

[events]
kafka_brokers = ["k1:9092", "k2:9092"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ranstat", cfg.DataDir)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.GracefulShutdownTimeout())
	assert.Equal(t, 256, cfg.Server.MaxUploadMB, "untouched keys keep their default")
	assert.Equal(t, 90, cfg.Retention.HourlyDays)
	assert.Equal(t, 730, cfg.Retention.WeeklyDays)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, "ranstat.imports", cfg.Events.KafkaTopic)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("addr = [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"RANSTAT_DATA_DIR":      "/data",
		"RANSTAT_DSN":           "mysql://u:p@tcp(db:3306)/ranstat",
		"RANSTAT_ADDR":          ":9000",
		"RANSTAT_KAFKA_BROKERS": " k1:9092 , ,k2:9092",
		"RANSTAT_AMQP_URL":      "amqp://guest:guest@mq:5672/",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, "mysql://u:p@tcp(db:3306)/ranstat", cfg.Database.DSN)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.Events.AMQPURL)
	assert.Equal(t, "/data/ranstat.db", cfg.DBPath())
	assert.Equal(t, "/data/ranstat.log", cfg.LogPath())
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":9880", cfg.Server.Addr)
	assert.Equal(t, time.Hour, cfg.Retention.Interval())
	assert.NotEmpty(t, cfg.DataDir)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative hourly retention", func(c *Config) { c.Retention.HourlyDays = -1 }},
		{"negative weekly retention", func(c *Config) { c.Retention.WeeklyDays = -1 }},
		{"negative cache", func(c *Config) { c.Database.CacheEntries = -5 }},
		{"negative publish retries", func(c *Config) { c.Events.PublishRetries = -1 }},
		{"bad amqp scheme", func(c *Config) { c.Events.AMQPURL = "http://mq" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	cfg := Default()
	cfg.Retention.HourlyDays = 30
	cfg.Events.KafkaBrokers = []string{"k1:9092"}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
