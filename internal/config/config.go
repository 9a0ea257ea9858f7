package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/awsl-project/ranstat/internal/events"
)

const (
	FileName   = "ranstat.toml"
	DBFileName = "ranstat.db"
	LogFile    = "ranstat.log"
)

type ServerConfig struct {
	Addr string `toml:"addr"`
	// 上传文件大小上限 (MB)
	MaxUploadMB     int      `toml:"max_upload_mb"`
	ShutdownSeconds int      `toml:"shutdown_timeout_seconds"`
	CORSOrigins     []string `toml:"cors_origins,omitempty"`
}

// GracefulShutdownTimeout bounds the wait for in-flight imports on shutdown.
func (s ServerConfig) GracefulShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownSeconds) * time.Second
}

type DatabaseConfig struct {
	// 为空时使用 <data_dir>/ranstat.db
	DSN string `toml:"dsn,omitempty"`
	// 查询缓存条目数，0 关闭缓存
	CacheEntries int `toml:"cache_entries"`
}

type RetentionConfig struct {
	HourlyDays      int `toml:"hourly_days"`
	WeeklyDays      int `toml:"weekly_days"`
	IntervalMinutes int `toml:"interval_minutes"`
}

func (r RetentionConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DebugConfig pprof 只监听 localhost
type DebugConfig struct {
	PprofEnabled  bool   `toml:"pprof_enabled"`
	PprofPort     int    `toml:"pprof_port"`
	PprofPassword string `toml:"pprof_password,omitempty"`
}

// Config 服务配置，优先级：命令行 > 环境变量 > 配置文件 > 默认值
type Config struct {
	DataDir   string          `toml:"data_dir"`
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Retention RetentionConfig `toml:"retention"`
	Events    events.Config   `toml:"events"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Debug     DebugConfig     `toml:"debug"`
}

// DefaultDataDir returns ~/.config/ranstat, or "." when the home dir is unavailable.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ranstat")
}

func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Server: ServerConfig{
			Addr:            ":9880",
			MaxUploadMB:     256,
			ShutdownSeconds: 120,
		},
		Database: DatabaseConfig{
			CacheEntries: 256,
		},
		Retention: RetentionConfig{
			HourlyDays:      0,
			WeeklyDays:      0,
			IntervalMinutes: 60,
		},
		Events: events.Config{
			KafkaTopic:     events.DefaultKafkaTopic,
			AMQPExchange:   events.DefaultAMQPExchange,
			PublishRetries: 2,
		},
		Metrics: MetricsConfig{Enabled: true},
		Debug:   DebugConfig{PprofPort: 6060},
	}
}

// Path returns the config file location inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from RANSTAT_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("RANSTAT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("RANSTAT_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("RANSTAT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("RANSTAT_KAFKA_BROKERS"); v != "" {
		c.Events.KafkaBrokers = splitList(v)
	}
	if v := getenv("RANSTAT_AMQP_URL"); v != "" {
		c.Events.AMQPURL = v
	}
}

func (c *Config) Normalize() {
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.Addr == "" {
		c.Server.Addr = ":9880"
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 256
	}
	if c.Server.ShutdownSeconds <= 0 {
		c.Server.ShutdownSeconds = 120
	}
	if c.Retention.IntervalMinutes <= 0 {
		c.Retention.IntervalMinutes = 60
	}
	c.Events.KafkaBrokers = splitList(strings.Join(c.Events.KafkaBrokers, ","))
	if c.Events.KafkaTopic == "" {
		c.Events.KafkaTopic = events.DefaultKafkaTopic
	}
	if c.Events.AMQPExchange == "" {
		c.Events.AMQPExchange = events.DefaultAMQPExchange
	}
}

func (c *Config) Validate() error {
	if c.Retention.HourlyDays < 0 {
		return fmt.Errorf("retention.hourly_days cannot be negative: %d", c.Retention.HourlyDays)
	}
	if c.Retention.WeeklyDays < 0 {
		return fmt.Errorf("retention.weekly_days cannot be negative: %d", c.Retention.WeeklyDays)
	}
	if c.Events.PublishRetries < 0 {
		return fmt.Errorf("events.publish_retries cannot be negative: %d", c.Events.PublishRetries)
	}
	if c.Database.CacheEntries < 0 {
		return fmt.Errorf("database.cache_entries cannot be negative: %d", c.Database.CacheEntries)
	}
	if u := c.Events.AMQPURL; u != "" && !strings.HasPrefix(u, "amqp://") && !strings.HasPrefix(u, "amqps://") {
		return fmt.Errorf("events.amqp_url must start with amqp:// or amqps://")
	}
	return nil
}

// DBPath is the default SQLite file used when no DSN is configured.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFileName)
}

func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, LogFile)
}

// Save writes c to path atomically.
func Save(path string, c *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
