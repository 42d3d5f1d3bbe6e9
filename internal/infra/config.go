package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// TEMPLATE_MCP_BATCH_WORKERS for batch.workers.
const EnvPrefix = "TEMPLATE_MCP"

// Config is the runtime configuration of the server and CLI.
type Config struct {
	LogLevel  string
	LogFormat string

	MaxFileBytes int64
	MaxPixelArea int64

	MaxCanvasPixels int64

	// AssetRoot confines image references to one directory. Empty allows
	// any path.
	AssetRoot       string
	CacheMaxBytes   int64
	CacheMaxEntries int

	ClusterIterations int
	ClusterStride     int
	ClusterSeed       int64

	BatchWorkers       int
	BatchTargetTimeout time.Duration
}

var defaults = map[string]any{
	"log.level":                "info",
	"log.format":               "json",
	"decode.max_file_bytes":    64 << 20,
	"decode.max_pixel_area":    64 << 20,
	"render.max_canvas_pixels": 40_000_000,
	"assets.root":              "",
	"cache.max_bytes":          256 << 20,
	"cache.max_entries":        128,
	"cluster.iterations":       8,
	"cluster.stride":           4,
	"cluster.seed":             1,
	"batch.workers":            4,
	"batch.target_timeout":     "0s",
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig reads defaults, then the optional YAML file at path, then
// TEMPLATE_MCP_* environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		LogLevel:           v.GetString("log.level"),
		LogFormat:          v.GetString("log.format"),
		MaxFileBytes:       v.GetInt64("decode.max_file_bytes"),
		MaxPixelArea:       v.GetInt64("decode.max_pixel_area"),
		MaxCanvasPixels:    v.GetInt64("render.max_canvas_pixels"),
		AssetRoot:          v.GetString("assets.root"),
		CacheMaxBytes:      v.GetInt64("cache.max_bytes"),
		CacheMaxEntries:    v.GetInt("cache.max_entries"),
		ClusterIterations:  v.GetInt("cluster.iterations"),
		ClusterStride:      v.GetInt("cluster.stride"),
		ClusterSeed:        v.GetInt64("cluster.seed"),
		BatchWorkers:       v.GetInt("batch.workers"),
		BatchTargetTimeout: v.GetDuration("batch.target_timeout"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	positive := map[string]int64{
		"decode.max_file_bytes":    c.MaxFileBytes,
		"decode.max_pixel_area":    c.MaxPixelArea,
		"render.max_canvas_pixels": c.MaxCanvasPixels,
		"cache.max_bytes":          c.CacheMaxBytes,
		"cache.max_entries":        int64(c.CacheMaxEntries),
		"cluster.iterations":       int64(c.ClusterIterations),
		"cluster.stride":           int64(c.ClusterStride),
		"batch.workers":            int64(c.BatchWorkers),
	}
	for k, n := range positive {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", k, n))
		}
	}
	if c.BatchTargetTimeout < 0 {
		errs = append(errs, fmt.Errorf("batch.target_timeout must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
