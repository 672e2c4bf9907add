// Package config loads pixelflutd's YAML configuration, following the
// teacher's Default()/Load()/Validate() shape.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete pixelflutd configuration.
type Config struct {
	Canvas      CanvasConfig      `yaml:"canvas"`
	Ingress     IngressConfig     `yaml:"ingress"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Admin       AdminConfig       `yaml:"admin"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Logging     LogConfig         `yaml:"logging"`
}

// CanvasConfig holds the configured canvas dimensions. They do not size
// the grid: serve takes the grid from persistence.Load (the snapshot's
// own size, or canvas.DefaultWidth x canvas.DefaultHeight when none
// loads) and only logs when its size differs from these values.
type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// IngressConfig configures TcpIngress, the pixel-flood listener.
type IngressConfig struct {
	Address string `yaml:"address"`
}

// GatewayConfig configures RenderGateway, the viewer listener.
type GatewayConfig struct {
	Address    string `yaml:"address"`
	MaxViewers int    `yaml:"max_viewers"` // 0 = unbounded
}

// AdminConfig configures the net/http observability surface.
type AdminConfig struct {
	Address     string `yaml:"address"`
	MetricsPath string `yaml:"metrics_path"`
}

// PersistenceConfig configures the QOI snapshot load/save shim.
type PersistenceConfig struct {
	Path         string   `yaml:"path"`
	SaveInterval Duration `yaml:"save_interval"`
	QueueDepth   int      `yaml:"queue_depth"`
}

// LogConfig mirrors the teacher's LogConfig shape verbatim.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a time.Duration that supports YAML string unmarshaling,
// kept from the teacher's config package unchanged.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads config from a YAML file, applying defaults for missing
// values, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for invalid values before the process
// binds any socket.
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 {
		return fmt.Errorf("canvas.width must be > 0, got %d", c.Canvas.Width)
	}
	if c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas.height must be > 0, got %d", c.Canvas.Height)
	}
	if c.Ingress.Address == "" {
		return fmt.Errorf("ingress.address is required")
	}
	if c.Gateway.Address == "" {
		return fmt.Errorf("gateway.address is required")
	}
	if c.Gateway.MaxViewers < 0 {
		return fmt.Errorf("gateway.max_viewers must be >= 0, got %d", c.Gateway.MaxViewers)
	}
	if c.Admin.Address == "" {
		return fmt.Errorf("admin.address is required")
	}
	if c.Persistence.Path == "" {
		return fmt.Errorf("persistence.path is required")
	}
	if c.Persistence.QueueDepth <= 0 {
		return fmt.Errorf("persistence.queue_depth must be > 0, got %d", c.Persistence.QueueDepth)
	}
	return nil
}
