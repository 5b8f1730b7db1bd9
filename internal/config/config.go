package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"ganttline/internal/timeindex"
)

// Config models ganttline.yml.
type Config struct {
	Chart struct {
		Granularity string `yaml:"granularity"`
		NewSchedule bool   `yaml:"new_schedule"`
		Timezone    string `yaml:"timezone"`
		Seed        string `yaml:"seed"`
	} `yaml:"chart"`
	Viewport struct {
		Width      float64 `yaml:"width"`
		Height     float64 `yaml:"height"`
		RowHeight  float64 `yaml:"row_height"`
		HeaderRows int     `yaml:"header_rows"`
	} `yaml:"viewport"`
	Columns     map[string]Column `yaml:"columns"`
	Interaction struct {
		MinInteractiveWidth float64 `yaml:"min_interactive_width"`
		HoverThreshold      float64 `yaml:"hover_threshold"`
		EndpointMargin      float64 `yaml:"endpoint_margin"`
	} `yaml:"interaction"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig posts journaled change events to an external URL.
type WebhookConfig struct {
	URL string `yaml:"url"`
	// Events limits delivery to these event types; empty means all.
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Active reports whether the hook should receive deliveries.
func (w WebhookConfig) Active() bool {
	return strings.TrimSpace(w.URL) != "" && (w.Enabled == nil || *w.Enabled)
}

// Column is the grid geometry for one granularity.
type Column struct {
	Width  float64 `yaml:"width"`
	Buffer int     `yaml:"buffer"`
	// Scale feeds the zoom heuristic: the horizontal scroll offset is multiplied
	// by new.Scale/old.Scale on a granularity change.
	Scale float64 `yaml:"scale"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with ganttline config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if _, err := timeindex.Parse(c.Chart.Granularity); err != nil {
		return fmt.Errorf("config.chart.granularity: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Viewport.Width < 0 || c.Viewport.Height < 0 {
		return fmt.Errorf("config.viewport size must not be negative")
	}
	if c.Viewport.RowHeight <= 0 {
		return fmt.Errorf("config.viewport.row_height must be positive")
	}
	if c.Viewport.HeaderRows < 0 {
		return fmt.Errorf("config.viewport.header_rows must not be negative")
	}
	for _, g := range timeindex.All {
		col, ok := c.Columns[string(g)]
		if !ok {
			return fmt.Errorf("config.columns.%s is required", g)
		}
		if col.Width <= 0 {
			return fmt.Errorf("config.columns.%s.width must be positive", g)
		}
		if col.Buffer < 0 {
			return fmt.Errorf("config.columns.%s.buffer must not be negative", g)
		}
		if col.Scale <= 0 {
			return fmt.Errorf("config.columns.%s.scale must be positive", g)
		}
	}
	for name := range c.Columns {
		if !timeindex.Granularity(name).IsValid() {
			return fmt.Errorf("config.columns has unknown granularity %s", name)
		}
	}
	if c.Interaction.MinInteractiveWidth < 0 || c.Interaction.HoverThreshold <= 0 || c.Interaction.EndpointMargin < 0 {
		return fmt.Errorf("config.interaction thresholds must be positive")
	}
	if c.Server.BasePath != "" && c.Server.BasePath[0] != '/' {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	for i, w := range c.Webhooks {
		if !strings.HasPrefix(w.URL, "http://") && !strings.HasPrefix(w.URL, "https://") {
			return fmt.Errorf("config.webhooks[%d].url must be an http(s) URL", i)
		}
		if w.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// Granularity returns the configured starting zoom level.
func (c *Config) Granularity() timeindex.Granularity {
	return timeindex.Granularity(c.Chart.Granularity)
}

// Column returns the geometry for g.
func (c *Config) Column(g timeindex.Granularity) Column {
	return c.Columns[string(g)]
}

// Location resolves chart.timezone; empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Chart.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Chart.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config.chart.timezone: %w", err)
	}
	return loc, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "ganttline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Sections missing
// from data keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `chart:
  granularity: days
  new_schedule: false
  timezone: UTC
  seed: ""

viewport:
  width: 1280
  height: 720
  row_height: 32
  header_rows: 2

columns:
  hours:
    width: 24
    buffer: 100
    scale: 24
  days:
    width: 48
    buffer: 10
    scale: 1
  weeks:
    width: 192
    buffer: 5
    scale: 1
  months:
    width: 576
    buffer: 5
    scale: 1

interaction:
  min_interactive_width: 32
  hover_threshold: 5
  endpoint_margin: 5

server:
  addr: 127.0.0.1:8080
  base_path: /v0

# webhooks:
#   - url: https://example.com/hooks/ganttline
#     events: [task.updated, dependency.added]
#     timeout_seconds: 5
webhooks: []
`
