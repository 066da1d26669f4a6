package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/exapitools/npcinv/internal/layout"
)

const appDir = "npcinv"

const (
	defaultRuleExtension   = ".ifl"
	defaultSnapshotTTLMs   = 50
	defaultFrameIntervalMs = 50
	defaultFrameThickness  = 1
	defaultDimmedAlpha     = 45
	defaultListingOffset   = 15
	defaultListingPadding  = 10
)

var (
	defaultFrameColor = layout.Color{R: 255, G: 255, B: 255, A: 255}
	defaultBoxColor   = layout.Color{A: 150}
	defaultTextColor  = layout.Color{R: 255, G: 255, B: 255, A: 230}
)

// Config is the top-level configuration document.
type Config struct {
	RuleDir         string  `yaml:"ruleDir"`
	RuleExtension   string  `yaml:"ruleExtension"`
	CatalogPath     string  `yaml:"catalogPath"`
	HostStatePath   string  `yaml:"hostStatePath"`
	SnapshotTTLMs   int     `yaml:"snapshotTTLMs"`
	FrameIntervalMs int     `yaml:"frameIntervalMs"`
	Frame           Frame   `yaml:"frame"`
	Listing         Listing `yaml:"listing"`
	FilterTest      string  `yaml:"filterTest"`
	LogLevel        string  `yaml:"logLevel"`
	DisableMetrics  bool    `yaml:"disableMetrics"`
}

// Frame styles the highlight around matching items in the visible tab.
type Frame struct {
	Color       *layout.Color `yaml:"color"`
	Thickness   *int          `yaml:"thickness"`
	DimmedAlpha *uint8        `yaml:"dimmedAlpha"`
}

// Listing styles the missed-items box drawn next to the trade window.
type Listing struct {
	Offset    *float64      `yaml:"offset"`
	Padding   *float64      `yaml:"padding"`
	BoxColor  *layout.Color `yaml:"boxColor"`
	TextColor *layout.Color `yaml:"textColor"`
}

// UnmarshalYAML accepts the deprecated cacheMs key as an alias for snapshotTTLMs.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		RuleDir         string  `yaml:"ruleDir"`
		RuleExtension   string  `yaml:"ruleExtension"`
		CatalogPath     string  `yaml:"catalogPath"`
		HostStatePath   string  `yaml:"hostStatePath"`
		SnapshotTTLMs   *int    `yaml:"snapshotTTLMs"`
		LegacyCacheMs   *int    `yaml:"cacheMs"`
		FrameIntervalMs int     `yaml:"frameIntervalMs"`
		Frame           Frame   `yaml:"frame"`
		Listing         Listing `yaml:"listing"`
		FilterTest      string  `yaml:"filterTest"`
		LogLevel        string  `yaml:"logLevel"`
		DisableMetrics  bool    `yaml:"disableMetrics"`
	}

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.RuleDir = raw.RuleDir
	c.RuleExtension = raw.RuleExtension
	c.CatalogPath = raw.CatalogPath
	c.HostStatePath = raw.HostStatePath
	c.FrameIntervalMs = raw.FrameIntervalMs
	c.Frame = raw.Frame
	c.Listing = raw.Listing
	c.FilterTest = raw.FilterTest
	c.LogLevel = raw.LogLevel
	c.DisableMetrics = raw.DisableMetrics

	switch {
	case raw.SnapshotTTLMs != nil:
		c.SnapshotTTLMs = *raw.SnapshotTTLMs
	case raw.LegacyCacheMs != nil:
		c.SnapshotTTLMs = *raw.LegacyCacheMs
	default:
		c.SnapshotTTLMs = 0
	}
	return nil
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appDir, "config.yaml")
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates a configuration file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills unset fields. Style fields are pointers so an explicit
// zero is kept; a zero snapshotTTLMs or frameIntervalMs means the default.
func (c *Config) applyDefaults() {
	if c.RuleDir == "" {
		c.RuleDir = filepath.Join(xdg.ConfigHome, appDir, "rules")
	}
	if c.RuleExtension == "" {
		c.RuleExtension = defaultRuleExtension
	}
	if c.CatalogPath == "" {
		c.CatalogPath = filepath.Join(xdg.StateHome, appDir, "catalog.yaml")
	}
	if c.SnapshotTTLMs == 0 {
		c.SnapshotTTLMs = defaultSnapshotTTLMs
	}
	if c.FrameIntervalMs == 0 {
		c.FrameIntervalMs = defaultFrameIntervalMs
	}
	if c.Frame.Color == nil {
		color := defaultFrameColor
		c.Frame.Color = &color
	}
	if c.Frame.Thickness == nil {
		thickness := defaultFrameThickness
		c.Frame.Thickness = &thickness
	}
	if c.Frame.DimmedAlpha == nil {
		alpha := uint8(defaultDimmedAlpha)
		c.Frame.DimmedAlpha = &alpha
	}
	if c.Listing.Offset == nil {
		offset := float64(defaultListingOffset)
		c.Listing.Offset = &offset
	}
	if c.Listing.Padding == nil {
		padding := float64(defaultListingPadding)
		c.Listing.Padding = &padding
	}
	if c.Listing.BoxColor == nil {
		color := defaultBoxColor
		c.Listing.BoxColor = &color
	}
	if c.Listing.TextColor == nil {
		color := defaultTextColor
		c.Listing.TextColor = &color
	}
}

// Validate performs basic sanity checks.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.RuleExtension, ".") || len(c.RuleExtension) < 2 {
		return fmt.Errorf("ruleExtension must start with a dot, got %q", c.RuleExtension)
	}
	if c.SnapshotTTLMs < 0 {
		return fmt.Errorf("snapshotTTLMs cannot be negative")
	}
	if c.FrameIntervalMs < 0 {
		return fmt.Errorf("frameIntervalMs cannot be negative")
	}
	if *c.Frame.Thickness < 0 {
		return fmt.Errorf("frame.thickness cannot be negative")
	}
	if *c.Listing.Offset < 0 {
		return fmt.Errorf("listing.offset cannot be negative")
	}
	if *c.Listing.Padding < 0 {
		return fmt.Errorf("listing.padding cannot be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logLevel %q", c.LogLevel)
	}
	return nil
}

// SnapshotTTL returns the snapshot refresh interval.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLMs) * time.Millisecond
}

// FrameInterval returns the render loop period.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

// Marshal serializes the configuration for diffing.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
