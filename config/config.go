// Package config provides configuration loading and access for the
// simulation driver.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Grid      GridConfig      `yaml:"grid"`
	Solver    SolverConfig    `yaml:"solver"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Scene     SceneConfig     `yaml:"scene"`

	// Derived values computed after loading.
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the simulation domain bounds.
type WorldConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	Depth      float64 `yaml:"depth"`
	Dimensions int     `yaml:"dimensions"` // 1, 2, or 3
}

// PhysicsConfig holds parameters shared by every loaded scheme.
type PhysicsConfig struct {
	DT             float64 `yaml:"dt"`
	SmoothingScale float64 `yaml:"smoothing_scale"` // h
	RestDensity    float64 `yaml:"rest_density"`     // rho0
}

// GridConfig holds neighborhood grid parameters.
type GridConfig struct {
	Radius float64 `yaml:"radius"`
}

// SolverConfig holds PCG solver defaults.
type SolverConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
}

// TelemetryConfig holds trace/log output parameters.
type TelemetryConfig struct {
	OutputDir   string `yaml:"output_dir"`
	CSVTrace    bool   `yaml:"csv_trace"`
	LogInterval int    `yaml:"log_interval"` // ticks, 0 = disabled
	PerfWindow  int    `yaml:"perf_window"`
	WindowTicks int     `yaml:"window_ticks"` // ticks per telemetry.Collector flush
	HistorySize int     `yaml:"history_size"` // bookmark detector rolling window count

	// Field names a scheme's groups declarations bind its per-particle
	// quantities to. The runtime treats schemes as black boxes (spec
	// non-goal), so telemetry cannot assume an alias; these let a scene
	// tell the collector which varying fields to sample each tick.
	DensityField  string `yaml:"density_field"`
	PressureField string `yaml:"pressure_field"`
	VelocityField string `yaml:"velocity_field"`
	MassField     string `yaml:"mass_field"`
}

// ViewerConfig holds cmd/prtclview display parameters.
type ViewerConfig struct {
	Width          int `yaml:"width"`
	Height         int `yaml:"height"`
	TargetFPS      int `yaml:"target_fps"`
	TracerMaxSteps int `yaml:"tracer_max_steps"`
}

// GroupSeed describes one initial group to populate via a source.
type GroupSeed struct {
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type"`
	Tags     []string  `yaml:"tags"`
	Center   []float64 `yaml:"center"`
	Normal   []float64 `yaml:"normal"`
	Velocity []float64 `yaml:"velocity"`
	Radius   float64   `yaml:"radius"`
	Budget   int       `yaml:"budget"`
	Jitter   float64   `yaml:"jitter"`
}

// SchemeConfig names one .prtcl file to compile and the procedures
// from it the driver's main loop invokes every tick, in order.
type SchemeConfig struct {
	Source     string   `yaml:"source"`
	Name       string   `yaml:"name"` // scheme block to select; empty picks the first
	Procedures []string `yaml:"procedures"`
}

// SceneConfig describes the schemes and seeds a scene run loads.
type SceneConfig struct {
	Schemes []SchemeConfig `yaml:"schemes"`
	Seeds   []GroupSeed    `yaml:"seeds"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	DT32    float32
	Radius2 float64
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded
// defaults if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// WriteYAML saves the configuration to path, for reproducing a run.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// computeDerived calculates values derived from the loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.Radius2 = c.Grid.Radius * c.Grid.Radius
}
