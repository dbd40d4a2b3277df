// Package config resolves the runtime configuration from three layers:
// built-in defaults, an optional blackhole.toml next to the binary, and
// command line flags. Flags win over the file, the file wins over defaults.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the TOML file probed in the working directory when no
// -config flag is given.
const DefaultFileName = "blackhole.toml"

// Window holds the initial window parameters.
type Window struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

// Hole describes the central singularity.
type Hole struct {
	// MassSolar is the black hole mass in solar masses.
	MassSolar float64 `toml:"mass_solar"`

	// HorizonRadius is the event horizon radius in world units; the SI
	// Schwarzschild radius is scaled down to it.
	HorizonRadius float64 `toml:"horizon_radius"`

	// Mass is the gravitational parameter driving particle orbits, in world
	// units (so orbital speed at radius r is sqrt(Mass/r)).
	Mass float64 `toml:"mass"`
}

// Disk configures the particle accretion disk.
type Disk struct {
	Count       int     `toml:"count"`
	InnerRadius float64 `toml:"inner_radius"`
	OuterRadius float64 `toml:"outer_radius"`
	Thickness   float64 `toml:"thickness"`
	Seed        int64   `toml:"seed"`
}

// March tunes the ray-march pass.
type March struct {
	DistortionPower float64 `toml:"distortion_power"`
	MaxSteps        int     `toml:"max_steps"`
	BaseStep        float64 `toml:"base_step"`
	MaxDistance     float64 `toml:"max_distance"`
}

// Config is the full resolved configuration.
type Config struct {
	Window Window `toml:"window"`
	Hole   Hole   `toml:"hole"`
	Disk   Disk   `toml:"disk"`
	March  March  `toml:"march"`

	// Debug enables the Vulkan validation layers and development logging.
	Debug bool `toml:"debug"`
}

// Default returns the built-in configuration: a Sagittarius A*-mass hole
// with a horizon of 220 world units and a fifty thousand particle disk.
func Default() Config {
	return Config{
		Window: Window{
			Width:  1280,
			Height: 720,
			Title:  "Black Hole",
		},
		Hole: Hole{
			MassSolar:     3.2e6,
			HorizonRadius: 220,
			Mass:          3.2e6,
		},
		Disk: Disk{
			Count:       50000,
			InnerRadius: 330,
			OuterRadius: 2200,
			Thickness:   18,
			Seed:        1,
		},
		March: March{
			DistortionPower: 2,
			MaxSteps:        512,
			BaseStep:        40,
			MaxDistance:     40000,
		},
	}
}

// LoadFile merges the TOML file at path on top of cfg. A missing file is an
// error; callers decide whether missing is fatal (explicit -config) or fine
// (the default probe).
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg.Validate()
}

// Validate rejects values the simulation cannot run with.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d is not positive", c.Window.Width, c.Window.Height)
	}
	if c.Hole.MassSolar <= 0 {
		return fmt.Errorf("hole mass %g solar masses is not positive", c.Hole.MassSolar)
	}
	if c.Hole.HorizonRadius <= 0 {
		return fmt.Errorf("horizon radius %g is not positive", c.Hole.HorizonRadius)
	}
	if c.Disk.Count <= 0 {
		return fmt.Errorf("particle count %d is not positive", c.Disk.Count)
	}
	if c.Disk.InnerRadius <= c.Hole.HorizonRadius {
		return fmt.Errorf("disk inner radius %g must clear the horizon radius %g",
			c.Disk.InnerRadius, c.Hole.HorizonRadius)
	}
	if c.Disk.OuterRadius <= c.Disk.InnerRadius {
		return fmt.Errorf("disk outer radius %g must exceed inner radius %g",
			c.Disk.OuterRadius, c.Disk.InnerRadius)
	}
	if c.March.MaxSteps <= 0 {
		return fmt.Errorf("march step limit %d is not positive", c.March.MaxSteps)
	}
	if c.March.BaseStep <= 0 {
		return fmt.Errorf("march base step %g is not positive", c.March.BaseStep)
	}
	return nil
}

// Resolve builds the configuration from args (without the program name).
// Layering: defaults, then the TOML file, then any flag the user actually
// set on the command line.
func Resolve(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("blackhole", flag.ContinueOnError)

	configPath := fs.String("config", "", "path to a TOML config file")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable Vulkan validation layers")
	fs.IntVar(&cfg.Window.Width, "width", cfg.Window.Width, "initial window width")
	fs.IntVar(&cfg.Window.Height, "height", cfg.Window.Height, "initial window height")
	fs.IntVar(&cfg.Disk.Count, "particles", cfg.Disk.Count, "accretion disk particle count")
	fs.Int64Var(&cfg.Disk.Seed, "seed", cfg.Disk.Seed, "disk generation seed")
	fs.Float64Var(&cfg.Hole.MassSolar, "mass", cfg.Hole.MassSolar, "hole mass in solar masses")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Snapshot explicitly-set flag values before the file load stomps the
	// bound fields, so they can win afterwards.
	set := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		if f.Name != "config" {
			set[f.Name] = f.Value.String()
		}
	})

	if *configPath != "" {
		if err := LoadFile(&cfg, *configPath); err != nil {
			return Config{}, err
		}
	} else if _, err := os.Stat(DefaultFileName); err == nil {
		if err := LoadFile(&cfg, DefaultFileName); err != nil {
			return Config{}, err
		}
	}

	// Re-apply flags the user set explicitly so they beat file values.
	for name, value := range set {
		if err := fs.Set(name, value); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
