package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/field"
	"github.com/san-kum/qmfsim/internal/sim"
)

const (
	AtomicMassUnit   = 1.66053906660e-27 // kg
	ElementaryCharge = 1.602176634e-19   // C

	milli = 1e-3
	kilo  = 1e3
	mega  = 1e6
)

const DefaultIntegrator = "rk4"

// Config is a run description in laboratory units: mm, MHz, V, amu, e,
// m/s for velocity spreads and km/s for the injection speed. Species CSV
// files give spread vx and vy in mm/s; LoadSpeciesCSV converts them to m/s.
type Config struct {
	Integrator string          `yaml:"integrator"`
	Device     DeviceConfig    `yaml:"device"`
	Zones      []ZoneConfig    `yaml:"zones"`
	Species    []SpeciesConfig `yaml:"species"`
	Run        RunConfig       `yaml:"run"`
}

type DeviceConfig struct {
	Tag          string  `yaml:"tag"`
	RF           float64 `yaml:"rf_v"`
	DC           float64 `yaml:"dc_v"`
	FrequencyMHz float64 `yaml:"frequency_mhz"`
	RadiusMM     float64 `yaml:"radius_mm"`
	MaxPotential float64 `yaml:"max_potential_v,omitempty"`
	Steepness    float64 `yaml:"steepness,omitempty"`
}

type ZoneConfig struct {
	Kind   string  `yaml:"kind"`
	SpanMM float64 `yaml:"span_mm"`
}

type SpeciesConfig struct {
	Tag       string  `yaml:"tag"`
	Count     int     `yaml:"count"`
	MassAMU   float64 `yaml:"mass_amu"`
	Charge    float64 `yaml:"charge_e"`
	SpreadXMM float64 `yaml:"spread_x_mm"`
	SpreadYMM float64 `yaml:"spread_y_mm"`
	SpreadVX  float64 `yaml:"spread_vx"`
	SpreadVY  float64 `yaml:"spread_vy"`
	SpreadVZ  float64 `yaml:"spread_vz"`
	SpeedKMS  float64 `yaml:"speed_kms"`
	Phase     float64 `yaml:"phase"`
}

type RunConfig struct {
	StepsPerPeriod int     `yaml:"steps_per_period"`
	Margin         float64 `yaml:"margin"`
	Steps          int     `yaml:"steps,omitempty"`
	Seed           int64   `yaml:"seed"`
	HardSwitch     bool    `yaml:"hard_switch,omitempty"`
	SkipHistory    bool    `yaml:"skip_history,omitempty"`
}

// Setup is a validated Config converted to SI units.
type Setup struct {
	Integrator string
	Drive      field.Drive
	Zones      []field.ZoneSpec
	Steepness  float64
	Species    []dynamo.Species
	Run        sim.Config
}

func DefaultConfig() *Config {
	return GetPreset("standard")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Integrator: DefaultIntegrator}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (d DeviceConfig) Drive() field.Drive {
	return field.Drive{
		Tag:          d.Tag,
		RF:           d.RF,
		DC:           d.DC,
		Frequency:    d.FrequencyMHz * mega,
		Radius:       d.RadiusMM * milli,
		MaxPotential: d.MaxPotential,
	}
}

func (s SpeciesConfig) Species() dynamo.Species {
	return dynamo.Species{
		Tag:      s.Tag,
		Count:    s.Count,
		Mass:     s.MassAMU * AtomicMassUnit,
		Charge:   s.Charge * ElementaryCharge,
		SpreadX:  s.SpreadXMM * milli,
		SpreadY:  s.SpreadYMM * milli,
		SpreadVX: s.SpreadVX,
		SpreadVY: s.SpreadVY,
		SpreadVZ: s.SpreadVZ,
		Speed:    s.SpeedKMS * kilo,
		Phase:    s.Phase,
	}
}

// Build validates the configuration and converts it to SI units.
func (c *Config) Build() (*Setup, error) {
	s := &Setup{
		Integrator: c.Integrator,
		Drive:      c.Device.Drive(),
		Steepness:  c.Device.Steepness,
		Run: sim.Config{
			StepsPerPeriod: c.Run.StepsPerPeriod,
			Margin:         c.Run.Margin,
			Steps:          c.Run.Steps,
			Seed:           c.Run.Seed,
			HardSwitch:     c.Run.HardSwitch,
			SkipHistory:    c.Run.SkipHistory,
		},
	}
	if s.Integrator == "" {
		s.Integrator = DefaultIntegrator
	}
	if s.Steepness == 0 {
		s.Steepness = field.DefaultSteepness
	}
	if err := s.Drive.Validate(); err != nil {
		return nil, fmt.Errorf("device %q: %w", c.Device.Tag, err)
	}
	if err := field.ValidateSteepness(s.Steepness, len(c.Zones)); err != nil {
		return nil, err
	}
	if c.Run.StepsPerPeriod < 0 || c.Run.Steps < 0 || c.Run.Margin < 0 {
		return nil, fmt.Errorf("%w: run settings must not be negative", dynamo.ErrParameterBounds)
	}

	if len(c.Zones) == 0 {
		return nil, fmt.Errorf("%w: no zones configured", dynamo.ErrParameterBounds)
	}
	known := make(map[field.Kind]bool)
	for _, k := range field.Kinds() {
		known[k] = true
	}
	for i, z := range c.Zones {
		kind := field.Kind(z.Kind)
		if !known[kind] {
			return nil, fmt.Errorf("zone %d: unknown zone kind: %s", i+1, z.Kind)
		}
		s.Zones = append(s.Zones, field.ZoneSpec{Kind: kind, Span: z.SpanMM * milli})
	}

	if len(c.Species) == 0 {
		return nil, fmt.Errorf("%w: no species configured", dynamo.ErrParameterBounds)
	}
	tags := make(map[string]bool)
	for _, sc := range c.Species {
		if sc.Tag == "" {
			return nil, fmt.Errorf("%w: species without a tag", dynamo.ErrParameterBounds)
		}
		if tags[sc.Tag] {
			return nil, fmt.Errorf("%w: duplicate species tag %q", dynamo.ErrParameterBounds, sc.Tag)
		}
		tags[sc.Tag] = true
		sp := sc.Species()
		if err := sp.Validate(); err != nil {
			return nil, err
		}
		s.Species = append(s.Species, sp)
	}
	return s, nil
}

// Device lays out the configured zones.
func (s *Setup) Device() (*field.Device, error) {
	return field.NewDevice(s.Drive, s.Zones, field.WithSteepness(s.Steepness))
}
