package config

import "sort"

func standardDevice() DeviceConfig {
	return DeviceConfig{Tag: "reis", RF: 245, DC: 39, FrequencyMHz: 1, RadiusMM: 6, MaxPotential: 500}
}

func titanium(tag string, mass float64) SpeciesConfig {
	return SpeciesConfig{
		Tag: tag, Count: 100, MassAMU: mass, Charge: 1,
		SpreadXMM: 0.5, SpreadYMM: 0.5, SpreadVX: 20, SpreadVY: 20, SpreadVZ: 50,
		SpeedKMS: 4.5,
	}
}

var Presets = map[string]*Config{
	"standard": {
		Integrator: "rk4",
		Device:     standardDevice(),
		Zones: []ZoneConfig{
			{Kind: "hm_entry", SpanMM: 2},
			{Kind: "ideal", SpanMM: 200},
			{Kind: "linear_exit", SpanMM: 5},
		},
		Species: []SpeciesConfig{titanium("Ti-47", 47)},
		Run:     RunConfig{StepsPerPeriod: 100, Margin: 1.05, Seed: 1},
	},
	"ideal": {
		Integrator: "rk4",
		Device:     standardDevice(),
		Zones:      []ZoneConfig{{Kind: "ideal", SpanMM: 200}},
		Species:    []SpeciesConfig{titanium("Ti-47", 47)},
		Run:        RunConfig{StepsPerPeriod: 100, Margin: 1.05, Seed: 1},
	},
	"linear": {
		Integrator: "rk4",
		Device:     standardDevice(),
		Zones: []ZoneConfig{
			{Kind: "linear_entry", SpanMM: 5},
			{Kind: "ideal", SpanMM: 200},
			{Kind: "linear_exit", SpanMM: 5},
		},
		Species: []SpeciesConfig{titanium("Ti-47", 47)},
		Run:     RunConfig{StepsPerPeriod: 100, Margin: 1.05, Seed: 1},
	},
	"cluster": {
		Integrator: "rk4",
		Device:     standardDevice(),
		Zones: []ZoneConfig{
			{Kind: "hm_entry", SpanMM: 2},
			{Kind: "ideal", SpanMM: 200},
			{Kind: "hm_exit", SpanMM: 2},
		},
		Species: []SpeciesConfig{
			titanium("Ti-46", 46),
			titanium("Ti-47", 47),
			titanium("Ti-48", 48),
		},
		Run: RunConfig{StepsPerPeriod: 100, Margin: 1.05, Seed: 1},
	},
	"mass-scan": {
		Integrator: "rk2",
		Device:     standardDevice(),
		Zones: []ZoneConfig{
			{Kind: "hm_entry", SpanMM: 2},
			{Kind: "ideal", SpanMM: 100},
			{Kind: "linear_exit", SpanMM: 5},
		},
		Species: []SpeciesConfig{titanium("probe", 47)},
		Run:     RunConfig{StepsPerPeriod: 50, Margin: 1.05, Seed: 1, SkipHistory: true},
	},
}

// GetPreset returns a deep copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	cfg.Zones = append([]ZoneConfig(nil), p.Zones...)
	cfg.Species = append([]SpeciesConfig(nil), p.Species...)
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
