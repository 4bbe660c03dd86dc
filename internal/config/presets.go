package config

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"small": {
			System: "pendulum", Integrator: "leapfrog", Dt: 0.01, Steps: 2000,
			Gravity: 9.8, Links: 1, Mass: 1, Length: 1, Noise: 0.05,
		},
		"swing": {
			System: "pendulum", Integrator: "leapfrog", Dt: 0.005, Steps: 4000,
			Gravity: 9.8, Links: 1, Mass: 1, Length: 1, Noise: 0.5,
		},
	},
	"chain": {
		"double": {
			System: "chain", Integrator: "leapfrog", Dt: 0.01, Steps: 1000,
			Gravity: 9.8, Links: 2, Mass: 1, Length: 1, Noise: 0.1,
		},
		"triple": {
			System: "chain", Integrator: "leapfrog", Dt: 0.005, Steps: 4000,
			Gravity: 9.8, Links: 3, Mass: 1, Length: 1, Noise: 0.1,
		},
		"chaos": {
			System: "chain", Integrator: "rk4", Dt: 0.002, Steps: 10000,
			Gravity: 9.8, Links: 4, Mass: 1, Length: 0.5, Noise: 0.4,
		},
	},
	"rod": {
		"tumble": {
			System: "rod", Integrator: "leapfrog", Dt: 0.01, Steps: 1000,
			Gravity: 0, Mass: 1, Length: 1, Noise: 0.3,
		},
		"fall": {
			System: "rod", Integrator: "leapfrog", Dt: 0.01, Steps: 1000,
			Gravity: 9.8, Mass: 1, Length: 1, Noise: 0.1,
		},
	},
	"dipole": {
		"precess": {
			System: "dipole", Integrator: "leapfrog", Dt: 0.005, Steps: 4000,
			Mass: 1, Noise: 0.2,
		},
	},
}

// GetPreset returns a named preset, or nil if unknown.
func GetPreset(system, name string) *Config {
	group, ok := Presets[system]
	if !ok {
		return nil
	}
	return group[name]
}

// ListPresets returns the preset names for a system, or nil if unknown.
func ListPresets(system string) []string {
	group, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for n := range group {
		names = append(names, n)
	}
	return names
}
