// Package config loads and saves run configurations and builds the
// constrained systems they describe.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mechsim/rigidsim/internal/energy"
	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/sim"
	"github.com/mechsim/rigidsim/internal/topology"
)

const (
	DefaultDt      = 0.01
	DefaultSteps   = 1000
	DefaultGravity = 9.8
	DefaultLinks   = 2
	DefaultMass    = 1.0
	DefaultLength  = 1.0
	DefaultNoise   = 0.1
)

type Config struct {
	System     string  `yaml:"system"`
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Steps      int     `yaml:"steps"`
	Seed       int64   `yaml:"seed"`
	Noise      float64 `yaml:"noise"`
	Gravity    float64 `yaml:"gravity"`
	Links      int     `yaml:"links"`
	Mass       float64 `yaml:"mass"`
	Length     float64 `yaml:"length"`
}

func DefaultConfig() *Config {
	return &Config{
		System:     "chain",
		Integrator: "leapfrog",
		Dt:         DefaultDt,
		Steps:      DefaultSteps,
		Noise:      DefaultNoise,
		Gravity:    DefaultGravity,
		Links:      DefaultLinks,
		Mass:       DefaultMass,
		Length:     DefaultLength,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
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

// Build constructs the system the config describes.
func (c *Config) Build() (*sim.System, error) {
	switch c.System {
	case "pendulum":
		topo, err := topology.Chain(1, c.Mass, c.Length)
		if err != nil {
			return nil, err
		}
		return sim.NewSystem(topo, energy.NewGravity(topo, c.Gravity)), nil
	case "chain", "":
		topo, err := topology.Chain(c.Links, c.Mass, c.Length)
		if err != nil {
			return nil, err
		}
		return sim.NewSystem(topo, energy.NewGravity(topo, c.Gravity)), nil
	case "rod":
		topo, err := topology.FreeRod(c.Mass, c.Length)
		if err != nil {
			return nil, err
		}
		return sim.NewSystem(topo, energy.NewGravity(topo, c.Gravity)), nil
	case "dipole":
		topo, err := topology.New(2,
			[]topology.Body{{ID: "dipole", Mass: c.Mass, Ref: []float64{1, 0}}},
			[]topology.Constraint{topology.UnitDirector{Body: "dipole"}},
		)
		if err != nil {
			return nil, err
		}
		field, err := energy.NewDipoleField(topo,
			[]energy.Dipole{{Body: "dipole", Moment: 1}}, []float64{0, -1})
		if err != nil {
			return nil, err
		}
		return sim.NewSystem(topo, energy.Sum{energy.NewKinetic(topo), field}), nil
	default:
		return nil, fmt.Errorf("unknown system: %s", c.System)
	}
}

// RunConfig converts to the engine-level config.
func (c *Config) RunConfig() mech.Config {
	rc := mech.DefaultConfig()
	rc.Dt = c.Dt
	rc.Steps = c.Steps
	rc.Seed = c.Seed
	return rc
}
