package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.System != "chain" || cfg.Integrator != "leapfrog" {
		t.Errorf("unexpected defaults: system=%q integrator=%q", cfg.System, cfg.Integrator)
	}
	if cfg.Dt != DefaultDt || cfg.Steps != DefaultSteps || cfg.Gravity != DefaultGravity {
		t.Error("numeric defaults do not match package constants")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := DefaultConfig()
	cfg.System = "pendulum"
	cfg.Dt = 0.002
	cfg.Steps = 4242
	cfg.Seed = 99
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuildSystems(t *testing.T) {
	tests := []struct {
		system string
		dof    int
		rows   int
	}{
		{"pendulum", 2, 1},
		{"chain", 4, 2},
		{"rod", 4, 1},
		{"dipole", 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.system, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.System = tt.system
			sys, err := cfg.Build()
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}
			if sys.Topo.DOF() != tt.dof {
				t.Errorf("dof = %d, want %d", sys.Topo.DOF(), tt.dof)
			}
			if sys.Topo.ConstraintRows() != tt.rows {
				t.Errorf("constraint rows = %d, want %d", sys.Topo.ConstraintRows(), tt.rows)
			}
		})
	}
}

func TestBuildUnknownSystem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System = "hovercraft"
	if _, err := cfg.Build(); err == nil {
		t.Error("expected error for unknown system")
	}
}

func TestPresets(t *testing.T) {
	// every preset must name a buildable system matching its group
	for system, group := range Presets {
		for name, p := range group {
			if p.System != system {
				t.Errorf("preset %s/%s names system %q", system, name, p.System)
			}
			if _, err := p.Build(); err != nil {
				t.Errorf("preset %s/%s does not build: %v", system, name, err)
			}
			if p.Dt <= 0 || p.Steps <= 0 {
				t.Errorf("preset %s/%s has invalid dt/steps", system, name)
			}
		}
	}

	if GetPreset("chain", "double") == nil {
		t.Error("expected chain/double preset")
	}
	if GetPreset("chain", "nope") != nil || GetPreset("nope", "double") != nil {
		t.Error("unknown presets must return nil")
	}
	if len(ListPresets("pendulum")) != 2 {
		t.Errorf("expected 2 pendulum presets, got %v", ListPresets("pendulum"))
	}
}

func TestRunConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0.005
	cfg.Steps = 77
	cfg.Seed = 3

	rc := cfg.RunConfig()
	if rc.Dt != 0.005 || rc.Steps != 77 || rc.Seed != 3 {
		t.Errorf("run config mismatch: %+v", rc)
	}
	if rc.ResidualBound <= 0 {
		t.Error("expected engine default residual bound to carry over")
	}
}
