package config

import (
	"strings"
	"testing"
)

func TestDefaultsMatchSpec(t *testing.T) {
	d := Default()
	if d.FramesMax != 64 {
		t.Errorf("FramesMax = %d, want 64", d.FramesMax)
	}
	if d.StackSlotsPerFrame != 256 {
		t.Errorf("StackSlotsPerFrame = %d, want 256", d.StackSlotsPerFrame)
	}
	if d.InitialNextGC != 1<<20 {
		t.Errorf("InitialNextGC = %d, want 1MiB", d.InitialNextGC)
	}
	if d.GCGrowthFactor != 2.0 {
		t.Errorf("GCGrowthFactor = %v, want 2.0", d.GCGrowthFactor)
	}
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	doc := `frames_max = 32`
	cfg, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FramesMax != 32 {
		t.Errorf("FramesMax = %d, want 32", cfg.FramesMax)
	}
	if cfg.GCGrowthFactor != 2.0 {
		t.Errorf("unspecified GCGrowthFactor should keep default, got %v", cfg.GCGrowthFactor)
	}
}
