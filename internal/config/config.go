// Package config loads tunable VM parameters from a TOML file, using
// github.com/naoina/toml. This is the ambient configuration layer an
// embeddable VM carries so its frame depth, stack size, and GC growth
// policy don't have to be recompiled to tune.
package config

import (
	"io"

	"github.com/naoina/toml"
)

// VM holds the recommended defaults rather than hard constants: the max
// call-frame depth, the per-frame local-slot budget (GET_LOCAL/SET_LOCAL's
// 1-byte operand caps this at 256), and the GC's initial watermark and
// growth factor.
type VM struct {
	FramesMax          int     `toml:"frames_max"`
	StackSlotsPerFrame int     `toml:"stack_slots_per_frame"`
	InitialNextGC      int     `toml:"initial_next_gc"`
	GCGrowthFactor     float64 `toml:"gc_growth_factor"`
}

// Default returns 64 frames, 256 local slots per frame (so
// FramesMax*StackSlotsPerFrame total value-stack capacity), a 1 MiB
// initial GC watermark, and a 2x growth factor.
func Default() VM {
	return VM{
		FramesMax:          64,
		StackSlotsPerFrame: 256,
		InitialNextGC:      1 << 20,
		GCGrowthFactor:     2.0,
	}
}

// Load reads a TOML document from r and overlays it onto Default(). Any
// field the document omits keeps its default value.
func Load(r io.Reader) (VM, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return VM{}, err
	}
	return cfg, nil
}
