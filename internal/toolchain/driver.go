// Package toolchain drives the external HDL compiler, elaborator and
// simulator.
package toolchain

import (
	"context"
	"time"

	"github.com/toyz/genloop/internal/models"
)

// Stage names one kind of toolchain invocation
type Stage string

const (
	StageCompile   Stage = "compile"
	StageElaborate Stage = "elaborate"
	StageSimulate  Stage = "simulate"
)

// Driver compiles, elaborates and simulates a design. Compile and Elaborate
// are separate from Simulate so one elaboration can serve many runs.
type Driver interface {
	// Compile analyzes files one by one in order and stops at the first
	// failure with a CompileError.
	Compile(ctx context.Context, files []models.SourceFile) error
	// Elaborate elaborates the named top-level unit.
	Elaborate(ctx context.Context, top string) error
	// Simulate runs top with the given top-level generics and returns the
	// captured stderr followed by stdout. scratchDir, when not empty, receives
	// the capture files of this run. A failing run still returns its text
	// together with a SimulationError.
	Simulate(ctx context.Context, top string, generics map[string]string, scratchDir string) (string, error)
}

// Invocation describes one finished toolchain call
type Invocation struct {
	Stage    Stage
	Target   string // file for compile, top unit otherwise
	Args     []string
	Duration time.Duration
	Err      error
}

// StageObserver is notified after every invocation
type StageObserver func(Invocation)
