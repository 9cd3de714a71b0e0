package loop

import (
	"context"

	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/models"
)

// ScratchDirName is the directory under the work root holding per-session
// simulation captures
const ScratchDirName = ".genloop"

// PostProcessFunc rewrites the file list of an iteration before it is
// compiled. It receives the work root and the collected paths and returns the
// paths to compile and report.
type PostProcessFunc func(ctx context.Context, workRoot string, files []string) ([]string, error)

// Options control one Run
type Options struct {
	// Top is the top-level unit to elaborate and simulate. When empty the
	// loop only generates and compiles, and finishes after one iteration.
	Top string
	// GenericSets are the top-level generic bindings, one simulation each.
	// Required when Top is set.
	GenericSets []map[string]string
	// TopParams are passed unchanged to every generator
	TopParams map[string]string
	// WorkRoot holds the scratch directory of the run
	WorkRoot string
	// MaxIterations stops a run that keeps discovering bindings. Zero means
	// no limit.
	MaxIterations int
	// Parallelism is the number of concurrent simulations. Values below 2 run
	// them one after the other in input order.
	Parallelism int
	// PostProcess, when set, rewrites each iteration's file list
	PostProcess PostProcessFunc
}

func (o Options) validate() error {
	if o.Top != "" && len(o.GenericSets) == 0 {
		return genErrors.NewConfigurationError("generics",
			"at least one generic set is required to simulate "+o.Top)
	}
	if o.MaxIterations < 0 {
		return genErrors.NewConfigurationError("max_iterations", "must not be negative")
	}
	if o.Parallelism < 0 {
		return genErrors.NewConfigurationError("parallelism", "must not be negative")
	}
	return nil
}

// IterationStats describes one finished iteration
type IterationStats struct {
	Iteration   int
	Files       int
	Simulations int
	NewBindings []string // generator name followed by the binding
}

// Result is the outcome of a converged run
type Result struct {
	Files       []models.SourceFile
	IncludeDirs []string
	Iterations  int
	// Params holds the final bindings of every generator by name
	Params     map[string][]models.Binding
	History    []IterationStats
	SessionID  string
	ScratchDir string
}

// Paths returns the result's file paths in order
func (r *Result) Paths() []string {
	return models.Paths(r.Files)
}
