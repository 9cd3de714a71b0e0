// Package loop runs generators, the toolchain and the parameter extractor
// until no simulation asks for a parameter set that was not generated yet.
package loop

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/generator"
	"github.com/toyz/genloop/internal/models"
	"github.com/toyz/genloop/internal/probe"
	"github.com/toyz/genloop/internal/toolchain"
	"github.com/toyz/genloop/internal/utils"
)

// Loop drives the generate, compile, elaborate and probe cycle
type Loop struct {
	driver      toolchain.Driver
	registry    *generator.Registry
	extractor   *probe.Extractor
	diagnostics *utils.DiagnosticSystem
	newID       func() string
}

// New creates a loop. A nil extractor uses the default marker.
func New(driver toolchain.Driver, registry *generator.Registry, extractor *probe.Extractor, diagnostics *utils.DiagnosticSystem) *Loop {
	if extractor == nil {
		extractor = probe.NewExtractor()
	}
	return &Loop{
		driver:      driver,
		registry:    registry,
		extractor:   extractor,
		diagnostics: diagnostics,
		newID:       uuid.NewString,
	}
}

// simulation is the outcome of one simulation run
type simulation struct {
	generics map[string]string
	text     string
	err      error
}

// Run iterates until a fixed point and returns the final file set.
// Requirements are processed in the given order; a module's generated files
// precede its static sources.
func (l *Loop) Run(ctx context.Context, reqs []*models.ModuleRequirement, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	generators := indexGenerators(reqs)

	sessionID := l.newID()
	scratchDir := filepath.Join(opts.WorkRoot, ScratchDirName, sessionID)

	session := generator.NewSession(l.registry)
	defer func() {
		if err := session.Close(); err != nil {
			l.diagnostics.Warn("closing generator session: %v", err)
		}
	}()
	invoker := generator.NewInvoker(session, l.diagnostics)

	result := &Result{SessionID: sessionID, ScratchDir: scratchDir}
	var lastNew []string

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.MaxIterations > 0 && iteration > opts.MaxIterations {
			return nil, genErrors.NewNonConvergenceError(opts.MaxIterations, lastNew)
		}
		l.diagnostics.Verbose("iteration %d", iteration)

		files, includeDirs, err := l.collectFiles(ctx, invoker, reqs, opts)
		if err != nil {
			return nil, err
		}

		if err := l.driver.Compile(ctx, files); err != nil {
			return nil, err
		}

		stats := IterationStats{Iteration: iteration, Files: len(files)}
		result.Files = files
		result.IncludeDirs = includeDirs
		result.Iterations = iteration

		if opts.Top == "" {
			result.History = append(result.History, stats)
			break
		}

		if err := l.driver.Elaborate(ctx, opts.Top); err != nil {
			return nil, err
		}

		iterDir := filepath.Join(scratchDir, fmt.Sprintf("iter-%d", iteration))
		sims, err := l.simulate(ctx, opts, iterDir)
		if err != nil {
			return nil, err
		}
		stats.Simulations = len(sims)

		newBindings, err := l.absorb(sims, generators)
		if err != nil {
			return nil, err
		}
		stats.NewBindings = newBindings
		result.History = append(result.History, stats)

		if len(newBindings) == 0 {
			break
		}
		lastNew = newBindings
	}

	result.Params = make(map[string][]models.Binding, len(generators))
	for name, spec := range generators {
		result.Params[name] = spec.Params.Bindings()
	}
	l.diagnostics.Verbose("converged after %d iterations with %d files", result.Iterations, len(result.Files))
	return result, nil
}

// indexGenerators maps generator names to specs. Names are unique within a
// run; a repeated name is a programming error.
func indexGenerators(reqs []*models.ModuleRequirement) map[string]*models.GeneratorSpec {
	generators := make(map[string]*models.GeneratorSpec)
	for _, req := range reqs {
		if !req.HasGenerator() {
			continue
		}
		name := req.Generator.Name
		if _, dup := generators[name]; dup {
			panic(fmt.Sprintf("loop: generator name %q used by more than one module", name))
		}
		generators[name] = req.Generator
	}
	return generators
}

// collectFiles runs every generator and rebuilds the iteration's file set
// from scratch
func (l *Loop) collectFiles(ctx context.Context, invoker *generator.Invoker, reqs []*models.ModuleRequirement, opts Options) ([]models.SourceFile, []string, error) {
	set := models.NewGeneratedFileSet()
	for _, req := range reqs {
		if req.HasGenerator() {
			files, dirs, err := invoker.Invoke(ctx, req.Generator, opts.TopParams)
			if err != nil {
				return nil, nil, err
			}
			set.AddFiles(files...)
			set.AddIncludeDirs(dirs...)
		}
		set.AddFiles(req.SourceFiles...)
		set.AddIncludeDirs(req.IncludeDirs...)
	}

	if opts.PostProcess == nil {
		return set.Files, set.IncludeDirs, nil
	}

	paths, err := opts.PostProcess(ctx, opts.WorkRoot, set.Paths())
	if err != nil {
		return nil, nil, genErrors.NewGenerationError("post-process", err)
	}
	processed := models.NewGeneratedFileSet()
	processed.AddFiles(models.SourceFiles(paths...)...)
	return processed.Files, set.IncludeDirs, nil
}

// simulate runs one simulation per generic set. Results keep input order.
// Failures other than a SimulationError abort the iteration.
func (l *Loop) simulate(ctx context.Context, opts Options, iterDir string) ([]simulation, error) {
	sims := make([]simulation, len(opts.GenericSets))
	run := func(ctx context.Context, i int) error {
		generics := opts.GenericSets[i]
		runDir := filepath.Join(iterDir, fmt.Sprintf("run-%d", i))
		l.diagnostics.Debug("simulating %s with %v", opts.Top, models.Binding(generics))
		text, err := l.driver.Simulate(ctx, opts.Top, generics, runDir)
		if err != nil && genErrors.CodeOf(err) != genErrors.SimulationErrorCode {
			return err
		}
		sims[i] = simulation{generics: generics, text: text, err: err}
		return nil
	}

	if opts.Parallelism < 2 {
		for i := range opts.GenericSets {
			if err := run(ctx, i); err != nil {
				return nil, err
			}
		}
		return sims, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i := range opts.GenericSets {
		i := i
		g.Go(func() error { return run(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sims, nil
}

// absorb extracts parameter requests from sims and adds them to their
// generators. It returns the bindings that were new. A failed simulation is
// only accepted when it asked for at least one binding its generator did not
// have when the iteration started.
func (l *Loop) absorb(sims []simulation, generators map[string]*models.GeneratorSpec) ([]string, error) {
	type request struct {
		spec    *models.GeneratorSpec
		binding models.Binding
	}

	var requests []request
	for _, sim := range sims {
		records, err := l.extractor.Extract(sim.text)
		if err != nil {
			return nil, err
		}
		asked := false
		for _, record := range records {
			spec, err := owner(record, generators)
			if err != nil {
				return nil, err
			}
			if !spec.Params.Has(record.Bindings) {
				asked = true
			}
			requests = append(requests, request{spec: spec, binding: record.Bindings})
		}
		if sim.err != nil && !asked {
			return nil, sim.err
		}
	}

	var added []string
	for _, req := range requests {
		if req.spec.Params.Add(req.binding) {
			entry := req.spec.Name + " " + req.binding.String()
			l.diagnostics.Verbose("new parameter set for %s", entry)
			added = append(added, entry)
		}
	}
	return added, nil
}

// owner returns the generator a record belongs to. A record without a name
// goes to the only generator of the run.
func owner(record models.DiagnosticRecord, generators map[string]*models.GeneratorSpec) (*models.GeneratorSpec, error) {
	if record.GeneratorName != "" {
		spec, ok := generators[record.GeneratorName]
		if !ok {
			return nil, genErrors.NewGeneratorNotFoundError(record.GeneratorName, generatorNames(generators))
		}
		return spec, nil
	}
	if len(generators) == 1 {
		for _, spec := range generators {
			return spec, nil
		}
	}
	return nil, genErrors.NewDiagnosticParseError(record.Line,
		fmt.Sprintf("no %s=... pair and the run has %d generators", probe.NameKey, len(generators)))
}

func generatorNames(generators map[string]*models.GeneratorSpec) []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
