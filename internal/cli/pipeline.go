package cli

import (
	"context"
	"time"

	"github.com/toyz/genloop/internal/config"
	"github.com/toyz/genloop/internal/core"
	"github.com/toyz/genloop/internal/generator"
	"github.com/toyz/genloop/internal/loop"
	"github.com/toyz/genloop/internal/probe"
	"github.com/toyz/genloop/internal/requirements"
	"github.com/toyz/genloop/internal/toolchain"
	"github.com/toyz/genloop/internal/utils"
)

// Mode selects how far a pipeline run goes
type Mode int

const (
	// ModeRun generates, compiles, elaborates and simulates until the
	// parameter sets converge
	ModeRun Mode = iota
	// ModeFiles generates and compiles once without a top entity
	ModeFiles
)

// String returns the subcommand name of the mode
func (m Mode) String() string {
	if m == ModeFiles {
		return "files"
	}
	return "run"
}

// Summary describes a finished pipeline run
type Summary struct {
	Modules     int
	Generators  int
	Iterations  int
	Files       []string
	IncludeDirs []string
	SessionID   string
	Duration    time.Duration
}

// Stats returns the summary counters keyed for DiagnosticSystem.Summary
func (s Summary) Stats() map[string]interface{} {
	return map[string]interface{}{
		"Modules":      s.Modules,
		"Generators":   s.Generators,
		"Iterations":   s.Iterations,
		"Files":        len(s.Files),
		"Include dirs": len(s.IncludeDirs),
		"Duration":     s.Duration.Round(time.Millisecond),
	}
}

// Pipeline coordinates a run: configuration, core library, requirement
// collection and the convergence loop
type Pipeline struct {
	cfg         *config.Config
	diagnostics *utils.DiagnosticSystem
	service     core.Service
	registry    *generator.Registry
	driver      toolchain.Driver
	postProcess loop.PostProcessFunc
	summary     Summary
}

// NewPipeline creates a pipeline for cfg using the GHDL driver and the
// built-in generators. The core library is loaded from cfg.CoresRoots when
// the pipeline runs.
func NewPipeline(cfg *config.Config, diagnostics *utils.DiagnosticSystem) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		diagnostics: diagnostics,
		registry:    generator.NewDefaultRegistry(),
	}
}

// WithService replaces the core library with service
func (p *Pipeline) WithService(service core.Service) *Pipeline {
	p.service = service
	return p
}

// WithRegistry replaces the generator registry
func (p *Pipeline) WithRegistry(registry *generator.Registry) *Pipeline {
	p.registry = registry
	return p
}

// WithDriver replaces the toolchain driver
func (p *Pipeline) WithDriver(driver toolchain.Driver) *Pipeline {
	p.driver = driver
	return p
}

// WithPostProcess sets a hook that rewrites each iteration's file list
func (p *Pipeline) WithPostProcess(fn loop.PostProcessFunc) *Pipeline {
	p.postProcess = fn
	return p
}

// Summary returns the summary of the last run
func (p *Pipeline) Summary() Summary {
	return p.summary
}

// Run executes the pipeline in the given mode and returns the loop result
func (p *Pipeline) Run(ctx context.Context, mode Mode) (*loop.Result, error) {
	startTime := time.Now()
	p.summary = Summary{}
	cfg := p.cfg

	if err := cfg.Validate(mode == ModeRun); err != nil {
		return nil, err
	}
	p.diagnostics.Verbose("Starting %s at %s", mode, startTime.Format("15:04:05"))
	if cfg.Path != "" {
		p.diagnostics.Debug("Configuration: %s", cfg.Path)
	}

	service, err := p.coreService()
	if err != nil {
		return nil, err
	}

	p.diagnostics.Subsection("Dependencies")
	collector := requirements.NewCollector(service, p.diagnostics)
	reqs, err := collector.Collect(ctx, cfg.TopCore, cfg.OutputRoot)
	if err != nil {
		p.diagnostics.Error("Failed to collect requirements for %s", cfg.TopCore)
		return nil, err
	}
	p.summary.Modules = len(reqs)
	p.diagnostics.Indent()
	for _, req := range reqs {
		if req.Generator != nil {
			p.summary.Generators++
			p.diagnostics.List("%s (generator %s, %d files)", req.Name, req.Generator.EntryPoint.Module, len(req.SourceFiles))
			continue
		}
		p.diagnostics.List("%s (%d files)", req.Name, len(req.SourceFiles))
	}
	p.diagnostics.Unindent()

	opts := loop.Options{
		GenericSets:   cfg.Generics,
		TopParams:     cfg.TopParams,
		WorkRoot:      cfg.WorkRoot,
		MaxIterations: cfg.Loop.MaxIterations,
		Parallelism:   cfg.Loop.Parallelism,
		PostProcess:   p.postProcess,
	}
	if mode == ModeRun {
		opts.Top = cfg.TopEntity
	}

	p.diagnostics.Subsection("Convergence")
	extractor := probe.NewExtractor(probe.WithMarker(cfg.Loop.Marker))
	result, err := loop.New(p.toolchainDriver(), p.registry, extractor, p.diagnostics).Run(ctx, reqs, opts)
	if err != nil {
		return nil, err
	}

	p.summary.Iterations = result.Iterations
	p.summary.Files = result.Paths()
	p.summary.IncludeDirs = result.IncludeDirs
	p.summary.SessionID = result.SessionID
	p.summary.Duration = time.Since(startTime)
	return result, nil
}

func (p *Pipeline) coreService() (core.Service, error) {
	if p.service != nil {
		return p.service, nil
	}
	lib := core.NewLibrary(p.diagnostics)
	for _, root := range p.cfg.CoresRoots {
		p.diagnostics.Debug("Scanning cores root %s", root)
		if err := lib.AddRoot(root); err != nil {
			return nil, err
		}
	}
	p.diagnostics.Verbose("Loaded %d cores", len(lib.Cores()))
	return lib, nil
}

func (p *Pipeline) toolchainDriver() toolchain.Driver {
	if p.driver != nil {
		return p.driver
	}
	return toolchain.NewGHDL(toolchain.Options{
		Binary:      p.cfg.Toolchain.Binary,
		Std:         p.cfg.Toolchain.Std,
		WorkDir:     p.cfg.WorkRoot,
		ExtraArgs:   p.cfg.Toolchain.ExtraArgs,
		Timeout:     p.cfg.Toolchain.Timeout.Duration,
		Diagnostics: p.diagnostics,
		Observer: func(inv toolchain.Invocation) {
			if inv.Err != nil {
				p.diagnostics.Debug("%s %s failed after %s", inv.Stage, inv.Target, inv.Duration.Round(time.Millisecond))
				return
			}
			p.diagnostics.Debug("%s %s (%s)", inv.Stage, inv.Target, inv.Duration.Round(time.Millisecond))
		},
	})
}
