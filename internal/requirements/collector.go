// Package requirements turns the resolved dependency list of a top-level core
// into per-module build requirements: compiled sources, include directories
// and generator specs.
package requirements

import (
	"context"
	stderrors "errors"
	"path/filepath"

	"github.com/toyz/genloop/internal/core"
	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/models"
	"github.com/toyz/genloop/internal/utils"
)

// SynthUsage is the usage tag selecting the files that make up the design
const SynthUsage = "synth"

// Collector builds ModuleRequirements from a dependency service
type Collector struct {
	service     core.Service
	flags       core.Flags
	diagnostics *utils.DiagnosticSystem
}

// NewCollector creates a collector resolving with core.DefaultFlags
func NewCollector(service core.Service, diagnostics *utils.DiagnosticSystem) *Collector {
	return &Collector{
		service:     service,
		flags:       core.DefaultFlags,
		diagnostics: diagnostics,
	}
}

// WithFlags overrides the resolution flags
func (c *Collector) WithFlags(flags core.Flags) *Collector {
	c.flags = flags
	return c
}

// Collect resolves top and returns one requirement per dependency module in
// the service's resolution order. outputRoot is where generators write their
// files.
func (c *Collector) Collect(ctx context.Context, top, outputRoot string) ([]*models.ModuleRequirement, error) {
	absOutput, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, genErrors.WrapFileSystemError("resolve output root", outputRoot, err)
	}

	topName, err := core.ParseVLNV(top)
	if err != nil {
		return nil, genErrors.NewDependencyResolutionError(top, err.Error())
	}

	modules, err := c.service.Resolve(ctx, top, c.flags)
	if err != nil {
		if genErrors.CodeOf(err) == genErrors.DependencyResolutionErrorCode {
			return nil, err
		}
		resErr := genErrors.NewDependencyResolutionError(top, "dependency service failed")
		resErr.WithCause(err)
		return nil, resErr
	}

	requirements := make([]*models.ModuleRequirement, 0, len(modules))
	for _, mod := range modules {
		if err := mod.Setup(ctx); err != nil {
			if isCancellation(err) || genErrors.CodeOf(err) == genErrors.ModuleSetupErrorCode {
				return nil, err
			}
			return nil, genErrors.NewModuleSetupError(mod.Name().String(), err)
		}

		req := collectFiles(mod, topName.Matches(mod.Name()))
		req.Generator = generatorSpec(mod, absOutput)

		c.diagnostics.Debug("%s: %d sources, %d include dirs, generator=%t",
			req.Name, len(req.SourceFiles), len(req.IncludeDirs), req.HasGenerator())
		requirements = append(requirements, req)
	}
	return requirements, nil
}

func isCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// collectFiles gathers the synth files of mod. Private groups are only
// included for the top module.
func collectFiles(mod core.Module, isTop bool) *models.ModuleRequirement {
	req := models.NewModuleRequirement(mod.Name().String())
	root, err := filepath.Abs(mod.FilesRoot())
	if err != nil {
		root = mod.FilesRoot()
	}

	for _, group := range mod.FileGroups() {
		if !group.HasUsage(SynthUsage) {
			continue
		}
		if group.Private && !isTop {
			continue
		}
		for _, f := range group.Files {
			path := filepath.Join(root, f.Name)
			if f.IsIncludeFile {
				req.AddIncludeDir(filepath.Dir(path))
				continue
			}
			req.AddSourceFile(path)
		}
	}
	return req
}

// generatorSpec builds the spec for mod's generator, or nil
func generatorSpec(mod core.Module, outputDir string) *models.GeneratorSpec {
	decl := mod.Generator()
	if decl == nil {
		return nil
	}
	sourceDir, err := filepath.Abs(mod.FilesRoot())
	if err != nil {
		sourceDir = mod.FilesRoot()
	}
	return models.NewGeneratorSpec(
		mod.Name().Name,
		models.GeneratorKind(decl.Kind),
		models.EntryPoint{
			Module:     decl.Module,
			Function:   decl.Function,
			SearchRoot: sourceDir,
		},
		outputDir,
		sourceDir,
	)
}
