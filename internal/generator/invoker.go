package generator

import (
	"context"
	"os"
	"path/filepath"

	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/models"
	"github.com/toyz/genloop/internal/utils"
)

// Invoker runs generators for GeneratorSpecs
type Invoker struct {
	session     *Session
	diagnostics *utils.DiagnosticSystem
}

// NewInvoker creates an invoker loading generators through session
func NewInvoker(session *Session, diagnostics *utils.DiagnosticSystem) *Invoker {
	return &Invoker{
		session:     session,
		diagnostics: diagnostics,
	}
}

// Invoke runs the generator of spec over its accumulated parameter sets and
// returns the produced files and include directories.
func (i *Invoker) Invoke(ctx context.Context, spec *models.GeneratorSpec, topParams map[string]string) ([]models.SourceFile, []string, error) {
	kind := spec.Kind
	if kind == "" {
		kind = models.GeneratorKindNative
	}
	if kind != models.GeneratorKindNative {
		return nil, nil, genErrors.NewUnsupportedGeneratorKindError(spec.Name, string(kind))
	}

	fn, err := i.session.Load(spec.Name, spec.EntryPoint)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(spec.OutputDir, 0755); err != nil {
		return nil, nil, genErrors.WrapFileSystemError("create output directory", spec.OutputDir, err)
	}

	params := spec.Params.Maps()
	i.diagnostics.Verbose("running generator %s (%s.%s) with %d parameter sets",
		spec.Name, spec.EntryPoint.Module, functionName(spec.EntryPoint.Function), len(params))

	paths, includeDirs, err := fn(ctx, spec.OutputDir, params, copyParams(topParams))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, genErrors.NewGenerationError(spec.Name, err)
	}

	files := make([]models.SourceFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, models.SourceFile{Path: absPath(spec.OutputDir, p)})
	}
	dirs := make([]string, 0, len(includeDirs))
	for _, d := range includeDirs {
		dirs = append(dirs, absPath(spec.OutputDir, d))
	}

	i.diagnostics.Debug("generator %s produced %d files", spec.Name, len(files))
	return files, dirs, nil
}

// absPath resolves a relative generator result against the output directory
func absPath(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

func copyParams(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func functionName(fn string) string {
	if fn == "" {
		return DefaultFunction
	}
	return fn
}
