// Package generator resolves, loads and invokes the generators declared by
// dependency modules.
package generator

import (
	"context"
	"sort"
	"strings"

	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/models"
)

// DefaultFunction is the entry function every generator exposes
const DefaultFunction = "generate"

// GenerateFunc emits source files into dir for every parameter set in params.
// It returns the absolute paths of the files the module needs, in compilation
// order, and the include directories they rely on. Calls with the same
// arguments must produce byte-identical files.
type GenerateFunc func(ctx context.Context, dir string, params []map[string]string, topParams map[string]string) ([]string, []string, error)

// Generator is the capability every registered generator implements
type Generator interface {
	Generate(ctx context.Context, dir string, params []map[string]string, topParams map[string]string) ([]string, []string, error)
}

// EntryPoints is implemented by generators exposing entry functions besides
// DefaultFunction. Such a generator resolves every function it exposes,
// DefaultFunction included.
type EntryPoints interface {
	EntryPoint(function string) (GenerateFunc, bool)
	Functions() []string
}

// Factory loads a generator. It runs at most once per session and module.
type Factory func(entry models.EntryPoint) (Generator, error)

// Func adapts a plain function to the Generator interface
type Func GenerateFunc

// Generate calls f
func (f Func) Generate(ctx context.Context, dir string, params []map[string]string, topParams map[string]string) ([]string, []string, error) {
	return f(ctx, dir, params, topParams)
}

// FuncSet is a Generator made of named entry functions
type FuncSet map[string]GenerateFunc

// Generate calls the DefaultFunction entry
func (s FuncSet) Generate(ctx context.Context, dir string, params []map[string]string, topParams map[string]string) ([]string, []string, error) {
	fn, ok := s[DefaultFunction]
	if !ok {
		return nil, nil, genErrors.NewGeneratorContractError("", DefaultFunction, "function set has no default entry")
	}
	return fn(ctx, dir, params, topParams)
}

// EntryPoint implements EntryPoints
func (s FuncSet) EntryPoint(function string) (GenerateFunc, bool) {
	fn, ok := s[function]
	return fn, ok && fn != nil
}

// Functions implements EntryPoints
func (s FuncSet) Functions() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// entryFunction returns the callable behind function on gen
func entryFunction(name string, gen Generator, function string) (GenerateFunc, error) {
	if function == "" {
		function = DefaultFunction
	}
	if ep, ok := gen.(EntryPoints); ok {
		if fn, found := ep.EntryPoint(function); found {
			return fn, nil
		}
		return nil, genErrors.NewGeneratorContractError(name, function,
			"available entry functions: "+strings.Join(ep.Functions(), ", "))
	}
	if function == DefaultFunction {
		return gen.Generate, nil
	}
	return nil, genErrors.NewGeneratorContractError(name, function, "generator only exposes "+DefaultFunction)
}
