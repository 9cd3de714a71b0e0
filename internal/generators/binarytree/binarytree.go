// Package binarytree is an example generator emitting a parametric VHDL
// reduction tree. Every (operation, n_inputs) pair requested through the
// diagnostic protocol gets a dedicated tree; unknown pairs make the generated
// top level report themselves on the next simulation.
package binarytree

import (
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/toyz/genloop/internal/templates"
)

// Name is the registry identifier and the generator name reported by the
// generated top level
const Name = "binary_tree"

// DefaultMarker is the diagnostic marker written into the generated sources
const DefaultMarker = "Generator"

//go:embed templates
var templateFS embed.FS

// Combination is one generated (operation, n_inputs) tree
type Combination struct {
	Operation string
	NInputs   int
	Level     int
}

// Generator renders the binary tree sources
type Generator struct {
	name     string
	marker   string
	renderer *templates.Renderer
}

// Option configures a Generator
type Option func(*Generator)

// WithName sets the generator name reported in parameter requests
func WithName(name string) Option {
	return func(g *Generator) { g.name = name }
}

// WithMarker sets the diagnostic marker
func WithMarker(marker string) Option {
	return func(g *Generator) { g.marker = marker }
}

// New creates the generator
func New(opts ...Option) *Generator {
	g := &Generator{
		name:     Name,
		marker:   DefaultMarker,
		renderer: templates.NewRenderer(templateFS),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate writes the tree sources for params into dir. The returned files
// are in analysis order.
func (g *Generator) Generate(ctx context.Context, dir string, params []map[string]string, topParams map[string]string) ([]string, []string, error) {
	nInputs, operations, err := collect(params)
	if err != nil {
		return nil, nil, err
	}

	var files []string

	minimum := filepath.Join(dir, "binary_minimum.vhd")
	if _, err := g.renderer.CopyFile("templates/binary_minimum.vhd", minimum); err != nil {
		return nil, nil, err
	}
	files = append(files, minimum)

	operation := filepath.Join(dir, "binary_tree_operation.vhd")
	if _, err := g.renderer.RenderFile("templates/binary_tree_operation.vhd.tmpl", operation,
		map[string]interface{}{"Operations": operations}); err != nil {
		return nil, nil, err
	}
	files = append(files, operation)

	maxInputs := 2
	for _, n := range nInputs {
		if n > maxInputs {
			maxInputs = n
		}
	}
	maxLevel := LogCeil(maxInputs)
	for level := 0; level <= maxLevel; level++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		path := filepath.Join(dir, fmt.Sprintf("binary_tree_level_%d.vhd", level))
		data := map[string]interface{}{
			"Level":     level,
			"LastLevel": level == maxLevel,
		}
		if _, err := g.renderer.RenderFile("templates/binary_tree_level.vhd.tmpl", path, data); err != nil {
			return nil, nil, err
		}
		files = append(files, path)
	}

	var combinations []Combination
	for _, op := range operations {
		for _, n := range nInputs {
			combinations = append(combinations, Combination{Operation: op, NInputs: n, Level: LogCeil(n)})
		}
	}
	top := filepath.Join(dir, "binary_tree.vhd")
	data := map[string]interface{}{
		"Combinations": combinations,
		"Marker":       g.marker,
		"Name":         g.name,
	}
	if _, err := g.renderer.RenderFile("templates/binary_tree.vhd.tmpl", top, data); err != nil {
		return nil, nil, err
	}
	files = append(files, top)

	return files, nil, nil
}

// collect returns the distinct n_inputs values and operations of params in
// sorted order
func collect(params []map[string]string) ([]int, []string, error) {
	seenN := make(map[int]struct{})
	seenOp := make(map[string]struct{})
	var nInputs []int
	var operations []string

	for _, p := range params {
		raw, ok := p["n_inputs"]
		if !ok {
			return nil, nil, fmt.Errorf("parameter set %v has no n_inputs", p)
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, nil, fmt.Errorf("n_inputs must be a positive integer, got %q", raw)
		}
		op, ok := p["operation"]
		if !ok || op == "" {
			return nil, nil, fmt.Errorf("parameter set %v has no operation", p)
		}
		if _, dup := seenN[n]; !dup {
			seenN[n] = struct{}{}
			nInputs = append(nInputs, n)
		}
		if _, dup := seenOp[op]; !dup {
			seenOp[op] = struct{}{}
			operations = append(operations, op)
		}
	}
	sort.Ints(nInputs)
	sort.Strings(operations)
	return nInputs, operations, nil
}

// LogCeil returns the smallest p with 2^p >= val
func LogCeil(val int) int {
	f, p := 1, 0
	for f < val {
		f *= 2
		p++
	}
	return p
}
