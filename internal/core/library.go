package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/utils"
)

// Library is a file-based dependency service. Cores are discovered by scanning
// roots for *.core.toml manifests.
type Library struct {
	cores       map[string][]*Descriptor // keyed by VLNV.Base()
	diagnostics *utils.DiagnosticSystem
}

// NewLibrary creates an empty library
func NewLibrary(diagnostics *utils.DiagnosticSystem) *Library {
	return &Library{
		cores:       make(map[string][]*Descriptor),
		diagnostics: diagnostics,
	}
}

// AddRoot scans dir recursively for core manifests. Hidden directories are
// skipped.
func (l *Library) AddRoot(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return genErrors.WrapFileSystemError("scan cores root", dir, err)
	}
	if !info.IsDir() {
		return genErrors.FileSystemError("scan cores root", dir, "not a directory")
	}

	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != dir && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(entry.Name(), ManifestSuffix) {
			return nil
		}
		_, err = l.Load(path)
		return err
	})
}

// Load reads a single manifest and adds it to the library
func (l *Library) Load(path string) (*Descriptor, error) {
	d, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	l.Add(d)
	return d, nil
}

// Add registers a descriptor. A second manifest with the same VLNV replaces
// the first.
func (l *Library) Add(d *Descriptor) {
	base := d.vlnv.Base()
	existing := l.cores[base]
	for i, e := range existing {
		if e.vlnv.Version == d.vlnv.Version {
			l.diagnostics.Warn("core %s from %s replaces %s", d.vlnv, d.manifestPath, e.manifestPath)
			existing[i] = d
			return
		}
	}
	l.cores[base] = append(existing, d)
	l.diagnostics.Debug("found core %s in %s", d.vlnv, d.manifestPath)
}

// Cores returns every known core sorted by VLNV
func (l *Library) Cores() []*Descriptor {
	var all []*Descriptor
	for _, ds := range l.cores {
		all = append(all, ds...)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].vlnv, all[j].vlnv
		if a.Base() != b.Base() {
			return a.Base() < b.Base()
		}
		return semver.Compare(a.Version, b.Version) < 0
	})
	return all
}

// Find returns the highest version core satisfying dep
func (l *Library) Find(dep Dependency) (*Descriptor, error) {
	var candidates []*Descriptor
	for _, ds := range l.cores {
		for _, d := range ds {
			if dep.Allows(d.vlnv) {
				candidates = append(candidates, d)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no core matches %s", dep)
	}

	bases := make(map[string]struct{})
	for _, c := range candidates {
		bases[c.vlnv.Base()] = struct{}{}
	}
	if len(bases) > 1 {
		names := make([]string, 0, len(bases))
		for b := range bases {
			names = append(names, b)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("%s is ambiguous: %s", dep, strings.Join(names, ", "))
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if semver.Compare(c.vlnv.Version, best.vlnv.Version) > 0 {
			best = c
		}
	}
	return best, nil
}

// Resolve returns top and its transitive dependencies, dependencies first,
// following declaration order. Each core appears once.
func (l *Library) Resolve(ctx context.Context, top string, flags Flags) ([]Module, error) {
	topDep, err := ParseDependency(top)
	if err != nil {
		return nil, genErrors.NewDependencyResolutionError(top, err.Error())
	}
	root, err := l.Find(topDep)
	if err != nil {
		return nil, genErrors.NewDependencyResolutionError(top, err.Error())
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var order []Module
	var stack []string

	var visit func(d *Descriptor) error
	visit = func(d *Descriptor) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := d.vlnv.Base()
		switch state[key] {
		case done:
			return nil
		case visiting:
			cycle := append(append([]string(nil), stack...), d.vlnv.String())
			return genErrors.NewDependencyResolutionError(top, "dependency cycle: "+strings.Join(cycle, " -> "))
		}
		state[key] = visiting
		stack = append(stack, d.vlnv.String())

		for _, dep := range d.depends {
			child, err := l.Find(dep)
			if err != nil {
				resErr := genErrors.NewDependencyResolutionError(top, fmt.Sprintf("%s: %v", d.vlnv, err))
				resErr.WithLocation(genErrors.SourceLocation{File: d.manifestPath})
				return resErr
			}
			if err := visit(child); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[key] = done
		order = append(order, d.forFlags(flags))
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	l.diagnostics.Verbose("resolved %s into %d cores", top, len(order))
	return order, nil
}
