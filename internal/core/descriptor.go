package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	genErrors "github.com/toyz/genloop/internal/errors"
)

// Module is one resolved dependency as seen by the requirement collector
type Module interface {
	Name() VLNV
	FilesRoot() string
	FileGroups() []FileGroup
	Generator() *GeneratorDeclaration
	// Setup must succeed before the module's files are read
	Setup(ctx context.Context) error
}

// Service resolves a top-level core into its ordered dependency list
type Service interface {
	Resolve(ctx context.Context, top string, flags Flags) ([]Module, error)
}

// Flags select the flow and tool the dependencies are resolved for
type Flags struct {
	Flow string
	Tool string
}

// DefaultFlags are the flags used for the simulation-driven generator loop
var DefaultFlags = Flags{Flow: "sim", Tool: "ghdl"}

// Descriptor is a core loaded from a manifest
type Descriptor struct {
	vlnv         VLNV
	description  string
	manifestPath string
	filesRoot    string
	fileGroups   []FileGroup
	generator    *GeneratorDeclaration
	depends      []Dependency
}

// Name returns the core's VLNV
func (d *Descriptor) Name() VLNV { return d.vlnv }

// Description returns the free-form manifest description
func (d *Descriptor) Description() string { return d.description }

// ManifestPath returns the absolute path of the manifest
func (d *Descriptor) ManifestPath() string { return d.manifestPath }

// FilesRoot returns the directory file names are relative to
func (d *Descriptor) FilesRoot() string { return d.filesRoot }

// FileGroups returns the declared file groups
func (d *Descriptor) FileGroups() []FileGroup { return d.fileGroups }

// Generator returns the generator declaration, or nil
func (d *Descriptor) Generator() *GeneratorDeclaration { return d.generator }

// Depends returns the declared dependencies in declaration order
func (d *Descriptor) Depends() []Dependency { return d.depends }

// Setup verifies that the files root and every declared file exist
func (d *Descriptor) Setup(ctx context.Context) error {
	name := d.vlnv.String()
	info, err := os.Stat(d.filesRoot)
	if err != nil {
		return genErrors.NewModuleSetupError(name, err)
	}
	if !info.IsDir() {
		return genErrors.NewModuleSetupError(name, fmt.Errorf("files root %s is not a directory", d.filesRoot))
	}
	for _, group := range d.fileGroups {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, f := range group.Files {
			path := filepath.Join(d.filesRoot, f.Name)
			if _, err := os.Stat(path); err != nil {
				setupErr := genErrors.NewModuleSetupError(name, err)
				setupErr.WithContext("fileset", group.Name)
				setupErr.WithLocation(genErrors.SourceLocation{File: d.manifestPath})
				return setupErr
			}
		}
	}
	return nil
}

// forFlags returns a copy of d keeping only the file groups that apply to
// flags.Tool
func (d *Descriptor) forFlags(flags Flags) *Descriptor {
	c := *d
	c.fileGroups = make([]FileGroup, 0, len(d.fileGroups))
	for _, g := range d.fileGroups {
		if g.SupportsTool(flags.Tool) {
			c.fileGroups = append(c.fileGroups, g)
		}
	}
	return &c
}
