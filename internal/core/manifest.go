package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	genErrors "github.com/toyz/genloop/internal/errors"
)

// ManifestSuffix is the file name suffix of core manifests
const ManifestSuffix = ".core.toml"

// File is one entry of a file group. In a manifest it is either a plain path
// string or a table { name = "...", include = true }.
type File struct {
	Name          string // relative to the core's files root
	IsIncludeFile bool
}

// UnmarshalTOML implements toml.Unmarshaler
func (f *File) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		f.Name = v
		return nil
	case map[string]interface{}:
		for key, value := range v {
			switch key {
			case "name":
				name, ok := value.(string)
				if !ok {
					return fmt.Errorf("file name must be a string, got %T", value)
				}
				f.Name = name
			case "include":
				include, ok := value.(bool)
				if !ok {
					return fmt.Errorf("file include flag must be a boolean, got %T", value)
				}
				f.IsIncludeFile = include
			default:
				return fmt.Errorf("unknown file key %q", key)
			}
		}
		return nil
	default:
		return fmt.Errorf("file entry must be a string or a table, got %T", data)
	}
}

// FileGroup is a named set of files sharing usage tags
type FileGroup struct {
	Name    string   `toml:"name"`
	Usage   []string `toml:"usage"`
	Private bool     `toml:"private"`
	Tools   []string `toml:"tools"` // empty means every tool
	Files   []File   `toml:"files"`
}

// HasUsage reports whether the group is tagged with usage
func (g FileGroup) HasUsage(usage string) bool {
	for _, u := range g.Usage {
		if u == usage {
			return true
		}
	}
	return false
}

// SupportsTool reports whether the group applies to tool
func (g FileGroup) SupportsTool(tool string) bool {
	if len(g.Tools) == 0 || tool == "" {
		return true
	}
	for _, t := range g.Tools {
		if t == tool {
			return true
		}
	}
	return false
}

// GeneratorDeclaration is the [generator] table of a manifest
type GeneratorDeclaration struct {
	Module   string `toml:"module"`
	Function string `toml:"function"`
	Kind     string `toml:"kind"`
}

type manifest struct {
	Name        string                `toml:"name"`
	Description string                `toml:"description"`
	FilesRoot   string                `toml:"files_root"`
	Depends     []string              `toml:"depends"`
	FileSets    []FileGroup           `toml:"fileset"`
	Generator   *GeneratorDeclaration `toml:"generator"`
}

// LoadManifest decodes the manifest at path into a Descriptor
func LoadManifest(path string) (*Descriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, genErrors.WrapManifestError(path, err)
	}

	var m manifest
	meta, err := toml.DecodeFile(abs, &m)
	if err != nil {
		return nil, genErrors.WrapManifestError(abs, err)
	}
	var unknown []string
	for _, k := range meta.Undecoded() {
		if len(k) == 1 {
			unknown = append(unknown, k.String())
		}
	}
	if len(unknown) > 0 {
		return nil, genErrors.NewManifestError(abs, fmt.Sprintf("unknown keys: %s", strings.Join(unknown, ", ")))
	}
	if !meta.IsDefined("name") || strings.TrimSpace(m.Name) == "" {
		return nil, genErrors.NewManifestError(abs, "missing name")
	}

	vlnv, err := ParseVLNV(m.Name)
	if err != nil {
		return nil, genErrors.WrapManifestError(abs, err)
	}

	deps := make([]Dependency, 0, len(m.Depends))
	for _, raw := range m.Depends {
		dep, err := ParseDependency(raw)
		if err != nil {
			return nil, genErrors.WrapManifestError(abs, err)
		}
		deps = append(deps, dep)
	}

	for i, group := range m.FileSets {
		for _, f := range group.Files {
			if strings.TrimSpace(f.Name) == "" {
				return nil, genErrors.NewManifestError(abs, fmt.Sprintf("fileset %d (%s) has a file without a name", i, group.Name))
			}
		}
	}

	if m.Generator != nil {
		if m.Generator.Module == "" {
			return nil, genErrors.NewManifestError(abs, "[generator] is missing module")
		}
		if m.Generator.Function == "" {
			m.Generator.Function = "generate"
		}
		if m.Generator.Kind == "" {
			m.Generator.Kind = "native"
		}
	}

	filesRoot := filepath.Dir(abs)
	if m.FilesRoot != "" {
		filesRoot = m.FilesRoot
		if !filepath.IsAbs(filesRoot) {
			filesRoot = filepath.Join(filepath.Dir(abs), filesRoot)
		}
	}

	return &Descriptor{
		vlnv:         vlnv,
		description:  m.Description,
		manifestPath: abs,
		filesRoot:    filepath.Clean(filesRoot),
		fileGroups:   m.FileSets,
		generator:    m.Generator,
		depends:      deps,
	}, nil
}
