package models

// SourceFile is a single source file handed to the toolchain
type SourceFile struct {
	Path string // absolute path
}

// SourceFiles wraps each path into a SourceFile
func SourceFiles(paths ...string) []SourceFile {
	files := make([]SourceFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, SourceFile{Path: p})
	}
	return files
}

// Paths returns the paths of files in order
func Paths(files []SourceFile) []string {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return paths
}

// ModuleRequirement holds everything one resolved dependency module
// contributes to the build: its static sources, include directories and an
// optional generator.
type ModuleRequirement struct {
	Name        string         // module (core) name
	SourceFiles []SourceFile   // compilation order, no duplicates
	IncludeDirs []string       // absolute, no duplicates
	Generator   *GeneratorSpec // nil when the module has no generator

	seenFiles map[string]struct{}
	seenDirs  map[string]struct{}
}

// NewModuleRequirement creates an empty requirement for the named module
func NewModuleRequirement(name string) *ModuleRequirement {
	return &ModuleRequirement{
		Name:        name,
		SourceFiles: make([]SourceFile, 0),
		IncludeDirs: make([]string, 0),
		seenFiles:   make(map[string]struct{}),
		seenDirs:    make(map[string]struct{}),
	}
}

// AddSourceFile appends path unless it was already added. It reports whether
// the file was new.
func (r *ModuleRequirement) AddSourceFile(path string) bool {
	if r.seenFiles == nil {
		r.seenFiles = make(map[string]struct{})
	}
	if _, ok := r.seenFiles[path]; ok {
		return false
	}
	r.seenFiles[path] = struct{}{}
	r.SourceFiles = append(r.SourceFiles, SourceFile{Path: path})
	return true
}

// AddIncludeDir records dir unless it was already recorded
func (r *ModuleRequirement) AddIncludeDir(dir string) bool {
	if r.seenDirs == nil {
		r.seenDirs = make(map[string]struct{})
	}
	if _, ok := r.seenDirs[dir]; ok {
		return false
	}
	r.seenDirs[dir] = struct{}{}
	r.IncludeDirs = append(r.IncludeDirs, dir)
	return true
}

// HasGenerator reports whether the module declares a generator
func (r *ModuleRequirement) HasGenerator() bool {
	return r.Generator != nil
}
