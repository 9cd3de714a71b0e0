package models

// GeneratedFileSet is the union of static and generated sources plus include
// directories for one loop iteration. Insertion order is kept and repeated
// entries are dropped.
type GeneratedFileSet struct {
	Files       []SourceFile
	IncludeDirs []string

	seenFiles map[string]struct{}
	seenDirs  map[string]struct{}
}

// NewGeneratedFileSet creates an empty file set
func NewGeneratedFileSet() *GeneratedFileSet {
	return &GeneratedFileSet{
		Files:       make([]SourceFile, 0),
		IncludeDirs: make([]string, 0),
		seenFiles:   make(map[string]struct{}),
		seenDirs:    make(map[string]struct{}),
	}
}

// AddFiles appends files not seen before
func (s *GeneratedFileSet) AddFiles(files ...SourceFile) {
	for _, f := range files {
		if _, ok := s.seenFiles[f.Path]; ok {
			continue
		}
		s.seenFiles[f.Path] = struct{}{}
		s.Files = append(s.Files, f)
	}
}

// AddIncludeDirs appends directories not seen before
func (s *GeneratedFileSet) AddIncludeDirs(dirs ...string) {
	for _, d := range dirs {
		if _, ok := s.seenDirs[d]; ok {
			continue
		}
		s.seenDirs[d] = struct{}{}
		s.IncludeDirs = append(s.IncludeDirs, d)
	}
}

// Paths returns the file paths in order
func (s *GeneratedFileSet) Paths() []string {
	return Paths(s.Files)
}
