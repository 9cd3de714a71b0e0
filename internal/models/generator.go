package models

// GeneratorKind selects how a generator is invoked
type GeneratorKind string

const (
	// GeneratorKindNative is a generator registered in-process
	GeneratorKindNative GeneratorKind = "native"
)

// EntryPoint identifies the callable behind a generator
type EntryPoint struct {
	Module     string // registry identifier
	Function   string // entry function exposed by the generator
	SearchRoot string // directory the generator was declared in
}

// GeneratorSpec describes how to invoke one generator and accumulates the
// parameter bindings requested from it.
type GeneratorSpec struct {
	Name       string // unique within a run; the owning module's name
	Kind       GeneratorKind
	EntryPoint EntryPoint
	OutputDir  string    // generated files go here; created on first use
	SourceDir  string    // generator-local static assets
	Params     *ParamSet // grows monotonically across loop iterations
}

// NewGeneratorSpec creates a spec with an empty parameter set
func NewGeneratorSpec(name string, kind GeneratorKind, entry EntryPoint, outputDir, sourceDir string) *GeneratorSpec {
	return &GeneratorSpec{
		Name:       name,
		Kind:       kind,
		EntryPoint: entry,
		OutputDir:  outputDir,
		SourceDir:  sourceDir,
		Params:     NewParamSet(),
	}
}
