package errors

import (
	"fmt"
	"strings"
	"time"
)

// Typed errors raised by the generate/compile/elaborate/probe pipeline.
// None of them are retried: each aborts the run and propagates to the caller.

// DependencyResolutionError is returned when the dependency service cannot
// resolve a core or one of its dependencies
type DependencyResolutionError struct {
	*BaseError
	Core string
}

// NewDependencyResolutionError creates a dependency resolution error for core
func NewDependencyResolutionError(core, reason string) *DependencyResolutionError {
	return &DependencyResolutionError{
		BaseError: New(DependencyResolutionErrorCode, fmt.Sprintf("cannot resolve core '%s': %s", core, reason)).
			WithContext("core", core).
			WithSuggestions(
				"Check that the core name is spelled vendor:library:name[:version]",
				"Make sure the directory holding the core is listed in cores_roots",
			),
		Core: core,
	}
}

// ModuleSetupError is returned when a module's setup step fails
type ModuleSetupError struct {
	*BaseError
	Module string
}

// NewModuleSetupError creates a setup error for module
func NewModuleSetupError(module string, cause error) *ModuleSetupError {
	return &ModuleSetupError{
		BaseError: Wrap(ModuleSetupErrorCode, fmt.Sprintf("setup of module '%s' failed", module), cause).
			WithContext("module", module),
		Module: module,
	}
}

// ManifestError is returned for a core manifest that cannot be decoded or is
// missing required fields
type ManifestError struct {
	*BaseError
	Path string
}

// NewManifestError creates a manifest error for the file at path
func NewManifestError(path, message string) *ManifestError {
	err := &ManifestError{
		BaseError: New(ManifestErrorCode, message).WithLocation(SourceLocation{File: path}),
		Path:      path,
	}
	return err
}

// GeneratorNotFoundError is returned when a generator entry point is not
// registered
type GeneratorNotFoundError struct {
	*BaseError
	Generator string
}

// NewGeneratorNotFoundError creates a not-found error for the named generator
func NewGeneratorNotFoundError(name string, known []string) *GeneratorNotFoundError {
	err := &GeneratorNotFoundError{
		BaseError: Newf(GeneratorNotFoundErrorCode, "generator '%s' is not registered", name).
			WithContext("generator", name),
		Generator: name,
	}
	if len(known) > 0 {
		err.WithSuggestion(fmt.Sprintf("Registered generators: %s", strings.Join(known, ", ")))
	}
	return err
}

// GeneratorContractError is returned when a resolved generator does not expose
// the expected entry function
type GeneratorContractError struct {
	*BaseError
	Generator string
	Function  string
}

// NewGeneratorContractError creates a contract error for generator/function
func NewGeneratorContractError(generator, function, reason string) *GeneratorContractError {
	return &GeneratorContractError{
		BaseError: Newf(GeneratorContractErrorCode, "generator '%s' does not provide function '%s': %s", generator, function, reason).
			WithContext("generator", generator).
			WithContext("function", function),
		Generator: generator,
		Function:  function,
	}
}

// UnsupportedGeneratorKindError is returned for a generator kind other than
// the native one
type UnsupportedGeneratorKindError struct {
	*BaseError
	Generator string
	Kind      string
}

// NewUnsupportedGeneratorKindError creates an unsupported kind error
func NewUnsupportedGeneratorKindError(generator, kind string) *UnsupportedGeneratorKindError {
	return &UnsupportedGeneratorKindError{
		BaseError: Newf(UnsupportedGeneratorKindErrorCode, "unknown generator kind '%s' for generator '%s'", kind, generator).
			WithContext("generator", generator).
			WithContext("kind", kind).
			WithSuggestion("Only kind = \"native\" is supported"),
		Generator: generator,
		Kind:      kind,
	}
}

// GenerationError wraps a failure returned by a generator's Generate call
type GenerationError struct {
	*BaseError
	Generator string
}

// NewGenerationError wraps cause as a failure of the named generator
func NewGenerationError(generator string, cause error) *GenerationError {
	return &GenerationError{
		BaseError: Wrap(GenerationErrorCode, fmt.Sprintf("generator '%s' failed", generator), cause).
			WithContext("generator", generator),
		Generator: generator,
	}
}

// CompileError is returned when the toolchain fails to analyze a source file
type CompileError struct {
	*BaseError
	File       string
	ToolOutput string
}

// NewCompileError creates a compile error for file with the captured tool output
func NewCompileError(file, toolOutput string, cause error) *CompileError {
	return &CompileError{
		BaseError: Wrap(CompileErrorCode, "failed to analyze", cause).
			WithLocation(SourceLocation{File: file}).
			WithContext("tool_output", toolOutput),
		File:       file,
		ToolOutput: toolOutput,
	}
}

// ElaborationError is returned when the toolchain fails to elaborate the top
// module
type ElaborationError struct {
	*BaseError
	Top        string
	ToolOutput string
}

// NewElaborationError creates an elaboration error for top
func NewElaborationError(top, toolOutput string, cause error) *ElaborationError {
	return &ElaborationError{
		BaseError: Wrap(ElaborationErrorCode, fmt.Sprintf("failed to elaborate '%s'", top), cause).
			WithContext("top", top).
			WithContext("tool_output", toolOutput),
		Top:        top,
		ToolOutput: toolOutput,
	}
}

// SimulationError is returned for a failed simulation run that did not ask for
// any generator parameters
type SimulationError struct {
	*BaseError
	Top        string
	Generics   map[string]string
	ToolOutput string
}

// NewSimulationError creates a simulation error for top run with generics
func NewSimulationError(top string, generics map[string]string, toolOutput string, cause error) *SimulationError {
	return &SimulationError{
		BaseError: Wrap(SimulationErrorCode, fmt.Sprintf("simulation of '%s' failed", top), cause).
			WithContext("top", top).
			WithContext("generics", generics).
			WithContext("tool_output", toolOutput),
		Top:        top,
		Generics:   generics,
		ToolOutput: toolOutput,
	}
}

// TimeoutError is returned when a toolchain invocation exceeds its deadline
type TimeoutError struct {
	*BaseError
	Stage   string
	Target  string
	Timeout time.Duration
}

// NewTimeoutError creates a timeout error for a stage invocation on target
func NewTimeoutError(stage, target string, timeout time.Duration, cause error) *TimeoutError {
	return &TimeoutError{
		BaseError: Wrap(TimeoutErrorCode, fmt.Sprintf("%s of '%s' exceeded %s", stage, target, timeout), cause).
			WithContext("stage", stage).
			WithContext("target", target).
			WithSuggestion("Raise [toolchain].timeout or check the design for a simulation that never finishes"),
		Stage:   stage,
		Target:  target,
		Timeout: timeout,
	}
}

// DiagnosticParseError is returned for a marker line that does not follow the
// key=value protocol
type DiagnosticParseError struct {
	*BaseError
	Line string
}

// NewDiagnosticParseError creates a parse error for a diagnostic line
func NewDiagnosticParseError(line, reason string) *DiagnosticParseError {
	return &DiagnosticParseError{
		BaseError: Newf(DiagnosticParseErrorCode, "malformed parameter request %q: %s", line, reason).
			WithContext("line", line),
		Line: line,
	}
}

// DuplicateParameterError is returned when a key appears twice on one marker
// line
type DuplicateParameterError struct {
	*BaseError
	Key  string
	Line string
}

// NewDuplicateParameterError creates a duplicate parameter error
func NewDuplicateParameterError(key, line string) *DuplicateParameterError {
	return &DuplicateParameterError{
		BaseError: Newf(DuplicateParameterErrorCode, "parameter '%s' given more than once in %q", key, line).
			WithContext("key", key).
			WithContext("line", line),
		Key:  key,
		Line: line,
	}
}

// ConfigurationError is returned for invalid caller or file configuration
type ConfigurationError struct {
	*BaseError
	Field string
}

// NewConfigurationError creates a configuration error about field
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{
		BaseError: Newf(ConfigurationErrorCode, "configuration error in '%s': %s", field, message).
			WithContext("field", field),
		Field: field,
	}
}

// NonConvergenceError is returned when the loop reaches its iteration cap
// while still discovering new parameter bindings
type NonConvergenceError struct {
	*BaseError
	Iterations int
	LastNew    []string
}

// NewNonConvergenceError creates a non-convergence error
func NewNonConvergenceError(iterations int, lastNew []string) *NonConvergenceError {
	return &NonConvergenceError{
		BaseError: Newf(NonConvergenceErrorCode, "no fixed point after %d iterations", iterations).
			WithContext("iterations", iterations).
			WithContext("last_new_bindings", lastNew).
			WithSuggestion("A generator keeps reporting parameter sets it has never seen; check that generated modules report stable bindings"),
		Iterations: iterations,
		LastNew:    lastNew,
	}
}
