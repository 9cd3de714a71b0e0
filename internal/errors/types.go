package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// GenloopError defines the base interface for all genloop errors
type GenloopError interface {
	error
	ErrorCode() ErrorCode
	Location() SourceLocation
	Context() map[string]interface{}
	Suggestions() []string
	Unwrap() error
}

// ErrorCode represents the type of error that occurred
type ErrorCode int

const (
	UnknownErrorCode ErrorCode = iota

	// Dependency collection
	DependencyResolutionErrorCode
	ModuleSetupErrorCode
	ManifestErrorCode

	// Generator invocation
	GeneratorNotFoundErrorCode
	GeneratorContractErrorCode
	UnsupportedGeneratorKindErrorCode
	GenerationErrorCode
	TemplateErrorCode
	FileSystemErrorCode

	// Toolchain
	CompileErrorCode
	ElaborationErrorCode
	SimulationErrorCode
	TimeoutErrorCode

	// Diagnostic extraction
	DiagnosticParseErrorCode
	DuplicateParameterErrorCode

	// Loop and configuration
	ConfigurationErrorCode
	NonConvergenceErrorCode
)

// String returns the string representation of the error code
func (e ErrorCode) String() string {
	switch e {
	case DependencyResolutionErrorCode:
		return "DependencyResolutionError"
	case ModuleSetupErrorCode:
		return "ModuleSetupError"
	case ManifestErrorCode:
		return "ManifestError"
	case GeneratorNotFoundErrorCode:
		return "GeneratorNotFoundError"
	case GeneratorContractErrorCode:
		return "GeneratorContractError"
	case UnsupportedGeneratorKindErrorCode:
		return "UnsupportedGeneratorKindError"
	case GenerationErrorCode:
		return "GenerationError"
	case TemplateErrorCode:
		return "TemplateError"
	case FileSystemErrorCode:
		return "FileSystemError"
	case CompileErrorCode:
		return "CompileError"
	case ElaborationErrorCode:
		return "ElaborationError"
	case SimulationErrorCode:
		return "SimulationError"
	case TimeoutErrorCode:
		return "TimeoutError"
	case DiagnosticParseErrorCode:
		return "DiagnosticParseError"
	case DuplicateParameterErrorCode:
		return "DuplicateParameterError"
	case ConfigurationErrorCode:
		return "ConfigurationError"
	case NonConvergenceErrorCode:
		return "NonConvergenceError"
	default:
		return "UnknownError"
	}
}

// SourceLocation represents where an error occurred. For toolchain and
// manifest errors File is the offending source or manifest path.
type SourceLocation struct {
	File   string // file path where error occurred
	Line   int    // line number (1-based)
	Column int    // column number (1-based)
}

// String returns a formatted string representation of the location
func (s SourceLocation) String() string {
	if s.File == "" {
		return "unknown location"
	}
	if s.Line == 0 {
		return s.File
	}
	if s.Column == 0 {
		return fmt.Sprintf("%s:%d", s.File, s.Line)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// IsEmpty returns true if the location has no useful information
func (s SourceLocation) IsEmpty() bool {
	return s.File == ""
}

// BaseError provides a common implementation of the GenloopError interface
type BaseError struct {
	Code        ErrorCode              // type of error
	Message     string                 // error message
	Loc         SourceLocation         // where the error occurred
	Cause       error                  // underlying error cause
	ContextData map[string]interface{} // additional context information
	Hints       []string               // helpful suggestions for fixing the error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	msg := e.Message
	if !e.Loc.IsEmpty() {
		msg = fmt.Sprintf("%s: %s", e.Loc.String(), msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// ErrorCode returns the error code
func (e *BaseError) ErrorCode() ErrorCode {
	return e.Code
}

// Location returns the source location where the error occurred
func (e *BaseError) Location() SourceLocation {
	return e.Loc
}

// Context returns the error context data
func (e *BaseError) Context() map[string]interface{} {
	if e.ContextData == nil {
		return make(map[string]interface{})
	}
	return e.ContextData
}

// Suggestions returns helpful suggestions for fixing the error
func (e *BaseError) Suggestions() []string {
	return e.Hints
}

// Unwrap returns the underlying error cause for error chain inspection
func (e *BaseError) Unwrap() error {
	return e.Cause
}

// WithLocation adds location information to the error
func (e *BaseError) WithLocation(loc SourceLocation) *BaseError {
	e.Loc = loc
	return e
}

// WithCause adds an underlying error cause
func (e *BaseError) WithCause(cause error) *BaseError {
	e.Cause = cause
	return e
}

// WithContext adds context data to the error
func (e *BaseError) WithContext(key string, value interface{}) *BaseError {
	if e.ContextData == nil {
		e.ContextData = make(map[string]interface{})
	}
	e.ContextData[key] = value
	return e
}

// WithSuggestion adds a helpful suggestion for fixing the error
func (e *BaseError) WithSuggestion(suggestion string) *BaseError {
	e.Hints = append(e.Hints, suggestion)
	return e
}

// WithSuggestions adds multiple helpful suggestions
func (e *BaseError) WithSuggestions(suggestions ...string) *BaseError {
	e.Hints = append(e.Hints, suggestions...)
	return e
}

// New creates a new BaseError with the specified code and message
func New(code ErrorCode, message string) *BaseError {
	return &BaseError{
		Code:    code,
		Message: message,
		Hints:   make([]string, 0),
	}
}

// Newf creates a new BaseError with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *BaseError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new error that wraps another error
func Wrap(code ErrorCode, message string, cause error) *BaseError {
	return &BaseError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Hints:   make([]string, 0),
	}
}

// Wrapf creates a new error that wraps another error with formatted message
func Wrapf(code ErrorCode, cause error, format string, args ...interface{}) *BaseError {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// CodeOf returns the code of the first GenloopError in err's chain, or
// UnknownErrorCode.
func CodeOf(err error) ErrorCode {
	var ge GenloopError
	if stderrors.As(err, &ge) {
		return ge.ErrorCode()
	}
	return UnknownErrorCode
}

// Format renders an error with its context and suggestions for terminal output.
func Format(err error) string {
	if err == nil {
		return ""
	}
	var ge GenloopError
	if !stderrors.As(err, &ge) {
		return err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", ge.ErrorCode(), ge.Error())
	ctx := ge.Context()
	if out, ok := ctx["tool_output"].(string); ok && strings.TrimSpace(out) != "" {
		b.WriteString("\n  tool output:")
		for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
			b.WriteString("\n    | ")
			b.WriteString(line)
		}
	}
	for _, hint := range ge.Suggestions() {
		b.WriteString("\n  hint: ")
		b.WriteString(hint)
	}
	return b.String()
}
