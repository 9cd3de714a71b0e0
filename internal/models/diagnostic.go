package models

// DiagnosticRecord is one parameter request found in simulation output
type DiagnosticRecord struct {
	GeneratorName string // empty when the line did not name its generator
	Bindings      Binding
	Line          string // the raw line, kept for error reporting
}
