// Package probe extracts generator parameter requests from simulation
// output.
//
// Generated modules report the parameters they were instantiated with by
// printing a line holding a marker token followed by whitespace separated
// key=value pairs:
//
//	binary_tree.vhd:40:5:@0ms:(assertion failure): Generator name=binary_tree n_inputs=7 operation=min
//
// Everything before the marker is ignored. The optional name pair names the
// generator that should receive the remaining pairs.
package probe

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/models"
)

const (
	// DefaultMarker is the token generated modules print before their pairs
	DefaultMarker = "Generator"
	// NameKey names the owning generator and is not part of the bindings
	NameKey = "name"
)

// request is the grammar of the text following the marker. A pair is lexed
// as a single token so whitespace never joins a key to a value.
type request struct {
	Pairs []string `parser:"@Pair*"`
}

var requestParser = participle.MustBuild[request](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Pair", Pattern: `[^\s=]+=[^\s=]+`},
		{Name: "Stray", Pattern: `\S+`},
		{Name: "Whitespace", Pattern: `\s+`},
	})),
	participle.Elide("Whitespace"),
)

// Extractor finds parameter requests in diagnostic text
type Extractor struct {
	marker string
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMarker replaces DefaultMarker. An empty marker is ignored.
func WithMarker(marker string) Option {
	return func(e *Extractor) {
		if marker != "" {
			e.marker = marker
		}
	}
}

// NewExtractor creates an extractor
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{marker: DefaultMarker}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Marker returns the marker token
func (e *Extractor) Marker() string {
	return e.marker
}

// Extract returns one record per marker line of text, in order. Repeated
// lines yield repeated records; callers keep set semantics.
func (e *Extractor) Extract(text string) ([]models.DiagnosticRecord, error) {
	var records []models.DiagnosticRecord
	for _, line := range strings.Split(text, "\n") {
		record, ok, err := e.ParseLine(line)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// ParseLine parses a single line. ok is false when the line holds no marker.
// A marker present more than once, a malformed pair or a line with no pairs
// is a DiagnosticParseError.
func (e *Extractor) ParseLine(line string) (record models.DiagnosticRecord, ok bool, err error) {
	line = strings.TrimRight(line, "\r")
	switch strings.Count(line, e.marker) {
	case 0:
		return record, false, nil
	case 1:
	default:
		return record, false, genErrors.NewDiagnosticParseError(line, "marker "+e.marker+" appears more than once")
	}

	rest := line[strings.Index(line, e.marker)+len(e.marker):]
	parsed, perr := requestParser.ParseString("", rest)
	if perr != nil {
		return record, false, genErrors.NewDiagnosticParseError(line, perr.Error())
	}
	if len(parsed.Pairs) == 0 {
		return record, false, genErrors.NewDiagnosticParseError(line, "no key=value pairs after marker")
	}

	record.Line = line
	record.Bindings = make(models.Binding, len(parsed.Pairs))
	seen := make(map[string]struct{}, len(parsed.Pairs))
	for _, p := range parsed.Pairs {
		key, value, _ := strings.Cut(p, "=")
		if _, dup := seen[key]; dup {
			return models.DiagnosticRecord{}, false, genErrors.NewDuplicateParameterError(key, line)
		}
		seen[key] = struct{}{}
		if key == NameKey {
			record.GeneratorName = value
			continue
		}
		record.Bindings[key] = value
	}
	return record, true, nil
}
