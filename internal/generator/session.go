package generator

import (
	"io"
	"sync"

	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/models"
)

// Session caches the generators loaded during one loop run. Each module
// identifier is loaded at most once. A session is created when the loop
// starts and closed when it ends.
type Session struct {
	registry *Registry

	mu     sync.Mutex
	loaded map[string]Generator
	loads  int
	closed bool
}

// NewSession creates a session loading generators from registry
func NewSession(registry *Registry) *Session {
	return &Session{
		registry: registry,
		loaded:   make(map[string]Generator),
	}
}

// Load returns the callable for entry, loading the generator on first use
func (s *Session) Load(name string, entry models.EntryPoint) (GenerateFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, genErrors.Newf(genErrors.UnknownErrorCode, "generator session is closed, cannot load '%s'", entry.Module)
	}

	gen, ok := s.loaded[entry.Module]
	if !ok {
		factory, found := s.registry.Lookup(entry.Module)
		if !found {
			return nil, genErrors.NewGeneratorNotFoundError(entry.Module, s.registry.Names())
		}
		var err error
		gen, err = factory(entry)
		if err != nil {
			notFound := genErrors.NewGeneratorNotFoundError(entry.Module, nil)
			notFound.WithCause(err)
			return nil, notFound
		}
		if gen == nil {
			return nil, genErrors.NewGeneratorContractError(entry.Module, entry.Function, "factory returned no generator")
		}
		s.loaded[entry.Module] = gen
		s.loads++
	}

	return entryFunction(name, gen, entry.Function)
}

// Loads returns how many generators were loaded so far
func (s *Session) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// Close releases every loaded generator implementing io.Closer. The first
// close error is returned.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var first error
	for _, gen := range s.loaded {
		if c, ok := gen.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	s.loaded = nil
	return first
}
