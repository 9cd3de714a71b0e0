package generator

import (
	"github.com/toyz/genloop/internal/generators/binarytree"
	"github.com/toyz/genloop/internal/models"
)

// NewDefaultRegistry returns a registry holding the built-in generators
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(binarytree.Name, func(models.EntryPoint) (Generator, error) {
		return binarytree.New(), nil
	})
	return r
}
