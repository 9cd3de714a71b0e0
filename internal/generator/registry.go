package generator

import (
	"fmt"

	"github.com/toyz/genloop/internal/models"
	"github.com/toyz/genloop/internal/utils"
)

// Registry maps generator identifiers to factories. Manifests refer to a
// generator by the identifier in their [generator] module field.
type Registry struct {
	factories *utils.BaseRegistry[string, Factory]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	base := utils.NewBaseRegistry[string, Factory]("generator", "generator name")
	base.SetValidator(utils.ChainValidators(
		utils.NotEmptyKeyValidator[Factory]("generator name"),
		utils.NoDuplicateValidator[string, Factory]("generator"),
		func(key string, value Factory, existing map[string]Factory) error {
			if value == nil {
				return fmt.Errorf("generator %q has a nil factory", key)
			}
			return nil
		},
	))
	return &Registry{factories: base}
}

// Register adds a factory under name
func (r *Registry) Register(name string, factory Factory) error {
	return r.factories.Register(name, factory)
}

// MustRegister is Register that panics on error
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// RegisterFunc registers a plain function as a generator
func (r *Registry) RegisterFunc(name string, fn GenerateFunc) error {
	return r.Register(name, func(models.EntryPoint) (Generator, error) {
		return Func(fn), nil
	})
}

// Lookup returns the factory registered under name
func (r *Registry) Lookup(name string) (Factory, bool) {
	return r.factories.Get(name)
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	return r.factories.Has(name)
}

// Names returns the registered identifiers in sorted order
func (r *Registry) Names() []string {
	return utils.SortedKeys(r.factories)
}
