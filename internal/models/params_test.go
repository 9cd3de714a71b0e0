package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingKeyIsOrderIndependent(t *testing.T) {
	a := Binding{"n_inputs": "7", "operation": "min"}
	b := Binding{"operation": "min", "n_inputs": "7"}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "{n_inputs=7 operation=min}", a.String())
	assert.NotEqual(t, a.Key(), Binding{"n_inputs": "7"}.Key())
}

func TestBindingKeyDoesNotCollide(t *testing.T) {
	// "a=b c=d" joined naively would collide with a single value holding the separator
	a := Binding{"a": "b", "c": "d"}
	b := Binding{"a": "b c=d"}
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestParamSetSetSemantics(t *testing.T) {
	set := NewParamSet()

	assert.True(t, set.Add(Binding{"n_inputs": "7", "operation": "min"}))
	assert.False(t, set.Add(Binding{"operation": "min", "n_inputs": "7"}))
	assert.True(t, set.Add(Binding{"n_inputs": "3", "operation": "min"}))

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has(Binding{"n_inputs": "3", "operation": "min"}))
	assert.False(t, set.Has(Binding{"n_inputs": "4"}))
}

func TestParamSetStoresCopies(t *testing.T) {
	b := Binding{"width": "3"}
	set := NewParamSet(b)
	b["width"] = "4"

	assert.True(t, set.Has(Binding{"width": "3"}))
	assert.False(t, set.Has(Binding{"width": "4"}))
}

func TestParamSetMapsAreOrderedAndMutable(t *testing.T) {
	set := NewParamSet(
		Binding{"n": "9"},
		Binding{"n": "10"},
		Binding{"n": "2"},
	)

	maps := set.Maps()
	require.Len(t, maps, 3)
	assert.Equal(t, []map[string]string{{"n": "10"}, {"n": "2"}, {"n": "9"}}, maps)

	maps[0]["n"] = "changed"
	assert.True(t, set.Has(Binding{"n": "10"}))
	assert.Equal(t, set.Maps(), set.Maps())
}

func TestNilParamSet(t *testing.T) {
	var set *ParamSet
	assert.Equal(t, 0, set.Len())
	assert.False(t, set.Has(Binding{}))
	assert.Empty(t, set.Maps())
}

func TestModuleRequirementDeduplicates(t *testing.T) {
	req := NewModuleRequirement("acme:lib:top:1.0.0")

	assert.True(t, req.AddSourceFile("/src/b.vhd"))
	assert.True(t, req.AddSourceFile("/src/a.vhd"))
	assert.False(t, req.AddSourceFile("/src/b.vhd"))
	assert.True(t, req.AddIncludeDir("/src/inc"))
	assert.False(t, req.AddIncludeDir("/src/inc"))

	assert.Equal(t, []string{"/src/b.vhd", "/src/a.vhd"}, Paths(req.SourceFiles))
	assert.Equal(t, []string{"/src/inc"}, req.IncludeDirs)
	assert.False(t, req.HasGenerator())
}

func TestGeneratedFileSetKeepsFirstOccurrence(t *testing.T) {
	set := NewGeneratedFileSet()
	set.AddFiles(SourceFiles("/gen/x.vhd", "/src/a.vhd")...)
	set.AddFiles(SourceFiles("/src/a.vhd", "/src/b.vhd")...)
	set.AddIncludeDirs("/inc", "/inc", "/inc2")

	assert.Equal(t, []string{"/gen/x.vhd", "/src/a.vhd", "/src/b.vhd"}, set.Paths())
	assert.Equal(t, []string{"/inc", "/inc2"}, set.IncludeDirs)
}
