package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/generators/binarytree"
	"github.com/toyz/genloop/internal/models"
)

// recorder is a generator writing one file per parameter set
type recorder struct {
	calls  int
	params [][]map[string]string
	top    []map[string]string
	closed bool
}

func (r *recorder) Generate(ctx context.Context, dir string, params []map[string]string, topParams map[string]string) ([]string, []string, error) {
	r.calls++
	r.params = append(r.params, params)
	r.top = append(r.top, topParams)
	files := []string{filepath.Join(dir, "base.src")}
	for i := range params {
		files = append(files, filepath.Join(dir, "gen_"+params[i]["n"]+".src"))
		params[i]["mutated"] = "yes"
	}
	return files, []string{"include"}, nil
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

func newSpec(t *testing.T, module string) *models.GeneratorSpec {
	t.Helper()
	return models.NewGeneratorSpec("mod", models.GeneratorKindNative,
		models.EntryPoint{Module: module, Function: DefaultFunction},
		filepath.Join(t.TempDir(), "out", "nested"), t.TempDir())
}

func TestRegistryValidation(t *testing.T) {
	r := NewRegistry()
	factory := func(models.EntryPoint) (Generator, error) { return &recorder{}, nil }

	require.NoError(t, r.Register("rec", factory))
	assert.Error(t, r.Register("rec", factory))
	assert.Error(t, r.Register("", factory))
	assert.Error(t, r.Register("nil", nil))
	assert.Panics(t, func() { r.MustRegister("rec", factory) })

	assert.True(t, r.Has("rec"))
	assert.Equal(t, []string{"rec"}, r.Names())
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.True(t, r.Has(binarytree.Name))
}

func TestInvokeCreatesOutputDirAndWrapsFiles(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry()
	require.NoError(t, r.Register("rec", func(models.EntryPoint) (Generator, error) { return rec, nil }))
	invoker := NewInvoker(NewSession(r), nil)

	spec := newSpec(t, "rec")
	spec.Params.Add(models.Binding{"n": "7"})
	spec.Params.Add(models.Binding{"n": "3"})
	top := map[string]string{"board": "x"}

	files, dirs, err := invoker.Invoke(context.Background(), spec, top)
	require.NoError(t, err)

	info, err := os.Stat(spec.OutputDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Equal(t, []string{
		filepath.Join(spec.OutputDir, "base.src"),
		filepath.Join(spec.OutputDir, "gen_3.src"),
		filepath.Join(spec.OutputDir, "gen_7.src"),
	}, models.Paths(files))
	assert.Equal(t, []string{filepath.Join(spec.OutputDir, "include")}, dirs)

	// the generator mutating its arguments must not leak into the spec
	assert.True(t, spec.Params.Has(models.Binding{"n": "7"}))
	assert.False(t, spec.Params.Has(models.Binding{"n": "7", "mutated": "yes"}))
	assert.Equal(t, map[string]string{"board": "x"}, rec.top[0])
}

func TestInvokeLoadsOncePerSession(t *testing.T) {
	loads := 0
	r := NewRegistry()
	require.NoError(t, r.Register("rec", func(models.EntryPoint) (Generator, error) {
		loads++
		return &recorder{}, nil
	}))
	session := NewSession(r)
	invoker := NewInvoker(session, nil)

	for i := 0; i < 3; i++ {
		_, _, err := invoker.Invoke(context.Background(), newSpec(t, "rec"), nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, session.Loads())
}

func TestInvokeIsIdempotentForBinaryTree(t *testing.T) {
	invoker := NewInvoker(NewSession(NewDefaultRegistry()), nil)
	spec := newSpec(t, binarytree.Name)
	spec.Params.Add(models.Binding{"n_inputs": "7", "operation": "binary_minimum"})

	first, _, err := invoker.Invoke(context.Background(), spec, nil)
	require.NoError(t, err)
	before := make(map[string][]byte)
	for _, f := range first {
		content, err := os.ReadFile(f.Path)
		require.NoError(t, err)
		before[f.Path] = content
	}

	second, _, err := invoker.Invoke(context.Background(), spec, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	for _, f := range second {
		content, err := os.ReadFile(f.Path)
		require.NoError(t, err)
		assert.Equal(t, before[f.Path], content)
	}
}

func TestInvokeErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("rec", func(models.EntryPoint) (Generator, error) { return &recorder{}, nil }))
	require.NoError(t, r.Register("broken", func(models.EntryPoint) (Generator, error) { return nil, errors.New("cannot load") }))
	require.NoError(t, r.Register("failing", func(models.EntryPoint) (Generator, error) {
		return Func(func(context.Context, string, []map[string]string, map[string]string) ([]string, []string, error) {
			return nil, nil, errors.New("boom")
		}), nil
	}))
	require.NoError(t, r.Register("multi", func(models.EntryPoint) (Generator, error) {
		return FuncSet{
			"tree": func(context.Context, string, []map[string]string, map[string]string) ([]string, []string, error) {
				return []string{"tree.vhd"}, nil, nil
			},
		}, nil
	}))

	tests := []struct {
		name   string
		mutate func(spec *models.GeneratorSpec)
		code   genErrors.ErrorCode
	}{
		{"unknown module", func(s *models.GeneratorSpec) { s.EntryPoint.Module = "nope" }, genErrors.GeneratorNotFoundErrorCode},
		{"factory failure", func(s *models.GeneratorSpec) { s.EntryPoint.Module = "broken" }, genErrors.GeneratorNotFoundErrorCode},
		{"unknown function", func(s *models.GeneratorSpec) { s.EntryPoint.Function = "other" }, genErrors.GeneratorContractErrorCode},
		{"missing default in function set", func(s *models.GeneratorSpec) { s.EntryPoint.Module = "multi" }, genErrors.GeneratorContractErrorCode},
		{"unsupported kind", func(s *models.GeneratorSpec) { s.Kind = "python" }, genErrors.UnsupportedGeneratorKindErrorCode},
		{"generator failure", func(s *models.GeneratorSpec) { s.EntryPoint.Module = "failing" }, genErrors.GenerationErrorCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := newSpec(t, "rec")
			tt.mutate(spec)
			_, _, err := NewInvoker(NewSession(r), nil).Invoke(context.Background(), spec, nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, genErrors.CodeOf(err))
		})
	}
}

func TestInvokeNamedEntryFunction(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("multi", func(models.EntryPoint) (Generator, error) {
		return FuncSet{
			"tree": func(ctx context.Context, dir string, params []map[string]string, top map[string]string) ([]string, []string, error) {
				return []string{"tree.vhd"}, nil, nil
			},
		}, nil
	}))
	spec := newSpec(t, "multi")
	spec.EntryPoint.Function = "tree"

	files, _, err := NewInvoker(NewSession(r), nil).Invoke(context.Background(), spec, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(spec.OutputDir, "tree.vhd")}, models.Paths(files))
}

func TestSessionClose(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry()
	require.NoError(t, r.Register("rec", func(models.EntryPoint) (Generator, error) { return rec, nil }))
	session := NewSession(r)

	_, err := session.Load("mod", models.EntryPoint{Module: "rec"})
	require.NoError(t, err)
	require.NoError(t, session.Close())
	assert.True(t, rec.closed)
	require.NoError(t, session.Close())

	_, err = session.Load("mod", models.EntryPoint{Module: "rec"})
	assert.Error(t, err)
}
