package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/toyz/genloop/internal/config"
	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/models"
	"github.com/toyz/genloop/internal/utils"
)

const demoProject = `
-- cores/top/top.core.toml --
name = "acme:demo:top:1.0.0"
depends = ["acme:demo:binary_tree"]

[[fileset]]
name = "rtl"
usage = ["synth"]
files = ["top.vhd"]
-- cores/top/top.vhd --
-- cores/tree/binary_tree.core.toml --
name = "acme:demo:binary_tree:1.2.0"

[generator]
module = "binary_tree"
`

// treeDriver asks for a four-input tree until the generated level 2 file
// has been compiled
type treeDriver struct {
	mu          sync.Mutex
	compiled    map[string]bool
	elaborated  []string
	simulations int
}

func newTreeDriver() *treeDriver {
	return &treeDriver{compiled: make(map[string]bool)}
}

func (d *treeDriver) Compile(ctx context.Context, files []models.SourceFile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range files {
		d.compiled[filepath.Base(f.Path)] = true
	}
	return nil
}

func (d *treeDriver) Elaborate(ctx context.Context, top string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elaborated = append(d.elaborated, top)
	return nil
}

func (d *treeDriver) Simulate(ctx context.Context, top string, generics map[string]string, scratchDir string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.simulations++
	if d.compiled["binary_tree_level_2.vhd"] {
		return "", nil
	}
	return fmt.Sprintf("top.vhd:9:5:@0ms:(report note): Generator name=binary_tree n_inputs=%s operation=binary_minimum\n",
		generics["N_INPUTS"]), nil
}

func writeProject(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse([]byte(demoProject)).Files {
		path := filepath.Join(dir, f.Name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, f.Data, 0644))
	}

	cfg, err := config.Default(dir)
	require.NoError(t, err)
	cfg.CoresRoots = []string{filepath.Join(dir, "cores")}
	cfg.TopCore = "acme:demo:top"
	cfg.TopEntity = "top"
	cfg.Generics = []map[string]string{{"N_INPUTS": "4"}}
	return cfg
}

func quietDiagnostics() (*utils.DiagnosticSystem, *bytes.Buffer) {
	var out bytes.Buffer
	return utils.NewDiagnosticSystemWithWriters(utils.DiagnosticDebug, &out, &out), &out
}

func TestPipelineRunConverges(t *testing.T) {
	cfg := writeProject(t)
	driver := newTreeDriver()
	diag, out := quietDiagnostics()

	pipeline := NewPipeline(cfg, diag).WithDriver(driver)
	result, err := pipeline.Run(context.Background(), ModeRun)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, []string{"top", "top"}, driver.elaborated)
	assert.Equal(t, 2, driver.simulations)

	paths := result.Paths()
	require.NotEmpty(t, paths)
	assert.Equal(t, filepath.Join(cfg.Dir, "cores", "top", "top.vhd"), paths[len(paths)-1])
	assert.Contains(t, paths, filepath.Join(cfg.OutputRoot, "binary_tree_level_2.vhd"))
	assert.Contains(t, paths, filepath.Join(cfg.OutputRoot, "binary_tree.vhd"))
	require.Len(t, result.Params["binary_tree"], 1)
	assert.Equal(t, models.Binding{"n_inputs": "4", "operation": "binary_minimum"}, result.Params["binary_tree"][0])

	top, err := os.ReadFile(filepath.Join(cfg.OutputRoot, "binary_tree.vhd"))
	require.NoError(t, err)
	assert.Contains(t, string(top), `gen_tree_0: if OPERATION = "binary_minimum" and N_INPUTS = 4 generate`)

	summary := pipeline.Summary()
	assert.Equal(t, 2, summary.Modules)
	assert.Equal(t, 1, summary.Generators)
	assert.Equal(t, 2, summary.Iterations)
	assert.Equal(t, paths, summary.Files)
	assert.NotEmpty(t, summary.SessionID)
	assert.Equal(t, 2, summary.Stats()["Modules"])
	assert.Contains(t, out.String(), "(generator binary_tree, 0 files)")
}

func TestPipelineFilesMode(t *testing.T) {
	cfg := writeProject(t)
	cfg.TopEntity = ""
	cfg.Generics = nil
	driver := newTreeDriver()
	diag, _ := quietDiagnostics()

	result, err := NewPipeline(cfg, diag).WithDriver(driver).Run(context.Background(), ModeFiles)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Iterations)
	assert.Empty(t, driver.elaborated)
	assert.Zero(t, driver.simulations)
	assert.True(t, driver.compiled["binary_tree_level_1.vhd"])
	assert.False(t, driver.compiled["binary_tree_level_2.vhd"])
}

func TestPipelinePostProcess(t *testing.T) {
	cfg := writeProject(t)
	diag, _ := quietDiagnostics()
	calls := 0

	pipeline := NewPipeline(cfg, diag).
		WithDriver(newTreeDriver()).
		WithPostProcess(func(ctx context.Context, workRoot string, files []string) ([]string, error) {
			calls++
			assert.Equal(t, cfg.WorkRoot, workRoot)
			return files, nil
		})
	_, err := pipeline.Run(context.Background(), ModeFiles)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPipelineErrors(t *testing.T) {
	tests := []struct {
		name   string
		mode   Mode
		modify func(*config.Config)
		code   genErrors.ErrorCode
	}{
		{"missing top core", ModeRun, func(c *config.Config) { c.TopCore = "" }, genErrors.ConfigurationErrorCode},
		{"run without generics", ModeRun, func(c *config.Config) { c.Generics = nil }, genErrors.ConfigurationErrorCode},
		{"unknown top core", ModeFiles, func(c *config.Config) { c.TopCore = "acme:demo:missing" }, genErrors.DependencyResolutionErrorCode},
		{"missing cores root", ModeFiles, func(c *config.Config) {
			c.CoresRoots = []string{filepath.Join(c.Dir, "nope")}
		}, genErrors.FileSystemErrorCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeProject(t)
			tt.modify(cfg)
			diag, _ := quietDiagnostics()

			pipeline := NewPipeline(cfg, diag).WithDriver(newTreeDriver())
			_, err := pipeline.Run(context.Background(), tt.mode)
			require.Error(t, err)
			assert.Equal(t, tt.code, genErrors.CodeOf(err))
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "run", ModeRun.String())
	assert.Equal(t, "files", ModeFiles.String())
}
