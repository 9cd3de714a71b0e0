package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/toyz/genloop/internal/config"
	"github.com/toyz/genloop/internal/loop"
)

const project = `
-- genloop.toml --
cores_roots = ["cores"]
top_core = "acme:demo:top"
top_entity = "top"

[[generics]]
N_INPUTS = 4

[toolchain]
timeout = "30s"
-- cores/top/top.core.toml --
name = "acme:demo:top:1.0.0"
depends = ["acme:demo:binary_tree"]

[[fileset]]
name = "rtl"
usage = ["synth"]
files = ["top.vhd"]
-- cores/top/top.vhd --
-- cores/tree/binary_tree.core.toml --
name = "acme:demo:binary_tree:1.0.0"

[generator]
module = "binary_tree"
`

// writeProject extracts the demo project and a fake ghdl that requests a
// four-input tree until the generated level 2 file exists
func writeProject(t *testing.T) (dir, ghdl string) {
	t.Helper()
	dir = t.TempDir()
	for _, f := range txtar.Parse([]byte(project)).Files {
		path := filepath.Join(dir, f.Name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, f.Data, 0644))
	}

	level2 := filepath.Join(dir, config.DefaultOutputDir, "binary_tree_level_2.vhd")
	script := fmt.Sprintf(`#!/bin/sh
if [ "$1" = "-r" ] && [ ! -f %q ]; then
  echo "top.vhd:9:5:@0ms:(report note): Generator name=binary_tree n_inputs=4 operation=binary_minimum"
fi
exit 0
`, level2)
	ghdl = filepath.Join(t.TempDir(), "ghdl")
	require.NoError(t, os.WriteFile(ghdl, []byte(script), 0755))
	return dir, ghdl
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func outputPaths(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "/") {
			paths = append(paths, line)
		}
	}
	return paths
}

func TestRunCommand(t *testing.T) {
	dir, ghdl := writeProject(t)

	out, _, err := execute(t, "run", "--quiet", "--config", filepath.Join(dir, config.FileName), "--ghdl", ghdl)
	require.NoError(t, err)

	paths := outputPaths(out)
	require.NotEmpty(t, paths)
	generated := filepath.Join(dir, config.DefaultOutputDir)
	assert.Contains(t, paths, filepath.Join(generated, "binary_tree_level_2.vhd"))
	assert.Contains(t, paths, filepath.Join(generated, "binary_tree.vhd"))
	assert.Equal(t, filepath.Join(dir, "cores", "top", "top.vhd"), paths[len(paths)-1])
	assert.DirExists(t, filepath.Join(dir, loop.ScratchDirName))
}

func TestFilesCommand(t *testing.T) {
	dir, ghdl := writeProject(t)

	out, _, err := execute(t, "files", "-q", "-c", filepath.Join(dir, config.FileName), "--ghdl", ghdl)
	require.NoError(t, err)

	paths := outputPaths(out)
	generated := filepath.Join(dir, config.DefaultOutputDir)
	assert.Contains(t, paths, filepath.Join(generated, "binary_tree_level_1.vhd"))
	assert.NotContains(t, paths, filepath.Join(generated, "binary_tree_level_2.vhd"))
	assert.NoDirExists(t, filepath.Join(dir, loop.ScratchDirName))
}

func TestRunCommandNonConvergence(t *testing.T) {
	dir, _ := writeProject(t)
	// Always asks, never satisfied
	ghdl := filepath.Join(t.TempDir(), "ghdl")
	require.NoError(t, os.WriteFile(ghdl, []byte(`#!/bin/sh
if [ "$1" = "-r" ]; then
  echo "Generator name=binary_tree n_inputs=$$ operation=binary_minimum"
fi
exit 0
`), 0755))

	_, errOut, err := execute(t, "run", "-c", filepath.Join(dir, config.FileName), "--ghdl", ghdl, "--max-iterations", "3")
	require.Error(t, err)
	assert.Contains(t, errOut, "NonConvergenceError")
}

func TestCleanCommand(t *testing.T) {
	dir, ghdl := writeProject(t)
	cfgPath := filepath.Join(dir, config.FileName)

	_, _, err := execute(t, "run", "-q", "-c", cfgPath, "--ghdl", ghdl)
	require.NoError(t, err)

	out, _, err := execute(t, "clean", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "removed "+filepath.Join(dir, loop.ScratchDirName))
	assert.Contains(t, out, "removed "+filepath.Join(dir, config.DefaultOutputDir))
	assert.NoDirExists(t, filepath.Join(dir, config.DefaultOutputDir))
	assert.FileExists(t, filepath.Join(dir, "cores", "top", "top.vhd"))
}

func TestMissingConfig(t *testing.T) {
	_, errOut, err := execute(t, "run", "-c", filepath.Join(t.TempDir(), config.FileName))
	require.Error(t, err)
	assert.Contains(t, errOut, "ConfigurationError")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "genloop "+version+" ("))
}

func TestParseAssignments(t *testing.T) {
	set, err := parseAssignments("WIDTH=8, MODE=fast", ",")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"WIDTH": "8", "MODE": "fast"}, set)

	set, err = parseAssignments("list=a,b", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"list": "a,b"}, set)

	_, err = parseAssignments("WIDTH", ",")
	assert.Error(t, err)
	_, err = parseAssignments("=8", ",")
	assert.Error(t, err)
	_, err = parseAssignments("A=1,A=2", ",")
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := config.Default("/project")
	require.NoError(t, err)
	cfg.Generics = []map[string]string{{"N": "1"}}

	opts := &runOptions{}
	cmd := &cobra.Command{Use: "run"}
	opts.bind(cmd, true)
	require.NoError(t, cmd.ParseFlags([]string{
		"--top-core", "acme:lib:top",
		"--top", "tb",
		"-g", "N=2,M=3",
		"-g", "N=4",
		"--param", "family=ice40",
		"--max-iterations", "5",
		"-j", "2",
		"--marker", "REQ",
		"--timeout", "1m",
		"--work-root", "/tmp/work",
	}))

	require.NoError(t, opts.apply(cmd, cfg))
	assert.Equal(t, "acme:lib:top", cfg.TopCore)
	assert.Equal(t, "tb", cfg.TopEntity)
	assert.Equal(t, []map[string]string{{"N": "2", "M": "3"}, {"N": "4"}}, cfg.Generics)
	assert.Equal(t, "ice40", cfg.TopParams["family"])
	assert.Equal(t, 5, cfg.Loop.MaxIterations)
	assert.Equal(t, 2, cfg.Loop.Parallelism)
	assert.Equal(t, "REQ", cfg.Loop.Marker)
	assert.Equal(t, "1m0s", cfg.Toolchain.Timeout.String())
	assert.Equal(t, "/tmp/work", cfg.WorkRoot)
	assert.Equal(t, "/project/generated", cfg.OutputRoot)
}
