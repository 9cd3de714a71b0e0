package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/toyz/genloop/internal/cli"
	"github.com/toyz/genloop/internal/config"
	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/loop"
	"github.com/toyz/genloop/internal/utils"
)

// runOptions hold the command-line overrides of genloop.toml
type runOptions struct {
	coresRoots    []string
	topCore       string
	topEntity     string
	workRoot      string
	outputRoot    string
	generics      []string
	topParams     []string
	binary        string
	timeout       time.Duration
	maxIterations int
	parallelism   int
	marker        string
	listIncludes  bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate, compile and simulate until the parameter sets converge",
		Long: `run resolves the top core, runs every generator, compiles the result and
simulates the top entity once per generic set. Parameter requests reported by
the simulation are fed back into their generators until an iteration adds
nothing new. The final file list is printed one path per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, global, opts, cli.ModeRun)
		},
	}
	opts.bind(cmd, true)
	return cmd
}

func newFilesCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Generate and compile once without simulating",
		Long: `files runs every generator once with no parameter sets, compiles the result
and prints the file list. No top entity or generics are needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, global, opts, cli.ModeFiles)
		},
	}
	opts.bind(cmd, false)
	return cmd
}

func (o *runOptions) bind(cmd *cobra.Command, simulate bool) {
	flags := cmd.Flags()
	flags.StringArrayVar(&o.coresRoots, "cores-root", nil, "directory searched for core manifests (repeatable, replaces cores_roots)")
	flags.StringVar(&o.topCore, "top-core", "", "top-level core, vendor:library:name[:version]")
	flags.StringVar(&o.workRoot, "work-root", "", "directory the toolchain runs in")
	flags.StringVar(&o.outputRoot, "output-root", "", "directory generators write into")
	flags.StringArrayVar(&o.topParams, "param", nil, "top-level generator parameter NAME=VALUE (repeatable)")
	flags.StringVar(&o.binary, "ghdl", "", "toolchain binary")
	flags.DurationVar(&o.timeout, "timeout", 0, "deadline of each toolchain invocation")
	flags.BoolVar(&o.listIncludes, "include-dirs", false, "also print include directories, prefixed with -I")
	if simulate {
		flags.StringVar(&o.topEntity, "top", "", "top-level entity to elaborate and simulate")
		flags.StringArrayVarP(&o.generics, "generic", "g", nil, "generic set NAME=VALUE[,NAME=VALUE...], one simulation each (repeatable, replaces [[generics]])")
		flags.IntVar(&o.maxIterations, "max-iterations", 0, "stop after this many iterations, 0 for no limit")
		flags.IntVarP(&o.parallelism, "parallelism", "j", 0, "number of concurrent simulations")
		flags.StringVar(&o.marker, "marker", "", "token introducing a parameter request in simulation output")
	}
}

// apply copies the flags set on cmd into cfg. Paths given on the command line
// are relative to the working directory.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}

	if changed("cores-root") {
		cfg.CoresRoots = cfg.CoresRoots[:0]
		for _, root := range o.coresRoots {
			abs, err := filepath.Abs(root)
			if err != nil {
				return genErrors.WrapFileSystemError("resolve", root, err)
			}
			cfg.CoresRoots = append(cfg.CoresRoots, abs)
		}
	}
	if changed("top-core") {
		cfg.TopCore = o.topCore
	}
	if changed("top") {
		cfg.TopEntity = o.topEntity
	}
	if changed("work-root") {
		abs, err := filepath.Abs(o.workRoot)
		if err != nil {
			return genErrors.WrapFileSystemError("resolve", o.workRoot, err)
		}
		cfg.WorkRoot = abs
	}
	if changed("output-root") {
		abs, err := filepath.Abs(o.outputRoot)
		if err != nil {
			return genErrors.WrapFileSystemError("resolve", o.outputRoot, err)
		}
		cfg.OutputRoot = abs
	}
	if changed("generic") {
		cfg.Generics = nil
		for _, raw := range o.generics {
			set, err := parseAssignments(raw, ",")
			if err != nil {
				return genErrors.NewConfigurationError("--generic", err.Error())
			}
			cfg.Generics = append(cfg.Generics, set)
		}
	}
	for _, raw := range o.topParams {
		set, err := parseAssignments(raw, "")
		if err != nil {
			return genErrors.NewConfigurationError("--param", err.Error())
		}
		for k, v := range set {
			cfg.TopParams[k] = v
		}
	}
	if changed("ghdl") {
		cfg.Toolchain.Binary = o.binary
	}
	if changed("timeout") {
		cfg.Toolchain.Timeout = config.Duration{Duration: o.timeout}
	}
	if changed("max-iterations") {
		cfg.Loop.MaxIterations = o.maxIterations
	}
	if changed("parallelism") {
		cfg.Loop.Parallelism = o.parallelism
	}
	if changed("marker") {
		cfg.Loop.Marker = o.marker
	}
	return nil
}

// parseAssignments parses NAME=VALUE pairs separated by sep. An empty sep
// takes the whole string as one pair.
func parseAssignments(raw, sep string) (map[string]string, error) {
	parts := []string{raw}
	if sep != "" {
		parts = strings.Split(raw, sep)
	}
	out := make(map[string]string, len(parts))
	for _, part := range parts {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected NAME=VALUE, got %q", part)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%q given more than once in %q", name, raw)
		}
		out[name] = value
	}
	return out, nil
}

func runPipeline(cmd *cobra.Command, global *globalOptions, opts *runOptions, mode cli.Mode) error {
	diagnostics := global.diagnostics(cmd)
	diagnostics.Section("genloop " + mode.String())

	cfg, err := global.loadConfig()
	if err != nil {
		return report(diagnostics, err)
	}
	if err := opts.apply(cmd, cfg); err != nil {
		return report(diagnostics, err)
	}

	pipeline := cli.NewPipeline(cfg, diagnostics)
	result, err := pipeline.Run(cmd.Context(), mode)
	if err != nil {
		return report(diagnostics, err)
	}

	summary := pipeline.Summary()
	diagnostics.Summary("Generation complete", summary.Stats())
	printResult(cmd, result, opts.listIncludes, diagnostics)
	return nil
}

func printResult(cmd *cobra.Command, result *loop.Result, includes bool, diagnostics *utils.DiagnosticSystem) {
	out := cmd.OutOrStdout()
	if includes {
		for _, dir := range result.IncludeDirs {
			fmt.Fprintf(out, "-I%s\n", dir)
		}
	}
	for _, path := range result.Paths() {
		fmt.Fprintln(out, path)
	}
	if _, err := os.Stat(result.ScratchDir); err == nil {
		diagnostics.Verbose("Simulation captures kept in %s", result.ScratchDir)
	}
}
