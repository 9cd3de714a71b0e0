package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toyz/genloop/internal/config"
	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/utils"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type globalOptions struct {
	configPath string
	verbose    bool
	quiet      bool
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "genloop",
		Short: "Iterative HDL generator driver",
		Long: `genloop runs HDL generators, compiles and simulates the design, and feeds the
parameter sets the simulation asks for back into the generators until nothing
new is requested.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to "+config.FileName+" (default: search upwards from the working directory)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only show errors and final results")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "show every toolchain invocation")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newFilesCmd(opts))
	root.AddCommand(newCleanCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// diagnostics creates the diagnostic system selected by the global flags
func (o *globalOptions) diagnostics(cmd *cobra.Command) *utils.DiagnosticSystem {
	level := utils.DiagnosticInfo
	switch {
	case o.quiet:
		level = utils.DiagnosticError
	case o.debug:
		level = utils.DiagnosticDebug
	case o.verbose:
		level = utils.DiagnosticVerbose
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if out == os.Stdout && errOut == os.Stderr {
		return utils.NewDiagnosticSystem(level)
	}
	return utils.NewDiagnosticSystemWithWriters(level, out, errOut)
}

// loadConfig reads --config, or searches upwards from the working directory
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.Load(o.configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, genErrors.WrapFileSystemError("resolve", "working directory", err)
	}
	return config.LoadFrom(wd)
}

// report prints err with its context and hints and returns it for cobra
func report(diagnostics *utils.DiagnosticSystem, err error) error {
	if err != nil {
		diagnostics.Error("%s", genErrors.Format(err))
	}
	return err
}
