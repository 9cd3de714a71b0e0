package toolchain

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/models"
	"github.com/toyz/genloop/internal/utils"
)

const (
	// DefaultBinary is the simulator executable looked up in PATH
	DefaultBinary = "ghdl"
	// DefaultStd is the VHDL standard passed as --std
	DefaultStd = "08"

	// StdoutFile and StderrFile are the capture files written per run
	StdoutFile = "stdout"
	StderrFile = "stderr"
)

// Options configure the GHDL driver
type Options struct {
	Binary      string        // defaults to DefaultBinary
	Std         string        // defaults to DefaultStd
	WorkDir     string        // working directory of every invocation; holds the design library
	ExtraArgs   []string      // inserted after the --std flag of every invocation
	Env         []string      // added to the inherited environment
	Timeout     time.Duration // per invocation; zero disables the deadline
	Observer    StageObserver
	Diagnostics *utils.DiagnosticSystem
}

// GHDL is the Driver for the GHDL simulator
type GHDL struct {
	opts Options
}

// NewGHDL creates a GHDL driver
func NewGHDL(opts Options) *GHDL {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Std == "" {
		opts.Std = DefaultStd
	}
	return &GHDL{opts: opts}
}

// Options returns the effective options
func (g *GHDL) Options() Options {
	return g.opts
}

// Compile implements Driver
func (g *GHDL) Compile(ctx context.Context, files []models.SourceFile) error {
	if err := g.ensureWorkDir(); err != nil {
		return err
	}
	for _, f := range files {
		var out bytes.Buffer
		args := append(g.baseArgs("-a"), f.Path)
		g.opts.Diagnostics.Debug("analyzing %s", f.Path)
		if err := g.run(ctx, StageCompile, f.Path, args, &out, &out); err != nil {
			if isStageFailure(err) {
				return genErrors.NewCompileError(f.Path, out.String(), err)
			}
			return err
		}
	}
	return nil
}

// Elaborate implements Driver
func (g *GHDL) Elaborate(ctx context.Context, top string) error {
	if err := g.ensureWorkDir(); err != nil {
		return err
	}
	var out bytes.Buffer
	args := append(g.baseArgs("-e"), top)
	if err := g.run(ctx, StageElaborate, top, args, &out, &out); err != nil {
		if isStageFailure(err) {
			return genErrors.NewElaborationError(top, out.String(), err)
		}
		return err
	}
	return nil
}

// Simulate implements Driver
func (g *GHDL) Simulate(ctx context.Context, top string, generics map[string]string, scratchDir string) (string, error) {
	if err := g.ensureWorkDir(); err != nil {
		return "", err
	}

	args := append(g.baseArgs("-r"), top)
	args = append(args, GenericArgs(generics)...)

	var stdout, stderr bytes.Buffer
	var stdoutW, stderrW io.Writer = &stdout, &stderr
	if scratchDir != "" {
		if err := os.MkdirAll(scratchDir, 0755); err != nil {
			return "", genErrors.WrapFileSystemError("create scratch directory", scratchDir, err)
		}
		outFile, err := os.Create(filepath.Join(scratchDir, StdoutFile))
		if err != nil {
			return "", genErrors.WrapFileSystemError("create", filepath.Join(scratchDir, StdoutFile), err)
		}
		defer outFile.Close()
		errFile, err := os.Create(filepath.Join(scratchDir, StderrFile))
		if err != nil {
			return "", genErrors.WrapFileSystemError("create", filepath.Join(scratchDir, StderrFile), err)
		}
		defer errFile.Close()
		stdoutW = io.MultiWriter(outFile, &stdout)
		stderrW = io.MultiWriter(errFile, &stderr)
	}

	runErr := g.run(ctx, StageSimulate, top, args, stdoutW, stderrW)
	text := stderr.String() + stdout.String()
	if runErr != nil {
		if isStageFailure(runErr) {
			return text, genErrors.NewSimulationError(top, generics, text, runErr)
		}
		return text, runErr
	}
	return text, nil
}

// GenericArgs formats generics as -gNAME=VALUE flags sorted by name
func GenericArgs(generics map[string]string) []string {
	names := make([]string, 0, len(generics))
	for name := range generics {
		names = append(names, name)
	}
	sort.Strings(names)
	args := make([]string, 0, len(names))
	for _, name := range names {
		args = append(args, fmt.Sprintf("-g%s=%s", name, generics[name]))
	}
	return args
}

func (g *GHDL) baseArgs(command string) []string {
	args := []string{command, "--std=" + g.opts.Std}
	return append(args, g.opts.ExtraArgs...)
}

func (g *GHDL) ensureWorkDir() error {
	if g.opts.WorkDir == "" {
		return nil
	}
	if err := os.MkdirAll(g.opts.WorkDir, 0755); err != nil {
		return genErrors.WrapFileSystemError("create work directory", g.opts.WorkDir, err)
	}
	return nil
}

// run executes one invocation. Timeouts come back as *TimeoutError and a
// cancelled parent context as its own error; anything else is a stage failure.
func (g *GHDL) run(ctx context.Context, stage Stage, target string, args []string, stdout, stderr io.Writer) error {
	runCtx := ctx
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, g.opts.Binary, args...)
	cmd.Dir = g.opts.WorkDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if len(g.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), g.opts.Env...)
	}
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	switch {
	case err == nil:
	case ctx.Err() != nil:
		err = ctx.Err()
	case stderrors.Is(runCtx.Err(), context.DeadlineExceeded):
		err = genErrors.NewTimeoutError(string(stage), target, g.opts.Timeout, err)
	}

	g.opts.Diagnostics.Debug("%s %s finished in %s", stage, target, elapsed.Round(time.Millisecond))
	if g.opts.Observer != nil {
		g.opts.Observer(Invocation{
			Stage:    stage,
			Target:   target,
			Args:     append([]string(nil), args...),
			Duration: elapsed,
			Err:      err,
		})
	}
	return err
}

// isStageFailure reports whether err is the tool failing rather than a
// timeout or cancellation
func isStageFailure(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return genErrors.CodeOf(err) != genErrors.TimeoutErrorCode
}
