package cli

import (
	"os"
	"path/filepath"

	"github.com/toyz/genloop/internal/config"
	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/loop"
	"github.com/toyz/genloop/internal/utils"
)

// Cleaner removes the session scratch directory and generator output of a
// project
type Cleaner struct {
	diagnostics *utils.DiagnosticSystem
}

// NewCleaner creates a new cleaner
func NewCleaner(diagnostics *utils.DiagnosticSystem) *Cleaner {
	return &Cleaner{diagnostics: diagnostics}
}

// Targets returns the directories Clean removes for cfg
func (c *Cleaner) Targets(cfg *config.Config) []string {
	return []string{
		filepath.Join(cfg.WorkRoot, loop.ScratchDirName),
		cfg.OutputRoot,
	}
}

// Clean removes the scratch and output directories of cfg and returns the
// ones that existed. Missing directories are skipped.
func (c *Cleaner) Clean(cfg *config.Config) ([]string, error) {
	if cfg.OutputRoot == cfg.WorkRoot || cfg.OutputRoot == cfg.Dir {
		return nil, genErrors.NewConfigurationError("output_root",
			"refusing to remove the work root or project directory")
	}

	var removed []string
	for _, dir := range c.Targets(cfg) {
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				c.diagnostics.Debug("Nothing to clean at %s", dir)
				continue
			}
			return removed, genErrors.WrapFileSystemError("stat", dir, err)
		}
		if !info.IsDir() {
			return removed, genErrors.FileSystemError("clean", dir, "not a directory")
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, genErrors.WrapFileSystemError("remove", dir, err)
		}
		c.diagnostics.Verbose("Removed %s", dir)
		removed = append(removed, dir)
	}
	return removed, nil
}
