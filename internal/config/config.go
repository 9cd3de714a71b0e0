package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	genErrors "github.com/toyz/genloop/internal/errors"
	"github.com/toyz/genloop/internal/utils"
)

// FileName is the name of the project configuration file
const FileName = "genloop.toml"

// Defaults applied to fields the file leaves unset
const (
	DefaultBinary    = "ghdl"
	DefaultStd       = "08"
	DefaultMarker    = "Generator"
	DefaultOutputDir = "generated"
)

// Config is a decoded genloop.toml. Paths are absolute once Load or Default
// returns.
type Config struct {
	// Path is the file the configuration was read from, empty for Default
	Path string `toml:"-"`
	// Dir is the directory relative paths are resolved against
	Dir string `toml:"-"`

	CoresRoots []string `toml:"cores_roots"`
	WorkRoot   string   `toml:"work_root"`
	OutputRoot string   `toml:"output_root"`
	TopCore    string   `toml:"top_core"`
	TopEntity  string   `toml:"top_entity"`

	Generics  []map[string]string `toml:"-"`
	TopParams map[string]string   `toml:"-"`

	Toolchain Toolchain `toml:"toolchain"`
	Loop      Loop      `toml:"loop"`
}

// Toolchain is the [toolchain] table
type Toolchain struct {
	Binary    string   `toml:"binary"`
	Std       string   `toml:"std"`
	ExtraArgs []string `toml:"extra_args"`
	Timeout   Duration `toml:"timeout"`
}

// Loop is the [loop] table
type Loop struct {
	MaxIterations int    `toml:"max_iterations"`
	Parallelism   int    `toml:"parallelism"`
	Marker        string `toml:"marker"`
}

// Duration is a time.Duration written as a Go duration string ("90s", "5m")
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// file mirrors Config with the free-form tables left undecoded so that
// numbers and booleans can be used as generic values
type file struct {
	Config
	Generics  []map[string]interface{} `toml:"generics"`
	TopParams map[string]interface{}   `toml:"top_params"`
}

// Find looks for genloop.toml in startDir and its parents
func Find(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	path, ok := utils.FindUp(startDir, FileName)
	if !ok {
		return "", genErrors.NewConfigurationError("config",
			fmt.Sprintf("no %s found in %s or any parent directory", FileName, startDir))
	}
	return path, nil
}

// Default returns the configuration used when dir holds no genloop.toml
func Default(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, genErrors.WrapConfigurationError(dir, "resolve", err)
	}
	cfg := &Config{Dir: abs}
	cfg.applyDefaults()
	return cfg, nil
}

// Load decodes the configuration file at path, resolves its paths against the
// file's directory and fills in defaults. It does not validate; call Validate
// after applying command-line overrides.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, genErrors.WrapConfigurationError(path, "resolve", err)
	}

	var f file
	meta, err := toml.DecodeFile(abs, &f)
	if err != nil {
		return nil, genErrors.WrapConfigurationError(abs, "decode", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, genErrors.NewConfigurationError(abs, "unknown keys: "+strings.Join(keys, ", "))
	}

	cfg := f.Config
	cfg.Path = abs
	cfg.Dir = filepath.Dir(abs)

	for i, set := range f.Generics {
		values, err := stringValues(set)
		if err != nil {
			return nil, genErrors.NewConfigurationError(fmt.Sprintf("generics[%d]", i), err.Error())
		}
		cfg.Generics = append(cfg.Generics, values)
	}
	if meta.IsDefined("top_params") {
		cfg.TopParams, err = stringValues(f.TopParams)
		if err != nil {
			return nil, genErrors.NewConfigurationError("top_params", err.Error())
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFrom loads the file found by walking up from startDir, or returns the
// defaults for startDir when there is none
func LoadFrom(startDir string) (*Config, error) {
	path, ok := utils.FindUp(startDir, FileName)
	if !ok {
		return Default(startDir)
	}
	return Load(path)
}

// Resolve returns p made absolute against the configuration directory
func (c *Config) Resolve(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Dir, p)
}

func (c *Config) applyDefaults() {
	for i, root := range c.CoresRoots {
		c.CoresRoots[i] = c.Resolve(root)
	}
	if c.WorkRoot == "" {
		c.WorkRoot = c.Dir
	} else {
		c.WorkRoot = c.Resolve(c.WorkRoot)
	}
	if c.OutputRoot == "" {
		c.OutputRoot = filepath.Join(c.WorkRoot, DefaultOutputDir)
	} else {
		c.OutputRoot = c.Resolve(c.OutputRoot)
	}
	if c.Toolchain.Binary == "" {
		c.Toolchain.Binary = DefaultBinary
	}
	if c.Toolchain.Std == "" {
		c.Toolchain.Std = DefaultStd
	}
	if c.Loop.Marker == "" {
		c.Loop.Marker = DefaultMarker
	}
	if c.TopParams == nil {
		c.TopParams = make(map[string]string)
	}
}

// Validate checks the configuration for a run. requireTop is false for the
// generation-only mode, which needs no top entity or generics.
func (c *Config) Validate(requireTop bool) error {
	if strings.TrimSpace(c.TopCore) == "" {
		return genErrors.NewConfigurationError("top_core", "is required")
	}
	if len(c.CoresRoots) == 0 {
		return genErrors.NewConfigurationError("cores_roots", "at least one directory is required")
	}
	if requireTop {
		if strings.TrimSpace(c.TopEntity) == "" {
			return genErrors.NewConfigurationError("top_entity", "is required to simulate")
		}
		if len(c.Generics) == 0 {
			return genErrors.NewConfigurationError("generics", "at least one [[generics]] set is required to simulate "+c.TopEntity)
		}
	}
	for i, set := range c.Generics {
		for name := range set {
			if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "= \t") {
				return genErrors.NewConfigurationError(fmt.Sprintf("generics[%d]", i), fmt.Sprintf("invalid generic name %q", name))
			}
		}
	}
	if c.Loop.MaxIterations < 0 {
		return genErrors.NewConfigurationError("loop.max_iterations", "must not be negative")
	}
	if c.Loop.Parallelism < 0 {
		return genErrors.NewConfigurationError("loop.parallelism", "must not be negative")
	}
	if strings.TrimSpace(c.Loop.Marker) != c.Loop.Marker || strings.ContainsAny(c.Loop.Marker, "=") {
		return genErrors.NewConfigurationError("loop.marker", fmt.Sprintf("invalid marker %q", c.Loop.Marker))
	}
	if c.Toolchain.Timeout.Duration < 0 {
		return genErrors.NewConfigurationError("toolchain.timeout", "must not be negative")
	}
	if c.OutputRoot == c.WorkRoot || c.OutputRoot == c.Dir {
		return genErrors.NewConfigurationError("output_root", "must be a directory of its own, not the work root or project directory")
	}
	return nil
}

// GenericNames returns the sorted union of generic names over every set
func (c *Config) GenericNames() []string {
	seen := make(map[string]struct{})
	for _, set := range c.Generics {
		for name := range set {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// stringValues converts a decoded TOML table of scalars into strings
func stringValues(in map[string]interface{}) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for key, value := range in {
		switch v := value.(type) {
		case string:
			out[key] = v
		case int64:
			out[key] = strconv.FormatInt(v, 10)
		case float64:
			out[key] = strconv.FormatFloat(v, 'g', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("value of %q must be a string, number or boolean, got %T", key, value)
		}
	}
	return out, nil
}
