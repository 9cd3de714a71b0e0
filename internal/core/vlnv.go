package core

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// VLNV identifies a core as vendor:library:name:version. Vendor, library and
// version may be empty.
type VLNV struct {
	Vendor  string
	Library string
	Name    string
	Version string // canonical semver with leading "v", or empty
}

// ParseVLNV parses "name", "vendor:library:name" or
// "vendor:library:name:version"
func ParseVLNV(s string) (VLNV, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return VLNV{}, fmt.Errorf("empty core name")
	}
	parts := strings.Split(s, ":")
	var v VLNV
	switch len(parts) {
	case 1:
		v.Name = parts[0]
	case 3:
		v.Vendor, v.Library, v.Name = parts[0], parts[1], parts[2]
	case 4:
		v.Vendor, v.Library, v.Name = parts[0], parts[1], parts[2]
		version, err := canonicalVersion(parts[3])
		if err != nil {
			return VLNV{}, fmt.Errorf("core %q: %w", s, err)
		}
		v.Version = version
	default:
		return VLNV{}, fmt.Errorf("core %q: expected name, vendor:library:name or vendor:library:name:version", s)
	}
	if v.Name == "" {
		return VLNV{}, fmt.Errorf("core %q: missing name", s)
	}
	return v, nil
}

func canonicalVersion(version string) (string, error) {
	if version == "" {
		return "", nil
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return "", fmt.Errorf("invalid version %q", strings.TrimPrefix(version, "v"))
	}
	return semver.Canonical(version), nil
}

// String formats the VLNV in its colon separated form, without the leading
// "v" of the version
func (v VLNV) String() string {
	if v.Vendor == "" && v.Library == "" && v.Version == "" {
		return v.Name
	}
	s := v.Vendor + ":" + v.Library + ":" + v.Name
	if v.Version != "" {
		s += ":" + strings.TrimPrefix(v.Version, "v")
	}
	return s
}

// Base returns the VLNV without its version
func (v VLNV) Base() string {
	return v.Vendor + ":" + v.Library + ":" + v.Name
}

// Matches reports whether v names other. Empty fields in v match anything.
func (v VLNV) Matches(other VLNV) bool {
	if v.Name != other.Name {
		return false
	}
	if v.Vendor != "" && v.Vendor != other.Vendor {
		return false
	}
	if v.Library != "" && v.Library != other.Library {
		return false
	}
	if v.Version != "" && semver.Compare(v.Version, other.Version) != 0 {
		return false
	}
	return true
}

// Dependency is a versioned reference from one core to another, written as
// an optional operator followed by a VLNV, e.g. ">=acme:lib:fifo:1.2".
type Dependency struct {
	Op   string // one of "", "==", ">=", "<=", ">", "<"
	Core VLNV
}

var dependencyOps = []string{">=", "<=", "==", ">", "<"}

// ParseDependency parses a dependency string
func ParseDependency(s string) (Dependency, error) {
	s = strings.TrimSpace(s)
	var dep Dependency
	for _, op := range dependencyOps {
		if strings.HasPrefix(s, op) {
			dep.Op = op
			s = strings.TrimPrefix(s, op)
			break
		}
	}
	v, err := ParseVLNV(s)
	if err != nil {
		return Dependency{}, err
	}
	if dep.Op != "" && v.Version == "" {
		return Dependency{}, fmt.Errorf("dependency %q: operator %s needs a version", s, dep.Op)
	}
	if dep.Op == "" && v.Version != "" {
		dep.Op = "=="
	}
	dep.Core = v
	return dep, nil
}

// Allows reports whether candidate satisfies the dependency
func (d Dependency) Allows(candidate VLNV) bool {
	unversioned := d.Core
	unversioned.Version = ""
	if !unversioned.Matches(candidate) {
		return false
	}
	if d.Op == "" {
		return true
	}
	if candidate.Version == "" {
		return false
	}
	c := semver.Compare(candidate.Version, d.Core.Version)
	switch d.Op {
	case "==":
		return c == 0
	case ">=":
		return c >= 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case "<":
		return c < 0
	}
	return false
}

// String formats the dependency as written in a manifest
func (d Dependency) String() string {
	if d.Op == "==" {
		return d.Core.String()
	}
	return d.Op + d.Core.String()
}
