// Package installed determines the version of the running distribution.
//
// The build metadata embedded by the Go toolchain is consulted first. When
// it carries no release tag (a "(devel)" build, or a pseudo-version stamped
// from a source checkout) the version.json descriptor compiled into the
// binary is read instead. A broken descriptor is reported as an error: it
// means the build is defective, not that the network or the registry
// misbehaved.
package installed

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

// DescriptorName is the fallback file read when build metadata has no version.
const DescriptorName = "version.json"

//go:embed version.json
var embeddedDescriptor []byte

var (
	// ErrPackageNotFound is returned by the metadata lookup when the module
	// carries no usable version.
	ErrPackageNotFound = errors.New("package not found")

	// ErrDescriptor wraps every failure to read the fallback descriptor.
	ErrDescriptor = errors.New("failed to read version")
)

// BuildInfoFunc matches debug.ReadBuildInfo.
type BuildInfoFunc func() (*debug.BuildInfo, bool)

// Resolver looks up the installed version of a module.
type Resolver struct {
	modulePath    string
	descriptorDir string
	embedded      []byte
	buildInfo     BuildInfoFunc
}

// NewResolver creates a resolver for modulePath. An empty descriptorDir
// selects the descriptor compiled into the binary; otherwise version.json is
// read from that directory.
func NewResolver(modulePath, descriptorDir string) *Resolver {
	return &Resolver{
		modulePath:    modulePath,
		descriptorDir: descriptorDir,
		embedded:      embeddedDescriptor,
		buildInfo:     debug.ReadBuildInfo,
	}
}

// WithBuildInfo replaces the metadata source.
func (r *Resolver) WithBuildInfo(fn BuildInfoFunc) *Resolver {
	r.buildInfo = fn
	return r
}

// DescriptorSource names where the fallback descriptor is read from.
func (r *Resolver) DescriptorSource() string {
	if r.descriptorDir == "" {
		return "embedded " + DescriptorName
	}
	return filepath.Join(r.descriptorDir, DescriptorName)
}

// Version returns the installed version string.
func (r *Resolver) Version() (string, error) {
	v, err := r.fromBuildInfo()
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrPackageNotFound) {
		return "", err
	}
	return r.fromDescriptor()
}

func (r *Resolver) fromBuildInfo() (string, error) {
	if r.buildInfo == nil {
		return "", ErrPackageNotFound
	}
	info, ok := r.buildInfo()
	if !ok || info == nil {
		return "", ErrPackageNotFound
	}

	mod := &info.Main
	if mod.Path != r.modulePath {
		mod = nil
		for _, dep := range info.Deps {
			if dep != nil && dep.Path == r.modulePath {
				mod = dep
				if dep.Replace != nil && dep.Replace.Version != "" {
					mod = dep.Replace
				}
				break
			}
		}
	}
	if mod == nil || !isReleaseTag(mod.Version) {
		return "", ErrPackageNotFound
	}
	return strings.TrimPrefix(mod.Version, "v"), nil
}

// isReleaseTag reports whether v is a clean semver tag. Pseudo-versions
// stamped from a VCS checkout and builds carrying metadata such as +dirty or
// +incompatible say nothing about the released version.
func isReleaseTag(v string) bool {
	return semver.IsValid(v) && semver.Build(v) == "" && !module.IsPseudoVersion(v)
}

// descriptorPart accepts either a JSON string or a JSON number.
type descriptorPart string

func (p *descriptorPart) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = descriptorPart(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*p = descriptorPart(n.String())
		return nil
	}
	return fmt.Errorf("version part must be a string or number, got %s", data)
}

type descriptor struct {
	Major descriptorPart `json:"major"`
	Minor descriptorPart `json:"minor"`
	Patch descriptorPart `json:"patch"`
}

func (r *Resolver) fromDescriptor() (string, error) {
	path := r.DescriptorSource()

	data, err := r.readDescriptor()
	if err != nil {
		return "", packagingError(path, err)
	}

	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return "", packagingError(path, err)
	}
	if d.Major == "" || d.Minor == "" || d.Patch == "" {
		return "", packagingError(path, errors.New("major, minor and patch are required"))
	}
	return fmt.Sprintf("%s.%s.%s", d.Major, d.Minor, d.Patch), nil
}

func packagingError(path string, err error) error {
	return fmt.Errorf("%w from %s: %v. This likely indicates a build or packaging issue", ErrDescriptor, path, err)
}

func (r *Resolver) readDescriptor() ([]byte, error) {
	if r.descriptorDir != "" {
		return os.ReadFile(filepath.Join(r.descriptorDir, DescriptorName))
	}
	if len(r.embedded) == 0 {
		return nil, errors.New("descriptor is empty")
	}
	return r.embedded, nil
}
