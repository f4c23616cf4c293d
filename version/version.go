// Package version reports the library build version and compares
// semantic versions.
package version

import (
	"fmt"
	"runtime/debug"

	goversion "github.com/hashicorp/go-version"
)

// Version is set at build time with -ldflags "-X .../version.Version=v1.2.3".
var Version = "dev"

// modulePath identifies this module in the build info of a consuming binary.
const modulePath = "github.com/kbukum/restkit"

// Info represents version information.
type Info struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

// Get returns the library version. When Version was not set at build time
// it falls back to the module version recorded in the binary's build info.
func Get() Info {
	info := Info{Version: Version}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	if info.Version != "dev" {
		return info
	}
	for _, dep := range bi.Deps {
		if dep.Path == modulePath && dep.Version != "" && dep.Version != "(devel)" {
			info.Version = dep.Version
		}
	}
	return info
}

// UserAgent returns the default User-Agent header value.
func UserAgent() string {
	return "restkit/" + Get().Version
}

// AtLeast reports whether v is greater than or equal to minimum.
func AtLeast(v, minimum string) (bool, error) {
	have, err := goversion.NewVersion(v)
	if err != nil {
		return false, fmt.Errorf("version: parse %q: %w", v, err)
	}
	want, err := goversion.NewVersion(minimum)
	if err != nil {
		return false, fmt.Errorf("version: parse %q: %w", minimum, err)
	}
	return have.GreaterThanOrEqual(want), nil
}

// Constraint reports whether v satisfies a constraint such as ">= 3.0, < 4.0".
func Constraint(v, constraint string) (bool, error) {
	have, err := goversion.NewVersion(v)
	if err != nil {
		return false, fmt.Errorf("version: parse %q: %w", v, err)
	}
	c, err := goversion.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("version: parse constraint %q: %w", constraint, err)
	}
	return c.Check(have), nil
}
