// Package version reports the ltd-dasher build version and source repository.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Repository is the canonical source location reported by the root endpoint.
const Repository = "https://github.com/lsst-sqre/ltd-dasher"

// Version is overridden at link time with -ldflags "-X .../version.Version=...".
var Version = "0.2.0"

// fallback is reported when Version does not parse as semver.
const fallback = "0.0.0-dev"

// Info is the payload served at the service root.
type Info struct {
	DasherVersion string `json:"dasher_version"`
	Repo          string `json:"repo"`
}

// Current returns the normalized build version. An unparsable Version
// reports fallback so clients always receive a semver string.
func Current() string {
	v, err := Parse(Version)
	if err != nil {
		return fallback
	}
	return v.String()
}

// Parse validates a version string, accepting an optional leading "v".
func Parse(raw string) (*semver.Version, error) {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	return v, nil
}

// Get returns the root endpoint payload.
func Get() Info {
	return Info{DasherVersion: Current(), Repo: Repository}
}
