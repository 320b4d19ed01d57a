// SPDX-License-Identifier: MIT

// Package build exposes metadata embedded into the binary at compile
// time via -ldflags: name, version, commit and build timestamp.
// Development builds fall back to placeholder values.
package build

// Populated by -ldflags during compilation, e.g.
//
//	-X specgram/pkg/build.buildVersion=v1.2.0
var (
	buildName    = "specgram"
	buildTime    = "unknown"
	buildCommit  = "unknown"
	buildVersion = "dev"
)

// Info holds the build metadata of the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// GetInfo returns the build metadata, placeholders included when the
// binary was built without ldflags.
func GetInfo() Info {
	return Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
}
