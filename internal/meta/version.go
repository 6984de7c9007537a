package meta

import (
	"fmt"
	"runtime"
	"strings"
)

// Name of the binary, as it appears in help and man pages
const Name = "respkit"

// Info describes the build context of a respkit binary.
//
// It encapsulates a bunch of information that's included at build time
// by the Go linker. See the vars below for more information
type Info struct {
	Version   string
	Build     string
	Branch    string
	BuildTime string
	Platform  string
	GoVersion string
	GoTag     string
}

// These will be filled in using the linker -X flag
var (
	// Version as an arbitrary string
	Version string

	// Build is the Git sha from when we are building
	Build string

	// Branch is the Git branch that we are building from
	Branch string

	// BuildTimeUTC is the build time in UTC (year/month/day hour:min:sec)
	BuildTimeUTC string

	// GoTag is the Go build tags, see https://golang.org/pkg/go/build/#hdr-Build_Constraints
	GoTag string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// GetInfo returns an Info struct populated with the build information.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   Version,
		Build:     Build,
		Branch:    Branch,
		BuildTime: BuildTimeUTC,
		GoTag:     GoTag,
		Platform:  platform,
	}
}

// String renders the info on one line, leaving out what the linker did not
// fill in.
func (i Info) String() string {
	version := i.Version
	if version == "" {
		version = "dev"
	}

	parts := []string{Name, version}

	if i.Build != "" {
		build := i.Build
		if i.Branch != "" {
			build += "@" + i.Branch
		}

		parts = append(parts, "("+build+")")
	}

	if i.BuildTime != "" {
		parts = append(parts, "built "+i.BuildTime)
	}

	parts = append(parts, i.GoVersion, i.Platform)

	if i.GoTag != "" {
		parts = append(parts, "tags "+i.GoTag)
	}

	return strings.Join(parts, " ")
}
