// Package version reports the build information of the running binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags.
var (
	Version   string
	BuildDate string
)

var (
	Revision  = "unknown"
	GoVersion = runtime.Version()
	GoOS      = runtime.GOOS
	GoArch    = runtime.GOARCH

	// moduleVersion is the version go install recorded, if any.
	moduleVersion string
)

func init() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if v := buildInfo.Main.Version; v != "" && v != "(devel)" {
		moduleVersion = v
	}

	Revision = revision(buildInfo.Settings)
}

// GetVersion returns the release version. Builds without one fall back to
// the module version, then to the VCS revision.
func GetVersion() string {
	switch {
	case Version != "":
		return Version
	case moduleVersion != "":
		return moduleVersion
	}

	return Revision
}

// String describes the build, as printed by --version.
func String() string {
	s := GetVersion()
	if s != Revision && Revision != "unknown" {
		s += " (" + Revision + ")"
	}
	if BuildDate != "" {
		s += ", built " + BuildDate
	}

	return fmt.Sprintf("%s, %s %s/%s", s, GoVersion, GoOS, GoArch)
}

func revision(settings []debug.BuildSetting) string {
	var rev, modified string

	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value[:min(len(s.Value), 7)]
		case "vcs.modified":
			if s.Value == "true" {
				modified = "-dirty"
			}
		}
	}

	if rev == "" {
		return "unknown"
	}

	return rev + modified
}
