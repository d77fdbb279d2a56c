package config

import (
	"github.com/Masterminds/semver/v3"
)

// ConfigFormatVersion is the version of the configuration file format written by this build.
const ConfigFormatVersion = "0.1.0"

// formatConstraint accepts files of the same minor format version.
var formatConstraint *semver.Constraints

func init() {
	var err error
	formatConstraint, err = semver.NewConstraint("~" + ConfigFormatVersion)
	if err != nil {
		panic(err)
	}
}

// IsFormatCompatible reports whether a file with the given format_version can be read.
// Returns false for invalid version strings.
func IsFormatCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return formatConstraint.Check(v)
}
