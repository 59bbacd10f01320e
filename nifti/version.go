package nifti

import (
	"fmt"

	"github.com/blang/semver"
)

const versionString = "0.4.1"

// Version is the semantic version of this engine.
var Version = semver.MustParse(versionString)

// CheckVersion returns an error if this engine is older than the minimum version
// string, e.g., one required by a configuration file.  An empty minimum always passes.
func CheckVersion(minimum string) error {
	if minimum == "" {
		return nil
	}
	required, err := semver.Make(minimum)
	if err != nil {
		return err
	}
	if Version.LT(required) {
		return fmt.Errorf("engine version %s is older than required %s", Version, required)
	}
	return nil
}
