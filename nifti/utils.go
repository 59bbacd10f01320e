package nifti

import (
	"fmt"
	"path/filepath"
)

const (
	Kilo = 1 << 10
	Mega = 1 << 20
	Giga = 1 << 30
	Tera = 1 << 40
)

// ConvertToAbsolute returns an absolute path for p, treating relative paths as relative
// to the given base directory.
func ConvertToAbsolute(p, baseDir string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path cannot be made absolute")
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	return filepath.Abs(filepath.Join(baseDir, p))
}

// RoundUp returns n rounded up to the nearest multiple of align.
func RoundUp(n, align int64) int64 {
	if align <= 0 {
		return n
	}
	if r := n % align; r != 0 {
		return n + align - r
	}
	return n
}
