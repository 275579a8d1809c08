package fileutils

import (
	"os"
	"path/filepath"
)

// IsWriteable reports whether path can be written by its owner, or can be
// created in its directory when it does not exist yet.
func IsWriteable(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir() && info.Mode().Perm()&0200 != 0
	}
	if os.IsNotExist(err) {
		dirInfo, err := os.Stat(filepath.Dir(path))
		if err != nil {
			return false
		}
		return dirInfo.IsDir() && dirInfo.Mode().Perm()&0200 != 0
	}
	return false
}
