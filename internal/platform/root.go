package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/locus/pkg/adapters/fs"
)

// FindVault looks upwards from startDir for a vault root, marked by the locus
// system directory or a .git directory, and returns its absolute path.
func FindVault(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if isDir(filepath.Join(dir, fs.DefaultSystemDir)) || isDir(filepath.Join(dir, ".git")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no vault found above %s", abs)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
