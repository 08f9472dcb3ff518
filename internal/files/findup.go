package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNotFound = errors.New("not found")

// FindUp looks for name in dir and then in each of its parents, and returns the path of the first match.
func FindUp(name, dir string) (string, error) {
	curDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		p := filepath.Join(curDir, name)
		_, err := os.Lstat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("looking for %s: %w", p, err)
		}
		newDir := filepath.Dir(curDir)
		if newDir == curDir {
			return "", fmt.Errorf("%s in %s or any parent: %w", name, dir, ErrNotFound)
		}
		curDir = newDir
	}
}

// RepoRoot returns the root of the git repository containing dir.
func RepoRoot(dir string) (string, error) {
	gitDir, err := FindUp(".git", dir)
	if err != nil {
		return "", err
	}
	return filepath.Dir(gitDir), nil
}
