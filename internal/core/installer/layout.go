package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindExtracted returns the name of the first directory in dir whose name
// starts with prefix.
func FindExtracted(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			return entry.Name(), nil
		}
	}
	return "", ErrNoExtractedDir
}

// ResolveNesting handles archives that wrap their tree in a second folder
// of the same name. It returns the path (relative to dir) that holds bin/,
// and whether the doubled layout was detected. A flat layout is returned
// unchanged even if it has no bin/.
func ResolveNesting(dir, name string) (string, bool) {
	if isDir(filepath.Join(dir, name, "bin")) {
		return name, false
	}
	nested := filepath.Join(name, name)
	if isDir(filepath.Join(dir, nested, "bin")) {
		return nested, true
	}
	return name, false
}

// VerifyBinaries checks that binDir exists and contains every named file.
func VerifyBinaries(binDir string, names []string) error {
	if !isDir(binDir) {
		return fmt.Errorf("%w in %s", ErrNoBinDir, filepath.Dir(binDir))
	}
	for _, name := range names {
		if !isFile(filepath.Join(binDir, name)) {
			return fmt.Errorf("%s %w in %s", name, ErrBinaryMissing, binDir)
		}
	}
	return nil
}

// BinaryStatus reports whether an installed binary is present
type BinaryStatus struct {
	Name   string
	Path   string
	Exists bool
}

// Verify checks the installed layout <WorkDir>/<TargetDir>/bin/<Binaries>.
// ok is true only if every binary exists.
func Verify(opts Options) (statuses []BinaryStatus, ok bool) {
	opts = opts.withDefaults()
	ok = true
	for _, name := range opts.Binaries {
		path := filepath.Join(opts.WorkDir, opts.TargetDir, "bin", name)
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		exists := isFile(path)
		ok = ok && exists
		statuses = append(statuses, BinaryStatus{Name: name, Path: path, Exists: exists})
	}
	return statuses, ok
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
