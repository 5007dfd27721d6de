// Package scanner searches nested subdirectories for a file by exact name.
package scanner

import (
	"os"
	"path/filepath"
)

// MaxDepth is the deepest level below the root that FindDir descends to.
// It bounds cost on deeply nested or malformed installations.
const MaxDepth = 3

// FindDir looks for name inside the subdirectories of root, descending at
// most maxDepth levels. Each subdirectory is checked before its children,
// and its children before its next sibling. Entries are visited in the
// order os.ReadDir returns them; the first hit wins. root itself is not
// checked. Unreadable directories and non-directory entries are skipped.
func FindDir(root, name string, maxDepth int) (string, bool) {
	return findIn(root, name, 1, maxDepth)
}

func findIn(dir, name string, depth, maxDepth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		sub := filepath.Join(dir, entry.Name())
		if !isDir(sub, entry) {
			continue
		}
		if HasFile(sub, name) {
			return sub, true
		}
		if found, ok := findIn(sub, name, depth+1, maxDepth); ok {
			return found, true
		}
	}

	return "", false
}

// HasFile reports whether dir contains a non-directory entry called name.
// Symlinks are followed.
func HasFile(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}

// IsDir reports whether path exists and is a directory, following symlinks.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isDir resolves symlinked entries so a link to a directory is scanned too.
func isDir(path string, entry os.DirEntry) bool {
	if entry.Type()&os.ModeSymlink != 0 {
		return IsDir(path)
	}
	return entry.IsDir()
}
