// Package loader opens the located native library by absolute path, the way
// the application runtime does once it has the directory.
package loader

import (
	"fmt"
	"path/filepath"
)

// Library is an open handle to a shared library.
type Library struct {
	Path   string
	handle uintptr
}

// Open loads <dir>/<name>. dir must be absolute.
func Open(dir, name string) (*Library, error) {
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("loader: directory %q is not absolute", dir)
	}
	p := filepath.Join(dir, name)
	h, err := dlopen(p)
	if err != nil {
		return nil, fmt.Errorf("loader: cannot load %s: %w", p, err)
	}
	return &Library{Path: p, handle: h}, nil
}

// Lookup resolves a symbol in the library.
func (l *Library) Lookup(symbol string) (uintptr, error) {
	ptr, err := dlsym(l.handle, symbol)
	if err != nil {
		return 0, fmt.Errorf("loader: failed to load symbol %s: %w", symbol, err)
	}
	return ptr, nil
}

// Close releases the handle.
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := dlclose(l.handle)
	l.handle = 0
	return err
}
