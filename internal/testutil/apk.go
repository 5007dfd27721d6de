// Package testutil provides shared fixtures for nativelib tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteAPK writes a zip archive at path holding the given entries
// (in-archive name → content). Entries are written in sorted order.
func WriteAPK(t *testing.T, path string, entries map[string]string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	w := zip.NewWriter(f)
	for _, name := range names {
		ew, err := w.Create(name)
		require.NoError(t, err)
		_, err = ew.Write([]byte(entries[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return path
}

// WriteCorruptAPK writes a zip archive at path with a single uncompressed
// entry whose stored bytes no longer match its checksum. Opening the entry
// succeeds; reading it to the end fails with zip.ErrChecksum.
func WriteCorruptAPK(t *testing.T, path, name, content string) string {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ew, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	require.NoError(t, err)
	_, err = ew.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data := buf.Bytes()
	i := bytes.Index(data, []byte(content))
	require.GreaterOrEqual(t, i, 0, "payload not found in archive")
	data[i] ^= 0xff

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// WriteFile creates path (and its parents) with content.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// ReadFile returns the content of path, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// ListDir returns the names in dir, or nil if dir does not exist.
func ListDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
