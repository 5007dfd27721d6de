// Package extractor copies a native library out of an application package
// (APK) into a private staging directory so it can be loaded by path.
package extractor

import (
	"archive/zip"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/bagtoad/nativelib/internal/errors"
)

// EntryName returns the in-archive path of libName for abi, following the
// APK convention lib/<abi>/<lib>.
func EntryName(abi, libName string) string {
	return path.Join("lib", abi, libName)
}

// Extract walks abis in order and returns the staging directory of the
// first ABI whose entry exists in the archive. The library ends up at
// <stagingRoot>/<abi>/<libName>. If that file already exists it is reused
// without reading the archive entry. A directory in its place is not reused;
// the copy over it fails with KindExtractionIO.
//
// A staging directory that cannot be created skips that ABI. A failure to
// open the archive or copy the entry ends the search with a KindExtractionIO
// error. If no ABI has an entry the error is KindNotFound.
func Extract(archivePath string, abis []string, stagingRoot, libName string, log *slog.Logger) (string, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		log.Error("cannot open archive", "archive", archivePath, "error", err)
		return "", errors.Wrap(errors.KindExtractionIO, "open archive", archivePath, err)
	}
	defer r.Close()

	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		entries[f.Name] = f
	}

	for _, abi := range abis {
		name := EntryName(abi, libName)
		entry, ok := entries[name]
		if !ok {
			log.Debug("no archive entry for abi", "abi", abi, "entry", name)
			continue
		}

		abiDir := filepath.Join(stagingRoot, abi)
		if err := os.MkdirAll(abiDir, 0755); err != nil {
			log.Warn("cannot create staging directory",
				"dir", abiDir, "error", errors.Wrap(errors.KindStagingDirCreate, "mkdir", abiDir, err))
			continue
		}

		dest := filepath.Join(abiDir, libName)
		if info, err := os.Stat(dest); err == nil && !info.IsDir() {
			log.Debug("library already extracted", "path", dest)
			return abiDir, nil
		}

		if err := copyEntry(entry, dest); err != nil {
			log.Error("cannot extract library", "entry", name, "dest", dest, "error", err)
			return "", errors.Wrap(errors.KindExtractionIO, "extract "+name, dest, err)
		}

		log.Info("extracted library", "entry", name, "dir", abiDir)
		return abiDir, nil
	}

	return "", errors.New(errors.KindNotFound, "extract", archivePath,
		"no "+libName+" entry for any supported abi")
}

// copyEntry streams entry into dest and makes dest world-readable. A partial
// dest is removed on failure.
func copyEntry(entry *zip.File, dest string) (err error) {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(dest)
		}
	}()

	if _, err = io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	return makeWorldReadable(dest)
}

func makeWorldReadable(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	return os.Chmod(p, info.Mode().Perm()|0444)
}
