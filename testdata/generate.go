// This program generates a fake device installation for trying nativelib by
// hand:
//
//	go run testdata/generate.go
//	go run ./cmd/nativelib dir --trace \
//	    --native-lib-dir testdata/device/app/lib \
//	    --apk testdata/device/app/base.apk \
//	    --data-dir testdata/device/files
//
//go:build ignore

package main

import (
	"archive/zip"
	"log"
	"os"
	"path/filepath"
)

func main() {
	dir := filepath.Join("testdata", "device")
	if err := os.RemoveAll(dir); err != nil {
		log.Fatal(err)
	}

	// Installed lib dir with unrelated libraries only, so lookup falls
	// through to extraction.
	libDir := filepath.Join(dir, "app", "lib", "arm64")
	must(os.MkdirAll(libDir, 0755))
	must(os.WriteFile(filepath.Join(libDir, "libc++_shared.so"), []byte("placeholder"), 0644))

	// APK with per-ABI copies of the library.
	writeAPK(filepath.Join(dir, "app", "base.apk"), map[string]string{
		"AndroidManifest.xml":          "<manifest/>",
		"classes.dex":                  "dex",
		"lib/arm64-v8a/libbdkffi.so":   "arm64-v8a build",
		"lib/armeabi-v7a/libbdkffi.so": "armeabi-v7a build",
		"lib/x86_64/libbdkffi.so":      "x86_64 build",
	})

	must(os.MkdirAll(filepath.Join(dir, "files"), 0755))
	log.Printf("wrote %s", dir)
}

func writeAPK(path string, entries map[string]string) {
	f, err := os.Create(path)
	must(err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		ew, err := w.Create(name)
		must(err)
		_, err = ew.Write([]byte(content))
		must(err)
	}
	must(w.Close())
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
