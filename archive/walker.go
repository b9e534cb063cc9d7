// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when requested entry is not present in archive.
var ErrNotFound = errors.New("entry not found in archive")

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains name of the archive passed
// to Walk. The file argument is the zip.File structure for file in archive
// which satisfies match condition. If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// Walk walks the all files in the archive which satisfy match condition,
// calling walkFn for each item. Archives with path traversal components
// ("..") or absolute paths are rejected to prevent Zip Slip attacks.
func Walk(archive, pattern string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	return walk(&r.Reader, archive, pattern, walkFn)
}

// WalkBytes is Walk for archive already loaded in memory, name is only used
// to report archive to walkFn.
func WalkBytes(data []byte, name, pattern string, walkFn WalkFunc) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	return walk(r, name, pattern, walkFn)
}

func walk(r *zip.Reader, archive, pattern string, walkFn WalkFunc) error {
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, pattern) {
			if err := walkFn(archive, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadFile returns content of single named entry of the archive on disk.
func ReadFile(archive, name string) ([]byte, error) {
	var data []byte
	found := false
	err := Walk(archive, name, func(_ string, f *zip.File) error {
		if f.FileHeader.Name != name {
			return nil
		}
		found = true
		var err error
		data, err = ReadEntry(f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s in %s: %w", name, archive, ErrNotFound)
	}
	return data, nil
}

// ReadEntry returns content of zip entry.
func ReadEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", f.FileHeader.Name, err)
	}
	return data, nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
