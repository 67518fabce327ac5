// Package assets mirrors the static asset tree into the output directory and
// carries the client refresh script embedded in the binary.
package assets

import (
	_ "embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/olynch/presentations/internal/errors"
)

// RefreshScript is the client script served at /refresh.js and written to
// out/refresh.js in dev mode. It reloads the page on every message.
//
//go:embed refresh.js
var RefreshScript []byte

// RefreshScriptName is the file name of the client script under out/.
const RefreshScriptName = "refresh.js"

// CopyTree recursively copies src into dst, creating directories as needed
// and overwriting existing files. Symlinks are followed; a directory link
// that points back into its own ancestry is skipped. Sockets, devices and
// named pipes are skipped.
func CopyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeCopyFailed, "stat source", err).WithPath(src)
	}
	if !info.IsDir() {
		return errors.NewIOError(errors.ErrCodeCopyFailed, "source is not a directory", nil).WithPath(src)
	}
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeCopyFailed, "resolve source", err).WithPath(src)
	}
	return copyDir(src, dst, info.Mode().Perm(), map[string]bool{resolved: true})
}

// copyDir copies src into dst. ancestors holds the resolved paths of the
// directories on the current descent.
func copyDir(src, dst string, perm fs.FileMode, ancestors map[string]bool) error {
	if err := os.MkdirAll(dst, perm|0700); err != nil {
		return errors.NewIOError(errors.ErrCodeCopyFailed, "create directory", err).WithPath(dst)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeCopyFailed, "read directory", err).WithPath(src)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		// os.Stat follows symlinks.
		info, err := os.Stat(srcPath)
		if err != nil {
			return errors.NewIOError(errors.ErrCodeCopyFailed, "stat entry", err).WithPath(srcPath)
		}

		switch {
		case info.IsDir():
			resolved, err := filepath.EvalSymlinks(srcPath)
			if err != nil {
				return errors.NewIOError(errors.ErrCodeCopyFailed, "resolve directory", err).WithPath(srcPath)
			}
			if ancestors[resolved] {
				continue
			}
			ancestors[resolved] = true
			err = copyDir(srcPath, dstPath, info.Mode().Perm(), ancestors)
			delete(ancestors, resolved)
			if err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if err := copyFile(srcPath, dstPath, info.Mode().Perm()); err != nil {
				return err
			}
		}
	}

	return nil
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeCopyFailed, "open file", err).WithPath(src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0600)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeCopyFailed, "create file", err).WithPath(dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.NewIOError(errors.ErrCodeCopyFailed, fmt.Sprintf("copy to %s", dst), err).WithPath(src)
	}

	if err := out.Close(); err != nil {
		return errors.NewIOError(errors.ErrCodeCopyFailed, "close file", err).WithPath(dst)
	}

	return nil
}

// WriteRefreshScript writes the embedded client script into outDir.
func WriteRefreshScript(outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return errors.NewIOError(errors.ErrCodeWriteFailed, "create output directory", err).WithPath(outDir)
	}
	path := filepath.Join(outDir, RefreshScriptName)
	if err := os.WriteFile(path, RefreshScript, 0644); err != nil {
		return errors.NewIOError(errors.ErrCodeWriteFailed, "write refresh script", err).WithPath(path)
	}
	return nil
}
