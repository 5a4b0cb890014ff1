package files

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// WriteFile writes data to dst through a temporary file and rename, so a
// concurrent reader never observes a partially written output.
func WriteFile(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", dst, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into %s: %w", dst, err)
	}
	return nil
}

// CopyFile copies src to dst, creating parent directories.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	return WriteFile(dst, data)
}

// ReplaceExt swaps the extension of a slash path.
func ReplaceExt(p, ext string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + ext
}

// ComponentPath maps a source file onto the style-guide component tree:
// "dir/_button.scss" becomes "components/button/style.scss". Only the first
// underscore of the base name is removed.
func ComponentPath(src string) string {
	ext := path.Ext(src)
	name := strings.TrimSuffix(path.Base(src), ext)
	name = strings.Replace(name, "_", "", 1)
	return path.Join("components", name, "style"+ext)
}
