package fileutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// AtomicWrite writes data to a file atomically using a tmp file + rename pattern.
// The file is written to a temporary file in the same directory, synced to disk,
// then renamed over the target path.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	return AtomicWriteFrom(path, bytes.NewReader(data), perm)
}

// AtomicWriteFrom streams r into path with the same guarantees as AtomicWrite.
// Song files can be large, so nothing is buffered in memory.
func AtomicWriteFrom(path string, r io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Same directory, so the rename never crosses a filesystem
	tmp, err := os.CreateTemp(dir, ".musync-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	success = true
	return nil
}

// CopyFile copies src to dst atomically, creating dst's parent directories.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return AtomicWriteFrom(dst, in, info.Mode().Perm())
}
