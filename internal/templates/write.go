package templates

import (
	"bytes"
	"os"
	"path/filepath"

	genErrors "github.com/toyz/genloop/internal/errors"
)

// WriteIfChanged writes content to path unless the file already holds exactly
// that content, so regenerating with unchanged parameters keeps file
// modification times stable. It reports whether the file was written.
func WriteIfChanged(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, genErrors.WrapFileSystemError("read", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, genErrors.WrapFileSystemError("create directory for", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return false, genErrors.WrapFileSystemError("create temporary file for", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return false, genErrors.WrapFileSystemError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return false, genErrors.WrapFileSystemError("write", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return false, genErrors.WrapFileSystemError("chmod", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return false, genErrors.WrapFileSystemError("rename", path, err)
	}
	return true, nil
}
