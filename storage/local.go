package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalProvider stores bytes on the backing disk under a base path.
type LocalProvider struct {
	basePath string
}

// NewLocalProvider creates a local storage provider rooted at basePath.
func NewLocalProvider(basePath string) (*LocalProvider, error) {
	if basePath == "" {
		basePath = "./uploads"
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %v", err)
	}

	return &LocalProvider{basePath: basePath}, nil
}

// Save writes data to the local file system, creating any needed
// subdirectories.
func (lp *LocalProvider) Save(key string, data []byte) error {
	fullPath := filepath.Join(lp.basePath, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %v", err)
	}

	return os.WriteFile(fullPath, data, 0644)
}

// Read loads a stored object into memory.
func (lp *LocalProvider) Read(key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(lp.basePath, key))
}

// Delete removes a file; a missing file counts as deleted.
func (lp *LocalProvider) Delete(key string) error {
	err := os.Remove(filepath.Join(lp.basePath, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Exists checks if a file exists
func (lp *LocalProvider) Exists(key string) (bool, error) {
	_, err := os.Stat(filepath.Join(lp.basePath, key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
