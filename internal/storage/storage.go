// Package storage abstracts where uploaded photo files live. The
// service only depends on the Store interface; DiskStore is the default
// backend for single-node deployments.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store saves and deletes photo files. Put returns an opaque key for
// later deletion and a URL clients can fetch the file from.
type Store interface {
	Put(name string, data []byte) (key string, url string, err error)
	Delete(key string) error
}

// DiskStore writes files under a local directory, served back under
// /photos/ by the HTTP layer.
type DiskStore struct {
	Dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{Dir: dir}, nil
}

func (s *DiskStore) Put(name string, data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", errors.New("empty file")
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		return "", "", fmt.Errorf("file type %q not allowed", ext)
	}

	key := fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)
	if err := os.WriteFile(filepath.Join(s.Dir, key), data, 0o644); err != nil {
		return "", "", err
	}
	return key, "/photos/" + key, nil
}

func (s *DiskStore) Delete(key string) error {
	// Reject anything that could escape the storage directory.
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	err := os.Remove(filepath.Join(s.Dir, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
