package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestPutAndDelete(t *testing.T) {
	s := newTestStore(t)

	key, url, err := s.Put("spotted.jpg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.Equal(t, "/photos/"+key, url)

	data, err := os.ReadFile(filepath.Join(s.Dir, key))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	require.NoError(t, s.Delete(key))
	_, err = os.Stat(filepath.Join(s.Dir, key))
	assert.True(t, os.IsNotExist(err))
}

func TestPutRejectsDisallowedExtensions(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"shell.sh", "page.html", "archive.zip", "noext"} {
		_, _, err := s.Put(name, []byte("data"))
		assert.Error(t, err, name)
	}
}

func TestPutRejectsEmptyFile(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Put("empty.png", nil)
	assert.Error(t, err)
}

func TestPutNormalizesExtensionCase(t *testing.T) {
	s := newTestStore(t)
	key, _, err := s.Put("UPPER.JPEG", []byte("data"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".jpeg"))
}

func TestDeleteRejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, key := range []string{"", "../escape.jpg", "a/b.jpg", `a\b.jpg`, "..%2f.jpg.."} {
		assert.Error(t, s.Delete(key), key)
	}
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Delete("1234.jpg"))
}

func TestNewDiskStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "photos")
	_, err := NewDiskStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
