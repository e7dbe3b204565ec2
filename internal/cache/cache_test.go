package cache

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/rusq/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainFile is a non-encrypting container for tests.
type plainFile struct{}

func (plainFile) Open(filename string) (io.ReadCloser, error) {
	return os.Open(filename)
}

func (plainFile) Create(filename string) (io.WriteCloser, error) {
	return os.Create(filename)
}

func usePlainFiler(t *testing.T) {
	t.Helper()
	old := filer
	filer = plainFile{}
	t.Cleanup(func() { filer = old })
}

var testUsers = []slack.User{
	{ID: "U1", Name: "alice"},
	{ID: "U2", Name: "bob"},
	{ID: "U3", Name: "charlie"},
}

func TestSaveLoad(t *testing.T) {
	usePlainFiler(t)
	dir := t.TempDir()
	filename := filepath.Join(dir, "users.cache")

	require.NoError(t, Save(filename, testUsers))
	got, err := Load[slack.User](filename)
	require.NoError(t, err)
	assert.Equal(t, testUsers, got)
}

func TestLoad_missingFile(t *testing.T) {
	usePlainFiler(t)
	_, err := Load[slack.User](filepath.Join(t.TempDir(), "nonexistent.cache"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_emptyFile(t *testing.T) {
	usePlainFiler(t)
	filename := filepath.Join(t.TempDir(), "empty.cache")
	require.NoError(t, os.WriteFile(filename, nil, 0o600))

	_, err := Load[slack.User](filename)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLoad_corruptFile(t *testing.T) {
	usePlainFiler(t)
	filename := filepath.Join(t.TempDir(), "corrupt.cache")
	require.NoError(t, os.WriteFile(filename, []byte("]not json["), 0o600))

	_, err := Load[slack.User](filename)
	assert.Error(t, err)
}
