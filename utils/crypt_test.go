package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "backup.tar.gz")
	content := []byte("qb_instances password=hunter2\n")
	for len(content) < 40*1024 {
		content = append(content, content...)
	}
	require.NoError(t, os.WriteFile(plain, content, 0o600))

	sealed := filepath.Join(dir, "backup.tar.gz.enc")
	require.NoError(t, SealFile(plain, sealed, []byte("s3cret")))

	raw, err := os.ReadFile(sealed)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
	assert.Len(t, raw, headerSize+len(content)+macSize)
	info, err := os.Stat(sealed)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	opened := filepath.Join(dir, "opened.tar.gz")
	require.NoError(t, OpenSealedFile(sealed, opened, []byte("s3cret")))
	got, err := os.ReadFile(opened)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestOpenSealedFile_WrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(plain, []byte("data"), 0o600))
	sealed := filepath.Join(dir, "sealed")
	require.NoError(t, SealFile(plain, sealed, []byte("right")))

	opened := filepath.Join(dir, "opened")
	err := OpenSealedFile(sealed, opened, []byte("wrong"))
	assert.ErrorIs(t, err, ErrSealAuth)
	assert.NoFileExists(t, opened)
}

func TestOpenSealedFile_Tampered(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(plain, []byte("some database bytes"), 0o600))
	sealed := filepath.Join(dir, "sealed")
	require.NoError(t, SealFile(plain, sealed, []byte("key")))

	raw, err := os.ReadFile(sealed)
	require.NoError(t, err)
	raw[headerSize+2] ^= 0xff
	require.NoError(t, os.WriteFile(sealed, raw, 0o600))

	assert.ErrorIs(t, OpenSealedFile(sealed, filepath.Join(dir, "opened"), []byte("key")), ErrSealAuth)
}

func TestOpenSealedFile_NotSealed(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte("plain tarball"), 0o600))
	assert.ErrorIs(t, OpenSealedFile(short, filepath.Join(dir, "opened"), []byte("key")), ErrSealAuth)
}

func TestSealFile_EmptyPassphrase(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(plain, []byte("data"), 0o600))
	assert.Error(t, SealFile(plain, filepath.Join(dir, "sealed"), nil))
}
