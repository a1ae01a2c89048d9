package signing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateKeypair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")

	public, private, generated, err := LoadOrGenerateKeypair(dir)
	require.NoError(t, err)
	assert.True(t, generated)

	info, err := os.Stat(filepath.Join(dir, privateKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	info, err = os.Stat(filepath.Join(dir, publicKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	t.Run("2回目は既存の鍵を読み込む", func(t *testing.T) {
		public2, private2, generated, err := LoadOrGenerateKeypair(dir)
		require.NoError(t, err)
		assert.False(t, generated)
		assert.Equal(t, public, public2)
		assert.Equal(t, private, private2)
	})

	t.Run("破損した鍵は上書きしない", func(t *testing.T) {
		broken := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(broken, privateKeyFile), []byte("short"), 0600))

		_, _, _, err := LoadOrGenerateKeypair(broken)
		assert.Error(t, err)
		content, _ := os.ReadFile(filepath.Join(broken, privateKeyFile))
		assert.Equal(t, []byte("short"), content)
	})
}

func TestLoadRetiredPublicKeys(t *testing.T) {
	t.Run("空のパスは何も読まない", func(t *testing.T) {
		keys, err := LoadRetiredPublicKeys("")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("存在しないディレクトリは空", func(t *testing.T) {
		keys, err := LoadRetiredPublicKeys(filepath.Join(t.TempDir(), "missing"))
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("pubファイルのみ読み込む", func(t *testing.T) {
		dir := t.TempDir()
		pub1, _, err := GenerateKeypair()
		require.NoError(t, err)
		pub2, _, err := GenerateKeypair()
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "2024.pub"), pub1, 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "2025.pub"), pub2, 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0644))

		keys, err := LoadRetiredPublicKeys(dir)
		require.NoError(t, err)
		require.Len(t, keys, 2)
		assert.Equal(t, pub1, keys[0])
	})

	t.Run("サイズ不正はエラー", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.pub"), []byte("bad"), 0644))
		_, err := LoadRetiredPublicKeys(dir)
		assert.Error(t, err)
	})
}

func TestKeyID(t *testing.T) {
	pub1, _, err := GenerateKeypair()
	require.NoError(t, err)
	pub2, _, err := GenerateKeypair()
	require.NoError(t, err)

	assert.Len(t, KeyID(pub1), 16)
	assert.Equal(t, KeyID(pub1), KeyID(pub1))
	assert.NotEqual(t, KeyID(pub1), KeyID(pub2))
}
