package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey      = "sk-abcdefghijklmnop"
	otherTestKey = "sk-qrstuvwxyz123456"
)

func TestNewStore(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		tmpDir := t.TempDir()
		credDir := filepath.Join(tmpDir, "creds")

		store, err := NewStore(credDir)
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(credDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("creates config.json on initialization", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(tmpDir, "config.json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		cfg, err := store.loadConfig()
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Version)
		assert.Empty(t, cfg.DefaultCredential)
		assert.Empty(t, cfg.Credentials)
	})
}

func TestStore_Add(t *testing.T) {
	t.Run("stores the credential", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		cred, err := store.Add("dev", "http://localhost:8080/", testKey)
		require.NoError(t, err)
		assert.Equal(t, "dev", cred.Name)
		assert.Equal(t, "http://localhost:8080", cred.ServerURL)
		assert.Equal(t, "sk-ab************op", cred.Hint())
		assert.False(t, cred.CreatedAt.IsZero())

		got, err := store.Get("dev")
		require.NoError(t, err)
		assert.Equal(t, testKey, got.APIKey)
	})

	t.Run("sets as default when first credential", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Add("first", "http://a", testKey)
		require.NoError(t, err)
		_, err = store.Add("second", "http://b", otherTestKey)
		require.NoError(t, err)

		def, err := store.GetDefault()
		require.NoError(t, err)
		assert.Equal(t, "first", def.Name)
	})

	t.Run("rejects duplicates and bad keys", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Add("dev", "http://a", testKey)
		require.NoError(t, err)

		_, err = store.Add("dev", "http://a", otherTestKey)
		assert.ErrorIs(t, err, ErrCredentialExists)

		_, err = store.Add("jwt", "http://a", "eyJhbGciOiJFUzI1NiJ9")
		assert.ErrorIs(t, err, ErrInvalidAPIKey)

		_, err = store.Add("", "http://a", testKey)
		assert.Error(t, err)
	})
}

func TestStore_Resolve(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Resolve("")
	require.ErrorIs(t, err, ErrNoDefaultCredential)

	_, err = store.Add("dev", "http://a", testKey)
	require.NoError(t, err)
	_, err = store.Add("prod", "http://b", otherTestKey)
	require.NoError(t, err)

	cred, err := store.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "dev", cred.Name)

	cred, err = store.Resolve("prod")
	require.NoError(t, err)
	assert.Equal(t, "http://b", cred.ServerURL)

	_, err = store.Resolve("missing")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestStore_List(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := store.Add(name, "http://a", testKey)
		require.NoError(t, err)
	}

	creds, err := store.List()
	require.NoError(t, err)
	require.Len(t, creds, 3)
	assert.Equal(t, "alpha", creds[0].Name)
	assert.Equal(t, "zeta", creds[2].Name)
}

func TestStore_SetScope(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Add("dev", "http://a", testKey)
	require.NoError(t, err)

	require.NoError(t, store.SetScope("dev", "org-1", "proj_1"))

	cred, err := store.Get("dev")
	require.NoError(t, err)
	assert.Equal(t, "org-1", cred.OrganizationID)
	assert.Equal(t, "proj_1", cred.ProjectID)
	assert.True(t, cred.UpdatedAt.After(cred.CreatedAt) || cred.UpdatedAt.Equal(cred.CreatedAt))

	assert.ErrorIs(t, store.SetScope("missing", "", ""), ErrCredentialNotFound)
}

func TestStore_Delete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Add("dev", "http://a", testKey)
	require.NoError(t, err)

	require.NoError(t, store.Delete("dev"))

	_, err = store.Get("dev")
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	// the default is cleared with it
	_, err = store.GetDefault()
	assert.ErrorIs(t, err, ErrNoDefaultCredential)

	assert.ErrorIs(t, store.Delete("dev"), ErrCredentialNotFound)
}

func TestStore_SetDefault(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Add("dev", "http://a", testKey)
	require.NoError(t, err)
	_, err = store.Add("prod", "http://b", otherTestKey)
	require.NoError(t, err)

	require.NoError(t, store.SetDefault("prod"))
	def, err := store.GetDefault()
	require.NoError(t, err)
	assert.Equal(t, "prod", def.Name)

	assert.ErrorIs(t, store.SetDefault("missing"), ErrCredentialNotFound)
}
