package keybackend_test

import (
	"testing"

	"github.com/sagarc03/filedock/keybackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecretStore(t *testing.T) {
	t.Parallel()

	t.Run("merges inline and file keys with file taking precedence", func(t *testing.T) {
		t.Parallel()

		path := writeNamedFile(t, "keys.json", `[
			{"access_key": "FILE_KEY", "secret_key": "file_secret"},
			{"access_key": "SHARED", "secret_key": "file_wins"}
		]`)

		store, err := keybackend.NewSecretStore(keybackend.KeysConfig{
			Inline: []keybackend.KeyPair{
				{AccessKey: "INLINE_KEY", SecretKey: "inline_secret"},
				{AccessKey: "SHARED", SecretKey: "inline_loses"},
				{AccessKey: "", SecretKey: "skipped"},
			},
			File: path,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, store.Len())

		for access, want := range map[string]string{
			"FILE_KEY":   "file_secret",
			"INLINE_KEY": "inline_secret",
			"SHARED":     "file_wins",
		} {
			got, err := store.Lookup(access)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("empty config yields empty store", func(t *testing.T) {
		t.Parallel()

		store, err := keybackend.NewSecretStore(keybackend.KeysConfig{})
		require.NoError(t, err)
		assert.Equal(t, 0, store.Len())

		_, err = store.Lookup("ANY_KEY")
		assert.ErrorIs(t, err, keybackend.ErrKeyNotFound)
	})

	t.Run("file errors are returned", func(t *testing.T) {
		t.Parallel()

		_, err := keybackend.NewSecretStore(keybackend.KeysConfig{File: "/nonexistent/keys.json"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read keys file")
	})
}

func TestMapSecretStore_SigningPair(t *testing.T) {
	t.Parallel()

	store := keybackend.NewMapSecretStore(map[string]string{
		"ZETA":  "zeta-secret",
		"ALPHA": "alpha-secret",
	})

	t.Run("named key", func(t *testing.T) {
		t.Parallel()

		pair, err := store.SigningPair("ZETA")
		require.NoError(t, err)
		assert.Equal(t, keybackend.KeyPair{AccessKey: "ZETA", SecretKey: "zeta-secret"}, pair)
	})

	t.Run("empty name selects lexically first key", func(t *testing.T) {
		t.Parallel()

		pair, err := store.SigningPair("")
		require.NoError(t, err)
		assert.Equal(t, "ALPHA", pair.AccessKey)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()

		_, err := store.SigningPair("MISSING")
		assert.ErrorIs(t, err, keybackend.ErrKeyNotFound)
	})

	t.Run("empty store", func(t *testing.T) {
		t.Parallel()

		_, err := keybackend.NewMapSecretStore(nil).SigningPair("")
		assert.ErrorIs(t, err, keybackend.ErrNoKeys)
	})
}
