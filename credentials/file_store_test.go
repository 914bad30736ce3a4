package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/stretchr/testify/require"
)

var testPair = token.Pair{Access: "access-token", Refresh: "refresh-token"}

func TestFileStore_SaveLoadClear(t *testing.T) {
	fs, err := credentials.NewFileStore(t.TempDir(), "")
	require.NoError(t, err)

	pair, err := fs.Load()
	require.NoError(t, err)
	require.Nil(t, pair, "empty store loads as absent")

	require.NoError(t, fs.Save(testPair))

	pair, err = fs.Load()
	require.NoError(t, err)
	require.Equal(t, testPair, *pair)

	info, err := os.Stat(fs.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, fs.Clear())
	pair, err = fs.Load()
	require.NoError(t, err)
	require.Nil(t, pair)

	require.NoError(t, fs.Clear(), "clearing an empty store is not an error")
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	fs, err := credentials.NewFileStore(t.TempDir(), "")
	require.NoError(t, err)

	require.NoError(t, fs.Save(testPair))
	second := token.Pair{Access: "access-2", Refresh: "refresh-2"}
	require.NoError(t, fs.Save(second))

	pair, err := fs.Load()
	require.NoError(t, err)
	require.Equal(t, second, *pair)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	fs, err := credentials.NewFileStore(dir, "")
	require.NoError(t, err)
	require.NoError(t, fs.Save(testPair))

	reopened, err := credentials.NewFileStore(dir, "")
	require.NoError(t, err)
	pair, err := reopened.Load()
	require.NoError(t, err)
	require.Equal(t, testPair, *pair)
}

func TestFileStore_MalformedIsAbsent(t *testing.T) {
	fs, err := credentials.NewFileStore(t.TempDir(), "")
	require.NoError(t, err)

	for _, raw := range []string{"{{garbage", `{"refresh":"only"}`, ""} {
		require.NoError(t, os.WriteFile(fs.Path(), []byte(raw), 0o600))
		pair, err := fs.Load()
		require.NoError(t, err, raw)
		require.Nil(t, pair, raw)
	}
}

func TestFileStore_ProfilesDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	def, err := credentials.NewFileStore(dir, credentials.KeyForProfile("default"))
	require.NoError(t, err)
	staging, err := credentials.NewFileStore(dir, credentials.KeyForProfile("staging"))
	require.NoError(t, err)
	require.NotEqual(t, def.Path(), staging.Path())
	require.Equal(t, filepath.Join(dir, "authTokens-staging.json"), staging.Path())

	require.NoError(t, def.Save(testPair))
	pair, err := staging.Load()
	require.NoError(t, err)
	require.Nil(t, pair)
}

func TestFileStore_Sealed(t *testing.T) {
	dir := t.TempDir()
	fs, err := credentials.NewFileStore(dir, "", credentials.WithSealKey("correct horse"))
	require.NoError(t, err)
	require.NoError(t, fs.Save(testPair))

	raw, err := os.ReadFile(fs.Path())
	require.NoError(t, err)
	require.NotContains(t, string(raw), testPair.Access, "sealed file must not contain the token in clear")

	pair, err := fs.Load()
	require.NoError(t, err)
	require.Equal(t, testPair, *pair)

	t.Run("wrong passphrase loads as absent", func(t *testing.T) {
		other, err := credentials.NewFileStore(dir, "", credentials.WithSealKey("battery staple"))
		require.NoError(t, err)
		pair, err := other.Load()
		require.NoError(t, err)
		require.Nil(t, pair)
	})

	t.Run("unsealed reader sees malformed data", func(t *testing.T) {
		plain, err := credentials.NewFileStore(dir, "")
		require.NoError(t, err)
		pair, err := plain.Load()
		require.NoError(t, err)
		require.Nil(t, pair)
	})

	t.Run("truncated file loads as absent", func(t *testing.T) {
		require.NoError(t, os.WriteFile(fs.Path(), raw[:10], 0o600))
		pair, err := fs.Load()
		require.NoError(t, err)
		require.Nil(t, pair)
	})
}

func TestKeyForProfile(t *testing.T) {
	require.Equal(t, "authTokens", credentials.KeyForProfile(""))
	require.Equal(t, "authTokens", credentials.KeyForProfile("default"))
	require.Equal(t, "authTokens:staging", credentials.KeyForProfile("staging"))
}
