package pathstore

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeFile = "/home/user/.falsh_path"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	return New(fs, storeFile, quietLogger()), fs
}

func TestStoreLoadMissingFile(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Load())
	assert.Empty(t, s.List())
}

func TestStoreLoad(t *testing.T) {
	s, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, storeFile, []byte("/opt/tools\n/usr/local/bin\n\n/opt/tools\n"), 0644))

	require.NoError(t, s.Load())
	assert.Equal(t, []string{"/opt/tools", "/usr/local/bin"}, s.List())
}

func TestStoreAdd(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Add("/a"))
	require.NoError(t, s.Add("/b"))
	assert.Equal(t, []string{"/a", "/b"}, s.List())

	// Duplicate adds keep the list unchanged.
	err := s.Add("/a")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, []string{"/a", "/b"}, s.List())

	// Directories don't need to exist yet.
	require.NoError(t, s.Add("/does/not/exist"))
}

func TestStoreRemove(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add("/a"))
	require.NoError(t, s.Add("/b"))

	require.NoError(t, s.Remove("/a"))
	assert.Equal(t, []string{"/b"}, s.List())

	assert.ErrorIs(t, s.Remove("/a"), ErrMissing)
}

func TestStoreSeedEnv(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add("/persisted"))

	s.SeedEnv("/usr/bin:/persisted:/bin:")

	// Persisted entries come first and shadow the environment.
	assert.Equal(t, []string{"/persisted", "/usr/bin", "/bin"}, s.List())
}

func TestStorePersistRoundTrip(t *testing.T) {
	s, fs := newTestStore(t)
	require.NoError(t, s.Add("/z"))
	require.NoError(t, s.Add("/a"))
	require.NoError(t, s.Add("/m"))

	require.NoError(t, s.Persist())

	data, err := afero.ReadFile(fs, storeFile)
	require.NoError(t, err)
	assert.Equal(t, "/z\n/a\n/m\n", string(data))

	// A fresh store with no environment seeding reproduces the order.
	fresh := New(fs, storeFile, quietLogger())
	require.NoError(t, fresh.Load())
	assert.Equal(t, s.List(), fresh.List())
}

func TestStorePathList(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add("/a"))
	require.NoError(t, s.Add("/b"))

	assert.Equal(t, "/a:/b", s.PathList())
}

func TestResolve(t *testing.T) {
	s, fs := newTestStore(t)
	require.NoError(t, fs.MkdirAll("/bin1", 0755))
	require.NoError(t, fs.MkdirAll("/bin2", 0755))
	require.NoError(t, afero.WriteFile(fs, "/bin1/tool", []byte("#!"), 0755))
	require.NoError(t, afero.WriteFile(fs, "/bin2/tool", []byte("#!"), 0755))
	require.NoError(t, afero.WriteFile(fs, "/bin2/other", []byte("#!"), 0755))
	require.NoError(t, afero.WriteFile(fs, "/bin2/data.txt", []byte("x"), 0644))

	require.NoError(t, s.Add("/bin1"))
	require.NoError(t, s.Add("/bin2"))

	t.Run("earlier entries shadow later ones", func(t *testing.T) {
		path, err := s.Resolve("tool")
		require.NoError(t, err)
		assert.Equal(t, "/bin1/tool", path)
	})

	t.Run("later entries still searched", func(t *testing.T) {
		path, err := s.Resolve("other")
		require.NoError(t, err)
		assert.Equal(t, "/bin2/other", path)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Resolve("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("non-executable file skipped", func(t *testing.T) {
		_, err := s.Resolve("data.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("direct path bypasses store", func(t *testing.T) {
		path, err := s.Resolve("/bin2/tool")
		require.NoError(t, err)
		assert.Equal(t, "/bin2/tool", path)
	})

	t.Run("direct path missing", func(t *testing.T) {
		_, err := s.Resolve("/bin1/missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
