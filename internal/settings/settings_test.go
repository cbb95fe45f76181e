package settings_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/require"

	"github.com/openmcq/corrector/internal/settings"
)

// isolateConfig points the XDG config directory at a throwaway location.
// Tests touching it must not run in parallel.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return dir
}

func TestValidateTarget(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	good := filepath.Join(dir, "exam.mcq.config")
	require.NoError(t, os.WriteFile(good, []byte("mcq"), 0o600))
	require.NoError(t, settings.ValidateTarget(good))

	t.Run("wrong extension", func(t *testing.T) {
		other := filepath.Join(dir, "exam.txt")
		require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
		require.ErrorIs(t, settings.ValidateTarget(other), settings.ErrNotScanConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		err := settings.ValidateTarget(filepath.Join(dir, "gone.mcq.config"))
		require.Error(t, err)
		require.True(t, os.IsNotExist(err))
	})

	t.Run("directory", func(t *testing.T) {
		sub := filepath.Join(dir, "folder.mcq.config")
		require.NoError(t, os.Mkdir(sub, 0o700))
		require.ErrorIs(t, settings.ValidateTarget(sub), settings.ErrNotScanConfig)
	})
}

func TestLoadMissingFile(t *testing.T) {
	isolateConfig(t)
	s, err := settings.Load()
	require.NoError(t, err)
	require.Empty(t, s.Recent)
	require.Empty(t, s.CurrentDir)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "exam.mcq.config")
	require.NoError(t, os.WriteFile(path, []byte("mcq"), 0o600))

	s := &settings.Settings{}
	s.Remember(path)
	require.NoError(t, s.Save())

	loaded, err := settings.Load()
	require.NoError(t, err)
	require.Equal(t, []string{path}, loaded.Recent)
	require.Equal(t, dir, loaded.CurrentDir)
}

func TestLoadMalformed(t *testing.T) {
	isolateConfig(t)
	path, err := settings.Path()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("recent: {broken\n"), 0o600))

	_, err = settings.Load()
	require.ErrorContains(t, err, "parsing")
}

func TestRememberDeduplicatesAndCaps(t *testing.T) {
	t.Parallel()
	s := &settings.Settings{}

	s.Remember("/exams/a.mcq.config")
	s.Remember("/exams/b.mcq.config")
	s.Remember("/exams/a.mcq.config")
	require.Equal(t, []string{"/exams/a.mcq.config", "/exams/b.mcq.config"}, s.Recent)
	require.Equal(t, "/exams", s.CurrentDir)

	for i := 0; i < 30; i++ {
		s.Remember("/exams/" + strconv.Itoa(i) + ".mcq.config")
	}
	require.Len(t, s.Recent, 12)
	require.Equal(t, "/exams/29.mcq.config", s.Recent[0])
}

func TestRecentFilesPrunesDeadEntries(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	alive := filepath.Join(dir, "alive.mcq.config")
	require.NoError(t, os.WriteFile(alive, []byte("mcq"), 0o600))

	s := &settings.Settings{Recent: []string{
		filepath.Join(dir, "deleted.mcq.config"),
		alive,
	}}
	require.Equal(t, []string{alive}, s.RecentFiles())
	require.Equal(t, []string{alive}, s.Recent)
}
