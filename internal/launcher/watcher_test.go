package launcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/razvandimescu/markview/internal/logging"
	"github.com/razvandimescu/markview/internal/testutil"
)

type countingReloader struct{ n atomic.Int32 }

func (r *countingReloader) Reload() error {
	r.n.Add(1)
	return nil
}

func startWatch(t *testing.T, path string, debounce time.Duration) (*Watcher, *countingReloader) {
	t.Helper()
	r := &countingReloader{}
	w, err := Watch(path, r, debounce, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	return w, r
}

// TestWatch_OneSaveOneReload verifies a single save produces exactly one reload
func TestWatch_OneSaveOneReload(t *testing.T) {
	path := testutil.CreateSimpleFile(t, t.TempDir())
	_, r := startWatch(t, path, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(testutil.MarkdownModified), 0o644))

	require.Eventually(t, func() bool { return r.n.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(1), r.n.Load())
}

func TestWatch_BurstCoalesced(t *testing.T) {
	path := testutil.CreateSimpleFile(t, t.TempDir())
	_, r := startWatch(t, path, 100*time.Millisecond)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := f.WriteString("\nline")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return r.n.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, int32(1), r.n.Load())
}

func TestWatch_RenameSave(t *testing.T) {
	dir := t.TempDir()
	path := testutil.CreateSimpleFile(t, dir)
	_, r := startWatch(t, path, 20*time.Millisecond)

	tmp := filepath.Join(dir, ".test.md.swp")
	require.NoError(t, os.WriteFile(tmp, []byte(testutil.MarkdownModified), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return r.n.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := testutil.CreateSimpleFile(t, dir)
	_, r := startWatch(t, path, 0)

	testutil.CreateMarkdownFile(t, dir, "other.md", testutil.MarkdownSimple)
	testutil.CreateMarkdownFile(t, dir, "notes.txt", testutil.MarkdownSimple)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	testutil.CreateMarkdownFile(t, filepath.Join(dir, "sub"), "test.md", testutil.MarkdownSimple)

	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(0), r.n.Load())
}

func TestWatch_NoReloadAfterStop(t *testing.T) {
	path := testutil.CreateSimpleFile(t, t.TempDir())
	w, r := startWatch(t, path, 0)

	w.Stop()
	w.Stop()
	require.NoError(t, os.WriteFile(path, []byte(testutil.MarkdownModified), 0o644))

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(0), r.n.Load())
}

func TestWatch_MissingDirectory(t *testing.T) {
	_, err := Watch(filepath.Join(t.TempDir(), "nope", "x.md"), &countingReloader{}, 0, logging.Discard())
	require.Error(t, err)
}
