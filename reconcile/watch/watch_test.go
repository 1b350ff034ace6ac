package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plenert/reconcile"
)

func TestStateObserve(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var s state
	s.markSelf(base)

	assert.False(t, s.observe(base), "initial mtime is not a change")
	assert.True(t, s.observe(base.Add(time.Second)), "newer mtime is a change")
	assert.False(t, s.observe(base.Add(time.Second)), "same change reported twice")
	assert.False(t, s.observe(base), "older mtime is not a change")

	s.markSelf(base.Add(2 * time.Second))
	assert.False(t, s.observe(base.Add(2*time.Second)), "own write reported")
	// a later foreign write is not swallowed by the earlier own write
	assert.True(t, s.observe(base.Add(3*time.Second)))
}

func startWatcher(t *testing.T, path string) <-chan struct{} {
	t.Helper()
	changes := make(chan struct{}, 10)
	w := New(path, func() { changes <- struct{}{} },
		WithSettle(20*time.Millisecond),
		WithInterval(0),
	)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { w.Close() })
	return changes
}

func expectChange(t *testing.T, changes <-chan struct{}, want bool) {
	t.Helper()
	select {
	case <-changes:
		if !want {
			t.Fatal("unexpected change notification")
		}
	case <-time.After(500 * time.Millisecond):
		if want {
			t.Fatal("no change notification")
		}
	}
}

// tick leaves the clock behind the last write so that the next write gets a
// distinct modification time on filesystems with coarse timestamps
func tick() { time.Sleep(30 * time.Millisecond) }

func TestWatcherExternalChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.ledger")
	require.NoError(t, os.WriteFile(path, []byte("2024-01-01 Test\n"), 0o644))
	changes := startWatcher(t, path)

	tick()
	require.NoError(t, os.WriteFile(path, []byte("2024-01-01 * Test\n"), 0o644))
	expectChange(t, changes, true)

	// replacing the file by rename is followed too
	tick()
	tmp := path + ".new"
	require.NoError(t, os.WriteFile(tmp, []byte("2024-01-02 Other\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	expectChange(t, changes, true)
}

func TestWatcherIgnoresOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.ledger")
	require.NoError(t, os.WriteFile(path, []byte("2024-01-01 Test\n    Assets:Checking  $1\n"), 0o644))

	changes := make(chan struct{}, 10)
	w := New(path, func() { changes <- struct{}{} }, WithSettle(50*time.Millisecond), WithInterval(0))
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	tick()
	e := reconcile.NewEditor(path, w)
	require.NoError(t, e.UpdatePostingStatus(2, reconcile.Pending))
	expectChange(t, changes, false)

	tick()
	require.NoError(t, os.WriteFile(path, []byte("; replaced\n"), 0o644))
	expectChange(t, changes, true)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.ledger")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	changes := startWatcher(t, path)

	tick()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prices.db"), []byte("P 2024/01/01 AAPL $1\n"), 0o644))
	expectChange(t, changes, false)
}

func TestWatcherStartTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.ledger")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	w := New(path, func() {})
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()
	assert.Error(t, w.Start(context.Background()))
}
