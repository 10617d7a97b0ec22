package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_CoalescesBurstIntoOneOnChange(t *testing.T) {
	root := t.TempDir()

	w, err := New(Options{Root: root, DebounceMs: 100})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(ctx context.Context) error {
			calls <- struct{}{}
			return nil
		})
	}()

	// Give the watcher time to register the root directory before writing.
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte{byte(i)}, 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was never called")
	}

	select {
	case <-calls:
		t.Fatal("onChange fired more than once for one coalesced burst")
	case <-time.After(300 * time.Millisecond):
	}

	w.Stop()
	<-done
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(Options{Root: t.TempDir()})
	require.NoError(t, err)
	w.running = true
	assert.NotPanics(t, func() {
		w.Stop()
		w.Stop()
	})
}
