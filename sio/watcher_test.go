package sio

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/Comcast/morphs/core"

	"github.com/stretchr/testify/require"
)

func TestWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	reloaded := make(chan []*core.Morph, 4)
	w, err := NewWatcher(dir, func(morphs []*core.Morph, errs []error) {
		if len(errs) == 0 {
			reloaded <- morphs
		}
	})
	require.NoError(t, err)
	w.Debounce = 20 * time.Millisecond
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// Not a morph file.
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "axes.yaml"), []byte(axesMorph), 0644))

	select {
	case ms := <-reloaded:
		require.Len(t, ms, 1)
		require.Equal(t, "axes", ms[0].Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
}

func TestSessionWatchMorphs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	s := newSession(t, nil)
	w, err := s.WatchMorphs(ctx, dir)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "axes.yaml"), []byte(axesMorph), 0644))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.Tick(time.Millisecond)
		if ms := s.Engine.Morphs(); len(ms) == 1 && ms[0].Name == "axes" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("morphs not reloaded")
}
