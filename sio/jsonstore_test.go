package sio

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ storage.KeyframeStore = &JSONStore{}

func TestJSONStore(t *testing.T) {
	var (
		ctx      = context.Background()
		filename = filepath.Join(t.TempDir(), "keyframes.json")
		s        = NewJSONStore(filename)
		spec     = core.VisSpec{"mark": "bar"}
	)

	require.NoError(t, s.Read(ctx))

	require.NoError(t, s.SaveKeyframe(ctx, "v1", "m", "a", spec))
	spec["mark"] = "line"

	got, err := s.LoadKeyframe(ctx, "v1", "m", "a")
	require.NoError(t, err)
	assert.Equal(t, "bar", got["mark"])

	got, err = s.LoadKeyframe(ctx, "v1", "m", "b")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Nothing written yet.
	_, err = os.Stat(filename)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.WriteState(ctx))

	s2 := NewJSONStore(filename)
	require.NoError(t, s2.Read(ctx))
	got, err = s2.LoadKeyframe(ctx, "v1", "m", "a")
	require.NoError(t, err)
	assert.Equal(t, "bar", got["mark"])

	require.NoError(t, s2.DeleteKeyframes(ctx, "v1"))
	got, err = s2.LoadKeyframe(ctx, "v1", "m", "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestJSONStoreWritePerSave(t *testing.T) {
	var (
		ctx      = context.Background()
		filename = filepath.Join(t.TempDir(), "keyframes.json")
		s        = NewJSONStore(filename)
	)
	s.WritePerSave = true

	require.NoError(t, s.SaveKeyframe(ctx, "v1", "m", "a", core.VisSpec{"mark": "bar"}))
	js, err := ioutil.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(js), storage.Key("m", "a"))

	require.NoError(t, s.DeleteKeyframes(ctx, "v1"))
	js, err = ioutil.ReadFile(filename)
	require.NoError(t, err)
	assert.NotContains(t, string(js), "v1")
}

func TestJSONStoreBadFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "keyframes.json")
	require.NoError(t, ioutil.WriteFile(filename, []byte("{"), 0644))
	assert.Error(t, NewJSONStore(filename).Read(context.Background()))
}
