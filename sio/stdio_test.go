package sio

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdioCouplings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	s := NewStdio(false)
	s.In = strings.NewReader(`# comment

{"op":"tick"}
quit
`)
	s.Out = &out
	s.Tags = true

	in, results, done, err := s.IO(ctx)
	require.NoError(t, err)

	msg := <-in
	assert.Equal(t, map[string]interface{}{"op": "tick"}, msg)
	<-done
	<-s.InputEOF

	results <- &Result{Events: []*Event{{Event: "opened", Instance: "v1"}}}
	results <- nil
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, `event {"event":"opened","instance":"v1"}`+"\n", out.String())
}
