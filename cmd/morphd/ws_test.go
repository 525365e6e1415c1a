package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/engine"
	"github.com/Comcast/morphs/sio"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads events until one has the given kind.
func next(t *testing.T, conn *websocket.Conn, kind string) map[string]interface{} {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, bs, err := conn.ReadMessage()
		require.NoError(t, err)
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal(bs, &e))
		if e["event"] == kind {
			return e
		}
	}
}

func TestWebSocketCouplings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, _ := NewWebSocketCouplings([]string{})
	require.NoError(t, c.Start(ctx))
	srv := httptest.NewServer(c)
	defer srv.Close()

	in, out, _, err := c.IO(ctx)
	require.NoError(t, err)

	a := dial(t, srv)
	b := dial(t, srv)

	// Hearing from each connection means both are registered.
	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"describe"}`)))
		select {
		case msg := <-in:
			assert.Equal(t, map[string]interface{}{"op": "describe"}, msg)
		case <-time.After(5 * time.Second):
			t.Fatal("no input")
		}
	}

	out <- &sio.Result{
		Events: []*sio.Event{
			{Event: "opened", Instance: "v1"},
		},
	}
	for _, conn := range []*websocket.Conn{a, b} {
		e := next(t, conn, "opened")
		assert.Equal(t, "v1", e["instance"])
	}

	require.NoError(t, c.Stop(ctx))
}

func TestWebSocketSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, _ := NewWebSocketCouplings(nil)
	require.NoError(t, c.Start(ctx))
	srv := httptest.NewServer(c)
	defer srv.Close()

	e := engine.NewEngine(nil)
	s, err := sio.NewSession(ctx, &sio.SessionConf{FrameInterval: 10 * time.Millisecond}, e, c)
	require.NoError(t, err)
	m, err := core.ChoroplethMorph()
	require.NoError(t, err)
	require.Empty(t, s.Load([]*core.Morph{m}))

	go s.Loop(ctx)

	conn := dial(t, srv)
	ops := []string{
		`{"op":"spec","instance":"v1","spec":{"mark":"geoshape","encoding":{"x":{"field":"Longitude"}}}}`,
		`{"op":"signal","signal":"grab","value":true}`,
	}
	for _, op := range ops {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(op)))
	}

	opened := next(t, conn, "opened")
	assert.Equal(t, "v1", opened["instance"])

	applied := next(t, conn, "apply")
	assert.Equal(t, "extrude", applied["transition"])
	assert.Equal(t, "prism", applied["to"])
}
