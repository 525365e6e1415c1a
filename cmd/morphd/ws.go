/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Comcast/morphs/sio"

	"github.com/gorilla/websocket"
)

// WebSocketCouplings is an sio.Couplings for a WebSocket service.
//
// Every connection (usually a visualization host) can send ops, and
// every connection hears every event.
type WebSocketCouplings struct {
	// Path is where the service accepts connections.
	Path string

	// AnyOrigin skips the upgrader's same-origin check.
	AnyOrigin bool

	// WriteTimeout bounds each write to a connection.
	WriteTimeout time.Duration

	Verbose bool

	upgrader websocket.Upgrader

	ctx  context.Context
	in   chan interface{}
	out  chan *sio.Result
	done chan bool

	sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewWebSocketCouplings parses the command-line flags to generate
// WebSocketCouplings.
//
// Also returns the flag.FlagSet for usage reporting.
func NewWebSocketCouplings(args []string) (*WebSocketCouplings, *flag.FlagSet) {
	c := &WebSocketCouplings{}
	fs := flag.NewFlagSet("ws", flag.ExitOnError)
	fs.StringVar(&c.Path, "path", "/vis", "Path for WebSocket connections")
	fs.BoolVar(&c.AnyOrigin, "any-origin", false, "Accept connections from any origin")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", 5*time.Second, "Timeout for each write")
	if args != nil {
		fs.Parse(args)
	}
	return c, fs
}

func (c *WebSocketCouplings) logf(format string, args ...interface{}) {
	if c.Verbose {
		log.Printf("ws "+format, args...)
	}
}

// Start makes the channels and starts forwarding events.  Connections
// come in via ServeHTTP.
func (c *WebSocketCouplings) Start(ctx context.Context) error {
	c.ctx = ctx
	c.in = make(chan interface{})
	c.out = make(chan *sio.Result)
	c.done = make(chan bool)
	c.conns = make(map[*websocket.Conn]bool)
	if c.AnyOrigin {
		c.upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-c.out:
				if r == nil {
					return
				}
				for _, e := range r.Events {
					js, err := json.Marshal(e)
					if err != nil {
						E(err, "Marshal")
						continue
					}
					c.broadcast(js)
				}
			}
		}
	}()

	return nil
}

func (c *WebSocketCouplings) broadcast(js []byte) {
	c.Lock()
	defer c.Unlock()
	for conn := range c.conns {
		if 0 < c.WriteTimeout {
			conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout))
		}
		if err := conn.WriteMessage(websocket.TextMessage, js); err != nil {
			E(err, "WriteMessage")
			conn.Close()
			delete(c.conns, conn)
		}
	}
}

// ServeHTTP upgrades the request and reads ops from the connection
// until it closes.
func (c *WebSocketCouplings) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		E(err, "Upgrade")
		return
	}
	c.logf("connected %s", r.RemoteAddr)

	c.Lock()
	c.conns[conn] = true
	c.Unlock()

	defer func() {
		c.Lock()
		delete(c.conns, conn)
		c.Unlock()
		conn.Close()
		c.logf("disconnected %s", r.RemoteAddr)
	}()

	for {
		_, bs, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				E(err, "ReadMessage")
			}
			return
		}
		if len(bs) == 0 {
			continue
		}
		c.logf("heard %s", bs)

		var msg interface{}
		if err = json.Unmarshal(bs, &msg); err != nil {
			E(err, "Unmarshal", string(bs))
			continue
		}

		select {
		case <-c.ctx.Done():
			return
		case c.in <- msg:
		}
	}
}

// IO just returns the channels that Start() initialized.
func (c *WebSocketCouplings) IO(ctx context.Context) (chan interface{}, chan *sio.Result, chan bool, error) {
	return c.in, c.out, c.done, nil
}

// Stop closes all of the connections.
func (c *WebSocketCouplings) Stop(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()
	log.Printf("Disconnecting %d connection(s)", len(c.conns))
	for conn := range c.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(c.conns, conn)
	}
	return nil
}
