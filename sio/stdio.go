/* Copyright 2019 Comcast Cable Communications Management, LLC
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

package sio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/Comcast/morphs/core"
)

// Stdio is a fairly simple Couplings that reads ops (one JSON object
// per line) from stdin and writes events (one per line) to stdout.
type Stdio struct {
	// In is coupled to session input.
	In io.Reader

	// Out is coupled to session output.
	Out io.Writer

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your wown risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "event").
	Tags bool

	// PadTags adds some padding to tags.
	PadTags bool

	// Store, if not nil, is written when the couplings stop.
	Store *JSONStore

	// InputEOF will be closed on EOF from stdin.
	InputEOF chan bool

	WG sync.WaitGroup
}

// NewStdio creates a new Stdio.
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio(shellExpand bool) *Stdio {
	return &Stdio{
		In:          os.Stdin,
		Out:         os.Stdout,
		ShellExpand: shellExpand,
		InputEOF:    make(chan bool),
	}
}

// Start reads the store if there is one.
func (s *Stdio) Start(ctx context.Context) error {
	if s.Store != nil {
		return s.Store.Read(ctx)
	}
	return nil
}

// Stop writes out the store.
//
// This function waits until IO is complete or was terminated via its
// context.
func (s *Stdio) Stop(ctx context.Context) error {
	s.WG.Wait()
	if s.Store != nil {
		return s.Store.WriteState(ctx)
	}
	return nil
}

// IO returns channels for reading from stdin and writing to stdout.
func (s *Stdio) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	in := make(chan interface{})
	done := make(chan bool)

	printf := func(tag, format string, args ...interface{}) {
		if s.PadTags {
			tag = fmt.Sprintf("% 10s", tag)
		}
		if s.Tags {
			format = tag + " " + format
		}
		if s.Timestamps {
			ts := fmt.Sprintf("%-31s", core.Timestamp())
			format = ts + " " + format
		}

		fmt.Fprintf(s.Out, format, args...)
	}

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		stdin := bufio.NewReader(s.In)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				line, err := stdin.ReadString('\n')
				if (err == io.EOF && strings.TrimSpace(line) == "") || strings.TrimSpace(line) == "quit" {
					close(done)
					if s.InputEOF != nil {
						close(s.InputEOF)
					}
					return
				}
				if err != nil && err != io.EOF {
					log.Printf("stdin error %s", err)
					return
				}
				if s.EchoInput {
					printf("input", "%s", line)
				}
				if strings.HasPrefix(line, "#") || len(strings.TrimSpace(line)) == 0 {
					continue
				}
				if s.ShellExpand {
					if line, err = ShellExpand(line); err != nil {
						log.Printf("stdin error %s", err)
						return
					}
				}

				var msg interface{}
				if err := json.Unmarshal([]byte(line), &msg); err != nil {
					fmt.Fprintf(os.Stderr, "bad input: %s\n", err)
					continue
				}

				select {
				case <-ctx.Done():
					return
				case in <- msg:
				}
			}
		}
	}()

	out := make(chan *Result)

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-out:
				if r == nil {
					return
				}
				for _, e := range r.Events {
					printf("event", "%s\n", JS(e))
				}
			}
		}
	}()

	return in, out, done, nil
}
