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
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"sync"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/storage"
)

// JSONStore is a primitive storage.KeyframeStore that keeps
// keyframes in memory and writes them as JSON to a file.
//
// Not glamorous or efficient.
type JSONStore struct {
	// Filename, if not empty, is where the keyframes are read
	// from and written to.
	Filename string

	// WritePerSave writes the whole file after every change.
	//
	// Inefficient!
	WritePerSave bool

	// State maps instance ids to keyframes (by storage.Key).
	State map[string]map[string]core.VisSpec

	sync.Mutex
}

func NewJSONStore(filename string) *JSONStore {
	return &JSONStore{
		Filename: filename,
		State:    make(map[string]map[string]core.VisSpec),
	}
}

// Read reads s.Filename if it exists.
func (s *JSONStore) Read(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()
	if s.State == nil {
		s.State = make(map[string]map[string]core.VisSpec)
	}
	if s.Filename == "" {
		return nil
	}
	js, err := ioutil.ReadFile(s.Filename)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(js, &s.State)
}

// WriteState writes all keyframes as JSON.
func (s *JSONStore) WriteState(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()
	return s.write()
}

func (s *JSONStore) write() error {
	if s.Filename == "" {
		return nil
	}
	js, err := json.MarshalIndent(&s.State, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(s.Filename, js, 0644)
}

func (s *JSONStore) changed() error {
	if s.WritePerSave {
		return s.write()
	}
	return nil
}

func (s *JSONStore) SaveKeyframe(ctx context.Context, instance, morph, state string, spec core.VisSpec) error {
	s.Lock()
	defer s.Unlock()
	if s.State == nil {
		s.State = make(map[string]map[string]core.VisSpec)
	}
	kfs, have := s.State[instance]
	if !have {
		kfs = make(map[string]core.VisSpec)
		s.State[instance] = kfs
	}
	kfs[storage.Key(morph, state)] = spec.Copy()
	return s.changed()
}

func (s *JSONStore) LoadKeyframe(ctx context.Context, instance, morph, state string) (core.VisSpec, error) {
	s.Lock()
	defer s.Unlock()
	spec, have := s.State[instance][storage.Key(morph, state)]
	if !have {
		return nil, nil
	}
	return spec.Copy(), nil
}

func (s *JSONStore) DeleteKeyframes(ctx context.Context, instance string) error {
	s.Lock()
	defer s.Unlock()
	if _, have := s.State[instance]; !have {
		return nil
	}
	delete(s.State, instance)
	return s.changed()
}
