/* Copyright 2021 Comcast Cable Communications Management, LLC
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

// Package storage persists keyframe memory.
//
// A visualization instance remembers the keyframes it synthesized
// for each (morph, state) so that taking a transition backwards can
// restore what going forwards removed.  Keeping that memory in a
// KeyframeStore lets it survive a service restart.
package storage

import (
	"context"
	"sync"

	"github.com/Comcast/morphs/core"
)

// KeyframeStore is a persistence interface for keyframe memory.
//
// LoadKeyframe returns nil (and no error) when there's nothing
// stored.
type KeyframeStore interface {
	SaveKeyframe(ctx context.Context, instance, morph, state string, spec core.VisSpec) error

	LoadKeyframe(ctx context.Context, instance, morph, state string) (core.VisSpec, error)

	DeleteKeyframes(ctx context.Context, instance string) error
}

// Memory is an in-memory KeyframeStore.
type Memory struct {
	sync.Mutex
	instances map[string]map[string]core.VisSpec
}

func NewMemory() *Memory {
	return &Memory{
		instances: make(map[string]map[string]core.VisSpec),
	}
}

// Key is how a (morph, state) pair is stored within an instance.
func Key(morph, state string) string {
	return morph + "/" + state
}

func (m *Memory) SaveKeyframe(ctx context.Context, instance, morph, state string, spec core.VisSpec) error {
	m.Lock()
	defer m.Unlock()
	kfs, have := m.instances[instance]
	if !have {
		kfs = make(map[string]core.VisSpec)
		m.instances[instance] = kfs
	}
	kfs[Key(morph, state)] = spec.Copy()
	return nil
}

func (m *Memory) LoadKeyframe(ctx context.Context, instance, morph, state string) (core.VisSpec, error) {
	m.Lock()
	defer m.Unlock()
	spec, have := m.instances[instance][Key(morph, state)]
	if !have {
		return nil, nil
	}
	return spec.Copy(), nil
}

func (m *Memory) DeleteKeyframes(ctx context.Context, instance string) error {
	m.Lock()
	delete(m.instances, instance)
	m.Unlock()
	return nil
}

// Len returns the number of stored keyframes for an instance.
func (m *Memory) Len(instance string) int {
	m.Lock()
	defer m.Unlock()
	return len(m.instances[instance])
}
