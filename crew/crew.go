/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package crew keeps a concurrency-safe picture of a set of running
// visualizations.
//
// The engine itself runs on one goroutine.  A Crew is what other
// goroutines (HTTP handlers, say) read instead.
package crew

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

type Crew struct {
	sync.RWMutex

	Id  string          `json:"id"`
	Vis map[string]*Vis `json:"vis"`
}

// NewCrew makes an empty Crew.  With an empty id, a random one is
// generated.
func NewCrew(id string) *Crew {
	if id == "" {
		id = uuid.NewString()
	}
	return &Crew{
		Id:  id,
		Vis: make(map[string]*Vis),
	}
}

// Copy gets a read lock and returns a copy of the crew.
func (c *Crew) Copy() *Crew {
	c.RLock()
	vs := make(map[string]*Vis, len(c.Vis))
	for id, v := range c.Vis {
		vs[id] = v.Copy()
	}
	acc := &Crew{
		Id:  c.Id,
		Vis: vs,
	}
	c.RUnlock()
	return acc
}

// Get returns a copy of the named visualization's record.
func (c *Crew) Get(id string) (*Vis, bool) {
	c.RLock()
	defer c.RUnlock()
	v, have := c.Vis[id]
	if !have {
		return nil, false
	}
	return v.Copy(), true
}

// Set overlays the given record on the one with the same id.
func (c *Crew) Set(overlay *Vis) {
	c.Lock()
	v, have := c.Vis[overlay.Id]
	if !have {
		v = &Vis{Id: overlay.Id}
		c.Vis[overlay.Id] = v
	}
	v.Update(overlay)
	c.Unlock()
}

// Delete forgets a visualization.  No error if it doesn't exist.
func (c *Crew) Delete(id string) {
	c.Lock()
	delete(c.Vis, id)
	c.Unlock()
}

// Ids returns the visualization ids in order.
func (c *Crew) Ids() []string {
	c.RLock()
	acc := make([]string, 0, len(c.Vis))
	for id := range c.Vis {
		acc = append(acc, id)
	}
	c.RUnlock()
	sort.Strings(acc)
	return acc
}
