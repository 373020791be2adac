// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package entity

import "path/filepath"

// 📦 Batch is the ordered set of entities for one run. Entities are keyed by
// their cleaned path so repeated references accumulate on one entity.
type Batch struct {
	order []*Entity
	index map[string]*Entity
}

// 🏭 NewBatch creates an empty batch
func NewBatch() *Batch {
	return &Batch{
		index: make(map[string]*Entity),
	}
}

// Add appends e unless an entity for the same path already exists, in which
// case the existing one is returned.
func (b *Batch) Add(e *Entity) *Entity {
	key := filepath.Clean(e.Path)
	if existing, ok := b.index[key]; ok {
		return existing
	}
	b.index[key] = e
	b.order = append(b.order, e)
	return e
}

// Lookup returns the entity registered for path, if any.
func (b *Batch) Lookup(path string) (*Entity, bool) {
	e, ok := b.index[filepath.Clean(path)]
	return e, ok
}

// Entities returns all entities in insertion order.
func (b *Batch) Entities() []*Entity {
	return b.order
}

// Len returns the number of entities.
func (b *Batch) Len() int {
	return len(b.order)
}

// Reorder replaces the iteration order. es must hold the same entities.
func (b *Batch) Reorder(es []*Entity) {
	b.order = es
}

// Changed returns the entities that produce at least one operation.
func (b *Batch) Changed() []*Entity {
	var out []*Entity
	for _, e := range b.order {
		if e.Changed() {
			out = append(out, e)
		}
	}
	return out
}
