/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package allocator

import (
	"github.com/cloudwego/allocx/internal/assert"
	"github.com/cloudwego/allocx/pointermath"
)

// Linear is a bump allocator. Single allocations cannot be released,
// Clear releases all of them at once.
type Linear struct {
	core

	current int // offset of the first free byte
}

var _ Allocator = (*Linear)(nil)

// NewLinear returns a linear allocator over arena.
func NewLinear(name string, arena []byte) *Linear {
	a := &Linear{}
	a.prepare(name, KindLinear)
	a.Init(arena)
	return a
}

// Init (re)assigns the buffer. There must be no live allocation.
func (a *Linear) Init(arena []byte) {
	a.prepare("", KindLinear)
	a.setArena(arena)
	a.current = 0
}

// Clear releases every allocation in O(1).
func (a *Linear) Clear() {
	a.checkAlive()
	a.current = 0
	a.usedMemory = 0
	a.numAllocations = 0
}

// Current returns the address the next allocation starts its search from.
func (a *Linear) Current() Ptr { return a.ptr(a.current) }

func (a *Linear) Allocate(bytes, alignment int) Ptr {
	return allocate(a, bytes, alignment)
}

func (a *Linear) Reallocate(ptr Ptr, bytes, alignment int) Ptr {
	return reallocate(a, ptr, bytes, alignment)
}

func (a *Linear) Deallocate(ptr Ptr) {
	deallocate(a, ptr)
}

func (a *Linear) allocate(bytes, alignment int) Ptr {
	adjustment := pointermath.AlignAdjustment(a.addr(a.current), alignment)
	if a.current+adjustment+bytes > a.size {
		return Nil
	}

	off := a.current + adjustment
	a.current = off + bytes
	a.usedMemory += adjustment + bytes
	a.numAllocations++
	return a.ptr(off)
}

func (a *Linear) reallocate(ptr Ptr, bytes, alignment int) (Ptr, int) {
	assert.Debug(false, "%s: a linear allocator cannot reallocate", a.name)
	a.copyOnReallocation = false
	return Nil, 0
}

func (a *Linear) deallocate(ptr Ptr) {
	assert.Fatal(false, "%s: a linear allocator cannot deallocate, use Clear", a.name)
}
