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
	"encoding/binary"

	"github.com/cloudwego/allocx/internal/assert"
	"github.com/cloudwego/allocx/pointermath"
)

// noSlot terminates the pool free list.
const noSlot = ^uint64(0)

// Pool hands out fixed-size, fixed-alignment elements.
// Free slots are chained through their first 8 bytes.
type Pool struct {
	core

	elementSize      int
	elementAlignment int

	first    int // offset of the first slot
	capacity int
	freeList int // offset of the first free slot, -1 if full
}

var _ Allocator = (*Pool)(nil)

// NewPool returns a pool of elements of elementSize bytes aligned to elementAlignment.
func NewPool(name string, elementSize, elementAlignment int, arena []byte) *Pool {
	a := &Pool{}
	a.prepare(name, KindPool)
	a.Init(elementSize, elementAlignment, arena)
	return a
}

// Init (re)assigns the buffer and the element layout. There must be no live allocation.
func (a *Pool) Init(elementSize, elementAlignment int, arena []byte) {
	a.prepare("", KindPool)
	a.setArena(arena)
	a.elementSize = elementSize
	a.elementAlignment = elementAlignment
	a.internalInit()
}

func (a *Pool) internalInit() {
	// a free slot has to hold the link to the next one
	assert.Fatal(a.elementSize >= 8, "%s: element size %d is smaller than 8", a.name, a.elementSize)
	assert.Fatal(pointermath.IsPowerOfTwo(a.elementAlignment) && a.elementAlignment <= MaxAlignment,
		"%s: bad element alignment %d", a.name, a.elementAlignment)
	assert.Fatal(a.elementSize%a.elementAlignment == 0,
		"%s: element size %d is not a multiple of its alignment %d", a.name, a.elementSize, a.elementAlignment)

	a.first = pointermath.AlignAdjustment(a.base, a.elementAlignment)
	a.capacity = 0
	if a.size > a.first {
		a.capacity = (a.size - a.first) / a.elementSize
	}
	assert.Fatal(a.capacity > 0, "%s: buffer of %d bytes cannot hold one element", a.name, a.size)

	last := a.first + (a.capacity-1)*a.elementSize
	for off := a.first; off < last; off += a.elementSize {
		binary.LittleEndian.PutUint64(a.arena[off:], uint64(off+a.elementSize))
	}
	binary.LittleEndian.PutUint64(a.arena[last:], noSlot)
	a.freeList = a.first
}

// Capacity returns the number of elements the pool can hold.
func (a *Pool) Capacity() int { return a.capacity }

func (a *Pool) ElementSize() int { return a.elementSize }

func (a *Pool) ElementAlignment() int { return a.elementAlignment }

func (a *Pool) Allocate(bytes, alignment int) Ptr {
	return allocate(a, bytes, alignment)
}

func (a *Pool) Reallocate(ptr Ptr, bytes, alignment int) Ptr {
	return reallocate(a, ptr, bytes, alignment)
}

func (a *Pool) Deallocate(ptr Ptr) {
	deallocate(a, ptr)
}

func (a *Pool) allocate(bytes, alignment int) Ptr {
	assert.Fatal(bytes == a.elementSize, "%s: requested %d bytes from a pool of %d byte elements", a.name, bytes, a.elementSize)
	assert.Fatal(alignment == a.elementAlignment, "%s: requested alignment %d from a pool aligned to %d", a.name, alignment, a.elementAlignment)
	if a.freeList < 0 {
		return Nil
	}

	off := a.freeList
	next := binary.LittleEndian.Uint64(a.arena[off:])
	if next == noSlot {
		a.freeList = -1
	} else {
		a.freeList = int(next)
	}

	a.usedMemory += bytes
	a.numAllocations++
	return a.ptr(off)
}

func (a *Pool) reallocate(ptr Ptr, bytes, alignment int) (Ptr, int) {
	assert.Debug(false, "%s: a pool allocator cannot reallocate", a.name)
	a.copyOnReallocation = false
	return Nil, 0
}

func (a *Pool) deallocate(ptr Ptr) {
	off := a.offset(ptr)
	rel := off - a.first
	assert.Fatal(rel >= 0 && rel < a.capacity*a.elementSize && rel%a.elementSize == 0,
		"%s: pointer %#x is not a pool slot", a.name, uintptr(ptr))
	assert.Debug(off != a.freeList, "%s: double free of %#x", a.name, uintptr(ptr))

	next := noSlot
	if a.freeList >= 0 {
		next = uint64(a.freeList)
	}
	binary.LittleEndian.PutUint64(a.arena[off:], next)
	a.freeList = off

	a.usedMemory -= a.elementSize
	a.numAllocations--
}
