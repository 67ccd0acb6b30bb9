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
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/cloudwego/allocx/internal/assert"
	"github.com/cloudwego/allocx/pointermath"
)

type mallocBlock struct {
	buf  []byte // as returned by mcache, needed by Free
	data []byte // the aligned user bytes
}

// Malloc serves every request from the process heap.
// It has no buffer of its own: Size is 1 and Base is Nil.
type Malloc struct {
	core

	// blocks keeps live buffers reachable and lets Deallocate find them.
	blocks map[Ptr]mallocBlock
}

var _ Allocator = (*Malloc)(nil)

// NewMalloc returns a heap backed allocator.
func NewMalloc(name string) *Malloc {
	a := &Malloc{}
	a.init(name)
	return a
}

func (a *Malloc) init(name string) {
	a.prepare(name, KindMalloc)
	a.size = 1
	if a.blocks == nil {
		a.blocks = make(map[Ptr]mallocBlock)
	}
}

func (a *Malloc) Allocate(bytes, alignment int) Ptr {
	a.init("")
	return allocate(a, bytes, alignment)
}

func (a *Malloc) Reallocate(ptr Ptr, bytes, alignment int) Ptr {
	a.init("")
	return reallocate(a, ptr, bytes, alignment)
}

func (a *Malloc) Deallocate(ptr Ptr) {
	deallocate(a, ptr)
}

// Bytes returns a view of the first n bytes of the allocation at ptr.
func (a *Malloc) Bytes(ptr Ptr, n int) []byte {
	b, ok := a.blocks[ptr]
	assert.Fatal(ok, "%s: pointer %#x was not allocated here", a.name, uintptr(ptr))
	assert.Fatal(n >= 0 && n <= len(b.data), "%s: %d bytes overflow an allocation of %d", a.name, n, len(b.data))
	return b.data[:n:n]
}

func (a *Malloc) allocate(bytes, alignment int) Ptr {
	buf := mcache.Malloc(bytes + alignment - 1)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	adjustment := pointermath.AlignAdjustment(addr, alignment)
	ptr := Ptr(pointermath.Add(addr, adjustment))
	a.blocks[ptr] = mallocBlock{buf: buf, data: buf[adjustment : adjustment+bytes]}

	a.usedMemory += bytes
	a.numAllocations++
	return ptr
}

// reallocate moves the data itself, like the C realloc, and reports an unknown old size.
func (a *Malloc) reallocate(ptr Ptr, bytes, alignment int) (Ptr, int) {
	a.copyOnReallocation = false

	old, ok := a.blocks[ptr]
	assert.Fatal(ok, "%s: pointer %#x was not allocated here", a.name, uintptr(ptr))
	newPtr := a.allocate(bytes, alignment)
	copy(a.blocks[newPtr].data, old.data)
	a.deallocate(ptr)
	return newPtr, 0
}

func (a *Malloc) deallocate(ptr Ptr) {
	b, ok := a.blocks[ptr]
	assert.Fatal(ok, "%s: double free or pointer %#x not allocated here", a.name, uintptr(ptr))
	delete(a.blocks, ptr)
	mcache.Free(b.buf)

	a.usedMemory -= len(b.data)
	a.numAllocations--
}
