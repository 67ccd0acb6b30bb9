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

	"github.com/cloudwego/allocx/internal/assert"
	"github.com/cloudwego/allocx/pointermath"
)

const (
	// DefaultAlignment is 2 * pointer size: 16 bytes on 64bit and 8 bytes on 32bit.
	DefaultAlignment = 2 * int(unsafe.Sizeof(uintptr(0)))

	// MaxAlignment is the largest alignment an allocation may request.
	MaxAlignment = 128
)

// Ptr is a handle to allocated memory: the address of its first user byte.
// Use Allocator.Bytes to read or write through it.
type Ptr uintptr

// Nil is the null handle, returned when an allocation cannot be satisfied.
const Nil Ptr = 0

// Kind tags the concrete type behind an Allocator.
type Kind uint8

const (
	KindMalloc Kind = iota + 1
	KindLinear
	KindStack
	KindPool
	KindFreeList
	KindProxy
	KindRecorder
)

func (k Kind) String() string {
	switch k {
	case KindMalloc:
		return "Malloc"
	case KindLinear:
		return "Linear"
	case KindStack:
		return "Stack"
	case KindPool:
		return "Pool"
	case KindFreeList:
		return "FreeList"
	case KindProxy:
		return "Proxy"
	case KindRecorder:
		return "Recorder"
	}
	return "Unknown"
}

// Allocator is implemented by every allocator of this package and only by them.
//
// An Allocator is not safe for concurrent use.
type Allocator interface {
	// Name returns the name given at construction.
	Name() string
	// Kind returns the concrete allocator type.
	Kind() Kind

	// Allocate returns bytes of memory aligned to alignment, or Nil if the
	// allocator has no room left. bytes must be positive and alignment a power
	// of two in [1, MaxAlignment].
	Allocate(bytes, alignment int) Ptr
	// Reallocate resizes the allocation at ptr.
	// bytes == 0 deallocates ptr and returns Nil, ptr == Nil allocates.
	// The allocation may move when CopyOnReallocation is true.
	// On failure Nil is returned and ptr is left untouched.
	Reallocate(ptr Ptr, bytes, alignment int) Ptr
	// Deallocate releases the allocation at ptr. Nil is ignored.
	Deallocate(ptr Ptr)

	// Bytes returns a view of n bytes starting at ptr.
	Bytes(ptr Ptr, n int) []byte

	// Size returns the size of the buffer used for allocations.
	Size() int
	// Base returns the address of the buffer used for allocations.
	Base() Ptr
	// UsedMemory returns the bytes in use, overhead included.
	UsedMemory() int
	// FreeMemory returns the bytes still available in the buffer.
	// It can be more than what a single allocation can get because of overhead and fragmentation.
	FreeMemory() int
	// NumAllocations returns the number of live allocations.
	NumAllocations() int

	// CopyOnReallocation reports whether a growing Reallocate may move the data.
	CopyOnReallocation() bool
	SetCopyOnReallocation(value bool)

	// Destroy retires the allocator. Every allocation must have been released.
	Destroy()

	sealed()
}

// leaf is implemented by the allocators that serve requests themselves.
type leaf interface {
	Allocator
	common() *core
	allocate(bytes, alignment int) Ptr
	// reallocate resizes in place. It returns Nil when that is not possible,
	// together with the old usable size when it is known.
	reallocate(ptr Ptr, bytes, alignment int) (Ptr, int)
	deallocate(ptr Ptr)
}

// core is the state shared by all allocators.
type core struct {
	name string
	kind Kind

	arena []byte
	base  uintptr
	size  int

	usedMemory     int
	numAllocations int

	copyOnReallocation bool
	ready              bool
	destroyed          bool
}

func (c *core) prepare(name string, kind Kind) {
	if c.ready {
		return
	}
	c.ready = true
	c.kind = kind
	c.name = name
	if c.name == "" {
		c.name = kind.String()
	}
	c.copyOnReallocation = true
}

func (c *core) setArena(arena []byte) {
	assert.Fatal(c.usedMemory == 0 && c.numAllocations == 0,
		"%s: cannot change the buffer with %d live allocations", c.name, c.numAllocations)
	c.arena = arena
	c.size = len(arena)
	c.base = 0
	if len(arena) > 0 {
		c.base = uintptr(unsafe.Pointer(unsafe.SliceData(arena)))
	}
}

func (c *core) common() *core { return c }

func (c *core) sealed() {}

func (c *core) Name() string { return c.name }

func (c *core) Kind() Kind { return c.kind }

func (c *core) Size() int { return c.size }

func (c *core) Base() Ptr { return Ptr(c.base) }

func (c *core) UsedMemory() int { return c.usedMemory }

func (c *core) FreeMemory() int {
	if c.usedMemory >= c.size {
		return 0
	}
	return c.size - c.usedMemory
}

func (c *core) NumAllocations() int { return c.numAllocations }

func (c *core) CopyOnReallocation() bool { return c.copyOnReallocation }

func (c *core) SetCopyOnReallocation(value bool) { c.copyOnReallocation = value }

// Bytes returns a view into the arena.
func (c *core) Bytes(ptr Ptr, n int) []byte {
	off := c.offset(ptr)
	assert.Fatal(n >= 0 && off+n <= c.size, "%s: %d bytes at offset %d overflow the buffer", c.name, n, off)
	return c.arena[off : off+n : off+n]
}

func (c *core) Destroy() {
	assert.Fatal(!c.destroyed, "%s: destroyed twice", c.name)
	assert.Fatal(c.usedMemory == 0 && c.numAllocations == 0,
		"%s: destroyed with %d bytes in %d live allocations", c.name, c.usedMemory, c.numAllocations)
	c.destroyed = true
	Logger().Debug("allocator destroyed", "name", c.name, "kind", c.kind.String())
}

func (c *core) checkAlive() {
	assert.Fatal(!c.destroyed, "%s: used after Destroy", c.name)
}

// offset converts a handle into an arena offset, failing hard for foreign handles.
func (c *core) offset(ptr Ptr) int {
	p := uintptr(ptr)
	assert.Fatal(c.size > 0 && p >= c.base && p <= c.base+uintptr(c.size),
		"%s: pointer %#x not in buffer", c.name, p)
	return pointermath.Distance(p, c.base)
}

func (c *core) ptr(off int) Ptr {
	return Ptr(pointermath.Add(c.base, off))
}

func (c *core) addr(off int) uintptr {
	return pointermath.Add(c.base, off)
}

func checkRequest(name string, bytes, alignment int) {
	assert.Fatal(bytes > 0, "%s: cannot allocate %d bytes", name, bytes)
	assert.Fatal(pointermath.IsPowerOfTwo(alignment), "%s: alignment %d is not a power of two", name, alignment)
	assert.Fatal(alignment <= MaxAlignment, "%s: alignment %d is greater than %d", name, alignment, MaxAlignment)
}

func allocate(a leaf, bytes, alignment int) Ptr {
	c := a.common()
	c.checkAlive()
	checkRequest(c.name, bytes, alignment)
	return a.allocate(bytes, alignment)
}

func reallocate(a leaf, ptr Ptr, bytes, alignment int) Ptr {
	if bytes == 0 {
		deallocate(a, ptr)
		return Nil
	}
	if ptr == Nil {
		return allocate(a, bytes, alignment)
	}
	c := a.common()
	c.checkAlive()
	checkRequest(c.name, bytes, alignment)

	newPtr, oldSize := a.reallocate(ptr, bytes, alignment)
	if newPtr == Nil && c.copyOnReallocation {
		newPtr = a.allocate(bytes, alignment)
		if newPtr != Nil {
			n := oldSize
			if bytes < n {
				n = bytes
			}
			copy(a.Bytes(newPtr, n), a.Bytes(ptr, n))
			a.deallocate(ptr)
		}
	}
	return newPtr
}

func deallocate(a leaf, ptr Ptr) {
	if ptr == Nil {
		return
	}
	c := a.common()
	c.checkAlive()
	assert.Fatal(c.numAllocations > 0, "%s: more deallocations than allocations", c.name)
	a.deallocate(ptr)
}
