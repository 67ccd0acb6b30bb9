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

// stackHeaderSize is the header stored before every stack allocation:
// [8 bytes previous offset + 1][1 byte adjustment][7 bytes padding].
const stackHeaderSize = 16

// Stack is a LIFO allocator: only the most recent allocation can be
// deallocated or resized. Debug builds verify the order.
type Stack struct {
	core

	current  int // offset of the first free byte
	previous int // offset of the most recent allocation, -1 if none
}

var _ Allocator = (*Stack)(nil)

// NewStack returns a stack allocator over arena.
func NewStack(name string, arena []byte) *Stack {
	a := &Stack{}
	a.prepare(name, KindStack)
	a.Init(arena)
	return a
}

// Init (re)assigns the buffer. There must be no live allocation.
func (a *Stack) Init(arena []byte) {
	a.prepare("", KindStack)
	a.setArena(arena)
	a.current = 0
	a.previous = -1
}

// Current returns the address just past the top allocation.
func (a *Stack) Current() Ptr { return a.ptr(a.current) }

// Previous returns the top allocation, Nil if the stack is empty.
func (a *Stack) Previous() Ptr {
	if a.previous < 0 {
		return Nil
	}
	return a.ptr(a.previous)
}

func (a *Stack) Allocate(bytes, alignment int) Ptr {
	return allocate(a, bytes, alignment)
}

func (a *Stack) Reallocate(ptr Ptr, bytes, alignment int) Ptr {
	return reallocate(a, ptr, bytes, alignment)
}

func (a *Stack) Deallocate(ptr Ptr) {
	deallocate(a, ptr)
}

func (a *Stack) allocate(bytes, alignment int) Ptr {
	adjustment := pointermath.AlignWithHeader(a.addr(a.current), alignment, stackHeaderSize)
	if a.usedMemory+adjustment+bytes > a.size {
		return Nil
	}

	off := a.current + adjustment
	header := a.arena[off-stackHeaderSize : off]
	binary.LittleEndian.PutUint64(header, uint64(a.previous+1))
	header[8] = byte(adjustment)

	a.previous = off
	a.current = off + bytes
	a.usedMemory += adjustment + bytes
	a.numAllocations++
	return a.ptr(off)
}

func (a *Stack) reallocate(ptr Ptr, bytes, alignment int) (Ptr, int) {
	// only the top can grow, moving it somewhere else never helps
	a.copyOnReallocation = false

	off := a.topOffset(ptr)
	oldSize := a.current - off
	if off+bytes > a.size {
		return Nil, oldSize
	}
	a.current = off + bytes
	a.usedMemory += bytes - oldSize
	return ptr, oldSize
}

func (a *Stack) deallocate(ptr Ptr) {
	off := a.topOffset(ptr)
	header := a.arena[off-stackHeaderSize : off]
	adjustment := int(header[8])

	a.usedMemory -= a.current - off + adjustment
	a.current = off - adjustment
	a.previous = int(binary.LittleEndian.Uint64(header)) - 1
	a.numAllocations--
}

func (a *Stack) topOffset(ptr Ptr) int {
	off := a.offset(ptr)
	assert.Fatal(off >= stackHeaderSize && off <= a.current, "%s: pointer %#x is not a live allocation", a.name, uintptr(ptr))
	assert.Debug(off == a.previous, "%s: pointer %#x is not the top of the stack", a.name, uintptr(ptr))
	return off
}
