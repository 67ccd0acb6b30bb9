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

const (
	// freeListHeaderSize is the header stored before every allocation:
	// [8 bytes block size][1 byte adjustment][7 bytes padding].
	freeListHeaderSize = 16

	// blockNodeSize is the size of a free block node: [8 bytes size][8 bytes next].
	// It must not be bigger than freeListHeaderSize.
	blockNodeSize = 16

	noBlock = -1
	noNext  = ^uint64(0)
)

// FitStrategy selects which free block serves an allocation.
type FitStrategy uint8

const (
	// BestFit picks the smallest block large enough. It is the default.
	BestFit FitStrategy = iota
	// FirstFit picks the block with the lowest address that is large enough.
	FirstFit
	// WorstFit picks the largest block.
	WorstFit
)

func (s FitStrategy) String() string {
	switch s {
	case BestFit:
		return "best"
	case FirstFit:
		return "first"
	case WorstFit:
		return "worst"
	}
	return "unknown"
}

// Block describes a free block of a FreeList, as an offset into its buffer.
type Block struct {
	Offset int
	Size   int
}

// FreeList is a general purpose allocator. Free blocks are kept in a list
// sorted by address, so neighbours can be merged back together.
type FreeList struct {
	core

	head                 int
	fitStrategy          FitStrategy
	defragOnDeallocation bool
}

var _ Allocator = (*FreeList)(nil)

// NewFreeList returns a free list allocator over arena, which must be
// bigger than a block node.
func NewFreeList(name string, arena []byte) *FreeList {
	a := &FreeList{}
	a.prepare(name, KindFreeList)
	a.Init(arena)
	return a
}

// Init (re)assigns the buffer. There must be no live allocation.
func (a *FreeList) Init(arena []byte) {
	a.prepare("", KindFreeList)
	a.setArena(arena)
	assert.Fatal(a.size > blockNodeSize, "%s: buffer of %d bytes is too small", a.name, a.size)
	a.reset()
}

func (a *FreeList) reset() {
	a.head = 0
	a.setBlock(0, a.size, noBlock)
}

func (a *FreeList) FitStrategy() FitStrategy { return a.fitStrategy }

func (a *FreeList) SetFitStrategy(s FitStrategy) { a.fitStrategy = s }

func (a *FreeList) DefragOnDeallocation() bool { return a.defragOnDeallocation }

// SetDefragOnDeallocation makes every deallocation run Defrag.
func (a *FreeList) SetDefragOnDeallocation(value bool) { a.defragOnDeallocation = value }

// FreeBlocks returns the free blocks in list order, which is address order.
func (a *FreeList) FreeBlocks() []Block {
	var blocks []Block
	for off := a.head; off != noBlock; off = a.blockNext(off) {
		blocks = append(blocks, Block{Offset: off, Size: a.blockSize(off)})
	}
	return blocks
}

// Defrag merges every run of adjacent free blocks into one block.
// Allocated pointers are not affected.
func (a *FreeList) Defrag() {
	a.checkAlive()
	for off := a.head; off != noBlock; off = a.blockNext(off) {
		for {
			next := a.blockNext(off)
			if next == noBlock || off+a.blockSize(off) != next {
				break
			}
			a.setBlock(off, a.blockSize(off)+a.blockSize(next), a.blockNext(next))
		}
	}
}

func (a *FreeList) Allocate(bytes, alignment int) Ptr {
	return allocate(a, bytes, alignment)
}

func (a *FreeList) Reallocate(ptr Ptr, bytes, alignment int) Ptr {
	return reallocate(a, ptr, bytes, alignment)
}

func (a *FreeList) Deallocate(ptr Ptr) {
	deallocate(a, ptr)
}

func (a *FreeList) allocate(bytes, alignment int) Ptr {
	if a.size == 0 {
		return Nil
	}

	found, prevFound := noBlock, noBlock
	foundSize := 0
	prev := noBlock
	for off := a.head; off != noBlock; prev, off = off, a.blockNext(off) {
		size := a.blockSize(off)
		adjustment := pointermath.AlignWithHeader(a.addr(off), alignment, freeListHeaderSize)
		if size < bytes+adjustment {
			continue
		}
		if found == noBlock ||
			(a.fitStrategy == BestFit && size < foundSize) ||
			(a.fitStrategy == WorstFit && size > foundSize) {
			found, prevFound, foundSize = off, prev, size
		}
		if a.fitStrategy == FirstFit {
			break
		}
	}
	if found == noBlock {
		return Nil
	}

	adjustment := pointermath.AlignWithHeader(a.addr(found), alignment, freeListHeaderSize)
	total := bytes + adjustment
	next := a.blockNext(found)
	if foundSize-total <= freeListHeaderSize {
		// the rest could not hold an allocation, hand out the whole block
		total = foundSize
		a.link(prevFound, next)
	} else {
		rest := found + total
		a.setBlock(rest, foundSize-total, next)
		a.link(prevFound, rest)
	}

	off := found + adjustment
	a.writeHeader(off, total, adjustment)
	a.usedMemory += total
	a.numAllocations++
	assert.Fatal(pointermath.IsAligned(a.addr(off), alignment), "%s: misaligned allocation", a.name)
	return a.ptr(off)
}

// reallocate shrinks in place or grows into the free block right after the allocation.
func (a *FreeList) reallocate(ptr Ptr, bytes, alignment int) (Ptr, int) {
	off, start, blockSize := a.readHeader(ptr)
	end := start + blockSize
	oldSize := end - off
	diff := bytes - oldSize
	if !pointermath.IsAligned(a.addr(off), alignment) {
		return Nil, oldSize
	}

	// prev is the last free block before the allocation, next the first one after it
	prev, next := noBlock, a.head
	for next != noBlock && next < end {
		prev, next = next, a.blockNext(next)
	}
	adjacent := next != noBlock && next == end

	switch {
	case diff == 0:
		return ptr, oldSize
	case diff < 0 && -diff <= freeListHeaderSize:
		// the tail is too small to become a block
		return ptr, oldSize
	case diff < 0:
		tail := off + bytes
		if adjacent {
			a.setBlock(tail, -diff+a.blockSize(next), a.blockNext(next))
		} else {
			a.setBlock(tail, -diff, next)
		}
		a.link(prev, tail)
	case !adjacent:
		return Nil, oldSize
	default:
		nextSize := a.blockSize(next)
		switch {
		case nextSize > diff+freeListHeaderSize:
			rest := end + diff
			a.setBlock(rest, nextSize-diff, a.blockNext(next))
			a.link(prev, rest)
		case nextSize >= diff:
			// swallow the whole block, the rest would be too small
			diff = nextSize
			a.link(prev, a.blockNext(next))
		default:
			return Nil, oldSize
		}
	}

	a.writeHeader(off, blockSize+diff, off-start)
	a.usedMemory += diff
	return ptr, oldSize
}

func (a *FreeList) deallocate(ptr Ptr) {
	_, start, blockSize := a.readHeader(ptr)
	end := start + blockSize
	assert.Fatal(a.usedMemory >= blockSize, "%s: corrupted header at %#x", a.name, uintptr(ptr))

	prev, next := noBlock, a.head
	for next != noBlock && next < start {
		prev, next = next, a.blockNext(next)
	}
	assert.Fatal(prev == noBlock || prev+a.blockSize(prev) <= start, "%s: double free of %#x", a.name, uintptr(ptr))
	assert.Fatal(next == noBlock || end <= next, "%s: double free of %#x", a.name, uintptr(ptr))

	// merge with one neighbour only, Defrag takes care of the rest
	switch {
	case prev != noBlock && prev+a.blockSize(prev) == start:
		a.setBlock(prev, a.blockSize(prev)+blockSize, next)
	case next != noBlock && end == next:
		a.setBlock(start, blockSize+a.blockSize(next), a.blockNext(next))
		a.link(prev, start)
	default:
		a.setBlock(start, blockSize, next)
		a.link(prev, start)
	}

	a.usedMemory -= blockSize
	a.numAllocations--

	if a.usedMemory == 0 && a.numAllocations == 0 {
		a.reset()
	} else if a.defragOnDeallocation {
		a.Defrag()
	}
}

// readHeader returns the user offset, the block start and the block size of an allocation.
func (a *FreeList) readHeader(ptr Ptr) (off, start, size int) {
	off = a.offset(ptr)
	assert.Fatal(off >= freeListHeaderSize, "%s: pointer %#x is not an allocation", a.name, uintptr(ptr))
	header := a.arena[off-freeListHeaderSize : off]
	size = int(binary.LittleEndian.Uint64(header))
	start = off - int(header[8])
	assert.Fatal(start >= 0 && size > 0 && start+size <= a.size, "%s: corrupted header at %#x", a.name, uintptr(ptr))
	return off, start, size
}

func (a *FreeList) writeHeader(off, size, adjustment int) {
	header := a.arena[off-freeListHeaderSize : off]
	binary.LittleEndian.PutUint64(header, uint64(size))
	header[8] = byte(adjustment)
}

func (a *FreeList) blockSize(off int) int {
	return int(binary.LittleEndian.Uint64(a.arena[off:]))
}

func (a *FreeList) blockNext(off int) int {
	next := binary.LittleEndian.Uint64(a.arena[off+8:])
	if next == noNext {
		return noBlock
	}
	return int(next)
}

func (a *FreeList) setBlock(off, size, next int) {
	node := a.arena[off : off+blockNodeSize]
	binary.LittleEndian.PutUint64(node, uint64(size))
	if next == noBlock {
		binary.LittleEndian.PutUint64(node[8:], noNext)
	} else {
		binary.LittleEndian.PutUint64(node[8:], uint64(next))
	}
}

// link makes next follow prev, or the head of the list when prev is noBlock.
func (a *FreeList) link(prev, next int) {
	if prev == noBlock {
		a.head = next
		return
	}
	a.setBlock(prev, a.blockSize(prev), next)
}
