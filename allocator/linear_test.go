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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear(t *testing.T) {
	buf := newArena(t, 1024)
	a := NewLinear("frame", buf)
	assert.Equal(t, KindLinear, a.Kind())
	assert.Equal(t, 1024, a.Size())
	assert.Equal(t, a.Base(), a.Current())

	sizes := []struct{ bytes, alignment int }{{3, 1}, {8, 8}, {5, 4}, {64, 64}, {1, 1}}
	run := func() []Ptr {
		var ptrs []Ptr
		for _, s := range sizes {
			ptr := a.Allocate(s.bytes, s.alignment)
			require.NotEqual(t, Nil, ptr)
			ptrs = append(ptrs, ptr)
		}
		return ptrs
	}

	first := run()
	assert.Equal(t, a.Base(), first[0])
	assert.Equal(t, first[1], a.Base()+8)
	assert.Equal(t, first[2], a.Base()+16)
	assert.Equal(t, first[3], a.Base()+64)
	assert.Equal(t, a.Base()+129, a.Current())
	assert.Equal(t, 129, a.UsedMemory())
	assert.Equal(t, 5, a.NumAllocations())

	a.Clear()
	assert.Equal(t, 0, a.UsedMemory())
	assert.Equal(t, 0, a.NumAllocations())
	assert.Equal(t, first, run())

	a.Clear()
	a.Destroy()
}

func TestLinearFull(t *testing.T) {
	a := NewLinear("full", newArena(t, 100))
	require.NotEqual(t, Nil, a.Allocate(100, 1))
	assert.Equal(t, Nil, a.Allocate(1, 1))
	assert.Equal(t, 0, a.FreeMemory())
	a.Clear()
	assert.NotEqual(t, Nil, a.Allocate(100, 1))
}

func TestLinearDeallocate(t *testing.T) {
	a := NewLinear("linear", newArena(t, 100))
	ptr := a.Allocate(10, 1)
	assert.PanicsWithValue(t, "allocx: linear: a linear allocator cannot deallocate, use Clear", func() { a.Deallocate(ptr) })
	assert.Equal(t, 1, a.NumAllocations())
}

func TestLinearZeroValue(t *testing.T) {
	var a Linear
	a.Init(newArena(t, 64))
	assert.Equal(t, "Linear", a.Name())
	assert.True(t, a.CopyOnReallocation())
	assert.NotEqual(t, Nil, a.Allocate(8, 8))

	assert.Panics(t, func() { a.Init(newArena(t, 64)) }, "live allocations")
	a.Clear()
	a.Init(newArena(t, 128))
	assert.Equal(t, 128, a.Size())
}
