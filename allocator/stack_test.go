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

func TestStackLIFO(t *testing.T) {
	a := NewStack("stack", newArena(t, 256))
	assert.Equal(t, Nil, a.Previous())

	a1 := a.Allocate(10, 8)
	assert.Equal(t, a.Base()+16, a1)
	assert.Equal(t, a1, a.Previous())
	assert.Equal(t, 26, a.UsedMemory())

	a2 := a.Allocate(20, 16)
	assert.Equal(t, a.Base()+48, a2)
	assert.Equal(t, a2, a.Previous())
	assert.Equal(t, a.Base()+68, a.Current())
	assert.Equal(t, 68, a.UsedMemory())

	a.Deallocate(a2)
	assert.Equal(t, a1, a.Previous())
	assert.Equal(t, a.Base()+26, a.Current())
	assert.Equal(t, 26, a.UsedMemory())

	a.Deallocate(a1)
	assert.Equal(t, Nil, a.Previous())
	assert.Equal(t, a.Base(), a.Current())
	assert.Equal(t, 0, a.UsedMemory())
	assert.Equal(t, 0, a.NumAllocations())
	a.Destroy()
}

func TestStackNested(t *testing.T) {
	a := NewStack("nested", newArena(t, 4096))
	var ptrs []Ptr
	for i := 1; i <= 20; i++ {
		ptr := a.Allocate(i*3, alignments[i%len(alignments)])
		require.NotEqual(t, Nil, ptr)
		a.Bytes(ptr, i*3)[0] = byte(i)
		ptrs = append(ptrs, ptr)
	}
	for i := len(ptrs) - 1; i >= 0; i-- {
		require.Equal(t, ptrs[i], a.Previous())
		assert.Equal(t, byte(i+1), a.Bytes(ptrs[i], 1)[0])
		a.Deallocate(ptrs[i])
	}
	assert.Equal(t, 0, a.UsedMemory())
	assert.Equal(t, a.Base(), a.Current())
}

func TestStackReallocate(t *testing.T) {
	a := NewStack("stack", newArena(t, 256))
	ptr := a.Allocate(10, 8)
	copy(a.Bytes(ptr, 10), "0123456789")

	assert.Equal(t, ptr, a.Reallocate(ptr, 100, 8))
	assert.False(t, a.CopyOnReallocation())
	assert.Equal(t, 116, a.UsedMemory())
	assert.Equal(t, "0123456789", string(a.Bytes(ptr, 10)))

	assert.Equal(t, Nil, a.Reallocate(ptr, 1000, 8))
	assert.Equal(t, 116, a.UsedMemory())
	assert.Equal(t, 1, a.NumAllocations())

	assert.Equal(t, ptr, a.Reallocate(ptr, 4, 8))
	assert.Equal(t, 20, a.UsedMemory())
	assert.Equal(t, "0123", string(a.Bytes(ptr, 4)))

	a.Deallocate(ptr)
	assert.Equal(t, 0, a.UsedMemory())
}

func TestStackFull(t *testing.T) {
	a := NewStack("stack", newArena(t, 256))
	assert.Equal(t, Nil, a.Allocate(241, 8))
	ptr := a.Allocate(240, 8)
	require.NotEqual(t, Nil, ptr)
	assert.Equal(t, 0, a.FreeMemory())
	assert.Equal(t, Nil, a.Allocate(1, 1))
	a.Deallocate(ptr)
}
