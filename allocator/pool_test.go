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

func TestPool(t *testing.T) {
	a := NewPool("particles", 32, 16, newArena(t, 1024))
	assert.Equal(t, KindPool, a.Kind())
	assert.Equal(t, 32, a.Capacity())
	assert.Equal(t, 32, a.ElementSize())
	assert.Equal(t, 16, a.ElementAlignment())

	seen := make(map[Ptr]bool)
	var ptrs []Ptr
	for i := 0; i < a.Capacity(); i++ {
		ptr := a.Allocate(32, 16)
		require.NotEqual(t, Nil, ptr)
		assert.False(t, seen[ptr])
		seen[ptr] = true
		ptrs = append(ptrs, ptr)
	}
	// slots are handed out in address order on a fresh pool
	assert.Equal(t, a.Base(), ptrs[0])
	assert.Equal(t, a.Base()+32, ptrs[1])
	assert.Equal(t, Nil, a.Allocate(32, 16))
	assert.Equal(t, 1024, a.UsedMemory())

	for _, ptr := range ptrs {
		a.Deallocate(ptr)
	}
	assert.Equal(t, 0, a.UsedMemory())
	assert.Equal(t, 0, a.NumAllocations())
	a.Destroy()
}

func TestPoolLIFOReuse(t *testing.T) {
	a := NewPool("pool", 16, 8, newArena(t, 256))
	p1 := a.Allocate(16, 8)
	p2 := a.Allocate(16, 8)
	p3 := a.Allocate(16, 8)

	a.Deallocate(p1)
	assert.Equal(t, p1, a.Allocate(16, 8))

	a.Deallocate(p3)
	a.Deallocate(p1)
	a.Deallocate(p2)
	assert.Equal(t, p2, a.Allocate(16, 8))
	assert.Equal(t, p1, a.Allocate(16, 8))
	assert.Equal(t, p3, a.Allocate(16, 8))
}

func TestPoolInvalid(t *testing.T) {
	assert.Panics(t, func() { NewPool("small", 4, 4, newArena(t, 256)) })
	assert.Panics(t, func() { NewPool("multiple", 24, 16, newArena(t, 256)) })
	assert.Panics(t, func() { NewPool("alignment", 24, 3, newArena(t, 256)) })
	assert.Panics(t, func() { NewPool("empty", 512, 8, newArena(t, 256)) })

	a := NewPool("pool", 16, 8, newArena(t, 256))
	assert.Panics(t, func() { a.Allocate(8, 8) })
	assert.Panics(t, func() { a.Allocate(16, 16) })

	ptr := a.Allocate(16, 8)
	assert.Panics(t, func() { a.Deallocate(ptr + 4) })
	assert.Panics(t, func() { a.Deallocate(a.Base() + 1024) })
	assert.Equal(t, 1, a.NumAllocations())
}
