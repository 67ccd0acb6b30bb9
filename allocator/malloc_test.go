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

func TestMalloc(t *testing.T) {
	a := NewMalloc("heap")
	assert.Equal(t, KindMalloc, a.Kind())
	assert.Equal(t, 1, a.Size())
	assert.Equal(t, Nil, a.Base())

	p1 := a.Allocate(100, 64)
	p2 := a.Allocate(7, 1)
	require.NotEqual(t, Nil, p1)
	require.NotEqual(t, Nil, p2)
	assert.Equal(t, 107, a.UsedMemory())
	assert.Equal(t, 2, a.NumAllocations())

	copy(a.Bytes(p1, 5), "hello")
	p3 := a.Reallocate(p1, 200, 32)
	assert.False(t, a.CopyOnReallocation())
	assert.Equal(t, "hello", string(a.Bytes(p3, 5)))
	assert.Equal(t, 207, a.UsedMemory())
	assert.Equal(t, 2, a.NumAllocations())
	assert.Panics(t, func() { a.Bytes(p3, 201) })

	a.Deallocate(p3)
	a.Deallocate(p2)
	assert.Panics(t, func() { a.Deallocate(p2) })
	assert.Equal(t, 0, a.UsedMemory())
	a.Destroy()
}

func TestMallocZeroValue(t *testing.T) {
	var a Malloc
	ptr := a.Allocate(8, 8)
	require.NotEqual(t, Nil, ptr)
	assert.Equal(t, "Malloc", a.Name())
	a.Deallocate(ptr)
	a.Destroy()
}

func TestProxy(t *testing.T) {
	subject := NewFreeList("main", newArena(t, 4096))
	audio := NewProxy("audio", subject)
	render := NewProxy("render", subject)
	assert.Equal(t, KindProxy, audio.Kind())
	assert.Equal(t, 0, audio.Size())
	assert.Equal(t, Nil, audio.Base())
	assert.Equal(t, Allocator(subject), audio.Subject())

	a1 := audio.Allocate(100, 16)
	r1 := render.Allocate(50, 16)
	assert.Equal(t, 116, audio.UsedMemory())
	assert.Equal(t, 1, audio.NumAllocations())
	assert.Equal(t, 78, render.UsedMemory())
	assert.Equal(t, subject.UsedMemory(), audio.UsedMemory()+render.UsedMemory())
	assert.Equal(t, 2, subject.NumAllocations())

	copy(audio.Bytes(a1, 3), "abc")
	assert.Equal(t, "abc", string(subject.Bytes(a1, 3)))

	// resizes are attributed too
	a1 = audio.Reallocate(a1, 10, 16)
	assert.Equal(t, 26, audio.UsedMemory())
	assert.Equal(t, 1, audio.NumAllocations())

	assert.Equal(t, Nil, audio.Allocate(1<<20, 16))
	assert.Equal(t, 1, audio.NumAllocations())

	audio.Deallocate(a1)
	render.Deallocate(r1)
	assert.Equal(t, 0, audio.UsedMemory())
	assert.Equal(t, 0, render.UsedMemory())
	assert.Panics(t, func() { audio.Deallocate(a1) })

	audio.Destroy()
	render.Destroy()
	subject.Destroy()
}

func TestProxyOverMalloc(t *testing.T) {
	subject := NewMalloc("heap")
	p := NewProxy("net", subject)
	ptrs := []Ptr{p.Allocate(10, 8), p.Allocate(20, 8), subject.Allocate(5, 1)}
	assert.Equal(t, 30, p.UsedMemory())
	assert.Equal(t, 2, p.NumAllocations())
	assert.Equal(t, 35, subject.UsedMemory())

	ptrs[0] = p.Reallocate(ptrs[0], 40, 8)
	assert.Equal(t, 60, p.UsedMemory())

	assert.Equal(t, Nil, p.Reallocate(ptrs[1], 0, 8))
	assert.Equal(t, 40, p.UsedMemory())
	assert.Equal(t, 1, p.NumAllocations())

	p.Deallocate(ptrs[0])
	subject.Deallocate(ptrs[2])
	p.Destroy()
	assert.Panics(t, func() { p.Allocate(1, 1) })
	subject.Destroy()
}

func TestNewHelpers(t *testing.T) {
	type vec struct {
		X, Y, Z float64
	}
	a := NewFreeList("typed", newArena(t, 1024))

	v := New[vec](a)
	require.NotNil(t, v)
	assert.Equal(t, vec{}, *v)
	v.X = 1
	assert.Equal(t, 1, a.NumAllocations())

	s := NewSlice[int32](a, 16)
	require.Len(t, s, 16)
	for i := range s {
		assert.Zero(t, s[i])
		s[i] = int32(i)
	}
	assert.Nil(t, NewSlice[int64](a, 1000))
	assert.Panics(t, func() { NewSlice[int64](a, 0) })

	Delete(a, v)
	DeleteSlice(a, s)
	Delete[vec](a, nil)
	DeleteSlice[int32](a, nil)
	assert.Equal(t, 0, a.NumAllocations())
	a.Destroy()
}
