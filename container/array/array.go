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

// Package array implements a growable array whose storage comes from an allocator.
package array

import (
	"unsafe"

	"github.com/cloudwego/allocx/allocator"
)

// Array is a growable array of T kept in allocator memory.
// Type T must NOT contain pointers: the garbage collector does not see the storage.
// An Array must not outlive its allocator.
type Array[T any] struct {
	a    allocator.Allocator
	ptr  allocator.Ptr
	data []T
}

// New returns an empty array with room for capacity elements.
// It returns nil if the allocator cannot provide them.
func New[T any](a allocator.Allocator, capacity int) *Array[T] {
	arr := &Array[T]{a: a}
	if capacity > 0 && !arr.Reserve(capacity) {
		return nil
	}
	return arr
}

func elemSize[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func elemAlign[T any]() int {
	var zero T
	return int(unsafe.Alignof(zero))
}

// Len returns the number of elements.
func (arr *Array[T]) Len() int { return len(arr.data) }

// Cap returns the number of elements the array holds without growing.
func (arr *Array[T]) Cap() int { return cap(arr.data) }

// Allocator returns the allocator the storage comes from.
func (arr *Array[T]) Allocator() allocator.Allocator { return arr.a }

// Reserve grows the storage to hold at least n elements.
// It returns false, leaving the array untouched, if the allocator cannot grow it.
func (arr *Array[T]) Reserve(n int) bool {
	if n <= cap(arr.data) {
		return true
	}
	size := n * elemSize[T]()
	ptr := arr.a.Reallocate(arr.ptr, size, elemAlign[T]())
	if ptr == allocator.Nil {
		return false
	}
	b := arr.a.Bytes(ptr, size)
	arr.ptr = ptr
	arr.data = unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)[:len(arr.data)]
	return true
}

// PushBack appends v, doubling the storage when it is full.
// It returns false if the allocator is out of memory.
func (arr *Array[T]) PushBack(v T) bool {
	if len(arr.data) == cap(arr.data) {
		n := 2 * cap(arr.data)
		if n < 4 {
			n = 4
		}
		if !arr.Reserve(n) {
			return false
		}
	}
	arr.data = append(arr.data, v)
	return true
}

// Pop removes and returns the last element.
func (arr *Array[T]) Pop() (T, bool) {
	var v T
	if len(arr.data) == 0 {
		return v, false
	}
	v = arr.data[len(arr.data)-1]
	arr.data = arr.data[:len(arr.data)-1]
	return v, true
}

// At returns the ith element. It panics if i is out of range.
func (arr *Array[T]) At(i int) T { return arr.data[i] }

// Set replaces the ith element. It panics if i is out of range.
func (arr *Array[T]) Set(i int, v T) { arr.data[i] = v }

// Pointer returns the address of the ith element.
// It is invalidated by any call growing the array.
func (arr *Array[T]) Pointer(i int) *T { return &arr.data[i] }

// Slice returns the elements. It shares the storage of the array.
func (arr *Array[T]) Slice() []T { return arr.data }

// Clear removes every element and keeps the storage.
func (arr *Array[T]) Clear() { arr.data = arr.data[:0] }

// Free returns the storage to the allocator. The array can be reused afterwards.
func (arr *Array[T]) Free() {
	if arr.ptr != allocator.Nil {
		arr.a.Deallocate(arr.ptr)
	}
	arr.ptr = allocator.Nil
	arr.data = nil
}
