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
)

// The helpers below place Go values in allocator memory.
// T must not contain Go pointers: the garbage collector does not scan allocator memory.

// New allocates a zeroed T, or returns nil if a is out of memory.
func New[T any](a Allocator) *T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	assert.Fatal(size > 0, "%s: cannot allocate a zero sized type", a.Name())
	ptr := a.Allocate(size, int(unsafe.Alignof(zero)))
	if ptr == Nil {
		return nil
	}
	b := a.Bytes(ptr, size)
	clear(b)
	return (*T)(unsafe.Pointer(unsafe.SliceData(b)))
}

// Delete releases a value returned by New. nil is ignored.
func Delete[T any](a Allocator, v *T) {
	if v == nil {
		return
	}
	a.Deallocate(Ptr(uintptr(unsafe.Pointer(v))))
}

// NewSlice allocates n zeroed elements, or returns nil if a is out of memory.
func NewSlice[T any](a Allocator, n int) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	assert.Fatal(size > 0 && n > 0, "%s: cannot allocate %d elements of %d bytes", a.Name(), n, size)
	ptr := a.Allocate(size*n, int(unsafe.Alignof(zero)))
	if ptr == Nil {
		return nil
	}
	b := a.Bytes(ptr, size*n)
	clear(b)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

// DeleteSlice releases a slice returned by NewSlice.
func DeleteSlice[T any](a Allocator, s []T) {
	if cap(s) == 0 {
		return
	}
	a.Deallocate(Ptr(uintptr(unsafe.Pointer(unsafe.SliceData(s)))))
}
