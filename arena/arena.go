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

// Package arena provides buffers for the arena allocators.
//
// New returns uninitialized heap memory. Get does the same from size classed
// pools, and Put recycles what Get returned. Map returns an anonymous memory
// mapping that lives outside of the Go heap and must be released with Unmap.
package arena

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// Alignment is the alignment of the first byte of every arena.
// It equals the largest alignment an allocator accepts, so the first
// allocation never needs padding.
const Alignment = 128

// ErrSize is returned for arena sizes that are not positive.
var ErrSize = errors.New("arena: invalid size")

// New returns an uninitialized buffer of size bytes aligned to Alignment.
// The content is garbage: allocators never rely on it being zeroed.
func New(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrSize, size)
	}
	n := size + Alignment - 1
	buf := dirtmake.Bytes(n, n)
	off := 0
	if rem := uintptr(unsafe.Pointer(&buf[0])) & (Alignment - 1); rem != 0 {
		off = int(Alignment - rem)
	}
	return buf[off : off+size : off+size], nil
}

// MustNew is like New but panics on error.
func MustNew(size int) []byte {
	buf, err := New(size)
	if err != nil {
		panic(err)
	}
	return buf
}

// IsAligned reports whether b starts at an Alignment boundary.
func IsAligned(b []byte) bool {
	return len(b) > 0 && uintptr(unsafe.Pointer(&b[0]))&(Alignment-1) == 0
}
