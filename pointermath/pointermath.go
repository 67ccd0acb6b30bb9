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

// Package pointermath provides address arithmetic and alignment helpers
// shared by the allocators. Alignments must be powers of two; it is the
// caller's job to check that.
package pointermath

// Add returns p advanced by n bytes.
func Add(p uintptr, n int) uintptr {
	return p + uintptr(n)
}

// Subtract returns p moved back by n bytes.
func Subtract(p uintptr, n int) uintptr {
	return p - uintptr(n)
}

// Distance returns the number of bytes from b to a (a - b).
func Distance(a, b uintptr) int {
	return int(a - b)
}

// Align rounds p up to the next multiple of alignment.
func Align(p uintptr, alignment int) uintptr {
	mask := uintptr(alignment - 1)
	return (p + mask) &^ mask
}

// AlignAdjustment returns how many bytes p must be moved forward to be aligned.
// It returns 0 (not alignment) when p is already aligned.
func AlignAdjustment(p uintptr, alignment int) int {
	mask := uintptr(alignment - 1)
	adjustment := uintptr(alignment) - (p & mask)
	if adjustment == uintptr(alignment) {
		return 0
	}
	return int(adjustment)
}

// AlignWithHeader is like AlignAdjustment but makes sure at least headerSize
// bytes are left between p and the aligned address.
func AlignWithHeader(p uintptr, alignment, headerSize int) int {
	adjustment := AlignAdjustment(p, alignment)
	needed := headerSize
	if adjustment < needed {
		needed -= adjustment
		// grow by whole alignments until the header fits
		adjustment += alignment * (needed / alignment)
		if needed%alignment > 0 {
			adjustment += alignment
		}
	}
	return adjustment
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// IsAligned reports whether p is a multiple of alignment.
func IsAligned(p uintptr, alignment int) bool {
	return p&uintptr(alignment-1) == 0
}
