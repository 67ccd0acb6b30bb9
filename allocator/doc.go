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

// Package allocator implements interchangeable memory allocators behind one interface.
//
// Linear, Stack, Pool and FreeList carve allocations out of a caller provided
// buffer (see package arena). Malloc takes memory from the process heap.
// Proxy and Recorder wrap another allocator to attribute or log its usage, and
// Manager builds the allocators of a program from Options.
//
// Allocations are identified by Ptr handles. The bytes behind a handle are
// reached with Allocator.Bytes, or typed with New and NewSlice:
//
//	buf, _ := arena.New(1 << 20)
//	a := allocator.NewFreeList("scratch", buf)
//	p := a.Allocate(64, allocator.DefaultAlignment)
//	copy(a.Bytes(p, 64), "hello")
//	a.Deallocate(p)
//	a.Destroy()
//
// Misuse such as freeing a handle twice, releasing a foreign handle or
// destroying an allocator that still holds memory panics. Running out of memory
// does not: Allocate returns Nil and leaves the allocator unchanged.
//
// Allocators are not safe for concurrent use.
package allocator
