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

import "github.com/cloudwego/allocx/internal/assert"

// Proxy forwards every request to a subject allocator and accounts for the
// memory its own callers use. It is how subsystems get their own memory
// statistics out of a shared allocator.
type Proxy struct {
	core

	subject Allocator
}

var _ Allocator = (*Proxy)(nil)

// NewProxy returns a proxy named name in front of subject.
// A proxy owns no buffer: Size is 0 and Base is Nil.
func NewProxy(name string, subject Allocator) *Proxy {
	assert.Fatal(subject != nil, "proxy %q needs a subject allocator", name)
	a := &Proxy{subject: subject}
	a.prepare(name, KindProxy)
	return a
}

// Subject returns the allocator requests are forwarded to.
func (a *Proxy) Subject() Allocator { return a.subject }

func (a *Proxy) Allocate(bytes, alignment int) Ptr {
	a.checkAlive()
	before := a.subject.UsedMemory()
	ptr := a.subject.Allocate(bytes, alignment)
	if ptr != Nil {
		a.usedMemory += a.subject.UsedMemory() - before
		a.numAllocations++
	}
	return ptr
}

func (a *Proxy) Reallocate(ptr Ptr, bytes, alignment int) Ptr {
	if bytes == 0 {
		a.Deallocate(ptr)
		return Nil
	}
	if ptr == Nil {
		return a.Allocate(bytes, alignment)
	}
	a.checkAlive()
	before := a.subject.UsedMemory()
	newPtr := a.subject.Reallocate(ptr, bytes, alignment)
	a.usedMemory += a.subject.UsedMemory() - before
	return newPtr
}

func (a *Proxy) Deallocate(ptr Ptr) {
	if ptr == Nil {
		return
	}
	a.checkAlive()
	assert.Fatal(a.numAllocations > 0, "%s: more deallocations than allocations", a.name)
	before := a.subject.UsedMemory()
	a.subject.Deallocate(ptr)
	a.usedMemory -= before - a.subject.UsedMemory()
	a.numAllocations--
}

func (a *Proxy) Bytes(ptr Ptr, n int) []byte { return a.subject.Bytes(ptr, n) }

func (a *Proxy) CopyOnReallocation() bool { return a.subject.CopyOnReallocation() }

func (a *Proxy) SetCopyOnReallocation(value bool) { a.subject.SetCopyOnReallocation(value) }
