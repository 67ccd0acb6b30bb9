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

package allocator_test

import (
	"fmt"

	"github.com/cloudwego/allocx/allocator"
	"github.com/cloudwego/allocx/arena"
)

func ExampleFreeList() {
	a := allocator.NewFreeList("scratch", arena.MustNew(1024))

	p := a.Allocate(5, 1)
	copy(a.Bytes(p, 5), "hello")
	fmt.Println(string(a.Bytes(p, 5)), a.UsedMemory(), a.NumAllocations())

	a.Deallocate(p)
	fmt.Println(a.UsedMemory(), a.FreeBlocks())
	a.Destroy()

	// Output:
	// hello 21 1
	// 0 [{0 1024}]
}

func ExampleLinear() {
	a := allocator.NewLinear("frame", arena.MustNew(256))
	for frame := 0; frame < 2; frame++ {
		p := a.Allocate(100, 16)
		fmt.Println(p == a.Base(), a.UsedMemory())
		a.Clear()
	}
	// Output:
	// true 100
	// true 100
}

func ExampleProxy() {
	heap := allocator.NewMalloc("heap")
	audio := allocator.NewProxy("audio", heap)

	p := audio.Allocate(64, 8)
	q := heap.Allocate(32, 8)
	fmt.Println(audio.UsedMemory(), heap.UsedMemory())

	audio.Deallocate(p)
	heap.Deallocate(q)
	// Output:
	// 64 96
}

func ExampleManager() {
	o := allocator.DefaultOptions()
	o.FreeListSize = 1 << 20
	o.Subsystems = []string{"physics"}

	m, err := allocator.NewManager(o)
	if err != nil {
		panic(err)
	}
	if err := m.Initialize(); err != nil {
		panic(err)
	}

	bodies := allocator.NewSlice[[3]float32](m.Subsystem("physics"), 100)
	fmt.Println(len(bodies), m.Subsystem("physics").NumAllocations())
	allocator.DeleteSlice(m.Subsystem("physics"), bodies)

	fmt.Println(m.Shutdown())
	// Output:
	// 100 1
	// <nil>
}
