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

//go:build release

package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReleaseSkipsDebugChecks(t *testing.T) {
	l := NewLinear("linear", newArena(t, 128))
	ptr := l.Allocate(8, 8)
	assert.Equal(t, Nil, l.Reallocate(ptr, 16, 8))
	assert.False(t, l.CopyOnReallocation())
	assert.Equal(t, 1, l.NumAllocations())

	p := NewPool("pool", 16, 8, newArena(t, 128))
	ptr = p.Allocate(16, 8)
	assert.Equal(t, Nil, p.Reallocate(ptr, 16, 8))
	assert.False(t, p.CopyOnReallocation())
	assert.Equal(t, 1, p.NumAllocations())
}
