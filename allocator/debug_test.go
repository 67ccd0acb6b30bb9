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

//go:build !release

package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugChecks(t *testing.T) {
	l := NewLinear("linear", newArena(t, 128))
	ptr := l.Allocate(8, 8)
	assert.PanicsWithValue(t, "allocx: linear: a linear allocator cannot reallocate", func() { l.Reallocate(ptr, 16, 8) })

	s := NewStack("stack", newArena(t, 128))
	first := s.Allocate(8, 8)
	s.Allocate(8, 8)
	assert.Panics(t, func() { s.Deallocate(first) }, "not the top")
	assert.Panics(t, func() { s.Reallocate(first, 16, 8) }, "not the top")
	assert.Equal(t, 2, s.NumAllocations())

	p := NewPool("pool", 16, 8, newArena(t, 128))
	a := p.Allocate(16, 8)
	p.Allocate(16, 8)
	p.Deallocate(a)
	assert.Panics(t, func() { p.Deallocate(a) }, "double free")
	require.Equal(t, a, p.Allocate(16, 8))
	assert.Panics(t, func() { p.Reallocate(a, 16, 8) })
}
