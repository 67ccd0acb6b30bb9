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

package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, size := range []int{1, 7, 128, 4096, 1 << 20} {
		b, err := New(size)
		require.NoError(t, err)
		assert.Equal(t, size, len(b))
		assert.Equal(t, size, cap(b))
		assert.True(t, IsAligned(b), "size %d", size)
		b[0], b[size-1] = 1, 2
	}

	for _, size := range []int{0, -1} {
		_, err := New(size)
		assert.True(t, errors.Is(err, ErrSize))
	}
	assert.Panics(t, func() { MustNew(0) })
}

func TestMap(t *testing.T) {
	b, err := Map(10000)
	require.NoError(t, err)
	assert.Equal(t, 10000, len(b))
	assert.GreaterOrEqual(t, cap(b), 10000)
	assert.True(t, IsAligned(b))
	for i := range b {
		if b[i] != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
	b[len(b)-1] = 0xff
	require.NoError(t, Unmap(b))
	require.NoError(t, Unmap(nil))

	_, err = Map(0)
	assert.True(t, errors.Is(err, ErrSize))
}
