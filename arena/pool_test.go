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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func footer(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b[cap(b)-footerLen : cap(b)])
}

func TestGetPut(t *testing.T) {
	for i := 127; i < 1<<20; i += 1000 { //  it tests 127B - 1MB, with step 1000
		b, err := Get(i)
		require.NoError(t, err)
		require.Equal(t, i, len(b))
		require.True(t, IsAligned(b))
		require.GreaterOrEqual(t, cap(b)-footerLen, i)
		b[0], b[i-1] = 1, 1
		Put(b)
	}

	_, err := Get(0)
	require.ErrorIs(t, err, ErrSize)
}

func TestPoolIndex(t *testing.T) {
	require.Equal(t, 0, poolIndex(1))
	require.Equal(t, 0, poolIndex(4<<10))
	require.Equal(t, 1, poolIndex(4<<10+1))
	require.Equal(t, 1, poolIndex(8<<10))
	require.Equal(t, 2, poolIndex(8<<10+1))
	require.Equal(t, pools[len(pools)-1].Size, maxPoolSize)
}

func TestPut(t *testing.T) {
	// case: cap == 0
	Put(nil)
	// case: no room for a footer
	Put(make([]byte, 0, minPoolSize))
	// case: magic err
	Put(make([]byte, 10, minPoolSize+footerLen))

	b := make([]byte, 0, minPoolSize+footerLen)
	binary.LittleEndian.PutUint64(b[minPoolSize:minPoolSize+footerLen], footerMagic|5)
	Put(b) // case: index err

	b, err := Get(100)
	require.NoError(t, err)
	require.Equal(t, footerMagic, footer(b))
	Put(b)
	require.Zero(t, footer(b))
	Put(b) // case: put twice
}

func Benchmark_GetPut(b *testing.B) {
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 1
		for pb.Next() {
			b, _ := Get(i & 0xffff)
			Put(b)
			i++
		}
	})
}
