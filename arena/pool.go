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
	"math/bits"
	"sync"
	"unsafe"
)

type arenaPool struct {
	sync.Pool

	Size int
}

var pools []*arenaPool

const (
	minPoolSize = 4 << 10 // 4KB, `Get` returns arenas with room for at least the number
	maxPoolSize = 1 << 30 // 1GB, bigger arenas are not recycled
)

const (
	// footer is a [8]byte stored right after the usable bytes of a pooled arena.
	// It contains two parts: magic(58 bits) and index (6 bits):
	// * magic is for checking an arena is created by Get
	// * index is for `pools`, the usable size of the arena is always pools[i].Size
	footerLen = 8

	footerMagicMask = uint64(0xFFFFFFFFFFFFFFC0) // 58 bits mask
	footerIndexMask = uint64(0x000000000000003F) // 6 bits mask
	footerMagic     = uint64(0xA7E4A0A7E4A0A7C0) // it ends with 6 zero bits which used by index
)

// bits2idx maps bits.Len to the index of `pools`
var bits2idx [64]int

func init() {
	i := 0
	for sz := minPoolSize; sz <= maxPoolSize; sz <<= 1 {
		p := &arenaPool{Size: sz}
		p.New = func() interface{} {
			b := MustNew(p.Size + footerLen)
			return &b[0]
		}
		pools = append(pools, p)
		bits2idx[bits.Len(uint(p.Size))] = i
		i++
	}
}

// poolIndex returns index of a pool which fits the given size `sz`
func poolIndex(sz int) int {
	if sz <= minPoolSize {
		return 0
	}
	i := bits2idx[bits.Len(uint(sz))]
	if uint(sz)&(uint(sz)-1) == 0 {
		// like `8192` should be in pools[1], but `8193` in pools[2]
		return i
	}
	return i + 1
}

// Get returns an arena of size bytes, recycled if possible.
// Like New, it is aligned to Alignment and its content is garbage.
// Release it with Put once no allocator uses it anymore.
func Get(size int) ([]byte, error) {
	if size <= 0 || size > maxPoolSize {
		return New(size)
	}
	i := poolIndex(size)
	pool := pools[i]
	b := unsafe.Slice(pool.Get().(*byte), pool.Size+footerLen)
	binary.LittleEndian.PutUint64(b[pool.Size:], footerMagic|uint64(i))
	return b[:size:len(b)], nil
}

// Put recycles an arena returned by Get. Other buffers are ignored,
// and so is an arena put twice. The arena must not be used afterwards.
func Put(b []byte) {
	c := cap(b)
	if c < minPoolSize+footerLen {
		return
	}
	b = b[:c]
	footer := binary.LittleEndian.Uint64(b[c-footerLen:])
	// checks magic
	if footer&footerMagicMask != footerMagic {
		return
	}
	// checks index
	i := int(footer & footerIndexMask)
	if i < len(pools) {
		if p := pools[i]; p.Size+footerLen == c {
			binary.LittleEndian.PutUint64(b[c-footerLen:], 0)
			p.Put(&b[0])
		}
	}
}
