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

import (
	"encoding/binary"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/bytedance/gopkg/util/xxhash3"

	"github.com/cloudwego/allocx/internal/assert"
)

// DefaultMaxEntries is the number of events a Recorder keeps by default.
const DefaultMaxEntries = 100 * 1000

// Entry is one recorded event.
// Deallocations are entries with an Alignment of zero.
type Entry struct {
	Time      time.Time
	Ptr       Ptr
	Bytes     int
	Alignment int

	// usage of the subject right after the event
	UsedMemory     int
	NumAllocations int
}

// IsDeallocation reports whether the entry records a deallocation.
func (e *Entry) IsDeallocation() bool { return e.Alignment == 0 }

// PointerCounter counts the events seen for one pointer.
type PointerCounter struct {
	Ptr           Ptr
	Allocations   int
	Deallocations int
}

// Recorder wraps an allocator and logs every allocation, reallocation and
// deallocation made through it, to look for leaks and fragmentation.
// Everything else is answered by the subject.
type Recorder struct {
	subject    Allocator
	entries    []Entry
	maxEntries int
	recording  bool
}

var _ Allocator = (*Recorder)(nil)

// NewRecorder returns a recorder in front of subject keeping at most maxEntries
// events. maxEntries <= 0 means DefaultMaxEntries.
func NewRecorder(subject Allocator, maxEntries int) *Recorder {
	assert.Fatal(subject != nil, "recorder needs a subject allocator")
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Recorder{subject: subject, maxEntries: maxEntries, recording: true}
}

func (r *Recorder) Subject() Allocator { return r.subject }

func (r *Recorder) Recording() bool { return r.recording }

// SetRecording pauses or resumes recording.
func (r *Recorder) SetRecording(value bool) { r.recording = value }

// Entries returns the recorded events. The slice must not be modified.
func (r *Recorder) Entries() []Entry { return r.entries }

func (r *Recorder) Name() string { return r.subject.Name() }

func (r *Recorder) Kind() Kind { return KindRecorder }

func (r *Recorder) Size() int { return r.subject.Size() }

func (r *Recorder) Base() Ptr { return r.subject.Base() }

func (r *Recorder) UsedMemory() int { return r.subject.UsedMemory() }

func (r *Recorder) FreeMemory() int { return r.subject.FreeMemory() }

func (r *Recorder) NumAllocations() int { return r.subject.NumAllocations() }

func (r *Recorder) CopyOnReallocation() bool { return r.subject.CopyOnReallocation() }

func (r *Recorder) SetCopyOnReallocation(value bool) { r.subject.SetCopyOnReallocation(value) }

func (r *Recorder) Bytes(ptr Ptr, n int) []byte { return r.subject.Bytes(ptr, n) }

func (r *Recorder) sealed() {}

// Destroy reports allocations never freed, then destroys the subject.
func (r *Recorder) Destroy() {
	if notFreed := r.NotFreed(); len(notFreed) > 0 {
		Logger().Debug("recorded allocations not freed", "name", r.Name(), "count", len(notFreed))
	}
	r.subject.Destroy()
}

func (r *Recorder) Allocate(bytes, alignment int) Ptr {
	ptr := r.subject.Allocate(bytes, alignment)
	if ptr != Nil {
		r.record(ptr, bytes, alignment)
	}
	return ptr
}

func (r *Recorder) Reallocate(ptr Ptr, bytes, alignment int) Ptr {
	if bytes == 0 {
		r.Deallocate(ptr)
		return Nil
	}
	if ptr == Nil {
		return r.Allocate(bytes, alignment)
	}
	newPtr := r.subject.Reallocate(ptr, bytes, alignment)
	if newPtr == Nil || !r.recording {
		return newPtr
	}
	// the allocation entry is updated in place
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := &r.entries[i]
		if e.Ptr == ptr && !e.IsDeallocation() {
			*e = r.entry(newPtr, bytes, alignment)
			break
		}
	}
	return newPtr
}

func (r *Recorder) Deallocate(ptr Ptr) {
	before := r.subject.UsedMemory()
	r.subject.Deallocate(ptr)
	if ptr != Nil {
		r.record(ptr, before-r.subject.UsedMemory(), 0)
	}
}

func (r *Recorder) record(ptr Ptr, bytes, alignment int) {
	if !r.recording || len(r.entries) >= r.maxEntries {
		return
	}
	r.entries = append(r.entries, r.entry(ptr, bytes, alignment))
}

func (r *Recorder) entry(ptr Ptr, bytes, alignment int) Entry {
	return Entry{
		Time:           time.Now(),
		Ptr:            ptr,
		Bytes:          bytes,
		Alignment:      alignment,
		UsedMemory:     r.subject.UsedMemory(),
		NumAllocations: r.subject.NumAllocations(),
	}
}

// FindAllocation returns the index of the first allocation of ptr, -1 if none.
func (r *Recorder) FindAllocation(ptr Ptr) int {
	for i := range r.entries {
		if e := &r.entries[i]; e.Ptr == ptr && !e.IsDeallocation() {
			return i
		}
	}
	return -1
}

// FindDeallocation returns the index of the deallocation matching the allocation
// at index, -1 if it was never freed or index is not an allocation.
func (r *Recorder) FindDeallocation(index int) int {
	if index < 0 || index >= len(r.entries) || r.entries[index].IsDeallocation() {
		return -1
	}
	ptr := r.entries[index].Ptr
	for i := index + 1; i < len(r.entries); i++ {
		if e := &r.entries[i]; e.Ptr == ptr {
			if e.IsDeallocation() {
				return i
			}
			// the address was handed out again, so the first one leaked
			return -1
		}
	}
	return -1
}

// NotFreed returns the indexes of the allocations without a deallocation.
func (r *Recorder) NotFreed() []int {
	var indexes []int
	for i := range r.entries {
		if !r.entries[i].IsDeallocation() && r.FindDeallocation(i) < 0 {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// PointerCounters returns the pointers allocated and deallocated a different
// number of times, in order of first appearance.
func (r *Recorder) PointerCounters() []PointerCounter {
	index := make(map[Ptr]int)
	var counters []PointerCounter
	for i := range r.entries {
		e := &r.entries[i]
		j, ok := index[e.Ptr]
		if !ok {
			j = len(counters)
			index[e.Ptr] = j
			counters = append(counters, PointerCounter{Ptr: e.Ptr})
		}
		if e.IsDeallocation() {
			counters[j].Deallocations++
		} else {
			counters[j].Allocations++
		}
	}
	n := 0
	for _, c := range counters {
		if c.Allocations != c.Deallocations {
			counters[n] = c
			n++
		}
	}
	return counters[:n]
}

// WriteCSV writes one line per event:
// index,nanoseconds,pointer,bytes,alignment,used memory,allocations.
func (r *Recorder) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	for i := range r.entries {
		e := &r.entries[i]
		err := cw.Write([]string{
			strconv.Itoa(i),
			strconv.FormatInt(e.Time.UnixNano(), 10),
			"0x" + strconv.FormatUint(uint64(e.Ptr), 16),
			strconv.Itoa(e.Bytes),
			strconv.Itoa(e.Alignment),
			strconv.Itoa(e.UsedMemory),
			strconv.Itoa(e.NumAllocations),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Digest hashes the recorded events without their timestamps. Pointers are
// taken relative to the subject buffer, so two runs of the same workload over
// an arena allocator produce the same digest. Heap pointers are left out.
func (r *Recorder) Digest() uint64 {
	base := uintptr(r.subject.Base())
	buf := make([]byte, 0, len(r.entries)*40)
	for i := range r.entries {
		e := &r.entries[i]
		var ptr uint64
		if base != 0 {
			ptr = uint64(uintptr(e.Ptr) - base)
		}
		buf = binary.LittleEndian.AppendUint64(buf, ptr)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Bytes))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Alignment))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e.UsedMemory))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e.NumAllocations))
	}
	return xxhash3.Hash(buf)
}
