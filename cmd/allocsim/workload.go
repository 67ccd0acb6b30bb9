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

package main

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/cloudwego/allocx/allocator"
	"github.com/cloudwego/allocx/arena"
	"github.com/cloudwego/allocx/container/array"
	"github.com/cloudwego/allocx/container/ring"
)

// historySize is the number of usage samples kept for the recent statistics.
const historySize = 64

var allocatorKinds = []string{"malloc", "linear", "stack", "pool", "freelist"}

// workload describes a random allocation workload.
type workload struct {
	Allocator string
	Arena     int
	Ops       int
	Min       int
	Max       int
	Seed      int64
	Fit       allocator.FitStrategy
	Defrag    bool
	Mmap      bool
	Record    bool
	CSV       io.Writer // receives the recorded events when Record is set
}

func defaultWorkload() workload {
	return workload{
		Allocator: "freelist",
		Arena:     1 << 20,
		Ops:       10000,
		Min:       8,
		Max:       1024,
		Seed:      1,
	}
}

func (w *workload) validate() error {
	known := false
	for _, k := range allocatorKinds {
		known = known || k == w.Allocator
	}
	if !known {
		return fmt.Errorf("unknown allocator %q, want one of %v", w.Allocator, allocatorKinds)
	}
	if w.Arena <= 0 {
		return fmt.Errorf("arena size must be positive, got %d", w.Arena)
	}
	if w.Ops < 0 {
		return fmt.Errorf("number of operations must not be negative, got %d", w.Ops)
	}
	if w.Min <= 0 || w.Max < w.Min {
		return fmt.Errorf("invalid allocation size range [%d, %d]", w.Min, w.Max)
	}
	switch {
	case w.Allocator == "pool" && w.Arena < (w.Max+15)&^15:
		return fmt.Errorf("arena of %d bytes cannot hold one pool element of %d bytes", w.Arena, (w.Max+15)&^15)
	case w.Allocator == "freelist" && w.Arena <= 16:
		return fmt.Errorf("arena of %d bytes is too small for a free list", w.Arena)
	}
	return nil
}

// report is the outcome of a workload.
type report struct {
	Allocator     string `json:"allocator"`
	Fit           string `json:"fit,omitempty"`
	Size          int    `json:"size"`
	Ops           int    `json:"ops"`
	Allocations   int    `json:"allocations"`
	Deallocations int    `json:"deallocations"`
	Reallocations int    `json:"reallocations"`
	Clears        int    `json:"clears,omitempty"`
	Failed        int    `json:"failed"`
	PeakUsed      int    `json:"peak_used"`
	PeakLive      int    `json:"peak_live"`
	RecentAvgUsed int    `json:"recent_avg_used"`
	RecentMaxUsed int    `json:"recent_max_used"`

	// free list state before the final cleanup
	FreeBlocks       int     `json:"free_blocks,omitempty"`
	LargestFreeBlock int     `json:"largest_free_block,omitempty"`
	Fragmentation    float64 `json:"fragmentation,omitempty"`

	FinalUsed        int    `json:"final_used"`
	FinalAllocations int    `json:"final_allocations"`
	BookkeepingPeak  int    `json:"bookkeeping_peak"`
	Events           int    `json:"events,omitempty"`
	Digest           string `json:"digest,omitempty"`
}

type liveBlock struct {
	ptr   allocator.Ptr
	bytes int
	fill  byte
}

type sample struct {
	op   int
	used int
}

var alignmentChoices = []int{1, 2, 4, 8, 16}

// simulator replays a workload. Its bookkeeping lives in allocator memory too,
// attributed to a proxy so it never mixes with the allocator under test.
type simulator struct {
	w   workload
	rnd *rand.Rand
	rep report

	buf    []byte
	mapped bool
	target allocator.Allocator
	leaf   allocator.Allocator
	rec    *allocator.Recorder

	books   *allocator.Proxy
	lives   *array.Array[liveBlock]
	history *ring.Ring[sample]
	cursor  int
	samples int
}

func runWorkload(w workload) (*report, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	s := &simulator{w: w, rnd: rand.New(rand.NewSource(w.Seed))}
	defer s.release()
	if err := s.setup(); err != nil {
		return nil, err
	}

	for i := 0; i < w.Ops; i++ {
		if err := s.step(i); err != nil {
			return nil, err
		}
	}
	s.inspect()
	if err := s.cleanup(); err != nil {
		return nil, err
	}
	return &s.rep, nil
}

func (s *simulator) setup() error {
	s.rep = report{Allocator: s.w.Allocator, Ops: s.w.Ops}

	s.books = allocator.NewProxy("bookkeeping", allocator.NewMalloc("heap"))
	s.lives = array.New[liveBlock](s.books, 64)
	s.history = ring.New[sample](s.books, historySize)

	if s.w.Allocator != "malloc" {
		var err error
		if s.w.Mmap {
			s.buf, err = arena.Map(s.w.Arena)
			s.mapped = err == nil
		} else {
			s.buf, err = arena.Get(s.w.Arena)
		}
		if err != nil {
			return err
		}
	}

	switch s.w.Allocator {
	case "malloc":
		s.leaf = allocator.NewMalloc("malloc")
	case "linear":
		s.leaf = allocator.NewLinear("linear", s.buf)
	case "stack":
		s.leaf = allocator.NewStack("stack", s.buf)
	case "pool":
		s.leaf = allocator.NewPool("pool", s.poolElementSize(), 16, s.buf)
	case "freelist":
		fl := allocator.NewFreeList("freelist", s.buf)
		fl.SetFitStrategy(s.w.Fit)
		fl.SetDefragOnDeallocation(s.w.Defrag)
		s.leaf = fl
		s.rep.Fit = s.w.Fit.String()
	}
	s.rep.Size = s.leaf.Size()

	s.target = s.leaf
	if s.w.Record {
		s.rec = allocator.NewRecorder(s.leaf, 0)
		s.target = s.rec
	}
	return nil
}

func (s *simulator) poolElementSize() int {
	return (s.w.Max + 15) &^ 15
}

func (s *simulator) step(op int) error {
	n := s.lives.Len()
	switch r := s.rnd.Intn(10); {
	case n == 0 || r < 5:
		s.allocate()
	case r < 8:
		if s.w.Allocator == "linear" {
			s.clear()
		} else if err := s.deallocate(); err != nil {
			return err
		}
	default:
		if err := s.reallocate(); err != nil {
			return err
		}
	}

	used := s.target.UsedMemory()
	if used > s.rep.PeakUsed {
		s.rep.PeakUsed = used
	}
	if l := s.lives.Len(); l > s.rep.PeakLive {
		s.rep.PeakLive = l
	}
	if b := s.books.UsedMemory(); b > s.rep.BookkeepingPeak {
		s.rep.BookkeepingPeak = b
	}
	it, _ := s.history.Move(s.cursor, 1)
	*it.Pointer() = sample{op: op, used: used}
	s.cursor = it.Index()
	s.samples++
	return nil
}

func (s *simulator) request() (bytes, alignment int) {
	if s.w.Allocator == "pool" {
		return s.poolElementSize(), 16
	}
	bytes = s.w.Min + s.rnd.Intn(s.w.Max-s.w.Min+1)
	alignment = alignmentChoices[s.rnd.Intn(len(alignmentChoices))]
	return bytes, alignment
}

func (s *simulator) allocate() {
	bytes, alignment := s.request()
	ptr := s.target.Allocate(bytes, alignment)
	if ptr == allocator.Nil {
		s.rep.Failed++
		if s.w.Allocator == "linear" {
			s.clear()
		}
		return
	}
	fill := byte(s.rnd.Intn(256))
	b := s.target.Bytes(ptr, bytes)
	for i := range b {
		b[i] = fill
	}
	if !s.lives.PushBack(liveBlock{ptr: ptr, bytes: bytes, fill: fill}) {
		// the heap never runs out, but keep the workload consistent if it did
		s.target.Deallocate(ptr)
		s.rep.Failed++
		return
	}
	s.rep.Allocations++
}

// victim picks the live block to release or resize. A stack only accepts its top.
func (s *simulator) victim() int {
	if s.w.Allocator == "stack" {
		return s.lives.Len() - 1
	}
	return s.rnd.Intn(s.lives.Len())
}

func (s *simulator) check(l liveBlock) error {
	for i, v := range s.target.Bytes(l.ptr, l.bytes) {
		if v != l.fill {
			return fmt.Errorf("%s: byte %d of %#x is %d, want %d", s.w.Allocator, i, uintptr(l.ptr), v, l.fill)
		}
	}
	return nil
}

func (s *simulator) deallocate() error {
	i := s.victim()
	l := s.lives.At(i)
	if err := s.check(l); err != nil {
		return err
	}
	s.target.Deallocate(l.ptr)
	last, _ := s.lives.Pop()
	if i < s.lives.Len() {
		s.lives.Set(i, last)
	}
	s.rep.Deallocations++
	return nil
}

func (s *simulator) reallocate() error {
	switch s.w.Allocator {
	case "linear", "pool":
		// not supported, resizing means a new allocation
		s.allocate()
		return nil
	}
	i := s.victim()
	l := s.lives.At(i)
	if err := s.check(l); err != nil {
		return err
	}
	bytes, alignment := s.request()
	ptr := s.target.Reallocate(l.ptr, bytes, alignment)
	if ptr == allocator.Nil {
		s.rep.Failed++
		return nil
	}
	if bytes < l.bytes {
		l.bytes = bytes
	}
	l.ptr = ptr
	if err := s.check(l); err != nil {
		return err
	}
	// refill so the whole new size can be verified later
	l.bytes = bytes
	b := s.target.Bytes(ptr, bytes)
	for k := range b {
		b[k] = l.fill
	}
	s.lives.Set(i, l)
	s.rep.Reallocations++
	return nil
}

func (s *simulator) clear() {
	s.leaf.(*allocator.Linear).Clear()
	s.lives.Clear()
	s.rep.Clears++
}

// inspect records the statistics taken before the cleanup.
func (s *simulator) inspect() {
	n := historySize
	if s.samples < n {
		n = s.samples
	}
	if n > 0 {
		total := 0
		for k := 0; k < n; k++ {
			it, _ := s.history.Move(s.cursor, -k)
			v := it.Value()
			total += v.used
			if v.used > s.rep.RecentMaxUsed {
				s.rep.RecentMaxUsed = v.used
			}
		}
		s.rep.RecentAvgUsed = total / n
	}

	if fl, ok := s.leaf.(*allocator.FreeList); ok {
		blocks := fl.FreeBlocks()
		free := 0
		for _, b := range blocks {
			free += b.Size
			if b.Size > s.rep.LargestFreeBlock {
				s.rep.LargestFreeBlock = b.Size
			}
		}
		s.rep.FreeBlocks = len(blocks)
		if free > 0 {
			s.rep.Fragmentation = 1 - float64(s.rep.LargestFreeBlock)/float64(free)
		}
	}
}

// cleanup releases every live block and verifies the allocator is back to empty.
func (s *simulator) cleanup() error {
	if s.w.Allocator == "linear" {
		s.clear()
		s.rep.Clears--
	}
	for s.lives.Len() > 0 {
		l, _ := s.lives.Pop()
		if err := s.check(l); err != nil {
			return err
		}
		s.target.Deallocate(l.ptr)
	}
	s.rep.FinalUsed = s.target.UsedMemory()
	s.rep.FinalAllocations = s.target.NumAllocations()

	if s.rec != nil {
		s.rep.Events = len(s.rec.Entries())
		s.rep.Digest = fmt.Sprintf("%016x", s.rec.Digest())
		if s.w.CSV != nil {
			if err := s.rec.WriteCSV(s.w.CSV); err != nil {
				return fmt.Errorf("write events: %w", err)
			}
		}
	}
	if s.rep.FinalUsed != 0 || s.rep.FinalAllocations != 0 {
		return fmt.Errorf("%s: %d bytes in %d allocations left after cleanup",
			s.w.Allocator, s.rep.FinalUsed, s.rep.FinalAllocations)
	}
	s.target.Destroy()
	return nil
}

func (s *simulator) release() {
	if s.books == nil {
		return
	}
	s.lives.Free()
	s.history.Free()
	subject := s.books.Subject()
	s.books.Destroy()
	subject.Destroy()
	releaseArena(s.buf, s.mapped)
}

func releaseArena(buf []byte, mapped bool) {
	if !mapped {
		arena.Put(buf)
		return
	}
	if err := arena.Unmap(buf); err != nil {
		allocator.Logger().Warn("unmap arena", "err", err)
	}
}
