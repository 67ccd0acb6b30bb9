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

import "fmt"

// Options configures a Manager.
type Options struct {
	// UseFreeList makes the main allocator a FreeList over an arena of
	// FreeListSize bytes. The process heap is used otherwise.
	UseFreeList  bool
	FreeListSize int

	// FitStrategy and DefragOnDeallocation configure the FreeList.
	FitStrategy          FitStrategy
	DefragOnDeallocation bool

	// UseMmap takes the arena from an anonymous mapping instead of the Go heap.
	UseMmap bool

	// Record wraps the main allocator into a Recorder keeping up to RecordEntries events.
	Record        bool
	RecordEntries int

	// Subsystems names the proxies created over the main allocator.
	Subsystems []string
}

// DefaultOptions returns the default values of Options.
func DefaultOptions() *Options {
	return &Options{
		UseFreeList:   true,
		FreeListSize:  32 << 20,
		FitStrategy:   BestFit,
		RecordEntries: DefaultMaxEntries,
	}
}

func (o *Options) validate() error {
	if o.UseFreeList && o.FreeListSize <= freeListHeaderSize {
		return fmt.Errorf("free list size must be greater than %d, got %d", freeListHeaderSize, o.FreeListSize)
	}
	if o.FitStrategy > WorstFit {
		return fmt.Errorf("unknown fit strategy %d", o.FitStrategy)
	}
	if o.RecordEntries < 0 {
		return fmt.Errorf("record entries must not be negative, got %d", o.RecordEntries)
	}
	seen := make(map[string]bool, len(o.Subsystems))
	for _, name := range o.Subsystems {
		if name == "" {
			return fmt.Errorf("empty subsystem name")
		}
		if seen[name] {
			return fmt.Errorf("duplicated subsystem %q", name)
		}
		seen[name] = true
	}
	return nil
}
