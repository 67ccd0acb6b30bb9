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
	"fmt"

	"github.com/cloudwego/allocx/arena"
	"github.com/cloudwego/allocx/internal/assert"
)

type managerState uint8

const (
	managerNew managerState = iota
	managerReady
	managerShutdown
)

// Manager owns the main allocator of a program and the proxies handed to its
// subsystems. The zero value is not usable: see NewManager.
type Manager struct {
	opts  Options
	state managerState

	arena    []byte
	mapped   bool
	leaf     Allocator // the main allocator without the recorder
	main     Allocator
	recorder *Recorder

	defaultAllocator Allocator
	stringAllocator  Allocator

	subsystems map[string]*Proxy
	order      []string
}

// NewManager validates o and returns a manager to be initialized.
// A nil o means DefaultOptions.
func NewManager(o *Options) (*Manager, error) {
	if o == nil {
		o = DefaultOptions()
	}
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("allocator: invalid options: %w", err)
	}
	m := &Manager{opts: *o}
	m.opts.Subsystems = append([]string(nil), o.Subsystems...)
	return m, nil
}

// Initialize builds the main allocator and the subsystem proxies.
func (m *Manager) Initialize() error {
	assert.Fatal(m.state == managerNew, "manager initialized twice")

	if m.opts.UseFreeList {
		var err error
		if m.opts.UseMmap {
			m.arena, err = arena.Map(m.opts.FreeListSize)
			m.mapped = err == nil
		} else {
			m.arena, err = arena.New(m.opts.FreeListSize)
		}
		if err != nil {
			return fmt.Errorf("allocator: main arena: %w", err)
		}
		fl := NewFreeList("main", m.arena)
		fl.SetFitStrategy(m.opts.FitStrategy)
		fl.SetDefragOnDeallocation(m.opts.DefragOnDeallocation)
		m.leaf = fl
	} else {
		m.leaf = NewMalloc("main")
	}

	m.main = m.leaf
	if m.opts.Record {
		m.recorder = NewRecorder(m.leaf, m.opts.RecordEntries)
		m.main = m.recorder
	}
	m.defaultAllocator = m.main
	m.stringAllocator = m.main

	m.subsystems = make(map[string]*Proxy, len(m.opts.Subsystems))
	for _, name := range m.opts.Subsystems {
		m.subsystems[name] = NewProxy(name, m.main)
		m.order = append(m.order, name)
	}
	m.state = managerReady

	Logger().Debug("allocator manager initialized",
		"main", m.leaf.Kind().String(), "size", m.leaf.Size(),
		"record", m.opts.Record, "subsystems", len(m.order))
	return nil
}

func (m *Manager) checkReady() {
	assert.Fatal(m.state == managerReady, "manager used while not initialized")
}

// Main returns the main allocator, wrapped by the recorder when recording.
func (m *Manager) Main() Allocator {
	m.checkReady()
	return m.main
}

// Recorder returns the recorder around the main allocator, nil when not recording.
func (m *Manager) Recorder() *Recorder {
	m.checkReady()
	return m.recorder
}

func (m *Manager) DefaultAllocator() Allocator {
	m.checkReady()
	return m.defaultAllocator
}

func (m *Manager) StringAllocator() Allocator {
	m.checkReady()
	return m.stringAllocator
}

// SetDefaultAllocator replaces the default allocator and returns the previous one.
// nil restores the main allocator.
func (m *Manager) SetDefaultAllocator(a Allocator) Allocator {
	m.checkReady()
	prev := m.defaultAllocator
	if a == nil {
		a = m.main
	}
	m.defaultAllocator = a
	return prev
}

// SetStringAllocator replaces the string allocator and returns the previous one.
// nil restores the main allocator.
func (m *Manager) SetStringAllocator(a Allocator) Allocator {
	m.checkReady()
	prev := m.stringAllocator
	if a == nil {
		a = m.main
	}
	m.stringAllocator = a
	return prev
}

// Subsystem returns the proxy of the named subsystem.
// Unknown names get the main allocator.
func (m *Manager) Subsystem(name string) Allocator {
	m.checkReady()
	if p, ok := m.subsystems[name]; ok {
		return p
	}
	return m.main
}

// Subsystems returns the subsystem names in configuration order.
func (m *Manager) Subsystems() []string {
	return append([]string(nil), m.order...)
}

// Shutdown destroys the proxies, then the main allocator, and releases the arena.
// Nothing is destroyed if a subsystem still holds memory.
func (m *Manager) Shutdown() error {
	m.checkReady()

	leaking := 0
	for _, name := range m.order {
		p := m.subsystems[name]
		if p.NumAllocations() != 0 || p.UsedMemory() != 0 {
			Logger().Warn("subsystem has outstanding allocations",
				"subsystem", name, "allocations", p.NumAllocations(), "bytes", p.UsedMemory())
			leaking++
		}
	}
	if leaking > 0 {
		return fmt.Errorf("allocator: %d subsystems have outstanding allocations", leaking)
	}
	if n := m.main.NumAllocations(); n != 0 {
		Logger().Warn("main allocator has outstanding allocations", "allocations", n, "bytes", m.main.UsedMemory())
		return fmt.Errorf("allocator: %d outstanding allocations", n)
	}

	for _, name := range m.order {
		m.subsystems[name].Destroy()
	}
	m.main.Destroy()
	m.state = managerShutdown

	if m.mapped {
		if err := arena.Unmap(m.arena); err != nil {
			return err
		}
	}
	m.arena = nil
	Logger().Debug("allocator manager shut down")
	return nil
}
