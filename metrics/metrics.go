// Copyright 2024 Terminos Network
// This file is part of the gtos library.
//
// The gtos library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gtos library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gtos library. If not, see <http://www.gnu.org/licenses/>.

// Package metrics is the gtos lineage's own lightweight metrics registry:
// named, process-global counters and meters that hot paths register once
// and update inline, with no sampling overhead when nothing reads them.
package metrics

import (
	"sync"
	"sync/atomic"
)

// Meter tracks an event count only; it keeps no rate (no EWMA ticking
// goroutine), since this repo's meters exist for count/observability,
// not dashboards.
type Meter struct {
	count int64
}

// Mark records n occurrences of the event this meter tracks.
func (m *Meter) Mark(n int64) { atomic.AddInt64(&m.count, n) }

// Count returns the number of occurrences recorded so far.
func (m *Meter) Count() int64 { return atomic.LoadInt64(&m.count) }

var (
	registryMu sync.Mutex
	registry   = map[string]*Meter{}
)

// NewRegisteredMeter returns the named meter, creating it on first use.
// The second argument mirrors the upstream API's optional parent registry
// and is accepted for call-site compatibility; this package always uses
// the process-global registry.
func NewRegisteredMeter(name string, _ interface{}) *Meter {
	registryMu.Lock()
	defer registryMu.Unlock()
	if m, ok := registry[name]; ok {
		return m
	}
	m := &Meter{}
	registry[name] = m
	return m
}

// Get returns the named meter and whether it has been registered.
func Get(name string) (*Meter, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	m, ok := registry[name]
	return m, ok
}
