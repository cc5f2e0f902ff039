// SPDX-License-Identifier: Apache-2.0

package service

import (
	"sync"
	"sync/atomic"
)

// MaintenanceGate serialises master password rotation against vault writes.
//
// Writers take a shared slot for the duration of one write; rotation takes
// the gate exclusively. Writers never wait for rotation: once maintenance is
// requested they fail fast with [ErrMaintenanceRequired], while rotation
// itself blocks until in-flight writers drain.
type MaintenanceGate struct {
	mu     sync.RWMutex
	active atomic.Bool
}

// Acquire claims a shared writer slot. The returned release function must be
// called exactly once when the write finishes.
func (g *MaintenanceGate) Acquire() (release func(), err error) {
	if g.active.Load() {
		return nil, ErrMaintenanceRequired
	}

	g.mu.RLock()

	// Re-check after taking the read lock: rotation may have flipped the
	// flag between the load and the RLock.
	if g.active.Load() {
		g.mu.RUnlock()
		return nil, ErrMaintenanceRequired
	}

	return g.mu.RUnlock, nil
}

// Begin switches the gate into maintenance mode, waiting for in-flight
// writers to finish. Returns [ErrRotationRunning] if maintenance is already
// active.
func (g *MaintenanceGate) Begin() error {
	if !g.active.CompareAndSwap(false, true) {
		return ErrRotationRunning
	}

	g.mu.Lock()

	return nil
}

// End leaves maintenance mode.
func (g *MaintenanceGate) End() {
	g.active.Store(false)
	g.mu.Unlock()
}

// Active reports whether maintenance mode is currently held.
func (g *MaintenanceGate) Active() bool {
	return g.active.Load()
}
