// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package runlog keeps a bounded, newest-first log of connector execution
// records.
package runlog

import (
	"sync"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
)

const (
	// DefaultCapacity is the default number of records retained.
	DefaultCapacity = 500

	// MinCapacity is the smallest capacity a logger may be created with.
	MinCapacity = 50
)

// Logger is a bounded ring of run records ordered newest-first. The cap is
// enforced by dropping the oldest record.
type Logger struct {
	mu      sync.Mutex
	cap     int
	records []connector.RunRecord
}

// NewLogger creates a logger with the given capacity. Capacities below
// MinCapacity are raised to it; zero or negative means DefaultCapacity.
func NewLogger(capacity int) *Logger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	return &Logger{cap: capacity}
}

// Log appends a record at the newest position, evicting the oldest when full.
func (l *Logger) Log(record connector.RunRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append([]connector.RunRecord{record}, l.records...)
	if len(l.records) > l.cap {
		l.records = l.records[:l.cap]
	}
}

// List returns a newest-first snapshot of at most min(limit, cap) records.
// A non-positive limit returns everything retained.
func (l *Logger) List(limit int) []connector.RunRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > l.cap {
		limit = l.cap
	}
	if limit > len(l.records) {
		limit = len(l.records)
	}
	out := make([]connector.RunRecord, limit)
	copy(out, l.records[:limit])
	return out
}

// Clear drops every retained record.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}

// Len returns the number of retained records.
func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
