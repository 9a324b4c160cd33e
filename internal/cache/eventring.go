// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sync"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
)

// EventRing holds the last N events, newest first.
type EventRing struct {
	mu       sync.RWMutex
	capacity int
	events   []models.Event
}

func NewEventRing() *EventRing {
	return &EventRing{capacity: common.EventRingCapacity}
}

// Push prepends ev, trimming the ring to its capacity.
func (r *EventRing) Push(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append([]models.Event{ev}, r.events...)
	if len(r.events) > r.capacity {
		r.events = r.events[:r.capacity]
	}
}

// All returns a stable snapshot, newest first.
func (r *EventRing) All() []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Event, len(r.events))
	copy(out, r.events)
	return out
}
