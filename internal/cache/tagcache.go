// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package cache holds the in-process, single-writer/multi-reader
// TagCache and EventRing shared between the event pipeline, the
// sinks and the control surface.
package cache

import (
	"sync"
	"time"

	"github.com/ghpascon/xbridge-middleware/pkg/models"
)

// TagCache maps EPC to the most recently observed Tag. It is safe for
// concurrent use; the event pipeline is the only writer of record,
// everyone else reads.
type TagCache struct {
	mu   sync.RWMutex
	tags map[string]models.Tag
}

func NewTagCache() *TagCache {
	return &TagCache{tags: make(map[string]models.Tag)}
}

// Upsert applies the dedup/RSSI-preferring-update rule: a new EPC is
// stored as-is; an existing EPC has its timestamp refreshed and count
// incremented always, but its RSSI/antenna are only overwritten when
// the new reading is stronger (closer to zero). It returns the stored
// tag and whether this detection was new.
func (c *TagCache) Upsert(candidate models.Tag) (models.Tag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.tags[candidate.EPC]
	if !ok {
		candidate.Count = 1
		c.tags[candidate.EPC] = candidate
		return candidate, true
	}

	existing.Timestamp = candidate.Timestamp
	existing.Count++
	if rssiIsStronger(candidate.RSSI, existing.RSSI) {
		existing.RSSI = candidate.RSSI
		existing.Ant = candidate.Ant
	}
	if candidate.TID != "" {
		existing.TID = candidate.TID
	}
	c.tags[candidate.EPC] = existing
	return existing, false
}

// rssiIsStronger implements the fixed tiebreak rule: stronger wins,
// and a reading with no RSSI never displaces a stored one.
func rssiIsStronger(newRSSI, storedRSSI *int) bool {
	if newRSSI == nil {
		return false
	}
	if storedRSSI == nil {
		return true
	}
	return *newRSSI > *storedRSSI
}

// Get returns the cached tag for epc, if any.
func (c *TagCache) Get(epc string) (models.Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tags[epc]
	return t, ok
}

// All returns a stable snapshot of every cached tag.
func (c *TagCache) All() []models.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Tag, 0, len(c.tags))
	for _, t := range c.tags {
		out = append(out, t)
	}
	return out
}

// ForDevice returns a stable snapshot of every tag belonging to device.
func (c *TagCache) ForDevice(device string) []models.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Tag
	for _, t := range c.tags {
		if t.Device == device {
			out = append(out, t)
		}
	}
	return out
}

// Count returns the number of cached tags.
func (c *TagCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tags)
}

// EPCs returns every cached EPC.
func (c *TagCache) EPCs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tags))
	for epc := range c.tags {
		out = append(out, epc)
	}
	return out
}

// GTINCounts returns the number of distinct cached tags per decoded
// GTIN; tags with an empty GTIN are omitted.
func (c *TagCache) GTINCounts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[string]int)
	for _, t := range c.tags {
		if t.GTIN == "" {
			continue
		}
		counts[t.GTIN]++
	}
	return counts
}

// Clear implements clear_tags(device|null): a non-empty device removes
// only that device's tags, an empty device empties the whole cache.
func (c *TagCache) Clear(device string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if device == "" {
		c.tags = make(map[string]models.Tag)
		return
	}
	for epc, t := range c.tags {
		if t.Device == device {
			delete(c.tags, epc)
		}
	}
}

// EvictOlderThan removes every tag whose Timestamp is older than
// cutoff, for the periodic TTL maintenance task. It returns the number
// of entries evicted.
func (c *TagCache) EvictOlderThan(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for epc, t := range c.tags {
		if t.Timestamp.Before(cutoff) {
			delete(c.tags, epc)
			evicted++
		}
	}
	return evicted
}
