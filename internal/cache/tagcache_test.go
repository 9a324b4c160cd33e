// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/stretchr/testify/assert"
)

func intp(v int) *int { return &v }

func TestUpsertNewTagStoresAndCountsOne(t *testing.T) {
	c := NewTagCache()
	tag, isNew := c.Upsert(models.Tag{Device: "R1", EPC: "a1b2c3d4e5f60718293a4b5c", RSSI: intp(-70), Timestamp: time.Now()})
	assert.True(t, isNew)
	assert.Equal(t, 1, tag.Count)
	assert.Equal(t, 1, c.Count())
}

func TestUpsertRSSITiebreakNeverWeakens(t *testing.T) {
	c := NewTagCache()
	c.Upsert(models.Tag{Device: "R1", EPC: "epc1", RSSI: intp(-70), Timestamp: time.Now()})
	updated, isNew := c.Upsert(models.Tag{Device: "R1", EPC: "epc1", RSSI: intp(-80), Timestamp: time.Now()})
	assert.False(t, isNew)
	assert.Equal(t, -70, *updated.RSSI)
	assert.Equal(t, 2, updated.Count)
}

func TestUpsertStrongerRSSIOverwrites(t *testing.T) {
	c := NewTagCache()
	c.Upsert(models.Tag{Device: "R1", EPC: "epc1", RSSI: intp(-70), Ant: 1, Timestamp: time.Now()})
	updated, _ := c.Upsert(models.Tag{Device: "R1", EPC: "epc1", RSSI: intp(-40), Ant: 2, Timestamp: time.Now()})
	assert.Equal(t, -40, *updated.RSSI)
	assert.Equal(t, 2, updated.Ant)
}

func TestDedupUnderConcurrency(t *testing.T) {
	c := NewTagCache()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(rssi int) {
			defer wg.Done()
			c.Upsert(models.Tag{Device: "R1", EPC: "epcconcurrent", RSSI: intp(-rssi), Timestamp: time.Now()})
		}(60 + i)
	}
	wg.Wait()

	tag, ok := c.Get("epcconcurrent")
	assert.True(t, ok)
	assert.Equal(t, 10, tag.Count)
	assert.Equal(t, 1, c.Count())
}

func TestClearScopedToDevice(t *testing.T) {
	c := NewTagCache()
	c.Upsert(models.Tag{Device: "R1", EPC: "epc1", Timestamp: time.Now()})
	c.Upsert(models.Tag{Device: "R2", EPC: "epc2", Timestamp: time.Now()})

	c.Clear("R1")
	assert.Equal(t, 1, c.Count())
	_, ok := c.Get("epc1")
	assert.False(t, ok)
	_, ok = c.Get("epc2")
	assert.True(t, ok)
}

func TestClearAllWhenDeviceEmpty(t *testing.T) {
	c := NewTagCache()
	c.Upsert(models.Tag{Device: "R1", EPC: "epc1", Timestamp: time.Now()})
	c.Upsert(models.Tag{Device: "R2", EPC: "epc2", Timestamp: time.Now()})

	c.Clear("")
	assert.Equal(t, 0, c.Count())
}

func TestEvictOlderThan(t *testing.T) {
	c := NewTagCache()
	old := time.Now().Add(-time.Hour)
	fresh := time.Now()
	c.Upsert(models.Tag{Device: "R1", EPC: "old", Timestamp: old})
	c.Upsert(models.Tag{Device: "R1", EPC: "new", Timestamp: fresh})

	evicted := c.EvictOlderThan(time.Now().Add(-time.Minute))
	assert.Equal(t, 1, evicted)
	_, ok := c.Get("old")
	assert.False(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
}

func TestGTINCountsOmitsEmpty(t *testing.T) {
	c := NewTagCache()
	c.Upsert(models.Tag{Device: "R1", EPC: "epc1", GTIN: "07894900011517", Timestamp: time.Now()})
	c.Upsert(models.Tag{Device: "R1", EPC: "epc2", GTIN: "07894900011517", Timestamp: time.Now()})
	c.Upsert(models.Tag{Device: "R1", EPC: "epc3", Timestamp: time.Now()})

	counts := c.GTINCounts()
	assert.Equal(t, 2, counts["07894900011517"])
	assert.Len(t, counts, 1)
}
