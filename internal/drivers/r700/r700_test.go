// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package r700

import (
	"sync"
	"testing"

	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCallbacks struct {
	mu      sync.Mutex
	tags    []models.RawTag
	started bool
	stopped bool
}

func (c *fakeCallbacks) OnConnect(string)    {}
func (c *fakeCallbacks) OnDisconnect(string) {}
func (c *fakeCallbacks) OnStart(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}
func (c *fakeCallbacks) OnStop(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}
func (c *fakeCallbacks) OnTag(tag models.RawTag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = append(c.tags, tag)
}
func (c *fakeCallbacks) OnEvent(device, eventType string, data interface{}) {}

func TestHandleLineParsesTagInventoryEventWithScaledRSSI(t *testing.T) {
	cb := &fakeCallbacks{}
	d := New("R1", nil, cb, models.ReaderParams{})

	line := []byte(`{"tagInventoryEvent":{"epcHex":"a1b2c3d4e5f60718293a4b5c","tidHex":"000000000000000000000001","antennaPort":1,"peakRssiCdbm":-4500}}`)
	err := d.handleLine(line)
	require.NoError(t, err)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	require.Len(t, cb.tags, 1)
	assert.Equal(t, -45, *cb.tags[0].RSSI)
	assert.Equal(t, "a1b2c3d4e5f60718293a4b5c", cb.tags[0].EPC)
}

func TestHandleLineParsesInventoryStatusEvent(t *testing.T) {
	cb := &fakeCallbacks{}
	d := New("R1", nil, cb, models.ReaderParams{})

	err := d.handleLine([]byte(`{"inventoryStatusEvent":{"inventoryStatus":"running"}}`))
	require.NoError(t, err)
	assert.True(t, d.IsReading())

	err = d.handleLine([]byte(`{"inventoryStatusEvent":{"inventoryStatus":"stopped"}}`))
	require.NoError(t, err)
	assert.False(t, d.IsReading())
}

func TestHandleLineDropsMalformedJSON(t *testing.T) {
	cb := &fakeCallbacks{}
	d := New("R1", nil, cb, models.ReaderParams{})
	err := d.handleLine([]byte("not json"))
	assert.NoError(t, err)
}

func TestHandleLineDropsTagWithInvalidEPC(t *testing.T) {
	cb := &fakeCallbacks{}
	d := New("R1", nil, cb, models.ReaderParams{})
	err := d.handleLine([]byte(`{"tagInventoryEvent":{"epcHex":"short","antennaPort":1,"peakRssiCdbm":-100}}`))
	require.NoError(t, err)
	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.Len(t, cb.tags, 0)
}
