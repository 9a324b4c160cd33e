// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package icard

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu     sync.Mutex
	rx     chan []byte
	closed bool
	writes [][]byte
}

func newFakeTransport() *fakeTransport { return &fakeTransport{rx: make(chan []byte, 64)} }

func (f *fakeTransport) Connect(ctx context.Context) error { return nil }
func (f *fakeTransport) Read(p []byte) (int, error) {
	data, ok := <-f.rx
	if !ok {
		return 0, context.Canceled
	}
	return copy(p, data), nil
}
func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), p...))
	return len(p), nil
}
func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		close(f.rx)
		f.closed = true
	}
	return nil
}
func (f *fakeTransport) Connected() bool { return true }

// pushFrame writes the frame one byte at a time so the driver's framer
// exercises its reassembly path the way a serial port would.
func (f *fakeTransport) pushFrame(frame []byte) {
	for _, b := range frame {
		f.rx <- []byte{b}
	}
}

type fakeCallbacks struct {
	mu   sync.Mutex
	tags []models.RawTag
}

func (c *fakeCallbacks) OnConnect(string)    {}
func (c *fakeCallbacks) OnDisconnect(string) {}
func (c *fakeCallbacks) OnStart(string)      {}
func (c *fakeCallbacks) OnStop(string)       {}
func (c *fakeCallbacks) OnTag(tag models.RawTag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = append(c.tags, tag)
}
func (c *fakeCallbacks) OnEvent(device, eventType string, data interface{}) {}

func buildTagFrame(epcs ...[]byte) []byte {
	data := []byte{respTag}
	for _, e := range epcs {
		data = append(data, e...)
	}
	total := 1 + len(data) + 2
	frame := make([]byte, total)
	frame[0] = byte(total)
	copy(frame[1:], data)
	crc := crc16CCITT(frame[:total-2])
	binary.LittleEndian.PutUint16(frame[total-2:], crc)
	return frame
}

func TestICARDParsesConcatenatedEPCs(t *testing.T) {
	tr := newFakeTransport()
	cb := &fakeCallbacks{}
	d := New("R1", tr, cb, models.ReaderParams{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Connect(ctx)

	epc1 := make([]byte, epcLen)
	for i := range epc1 {
		epc1[i] = byte(i + 1)
	}
	epc2 := make([]byte, epcLen)
	for i := range epc2 {
		epc2[i] = byte(i + 101)
	}
	frame := buildTagFrame(epc1, epc2)

	time.Sleep(20 * time.Millisecond) // let configure() drain
	tr.pushFrame(frame)

	require.Eventually(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.tags) == 2
	}, time.Second, 5*time.Millisecond)

	cb.mu.Lock()
	tag := cb.tags[0]
	cb.mu.Unlock()
	assert.Equal(t, 1, tag.Ant)
	assert.Nil(t, tag.RSSI)
	assert.Len(t, tag.EPC, 24)
}

func TestPowerIsClampedToValidRange(t *testing.T) {
	tr := newFakeTransport()
	cb := &fakeCallbacks{}
	d := New("R1", tr, cb, models.ReaderParams{
		Antennas: map[int]models.AntennaConfig{1: {Active: true, Power: 99}},
	})
	err := d.configure()
	assert.NoError(t, err)
	_ = cb

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Len(t, tr.writes, 3)
	powerFrame := tr.writes[2]
	assert.Equal(t, byte(cmdPowerConfig), powerFrame[1])
	assert.Equal(t, byte(maxPower), powerFrame[2])
}
