// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package generic

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/stretchr/testify/assert"
)

type fakeTransport struct {
	mu      sync.Mutex
	rx      chan []byte
	closed  bool
	connect error
}

func newFakeTransport() *fakeTransport { return &fakeTransport{rx: make(chan []byte, 16)} }

func (f *fakeTransport) Connect(ctx context.Context) error { return f.connect }
func (f *fakeTransport) Read(p []byte) (int, error) {
	data, ok := <-f.rx
	if !ok {
		return 0, context.Canceled
	}
	n := copy(p, data)
	return n, nil
}
func (f *fakeTransport) Write(p []byte) (int, error) { return len(p), nil }
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
func (f *fakeTransport) push(s string)   { f.rx <- []byte(s) }

type fakeCallbacks struct {
	mu     sync.Mutex
	tags   []models.RawTag
	events []string
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
func (c *fakeCallbacks) OnEvent(device, eventType string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, eventType)
}

func TestGenericClassifiesHex24AsTag(t *testing.T) {
	tr := newFakeTransport()
	cb := &fakeCallbacks{}
	d := New("R1", "line", tr, cb)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Connect(ctx)

	tr.push("a1b2c3d4e5f60718293a4b5c\n")
	assert.Eventually(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.tags) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
}

func TestGenericClassifiesOtherLinesAsEvent(t *testing.T) {
	tr := newFakeTransport()
	cb := &fakeCallbacks{}
	d := New("R1", "custom", tr, cb)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Connect(ctx)

	tr.push("hello world\n")
	assert.Eventually(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.events) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
}
