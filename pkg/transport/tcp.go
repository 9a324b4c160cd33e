// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	DialTimeout     = 3 * time.Second
	PingInterval    = 3 * time.Second
	BackoffInitial  = 3 * time.Second
	BackoffMax      = 30 * time.Second
)

// TCP is the TCP transport adapter.
type TCP struct {
	IP   string
	Port int

	// PingLine, when non-empty, is written every PingInterval while
	// connected to keep dead-peer detection responsive.
	PingLine []byte

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	cancelPing context.CancelFunc
}

func NewTCP(ip string, port int) *TCP {
	return &TCP{IP: ip, Port: port}
}

func (t *TCP) Connect(ctx context.Context) error {
	if net.ParseIP(t.IP) == nil {
		return fmt.Errorf("tcp: invalid IP %q", t.IP)
	}

	addr := fmt.Sprintf("%s:%d", t.IP, t.Port)
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "tcp: dial %s", addr)
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	pingCtx, cancel := context.WithCancel(context.Background())
	t.cancelPing = cancel
	t.mu.Unlock()

	if len(t.PingLine) > 0 {
		go t.runKeepAlive(pingCtx)
	}
	return nil
}

func (t *TCP) runKeepAlive(ctx context.Context) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.Write(t.PingLine); err != nil {
				return
			}
		}
	}
}

func (t *TCP) Read(p []byte) (int, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return 0, errNotConnected("tcp")
	}
	n, err := conn.Read(p)
	if err != nil {
		t.markDisconnected()
	}
	return n, err
}

func (t *TCP) Write(p []byte) (int, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return 0, errNotConnected("tcp")
	}
	n, err := conn.Write(p)
	if err != nil {
		t.markDisconnected()
	}
	return n, err
}

func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	if t.cancelPing != nil {
		t.cancelPing()
		t.cancelPing = nil
	}
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *TCP) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *TCP) markDisconnected() {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
}

// Backoff implements the 3s-doubling-to-30s reconnect delay. The device
// supervisor computes its own backoff and does not use this type.
type Backoff struct {
	cur time.Duration
}

func NewBackoff() *Backoff { return &Backoff{cur: BackoffInitial} }

// Next returns the delay to sleep before the next attempt and advances
// the internal state for the following call.
func (b *Backoff) Next() time.Duration {
	d := b.cur
	b.cur *= 2
	if b.cur > BackoffMax {
		b.cur = BackoffMax
	}
	return d
}

// Reset returns the backoff to its initial delay after a successful
// connection.
func (b *Backoff) Reset() { b.cur = BackoffInitial }
