// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package supervisor runs the per-device connect/configure/read/
// reconnect loop: one Supervisor owns exactly one Driver and retries
// its Connect call with backoff until told to stop.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/sirupsen/logrus"
)

// State mirrors the values device_state() reports to the control surface.
type State int

const (
	StateNotFound    State = -1
	StateDisconnected State = 0
	StateConnected   State = 1
	StateReading     State = 2
)

// Supervisor runs one device's reconnect loop until Stop is called.
type Supervisor struct {
	device string
	drv    driver.Driver
	log    *logrus.Entry

	mu       sync.RWMutex
	cancel   context.CancelFunc
	done     chan struct{}
	backoffMax time.Duration
}

// New creates a supervisor for drv. backoffMax bounds the reconnect
// backoff (3s doubling); TCP-backed drivers use 30s, others can pass a
// smaller ceiling.
func New(device string, drv driver.Driver, log *logrus.Entry, backoffMax time.Duration) *Supervisor {
	if backoffMax <= 0 {
		backoffMax = common.SupervisorBackoffMaxTCP
	}
	return &Supervisor{device: device, drv: drv, log: log.WithField("device", device), backoffMax: backoffMax}
}

// Start begins the supervised connect loop in a background goroutine.
func (s *Supervisor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.loop(ctx)
	}()
}

func (s *Supervisor) loop(ctx context.Context) {
	backoff := common.SupervisorBackoffInitial
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.drv.Connect(ctx)
		if err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("connect failed")
		}

		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.backoffMax {
			backoff = s.backoffMax
		}
	}
}

// Stop cancels the supervisor's context, waits up to the driver
// disconnect grace for a clean shutdown, and force-disconnects after.
func (s *Supervisor) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()
	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-time.After(driver.DisconnectGrace):
		ctx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		_ = s.drv.Disconnect(ctx)
		<-done
	}
}

// State reports device_state() for this supervisor's device.
func (s *Supervisor) State() State {
	if !s.drv.IsConnected() {
		return StateDisconnected
	}
	if s.drv.IsReading() {
		return StateReading
	}
	return StateConnected
}

func (s *Supervisor) Driver() driver.Driver { return s.drv }
func (s *Supervisor) Device() string        { return s.device }
