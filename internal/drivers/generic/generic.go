// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package generic implements the SERIAL/TCP passthrough driver: it
// has no inventory control and no configuration walk, it just
// classifies each received line as a tag or an opaque event.
package generic

import (
	"context"
	"sync/atomic"

	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/ghpascon/xbridge-middleware/pkg/transport"
)

// Driver is the generic line-passthrough reader.
type Driver struct {
	device    string
	eventType string
	transport transport.Transport
	cb        driver.Callbacks

	connected int32
}

func New(device, eventType string, t transport.Transport, cb driver.Callbacks) *Driver {
	if eventType == "" {
		eventType = "line"
	}
	return &Driver{device: device, eventType: eventType, transport: t, cb: cb}
}

var _ driver.Driver = (*Driver)(nil)

func (d *Driver) Connect(ctx context.Context) error {
	if err := d.transport.Connect(ctx); err != nil {
		return err
	}
	atomic.StoreInt32(&d.connected, 1)
	defer atomic.StoreInt32(&d.connected, 0)
	d.cb.OnConnect(d.device)
	defer d.cb.OnDisconnect(d.device)
	defer d.transport.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- d.receiveLoop() }()

	select {
	case <-ctx.Done():
		d.transport.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (d *Driver) receiveLoop() error {
	lr := transport.NewLineReader(d.transport)
	for {
		line, err := lr.ReadLine()
		if err != nil {
			return err
		}
		if models.IsHex24(line) {
			d.cb.OnTag(models.RawTag{Device: d.device, EPC: line, Ant: 1})
			continue
		}
		if line == "" {
			continue
		}
		d.cb.OnEvent(d.device, d.eventType, line)
	}
}

func (d *Driver) IsConnected() bool  { return atomic.LoadInt32(&d.connected) == 1 }
func (d *Driver) IsReading() bool    { return d.IsConnected() }
func (d *Driver) IsRFIDReader() bool { return false }

func (d *Driver) StartInventory(ctx context.Context) error { return driver.ErrNotRFIDReader }
func (d *Driver) StopInventory(ctx context.Context) error  { return driver.ErrNotRFIDReader }
func (d *Driver) ClearTags(ctx context.Context) error      { return nil }
func (d *Driver) WriteEPC(ctx context.Context, req driver.WriteEPCRequest) error {
	return driver.ErrNotRFIDReader
}
func (d *Driver) WriteGPO(ctx context.Context, req driver.WriteGPORequest) error {
	return driver.ErrNotRFIDReader
}

func (d *Driver) Disconnect(ctx context.Context) error {
	return d.transport.Close()
}
