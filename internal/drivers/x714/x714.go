// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package x714 implements the ASCII line-protocol driver used by the
// X714 reader family over SERIAL, BLE or TCP back-ends.
package x714

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/ghpascon/xbridge-middleware/pkg/transport"
)

// Driver implements the X714 line protocol.
type Driver struct {
	device    string
	transport transport.Transport
	cb        driver.Callbacks
	reader    models.ReaderParams

	connected int32
	reading   int32

	mu      sync.Mutex
	lastTID map[string]string // epc -> most recently seen tid, for write_epc promotion
}

func New(device string, t transport.Transport, cb driver.Callbacks, reader models.ReaderParams) *Driver {
	return &Driver{device: device, transport: t, cb: cb, reader: reader, lastTID: make(map[string]string)}
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

	if d.reader.StartReading {
		d.writeLine("#READ:ON")
	}

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
		d.handleLine(line)
	}
}

func (d *Driver) handleLine(line string) {
	switch {
	case line == "#read:on":
		atomic.StoreInt32(&d.reading, 1)
		d.cb.OnStart(d.device)
	case line == "#read:off":
		atomic.StoreInt32(&d.reading, 0)
		d.cb.OnStop(d.device)
	case strings.HasPrefix(line, "#t+@"):
		d.handleTagLine(strings.TrimPrefix(line, "#t+@"))
	case strings.HasPrefix(line, "#set_cmd:"):
		d.cb.OnEvent(d.device, "config_ack", strings.TrimPrefix(line, "#set_cmd:"))
	case models.IsHex24(line):
		rssi := 0
		d.cb.OnTag(models.RawTag{Device: d.device, EPC: strings.ToLower(line), Ant: 1, RSSI: &rssi})
	default:
		if line != "" {
			d.cb.OnEvent(d.device, "line", line)
		}
	}
}

// handleTagLine parses "<epc>|<tid>|<ant>|<rssi>"; rssi arrives as a
// positive magnitude and is negated to dBm.
func (d *Driver) handleTagLine(payload string) {
	parts := strings.Split(payload, "|")
	if len(parts) < 4 {
		return
	}
	epc := strings.ToLower(parts[0])
	tid := strings.ToLower(parts[1])
	ant, err := strconv.Atoi(parts[2])
	if err != nil || ant <= 0 {
		ant = 1
	}
	rssiMag, err := strconv.Atoi(parts[3])
	if err != nil {
		rssiMag = 0
	}
	rssi := -rssiMag

	if models.IsHex24(epc) {
		d.mu.Lock()
		d.lastTID[epc] = tid
		d.mu.Unlock()
	}

	d.cb.OnTag(models.RawTag{Device: d.device, EPC: epc, TID: tid, Ant: ant, RSSI: &rssi})
}

func (d *Driver) writeLine(s string) {
	_, _ = d.transport.Write([]byte(s + "\n"))
}

func (d *Driver) IsConnected() bool  { return atomic.LoadInt32(&d.connected) == 1 }
func (d *Driver) IsReading() bool    { return atomic.LoadInt32(&d.reading) == 1 }
func (d *Driver) IsRFIDReader() bool { return true }

func (d *Driver) StartInventory(ctx context.Context) error {
	d.writeLine("#READ:ON")
	return nil
}

func (d *Driver) StopInventory(ctx context.Context) error {
	d.writeLine("#READ:OFF")
	return nil
}

func (d *Driver) ClearTags(ctx context.Context) error {
	d.writeLine("#CLEAR")
	return nil
}

// WriteEPC promotes a target identifier of "epc" to "tid" when the
// cache has seen that EPC's TID, since tags are more reliably matched
// by TID.
func (d *Driver) WriteEPC(ctx context.Context, req driver.WriteEPCRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	identifier := req.TargetIdentifier
	value := req.TargetValue
	if identifier == "epc" {
		d.mu.Lock()
		tid, ok := d.lastTID[strings.ToLower(req.TargetValue)]
		d.mu.Unlock()
		if ok && tid != "" {
			identifier = "tid"
			value = tid
		}
	}

	wasReading := d.IsReading()
	if wasReading {
		d.writeLine("#READ:OFF")
	}

	cmd := fmt.Sprintf("#WRITE:%s;%s", req.NewEPC, req.Password)
	if identifier != "" {
		cmd = fmt.Sprintf("%s;%s;%s", cmd, identifier, value)
	}
	d.writeLine(cmd)

	if wasReading {
		d.writeLine("#READ:ON")
	}
	return nil
}

func (d *Driver) WriteGPO(ctx context.Context, req driver.WriteGPORequest) error {
	return driver.ErrUnsupported
}

func (d *Driver) Disconnect(ctx context.Context) error {
	if d.IsReading() {
		d.writeLine("#READ:OFF")
	}
	return d.transport.Close()
}
