// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package icard implements the length-prefixed binary serial protocol
// used by the ICARD reader family.
package icard

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/ghpascon/xbridge-middleware/pkg/transport"
)

const (
	cmdModuleConfig   = 0x10
	cmdBandConfig     = 0x11
	cmdPowerConfig    = 0x12
	cmdStartInventory = 0x20
	cmdStopInventory  = 0x21
	respTag           = 0x01

	epcLen = 12

	minPower = 10
	maxPower = 26

	inventoryPollMin = 150 * time.Millisecond
	inventoryPollMax = 300 * time.Millisecond
)

// Driver implements the ICARD length-prefixed binary protocol.
type Driver struct {
	device    string
	transport transport.Transport
	cb        driver.Callbacks
	reader    models.ReaderParams

	connected int32
	reading   int32
}

func New(device string, t transport.Transport, cb driver.Callbacks, reader models.ReaderParams) *Driver {
	return &Driver{device: device, transport: t, cb: cb, reader: reader}
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

	if err := d.configure(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- d.receiveLoop() }()

	if d.reader.StartReading {
		d.writeFrame(cmdStartInventory, nil)
		atomic.StoreInt32(&d.reading, 1)
		go d.inventoryPoll(ctx)
		d.cb.OnStart(d.device)
	}

	select {
	case <-ctx.Done():
		d.transport.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// configure walks module config -> band -> clamped power, one frame
// per step.
func (d *Driver) configure() error {
	d.writeFrame(cmdModuleConfig, []byte{0x01})
	d.writeFrame(cmdBandConfig, []byte{0x00})

	power := 0
	for _, ant := range d.reader.Antennas {
		if ant.Power > power {
			power = ant.Power
		}
	}
	if power < minPower {
		power = minPower
	}
	if power > maxPower {
		power = maxPower
	}
	d.writeFrame(cmdPowerConfig, []byte{byte(power)})
	return nil
}

func (d *Driver) inventoryPoll(ctx context.Context) {
	ticker := time.NewTicker((inventoryPollMin + inventoryPollMax) / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt32(&d.reading) == 0 {
				return
			}
			d.writeFrame(cmdStartInventory, nil)
		}
	}
}

func (d *Driver) receiveLoop() error {
	for {
		payload, err := d.readFrame()
		if err != nil {
			if transport.IsIdleFlush(err) {
				continue
			}
			return err
		}
		if len(payload) == 0 {
			continue
		}
		if payload[0] == respTag {
			d.handleTagFrame(payload[1:])
		}
	}
}

// handleTagFrame splits concatenated 12-byte EPCs out of a tag
// response payload; ant is always 1 and rssi is always nil.
func (d *Driver) handleTagFrame(data []byte) {
	for i := 0; i+epcLen <= len(data); i += epcLen {
		epc := data[i : i+epcLen]
		d.cb.OnTag(models.RawTag{Device: d.device, EPC: hexEncode(epc), Ant: 1})
	}
}

// readFrame reads one [len][payload...][crc_lo][crc_hi] frame. len
// counts the whole frame including itself and the trailing CRC.
func (d *Driver) readFrame() ([]byte, error) {
	lenBuf := make([]byte, 1)
	if err := d.readFull(lenBuf); err != nil {
		return nil, err
	}
	total := int(lenBuf[0])
	if total < 4 {
		return nil, nil
	}
	rest := make([]byte, total-1)
	if err := d.readFull(rest); err != nil {
		return nil, err
	}

	frame := append(lenBuf, rest...)
	body := frame[:total-2]
	gotCRC := binary.LittleEndian.Uint16(frame[total-2:])
	if crc16CCITT(body) != gotCRC {
		return nil, nil
	}
	return body[1:], nil
}

func (d *Driver) readFull(buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := d.transport.Read(buf[read:])
		read += n
		if err != nil {
			if transport.IsIdleFlush(err) && read > 0 {
				return err
			}
			if transport.IsIdleFlush(err) {
				continue
			}
			return err
		}
	}
	return nil
}

func (d *Driver) writeFrame(cmd byte, data []byte) {
	total := 1 + 1 + len(data) + 2
	frame := make([]byte, total)
	frame[0] = byte(total)
	frame[1] = cmd
	copy(frame[2:], data)
	crc := crc16CCITT(frame[:total-2])
	binary.LittleEndian.PutUint16(frame[total-2:], crc)
	_, _ = d.transport.Write(frame)
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

func (d *Driver) IsConnected() bool  { return atomic.LoadInt32(&d.connected) == 1 }
func (d *Driver) IsReading() bool    { return atomic.LoadInt32(&d.reading) == 1 }
func (d *Driver) IsRFIDReader() bool { return true }

func (d *Driver) StartInventory(ctx context.Context) error {
	atomic.StoreInt32(&d.reading, 1)
	d.writeFrame(cmdStartInventory, nil)
	go d.inventoryPoll(ctx)
	d.cb.OnStart(d.device)
	return nil
}

func (d *Driver) StopInventory(ctx context.Context) error {
	atomic.StoreInt32(&d.reading, 0)
	d.writeFrame(cmdStopInventory, nil)
	d.cb.OnStop(d.device)
	return nil
}

func (d *Driver) ClearTags(ctx context.Context) error { return nil }

func (d *Driver) WriteEPC(ctx context.Context, req driver.WriteEPCRequest) error {
	return driver.ErrUnsupported
}

func (d *Driver) WriteGPO(ctx context.Context, req driver.WriteGPORequest) error {
	return driver.ErrUnsupported
}

func (d *Driver) Disconnect(ctx context.Context) error {
	if d.IsReading() {
		d.writeFrame(cmdStopInventory, nil)
	}
	return d.transport.Close()
}
