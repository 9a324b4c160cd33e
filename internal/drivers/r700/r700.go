// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package r700 implements the R700_IOT driver: a REST control plane
// plus a newline-delimited-JSON event stream.
package r700

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/ghpascon/xbridge-middleware/pkg/transport"
)

type inventoryStatusEvent struct {
	InventoryStatus string `json:"inventoryStatus"`
}

type tagInventoryEvent struct {
	EPCHex        string `json:"epcHex"`
	TIDHex        string `json:"tidHex"`
	AntennaPort   int    `json:"antennaPort"`
	PeakRSSICdbm  int    `json:"peakRssiCdbm"`
}

type ndjsonEnvelope struct {
	InventoryStatusEvent *inventoryStatusEvent `json:"inventoryStatusEvent"`
	TagInventoryEvent    *tagInventoryEvent    `json:"tagInventoryEvent"`
}

// Driver implements the R700_IOT reader over the HTTPS transport.
type Driver struct {
	device string
	https  *transport.HTTPS
	cb     driver.Callbacks
	reader models.ReaderParams

	connected int32
	reading   int32
}

func New(device string, https *transport.HTTPS, cb driver.Callbacks, reader models.ReaderParams) *Driver {
	return &Driver{device: device, https: https, cb: cb, reader: reader}
}

var _ driver.Driver = (*Driver)(nil)

// Connect reconfigures the REST interface and restarts inventory on
// every connect, then streams NDJSON events until ctx is canceled or
// the stream drops.
func (d *Driver) Connect(ctx context.Context) error {
	if err := d.configureAndStart(ctx); err != nil {
		return err
	}
	atomic.StoreInt32(&d.connected, 1)
	defer atomic.StoreInt32(&d.connected, 0)
	d.cb.OnConnect(d.device)
	defer d.cb.OnDisconnect(d.device)

	err := d.https.StreamNDJSON(ctx, "/data/stream", d.handleLine)
	_ = d.https.Post(context.Background(), "/profiles/stop", nil)
	return err
}

func (d *Driver) configureAndStart(ctx context.Context) error {
	if err := d.https.Put(ctx, "/system/rfid/interface", map[string]string{"interface": "REST"}); err != nil {
		return err
	}
	_ = d.https.Post(ctx, "/profiles/stop", nil)

	profile := d.reader.Profile
	if profile == nil {
		profile = map[string]interface{}{}
	}
	if err := d.https.Post(ctx, "/profiles/inventory/start", profile); err != nil {
		return err
	}
	atomic.StoreInt32(&d.reading, 1)
	d.cb.OnStart(d.device)
	return nil
}

func (d *Driver) handleLine(line []byte) error {
	var env ndjsonEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil // malformed line: drop, do not poison the stream
	}

	if env.InventoryStatusEvent != nil {
		switch env.InventoryStatusEvent.InventoryStatus {
		case "running":
			atomic.StoreInt32(&d.reading, 1)
			d.cb.OnStart(d.device)
		default:
			atomic.StoreInt32(&d.reading, 0)
			d.cb.OnStop(d.device)
		}
	}

	if ev := env.TagInventoryEvent; ev != nil {
		if !models.IsHex24(ev.EPCHex) {
			return nil
		}
		rssi := ev.PeakRSSICdbm / 100
		ant := ev.AntennaPort
		if ant <= 0 {
			ant = 1
		}
		d.cb.OnTag(models.RawTag{
			Device: d.device,
			EPC:    ev.EPCHex,
			TID:    ev.TIDHex,
			Ant:    ant,
			RSSI:   &rssi,
		})
	}
	return nil
}

func (d *Driver) IsConnected() bool  { return atomic.LoadInt32(&d.connected) == 1 }
func (d *Driver) IsReading() bool    { return atomic.LoadInt32(&d.reading) == 1 }
func (d *Driver) IsRFIDReader() bool { return true }

func (d *Driver) StartInventory(ctx context.Context) error {
	profile := d.reader.Profile
	if profile == nil {
		profile = map[string]interface{}{}
	}
	if err := d.https.Post(ctx, "/profiles/inventory/start", profile); err != nil {
		return err
	}
	atomic.StoreInt32(&d.reading, 1)
	d.cb.OnStart(d.device)
	return nil
}

func (d *Driver) StopInventory(ctx context.Context) error {
	if err := d.https.Post(ctx, "/profiles/stop", nil); err != nil {
		return err
	}
	atomic.StoreInt32(&d.reading, 0)
	d.cb.OnStop(d.device)
	return nil
}

func (d *Driver) ClearTags(ctx context.Context) error { return nil }

func (d *Driver) WriteEPC(ctx context.Context, req driver.WriteEPCRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	wasReading := d.IsReading()
	if wasReading {
		_ = d.StopInventory(ctx)
	}
	payload := map[string]interface{}{
		"targetIdentifier": req.TargetIdentifier,
		"targetValue":      req.TargetValue,
		"newEpc":           req.NewEPC,
		"accessPassword":   req.Password,
	}
	err := d.https.Post(ctx, "/profiles/inventory/tag-access", payload)
	if wasReading {
		_ = d.StartInventory(ctx)
	}
	return err
}

func (d *Driver) WriteGPO(ctx context.Context, req driver.WriteGPORequest) error {
	payload := map[string]interface{}{
		"GPOs": []map[string]interface{}{
			{"GPOPort": req.Pin, "GPOState": req.State},
		},
	}
	return d.https.Put(ctx, "/device/gpos", payload)
}

func (d *Driver) Disconnect(ctx context.Context) error {
	if d.IsReading() {
		_ = d.https.Post(ctx, "/profiles/stop", nil)
	}
	return d.https.Close()
}
