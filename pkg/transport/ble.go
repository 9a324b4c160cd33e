// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"tinygo.org/x/bluetooth"
)

const (
	BLEConnectTimeout = 10 * time.Second
	BLEKeepAlive      = 5 * time.Second
)

// BLE GATT service/characteristic triple used by the X714 BLE
// back-end.
var (
	bleServiceUUID        = bluetooth.New16BitUUID(0xFFE0)
	bleWriteCharUUID      = bluetooth.New16BitUUID(0xFFE1)
	bleNotifyCharUUID     = bluetooth.New16BitUUID(0xFFE1)
)

// BLE is the BLE transport adapter: scans for a device whose
// advertised name contains Name, connects, and exchanges bytes over a
// fixed write/notify characteristic pair.
type BLE struct {
	Name string

	adapter *bluetooth.Adapter

	mu        sync.Mutex
	device    *bluetooth.Device
	writeChar bluetooth.DeviceCharacteristic
	connected bool
	cancelKA  context.CancelFunc

	rx chan []byte
}

func NewBLE(name string) *BLE {
	return &BLE{Name: name, rx: make(chan []byte, 64)}
}

func (b *BLE) Connect(ctx context.Context) error {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return errors.Wrap(err, "ble: enable adapter")
	}
	b.adapter = adapter

	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			if strings.Contains(result.LocalName(), b.Name) {
				a.StopScan()
				found <- result
			}
		})
	}()

	scanCtx, cancel := context.WithTimeout(ctx, BLEConnectTimeout)
	defer cancel()

	var result bluetooth.ScanResult
	select {
	case result = <-found:
	case err := <-scanErr:
		if err != nil {
			return errors.Wrap(err, "ble: scan")
		}
		return fmt.Errorf("ble: scan ended before finding %q", b.Name)
	case <-scanCtx.Done():
		adapter.StopScan()
		return fmt.Errorf("ble: no device advertising name containing %q within %s", b.Name, BLEConnectTimeout)
	}

	device, err := adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return errors.Wrap(err, "ble: connect")
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{bleServiceUUID})
	if err != nil || len(services) == 0 {
		device.Disconnect()
		return errors.Wrap(err, "ble: discover service")
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{bleWriteCharUUID, bleNotifyCharUUID})
	if err != nil || len(chars) == 0 {
		device.Disconnect()
		return errors.Wrap(err, "ble: discover characteristics")
	}

	writeChar := chars[0]
	notifyChar := chars[0]
	if len(chars) > 1 {
		notifyChar = chars[1]
	}
	if err := notifyChar.EnableNotifications(func(buf []byte) {
		cp := append([]byte(nil), buf...)
		select {
		case b.rx <- cp:
		default:
		}
	}); err != nil {
		device.Disconnect()
		return errors.Wrap(err, "ble: enable notifications")
	}

	b.mu.Lock()
	b.device = &device
	b.writeChar = writeChar
	b.connected = true
	kaCtx, cancel2 := context.WithCancel(context.Background())
	b.cancelKA = cancel2
	b.mu.Unlock()

	go b.keepAlive(kaCtx)
	return nil
}

func (b *BLE) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(BLEKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.mu.Lock()
			wc := b.writeChar
			b.mu.Unlock()
			_, _ = wc.WriteWithoutResponse([]byte{0x00})
		}
	}
}

func (b *BLE) Read(p []byte) (int, error) {
	select {
	case buf := <-b.rx:
		n := copy(p, buf)
		return n, nil
	default:
	}
	if !b.Connected() {
		return 0, errNotConnected("ble")
	}
	buf, ok := <-b.rx
	if !ok {
		return 0, errNotConnected("ble")
	}
	return copy(p, buf), nil
}

func (b *BLE) Write(p []byte) (int, error) {
	b.mu.Lock()
	wc := b.writeChar
	connected := b.connected
	b.mu.Unlock()
	if !connected {
		return 0, errNotConnected("ble")
	}
	return wc.WriteWithoutResponse(p)
}

func (b *BLE) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	if b.cancelKA != nil {
		b.cancelKA()
		b.cancelKA = nil
	}
	if b.device == nil {
		return nil
	}
	err := b.device.Disconnect()
	b.device = nil
	return err
}

func (b *BLE) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}
