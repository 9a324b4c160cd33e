// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package drivers selects and constructs the concrete pkg/driver.Driver
// implementation for a device's reader_kind, turning a DeviceConfig plus
// its transport params into a live driver instance.
package drivers

import (
	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/internal/drivers/generic"
	"github.com/ghpascon/xbridge-middleware/internal/drivers/icard"
	"github.com/ghpascon/xbridge-middleware/internal/drivers/r700"
	"github.com/ghpascon/xbridge-middleware/internal/drivers/ur4"
	"github.com/ghpascon/xbridge-middleware/internal/drivers/x714"
	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/ghpascon/xbridge-middleware/pkg/transport"
)

// Build constructs the driver (and its backing transport) for cfg.
func Build(cfg models.DeviceConfig, cb driver.Callbacks) (driver.Driver, error) {
	switch cfg.ReaderKind {
	case models.ReaderUR4:
		t := transport.NewTCP(cfg.TCP.IP, cfg.TCP.Port)
		t.PingLine = []byte{0x00}
		return ur4.New(cfg.Name, t, cb, cfg.Reader), nil

	case models.ReaderX714:
		t, err := buildByteTransport(cfg)
		if err != nil {
			return nil, err
		}
		return x714.New(cfg.Name, t, cb, cfg.Reader), nil

	case models.ReaderR700IOT:
		if cfg.HTTPS == nil {
			return nil, common.NewConfigError("device %s: R700_IOT requires https params", cfg.Name)
		}
		h := transport.NewHTTPS(cfg.HTTPS.Host, cfg.HTTPS.Username, cfg.HTTPS.Password)
		return r700.New(cfg.Name, h, cb, cfg.Reader), nil

	case models.ReaderICARD:
		if cfg.Serial == nil {
			return nil, common.NewConfigError("device %s: ICARD requires serial params", cfg.Name)
		}
		t := transport.NewSerial(cfg.Serial.Port, cfg.Serial.Baud, cfg.Serial.VID, cfg.Serial.PID)
		return icard.New(cfg.Name, t, cb, cfg.Reader), nil

	case models.ReaderSerial, models.ReaderTCP:
		t, err := buildByteTransport(cfg)
		if err != nil {
			return nil, err
		}
		return generic.New(cfg.Name, cfg.EventType, t, cb), nil

	default:
		return nil, common.NewConfigError("device %s: unknown reader_kind %q", cfg.Name, cfg.ReaderKind)
	}
}

// buildByteTransport selects whichever of Serial/TCP/BLE is populated
// on cfg, since X714 and the generic drivers are transport-agnostic.
func buildByteTransport(cfg models.DeviceConfig) (transport.Transport, error) {
	switch {
	case cfg.Serial != nil:
		return transport.NewSerial(cfg.Serial.Port, cfg.Serial.Baud, cfg.Serial.VID, cfg.Serial.PID), nil
	case cfg.TCP != nil:
		t := transport.NewTCP(cfg.TCP.IP, cfg.TCP.Port)
		return t, nil
	case cfg.BLE != nil:
		return transport.NewBLE(cfg.BLE.Name), nil
	default:
		return nil, common.NewConfigError("device %s: no transport configured", cfg.Name)
	}
}
