// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Canonical Ltd
// Copyright (C) 2018-2019 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package models holds the data types shared between the device
// supervisor, the reader drivers and the event pipeline.
package models

import "fmt"

// ReaderKind identifies which protocol driver a DeviceConfig is bound to.
type ReaderKind string

const (
	ReaderUR4      ReaderKind = "UR4"
	ReaderX714     ReaderKind = "X714"
	ReaderR700IOT  ReaderKind = "R700_IOT"
	ReaderICARD    ReaderKind = "ICARD"
	ReaderSerial   ReaderKind = "SERIAL"
	ReaderTCP      ReaderKind = "TCP"
)

// AutoPort is the sentinel Serial.Port value meaning "scan by VID/PID".
const AutoPort = "AUTO"

// SerialParams configures a serial transport, including VID/PID auto-detection.
type SerialParams struct {
	Port string `json:"port"`
	Baud int    `json:"baud"`
	VID  uint16 `json:"vid,omitempty"`
	PID  uint16 `json:"pid,omitempty"`
}

// TCPParams configures a TCP transport.
type TCPParams struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// BLEParams configures a BLE transport.
type BLEParams struct {
	Name string `json:"ble_name"`
}

// HTTPSParams configures an HTTPS-stream transport.
type HTTPSParams struct {
	Host     string `json:"https_host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AntennaConfig is the per-antenna reader configuration.
type AntennaConfig struct {
	Active  bool `json:"active"`
	Power   int  `json:"power"`
	MinRSSI int  `json:"min_rssi"`
}

// GPIEdge names a pin/state pair used to trigger start or stop.
type GPIEdge struct {
	Pin   int  `json:"pin"`
	State bool `json:"state"`
}

// GPITrigger configures GPI-driven inventory control.
type GPITrigger struct {
	Active bool    `json:"active"`
	Start  GPIEdge `json:"start"`
	Stop   GPIEdge `json:"stop"`
}

// ReaderParams holds protocol-independent reader behavior shared by
// all RFID reader kinds.
type ReaderParams struct {
	Antennas     map[int]AntennaConfig `json:"antennas,omitempty"`
	Session      int                   `json:"session"`
	StartReading bool                  `json:"start_reading"`
	Buzzer       bool                  `json:"buzzer"`
	GPITrigger   GPITrigger            `json:"gpi_trigger"`
	// Profile carries reader-specific opaque configuration, e.g. the
	// R700 reading-profile JSON payload.
	Profile map[string]interface{} `json:"profile,omitempty"`
}

// DeviceConfig is the immutable per-device record loaded from a named
// configuration entry. Exactly one of Serial/TCP/BLE/HTTPS is populated,
// selected by ReaderKind.
type DeviceConfig struct {
	Name       string       `json:"name"`
	ReaderKind ReaderKind   `json:"reader_kind"`
	Serial     *SerialParams `json:"serial,omitempty"`
	TCP        *TCPParams    `json:"tcp,omitempty"`
	BLE        *BLEParams    `json:"ble,omitempty"`
	HTTPS      *HTTPSParams  `json:"https,omitempty"`
	Reader     ReaderParams  `json:"reader"`
	// EventType names the event emitted by the generic SERIAL/TCP
	// drivers for non-tag lines.
	EventType string `json:"event_type,omitempty"`
}

// Validate enforces the required-field contract used by the registry
// when loading device config files; files lacking required fields are
// removed on load.
func (c DeviceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("device config missing name")
	}
	switch c.ReaderKind {
	case ReaderUR4, ReaderTCP:
		if c.TCP == nil {
			return fmt.Errorf("device %s: reader_kind %s requires tcp params", c.Name, c.ReaderKind)
		}
	case ReaderX714:
		if c.Serial == nil && c.BLE == nil && c.TCP == nil {
			return fmt.Errorf("device %s: X714 requires one of serial, ble or tcp params", c.Name)
		}
	case ReaderR700IOT:
		if c.HTTPS == nil {
			return fmt.Errorf("device %s: R700_IOT requires https params", c.Name)
		}
	case ReaderICARD, ReaderSerial:
		if c.Serial == nil {
			return fmt.Errorf("device %s: reader_kind %s requires serial params", c.Name, c.ReaderKind)
		}
	default:
		return fmt.Errorf("device %s: unknown reader_kind %q", c.Name, c.ReaderKind)
	}
	return nil
}
