// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Canonical Ltd
// Copyright (C) 2018-2019 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package driver defines the capability-set interface every reader
// protocol implementation satisfies, plus the narrow callback
// interface it is handed at construction.
//
// Each protocol gets a single Driver implementation per reader_kind,
// selected by a tagged variant in internal/drivers, rather than
// per-reader mixins.
package driver

import (
	"context"
	"time"

	"github.com/ghpascon/xbridge-middleware/pkg/models"
)

// WriteGPOControl selects static vs. pulsed GPO actuation.
type WriteGPOControl string

const (
	GPOStatic WriteGPOControl = "static"
	GPOPulsed WriteGPOControl = "pulsed"
)

// WriteEPCRequest carries the parameters of a write_epc control call.
// TargetIdentifier is "epc", "tid" or "" (meaning "write regardless of
// current content").
type WriteEPCRequest struct {
	TargetIdentifier string
	TargetValue      string
	NewEPC           string
	Password         string
}

// Validate enforces the EPC-write validation rule: new_epc and
// target_value must be 24 hex chars, password 8 hex chars.
func (r WriteEPCRequest) Validate() error {
	if r.TargetIdentifier != "" && r.TargetIdentifier != "epc" && r.TargetIdentifier != "tid" {
		return ErrInvalidTargetIdentifier
	}
	if r.TargetValue != "" && !models.IsHex24(r.TargetValue) {
		return ErrInvalidTargetValue
	}
	if !models.IsHex24(r.NewEPC) {
		return ErrInvalidNewEPC
	}
	if !models.IsHex8(r.Password) {
		return ErrInvalidPassword
	}
	return nil
}

// WriteGPORequest carries the parameters of a write_gpo control call.
type WriteGPORequest struct {
	Pin     int
	State   bool
	Control WriteGPOControl
	TimeMS  int
}

// Driver is the capability set every reader protocol implements. A
// Driver instance is owned by its supervisor, which runs Connect and
// Disconnect; the control surface calls the inventory, tag and write
// methods directly from its callers' goroutines.
type Driver interface {
	// Connect dials the device's transport, performs any
	// protocol-specific handshake/configuration, and blocks until the
	// connection ends (cleanly or with an error) or ctx is canceled.
	// Connect is the single long-running call each supervisor
	// iteration makes; it owns the driver's receive/keep-alive/poll
	// sub-tasks for that connection's lifetime.
	Connect(ctx context.Context) error

	// IsConnected and IsReading reflect current driver state for
	// device_state().
	IsConnected() bool
	IsReading() bool

	// IsRFIDReader distinguishes RFID capability (inventory,
	// write_epc, write_gpo) from the generic passthrough drivers,
	// which only emit on_tag/on_event.
	IsRFIDReader() bool

	StartInventory(ctx context.Context) error
	StopInventory(ctx context.Context) error
	ClearTags(ctx context.Context) error
	WriteEPC(ctx context.Context, req WriteEPCRequest) error
	WriteGPO(ctx context.Context, req WriteGPORequest) error

	// Disconnect tears down the transport and unblocks Connect. It
	// must be safe to call concurrently with Connect and must
	// complete within the driver disconnect grace period.
	Disconnect(ctx context.Context) error
}

// DisconnectGrace bounds how long a supervisor waits for Disconnect
// to complete during cancellation.
const DisconnectGrace = 5 * time.Second
