// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018-2019 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package models

import "time"

// Event types recognized by the pipeline and sinks. Custom event types
// (anything not in this list) are carried opaquely.
const (
	EventInventory  = "inventory"
	EventConnection = "connection_event"
	EventTag        = "tag"
)

// Event is a timestamped occurrence fanned out to sinks and kept in
// the EventRing.
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	Device    string      `json:"device"`
	EventType string      `json:"event_type"`
	EventData interface{} `json:"event_data"`
}
