// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2017-2018 Canonical Ltd
// Copyright (C) 2018-2019 IOTech Ltd
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package common

import "time"

const (
	APIv1Prefix = "/api/v1"

	ConfigDirectory   = "./config"
	MainConfigFile    = "config.json"
	ActionsConfigFile = "actions.json"
	DevicesDir        = "devices"
	ExamplesDir       = "examples"

	APICallbackRoute = APIv1Prefix + "/callback"
	APIPingRoute     = APIv1Prefix + "/ping"

	CorrelationHeader = "X-Correlation-ID"
)

// Transport and protocol timeout defaults.
const (
	SerialIdleFlush     = 300 * time.Millisecond
	TCPDialTimeout      = 3 * time.Second
	TCPKeepAlivePing    = 3 * time.Second
	BLEConnectTimeout   = 10 * time.Second
	BLEKeepAlive        = 5 * time.Second
	HTTPControlTimeout  = 3 * time.Second
	UR4SetupStepTimeout = 500 * time.Millisecond
	DriverDisconnectGrace = 5 * time.Second

	SupervisorBackoffInitial = 3 * time.Second
	SupervisorBackoffMaxTCP  = 30 * time.Second

	EventRingCapacity = 20

	// MidnightOffset is the fixed UTC offset used for the daily
	// pruning anchor, independent of host timezone.
	MidnightOffset = -3 * time.Hour
)
