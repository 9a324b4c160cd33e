// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018-2019 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package driver

import "github.com/ghpascon/xbridge-middleware/pkg/models"

// Callbacks is the narrow event-callback interface a driver receives
// at construction time: drivers publish only through this interface
// and never import the pipeline package, which keeps drivers and
// events from depending on each other directly.
type Callbacks interface {
	OnConnect(device string)
	OnDisconnect(device string)
	OnStart(device string)
	OnStop(device string)
	OnTag(tag models.RawTag)
	OnEvent(device, eventType string, data interface{})
}
