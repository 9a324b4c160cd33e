// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package driver

import "errors"

var (
	ErrInvalidTargetIdentifier = errors.New("target_identifier must be \"epc\", \"tid\" or empty")
	ErrInvalidTargetValue      = errors.New("target_value must be 24 hexadecimal characters")
	ErrInvalidNewEPC           = errors.New("new_epc must be 24 hexadecimal characters")
	ErrInvalidPassword         = errors.New("password must be 8 hexadecimal characters")
	ErrNotReading              = errors.New("driver is not currently reading")
	ErrNotConnected            = errors.New("driver is not connected")
	ErrNotRFIDReader           = errors.New("driver does not support RFID operations")
	ErrUnsupported             = errors.New("operation not supported by this reader")
)
