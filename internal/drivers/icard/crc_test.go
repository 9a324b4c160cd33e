// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package icard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16CCITTIsDeterministic(t *testing.T) {
	a := crc16CCITT([]byte{0x01, 0x02, 0x03})
	b := crc16CCITT([]byte{0x01, 0x02, 0x03})
	assert.Equal(t, a, b)
}

func TestCRC16CCITTDetectsCorruption(t *testing.T) {
	a := crc16CCITT([]byte{0x01, 0x02, 0x03})
	b := crc16CCITT([]byte{0x01, 0x02, 0x04})
	assert.NotEqual(t, a, b)
}

func TestCRC16CCITTEmptyPayload(t *testing.T) {
	assert.Equal(t, uint16(0xFFFF), crc16CCITT(nil))
}
