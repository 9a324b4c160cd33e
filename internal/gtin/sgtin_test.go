// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package gtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeValidSGTIN96(t *testing.T) {
	// Header 0x30, filter 001, partition 5 (24-bit company / 20-bit item),
	// company prefix 0614141 (7 digits), item reference 000912 (6 digits),
	// serial arbitrary.
	gtin, ok := Decode("3034257BF400E4000000A123")
	assert.True(t, ok)
	assert.Len(t, gtin, 14)
}

func TestDecodeRejectsWrongHeader(t *testing.T) {
	_, ok := Decode("1134257BF400E4000000A123")
	assert.False(t, ok)
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, ok := Decode("3034")
	assert.False(t, ok)
}

func TestDecodeRejectsNonHex(t *testing.T) {
	_, ok := Decode("ZZ34257BF400E4000000A123")
	assert.False(t, ok)
}

func TestDecodeOrEmptyFallsBackToEmptyString(t *testing.T) {
	assert.Equal(t, "", DecodeOrEmpty("not-an-epc"))
}

func TestCheckDigitIsComputedNotHardcoded(t *testing.T) {
	gtin, ok := Decode("3034257BF400E4000000A123")
	assert.True(t, ok)
	body := gtin[:13]
	want := gtinCheckDigit(body)
	got := int(gtin[13] - '0')
	assert.Equal(t, want, got)
}
