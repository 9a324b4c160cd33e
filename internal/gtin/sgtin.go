// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package gtin decodes SGTIN-96 encoded EPCs into GS1 GTIN-14 values.
package gtin

import (
	"math/big"
	"strconv"
	"strings"
)

// sgtin96Header is the EPC Tag Data Standard header for SGTIN-96.
const sgtin96Header = 0x30

// partition describes how the 44 company-prefix+item-reference bits of
// an SGTIN-96 split between the two fields for a given partition value,
// per the GS1 EPC Tag Data Standard partition table.
type partition struct {
	companyBits  uint
	companyDigits int
	itemBits     uint
	itemDigits   int
}

var partitions = map[uint64]partition{
	0: {40, 12, 4, 1},
	1: {37, 11, 7, 2},
	2: {34, 10, 10, 3},
	3: {30, 9, 14, 4},
	4: {27, 8, 17, 5},
	5: {24, 7, 20, 6},
	6: {20, 6, 24, 7},
}

// Decode returns the GS1 GTIN-14 encoded in epcHex if it is a valid
// SGTIN-96 EPC, and ok=true. Any other EPC form yields ("", false).
func Decode(epcHex string) (string, bool) {
	epcHex = strings.TrimSpace(epcHex)
	if len(epcHex) != 24 {
		return "", false
	}
	raw, ok := new(big.Int).SetString(epcHex, 16)
	if !ok {
		return "", false
	}

	bits := raw.Bytes()
	padded := make([]byte, 12)
	copy(padded[12-len(bits):], bits)
	full := new(big.Int).SetBytes(padded)

	header := extractBits(full, 96, 88)
	if header != sgtin96Header {
		return "", false
	}

	partitionVal := extractBits(full, 85, 82)
	p, ok := partitions[partitionVal]
	if !ok {
		return "", false
	}

	top := 82
	companyStart := uint(top) - p.companyBits
	company := extractBits(full, uint(top), companyStart)
	itemStart := companyStart - p.itemBits
	item := extractBits(full, companyStart, itemStart)

	companyStr := padNumeric(company, p.companyDigits)
	itemStr := padNumeric(item, p.itemDigits)
	if len(companyStr) != p.companyDigits || len(itemStr) != p.itemDigits {
		return "", false
	}

	indicatorAndItem := itemStr
	body := indicatorAndItem[:1] + companyStr + indicatorAndItem[1:]
	if len(body) != 13 {
		return "", false
	}
	check := gtinCheckDigit(body)
	return body + strconv.Itoa(check), true
}

// extractBits returns bits [high-1 .. low] of a 96-bit value, counting
// bit positions from the least-significant bit (bit 0) as is standard
// for the EPC Tag Data Standard's field tables.
func extractBits(v *big.Int, high, low uint) uint64 {
	width := high - low
	shift := low
	shifted := new(big.Int).Rsh(v, shift)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), width), big.NewInt(1))
	return shifted.And(shifted, mask).Uint64()
}

func padNumeric(v uint64, digits int) string {
	s := strconv.FormatUint(v, 10)
	if len(s) > digits {
		return s
	}
	return strings.Repeat("0", digits-len(s)) + s
}

// gtinCheckDigit computes the GS1 mod-10 check digit over a 13-digit body.
func gtinCheckDigit(body string) int {
	sum := 0
	for i, c := range body {
		d := int(c - '0')
		pos := len(body) - i
		if pos%2 == 1 {
			sum += d * 3
		} else {
			sum += d
		}
	}
	mod := sum % 10
	if mod == 0 {
		return 0
	}
	return 10 - mod
}

// DecodeOrEmpty is a convenience wrapper for callers (the event
// pipeline) that want "" rather than a bool on failure.
func DecodeOrEmpty(epcHex string) string {
	gtin, ok := Decode(epcHex)
	if !ok {
		return ""
	}
	return gtin
}
