// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package maintenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMidnightIsStableAcrossTimeOfDay(t *testing.T) {
	morning := time.Date(2026, 3, 5, 4, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 5, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight(morning), midnight(evening))
}

func TestPrunerSkipsWhenStorageDaysZero(t *testing.T) {
	p := NewPruner(nil, 0, nopLogger())
	p.Run(nil) // must not panic or dereference a nil db
}
