// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package maintenance

import (
	"testing"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/cache"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func nopLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(noopWriter{})
	return logrus.NewEntry(l)
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestTagEvictorRemovesStaleEntries(t *testing.T) {
	tags := cache.NewTagCache()
	old := time.Now().Add(-2 * time.Hour)
	tags.Upsert(models.Tag{EPC: "AABBCCDDEEFF001122334455", Device: "D1", Timestamp: old})

	e := NewTagEvictor(tags, time.Hour, nopLogger())
	e.Run()

	assert.Equal(t, 0, tags.Count())
}

func TestTagEvictorKeepsFreshEntries(t *testing.T) {
	tags := cache.NewTagCache()
	tags.Upsert(models.Tag{EPC: "AABBCCDDEEFF001122334455", Device: "D1", Timestamp: time.Now()})

	e := NewTagEvictor(tags, time.Hour, nopLogger())
	e.Run()

	assert.Equal(t, 1, tags.Count())
}
