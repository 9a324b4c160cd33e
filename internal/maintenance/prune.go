// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package maintenance runs the periodic housekeeping tasks that are
// not tied to any single device connection: daily database pruning
// and tag-cache TTL eviction.
package maintenance

import (
	"context"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/internal/sinks"
	"github.com/sirupsen/logrus"
)

// Pruner deletes rows older than the configured retention window from
// the database sink, anchored to a fixed UTC offset regardless of host
// timezone.
type Pruner struct {
	db          *sinks.DBSink
	storageDays int
	log         *logrus.Entry
}

func NewPruner(db *sinks.DBSink, storageDays int, log *logrus.Entry) *Pruner {
	return &Pruner{db: db, storageDays: storageDays, log: log.WithField("component", "pruner")}
}

// Run deletes every row older than storageDays, anchored at the
// current midnight shifted by the fixed offset. It is safe to call on
// any schedule; the cutoff is computed fresh each call.
func (p *Pruner) Run(ctx context.Context) {
	if p.db == nil || p.storageDays <= 0 {
		return
	}
	cutoff := midnight(time.Now()).Add(-time.Duration(p.storageDays) * 24 * time.Hour)
	if err := p.db.PruneOlderThan(ctx, cutoff); err != nil {
		p.log.WithError(err).Warn("prune failed")
		return
	}
	p.log.WithField("cutoff", cutoff).Info("pruned old rows")
}

// midnight returns the start of t's day shifted by the fixed
// retention offset, so the prune boundary stays stable across host
// timezones.
func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Add(common.MidnightOffset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(-common.MidnightOffset)
}
