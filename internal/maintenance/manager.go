// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/cache"
	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/internal/sinks"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// midnightLocation anchors the daily pruning schedule to the same
// fixed UTC-3 offset Pruner's own cutoff math uses, so the trigger and
// the deletion boundary never drift onto different clocks.
var midnightLocation = time.FixedZone("UTC-3", int(common.MidnightOffset/time.Second))

// DefaultClearOldTagsInterval is used when CLEAR_OLD_TAGS_INTERVAL is
// absent from the actions config.
const DefaultClearOldTagsInterval = 60 * time.Second

// Manager owns the cron jobs for DB pruning and tag TTL eviction. It
// is rebuilt whenever the actions config changes so job schedules
// track the live configuration.
type Manager struct {
	cr  *cron.Cron
	log *logrus.Entry
}

// New builds and starts a Manager from the active actions config. db
// may be nil when no database sink is configured, in which case
// pruning is skipped entirely.
func New(cfg *models.ActionsConfig, db *sinks.DBSink, tags *cache.TagCache, log *logrus.Entry) *Manager {
	m := &Manager{cr: cron.New(cron.WithLocation(midnightLocation)), log: log.WithField("component", "maintenance")}

	if cfg.PruningEnabled() && db != nil {
		pruner := NewPruner(db, cfg.EffectiveStorageDays(), m.log)
		if _, err := m.cr.AddFunc("0 0 * * *", func() { pruner.Run(context.Background()) }); err != nil {
			m.log.WithError(err).Error("failed to schedule pruner")
		}
	} else {
		m.log.Info("database pruning disabled")
	}

	interval := DefaultClearOldTagsInterval
	if cfg.ClearOldTagsInterval != nil && *cfg.ClearOldTagsInterval > 0 {
		interval = time.Duration(*cfg.ClearOldTagsInterval) * time.Second
	}
	evictor := NewTagEvictor(tags, 0, m.log) // TTL stays DefaultTagTTL; interval only controls polling rate
	if _, err := m.cr.AddFunc(fmt.Sprintf("@every %s", interval), evictor.Run); err != nil {
		m.log.WithError(err).Error("failed to schedule tag evictor")
	}

	m.cr.Start()
	return m
}

// Stop halts all scheduled jobs and waits for any in-flight run to finish.
func (m *Manager) Stop() {
	ctx := m.cr.Stop()
	<-ctx.Done()
}
