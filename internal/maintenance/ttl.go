// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package maintenance

import (
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/cache"
	"github.com/sirupsen/logrus"
)

// DefaultTagTTL is used if a tag has never refreshed within this long
// and is otherwise unmanaged by a device's own clear_tags call.
const DefaultTagTTL = 24 * time.Hour

// TagEvictor periodically removes tags whose last observation is
// older than TTL from the shared tag cache.
type TagEvictor struct {
	tags *cache.TagCache
	ttl  time.Duration
	log  *logrus.Entry
}

func NewTagEvictor(tags *cache.TagCache, ttl time.Duration, log *logrus.Entry) *TagEvictor {
	if ttl <= 0 {
		ttl = DefaultTagTTL
	}
	return &TagEvictor{tags: tags, ttl: ttl, log: log.WithField("component", "tag_evictor")}
}

// Run evicts every tag older than the configured TTL.
func (e *TagEvictor) Run() {
	cutoff := time.Now().Add(-e.ttl)
	n := e.tags.EvictOlderThan(cutoff)
	if n > 0 {
		e.log.WithField("evicted", n).Debug("evicted stale tags")
	}
}
