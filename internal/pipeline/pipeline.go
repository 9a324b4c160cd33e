// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the event ingestion boundary: tag dedup
// and GTIN decoding, sink fan-out, and the connection/inventory
// lifecycle events. It is the sole writer of the shared TagCache and
// EventRing and implements pkg/driver.Callbacks so drivers can be
// handed a Pipeline directly.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/cache"
	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/internal/gtin"
	"github.com/ghpascon/xbridge-middleware/internal/sinks"
	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Pipeline is the central event boundary between drivers and sinks.
type Pipeline struct {
	log    *logrus.Entry
	tags   *cache.TagCache
	events *cache.EventRing

	mu    sync.RWMutex
	sinks *sinks.Fanout
}

func New(log *logrus.Entry, tags *cache.TagCache, events *cache.EventRing, fanout *sinks.Fanout) *Pipeline {
	return &Pipeline{log: log, tags: tags, events: events, sinks: fanout}
}

// SetSinks atomically swaps the active sink fan-out, for set_actions
// reloading the database engine and other sinks without restarting
// the pipeline or any supervisor.
func (p *Pipeline) SetSinks(fanout *sinks.Fanout) *sinks.Fanout {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.sinks
	p.sinks = fanout
	return old
}

func (p *Pipeline) currentSinks() *sinks.Fanout {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sinks
}

var _ driver.Callbacks = (*Pipeline)(nil)

// OnTag validates and dedups a raw detection. New EPCs are enriched
// with a GTIN decode and fanned out; repeat detections only refresh
// the cached entry.
func (p *Pipeline) OnTag(raw models.RawTag) {
	if !models.IsHex24(raw.EPC) {
		p.log.WithField("epc", raw.EPC).Warn("dropping tag with malformed epc")
		return
	}
	if raw.TID != "" && !models.IsHex24(raw.TID) {
		raw.TID = ""
	}
	ant := raw.Ant
	if ant <= 0 {
		ant = 1
	}

	candidate := models.Tag{
		Device:    raw.Device,
		EPC:       raw.EPC,
		TID:       raw.TID,
		Ant:       ant,
		RSSI:      raw.RSSI,
		GTIN:      gtin.DecodeOrEmpty(raw.EPC),
		Timestamp: time.Now(),
	}

	stored, isNew := p.tags.Upsert(candidate)
	if !isNew {
		return
	}

	p.onTagEvents(stored)
}

// correlatedContext tags ctx with a fresh correlation id so a sink
// failure can be traced back to the log line that produced it.
func (p *Pipeline) correlatedContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	return context.WithValue(ctx, common.CorrelationHeader, uuid.New().String()), cancel
}

// onTagEvents fans a newly-seen tag out to every configured sink.
// Sink isolation is the Fanout's job.
func (p *Pipeline) onTagEvents(tag models.Tag) {
	ctx, cancel := p.correlatedContext()
	defer cancel()
	p.currentSinks().PublishTag(ctx, tag)
}

func (p *Pipeline) emit(device, eventType string, data interface{}) {
	ev := models.Event{Timestamp: time.Now(), Device: device, EventType: eventType, EventData: data}
	p.events.Push(ev)

	ctx, cancel := p.correlatedContext()
	defer cancel()
	p.currentSinks().PublishEvent(ctx, ev)
}

func (p *Pipeline) OnConnect(device string) {
	p.emit(device, models.EventConnection, true)
}

func (p *Pipeline) OnDisconnect(device string) {
	p.emit(device, models.EventConnection, false)
}

// OnStart clears the device's stale tags before announcing the new
// inventory window, so a reading restart never mixes detections from
// before and after it.
func (p *Pipeline) OnStart(device string) {
	p.ClearTags(device)
	p.emit(device, models.EventInventory, true)
}

func (p *Pipeline) OnStop(device string) {
	p.emit(device, models.EventInventory, false)
}

func (p *Pipeline) OnEvent(device, eventType string, data interface{}) {
	p.emit(device, eventType, data)
}

// ClearTags empties the cache for device, or the entire cache when
// device is empty.
func (p *Pipeline) ClearTags(device string) {
	p.tags.Clear(device)
}
