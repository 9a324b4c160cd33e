// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/ghpascon/xbridge-middleware/internal/cache"
	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/internal/sinks"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	mu   sync.Mutex
	tags []interface{}
}

func (s *recordingSink) Name() string { return "recording" }
func (s *recordingSink) PublishTag(ctx context.Context, tag interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = append(s.tags, tag)
	return nil
}
func (s *recordingSink) PublishEvent(ctx context.Context, event interface{}) error { return nil }
func (s *recordingSink) Close() error                                             { return nil }

func newTestPipeline(rec *recordingSink) *Pipeline {
	log := common.NewLogger("test")
	tags := cache.NewTagCache()
	events := cache.NewEventRing()
	fanout := sinks.NewFanout(log, rec)
	return New(log, tags, events, fanout)
}

func TestOnTagEmitsOnlyForNewEPC(t *testing.T) {
	rec := &recordingSink{}
	p := newTestPipeline(rec)

	epc := "a1b2c3d4e5f60718293a4b5c"
	p.OnTag(models.RawTag{Device: "R1", EPC: epc, Ant: 1})
	p.OnTag(models.RawTag{Device: "R1", EPC: epc, Ant: 1})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.tags, 1)
}

func TestOnTagDropsMalformedEPC(t *testing.T) {
	rec := &recordingSink{}
	p := newTestPipeline(rec)
	p.OnTag(models.RawTag{Device: "R1", EPC: "not-hex"})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.tags, 0)
}

func TestOnTagDefaultsMissingAntennaToOne(t *testing.T) {
	rec := &recordingSink{}
	p := newTestPipeline(rec)
	p.OnTag(models.RawTag{Device: "R1", EPC: "a1b2c3d4e5f60718293a4b5c", Ant: 0})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require := assert.New(t)
	require.Len(rec.tags, 1)
	tag := rec.tags[0].(models.Tag)
	require.Equal(1, tag.Ant)
}

func TestClearTagsScopesToDevice(t *testing.T) {
	rec := &recordingSink{}
	p := newTestPipeline(rec)
	p.OnTag(models.RawTag{Device: "R1", EPC: "a1b2c3d4e5f60718293a4b5c"})
	p.ClearTags("R1")
	assert.Equal(t, 0, p.tags.Count())
}

func TestOnStartClearsTagsBeforeEmitting(t *testing.T) {
	rec := &recordingSink{}
	p := newTestPipeline(rec)
	p.OnTag(models.RawTag{Device: "R1", EPC: "a1b2c3d4e5f60718293a4b5c"})
	p.OnStart("R1")
	assert.Equal(t, 0, p.tags.Count())
}

func TestSetSinksSwapsActiveFanoutAndReturnsPrevious(t *testing.T) {
	rec1 := &recordingSink{}
	p := newTestPipeline(rec1)
	log := common.NewLogger("test")
	rec2 := &recordingSink{}
	newFanout := sinks.NewFanout(log, rec2)

	old := p.SetSinks(newFanout)
	assert.NotNil(t, old)

	p.OnTag(models.RawTag{Device: "R1", EPC: "a1b2c3d4e5f60718293a4b5c"})
	rec1.mu.Lock()
	assert.Len(t, rec1.tags, 0)
	rec1.mu.Unlock()
	rec2.mu.Lock()
	assert.Len(t, rec2.tags, 1)
	rec2.mu.Unlock()
}
