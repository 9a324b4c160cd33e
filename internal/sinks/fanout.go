// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package sinks

import (
	"context"
	"sync"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/sirupsen/logrus"
)

// Fanout publishes to every registered sink concurrently. A failing
// sink is logged and otherwise ignored: it never blocks or fails the
// others.
type Fanout struct {
	log   *logrus.Entry
	sinks []Sink
}

func NewFanout(log *logrus.Entry, sinks ...Sink) *Fanout {
	return &Fanout{log: log, sinks: sinks}
}

func (f *Fanout) logEntry(ctx context.Context) *logrus.Entry {
	cid, _ := ctx.Value(common.CorrelationHeader).(string)
	if cid == "" {
		return f.log
	}
	return f.log.WithField(common.CorrelationHeader, cid)
}

func (f *Fanout) PublishTag(ctx context.Context, tag interface{}) {
	var wg sync.WaitGroup
	for _, sk := range f.sinks {
		wg.Add(1)
		go func(sk Sink) {
			defer wg.Done()
			if err := sk.PublishTag(ctx, tag); err != nil {
				f.logEntry(ctx).WithError(err).WithField("sink", sk.Name()).Warn("sink publish failed")
			}
		}(sk)
	}
	wg.Wait()
}

func (f *Fanout) PublishEvent(ctx context.Context, event interface{}) {
	var wg sync.WaitGroup
	for _, sk := range f.sinks {
		wg.Add(1)
		go func(sk Sink) {
			defer wg.Done()
			if err := sk.PublishEvent(ctx, event); err != nil {
				f.logEntry(ctx).WithError(err).WithField("sink", sk.Name()).Warn("sink publish failed")
			}
		}(sk)
	}
	wg.Wait()
}

func (f *Fanout) Close() {
	for _, sk := range f.sinks {
		_ = sk.Close()
	}
}
