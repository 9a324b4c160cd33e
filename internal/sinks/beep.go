// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package sinks

import (
	"context"

	"github.com/sirupsen/logrus"
)

// BeepSink stands in for the buzzer hardware indicator: on-premise
// deployments without a physical buzzer still want a record of when a
// tag would have sounded one, so this logs at info level instead of
// driving GPIO.
type BeepSink struct {
	log *logrus.Entry
}

func NewBeepSink(log *logrus.Entry) *BeepSink {
	return &BeepSink{log: log}
}

func (s *BeepSink) Name() string { return "beep" }

func (s *BeepSink) PublishTag(ctx context.Context, tag interface{}) error {
	s.log.Info("beep: tag read")
	return nil
}

func (s *BeepSink) PublishEvent(ctx context.Context, event interface{}) error { return nil }

func (s *BeepSink) Close() error { return nil }
