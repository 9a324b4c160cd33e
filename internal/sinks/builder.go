// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package sinks

import (
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/sirupsen/logrus"
)

// BuildFromActions constructs the sink set named by cfg. A
// DBSink is also returned separately since the maintenance package
// needs it directly for pruning; it is nil when DATABASE_URL is unset.
func BuildFromActions(cfg *models.ActionsConfig, log *logrus.Entry) (*Fanout, *DBSink, error) {
	var active []Sink
	var db *DBSink

	if cfg.DatabaseURL != "" {
		d, err := NewDBSink(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		db = d
		active = append(active, d)
	}
	if cfg.HTTPPost != "" {
		active = append(active, NewHTTPSink(cfg.HTTPPost))
	}
	if cfg.MQTTURL != "" {
		m, err := NewMQTTSink(cfg.MQTTURL)
		if err != nil {
			log.WithError(err).Warn("mqtt sink unavailable")
		} else {
			active = append(active, m)
		}
	}
	if cfg.XTrackURL != "" {
		active = append(active, NewXTrackSink(cfg.XTrackURL))
	}
	if cfg.Beep {
		active = append(active, NewBeepSink(log))
	}

	return NewFanout(log, active...), db, nil
}
