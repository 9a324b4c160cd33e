// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package service wires every component into one explicit holder
// instead of process-wide globals.
package service

import (
	"context"
	"fmt"

	"github.com/ghpascon/xbridge-middleware/internal/cache"
	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/internal/config"
	"github.com/ghpascon/xbridge-middleware/internal/control"
	"github.com/ghpascon/xbridge-middleware/internal/httpserver"
	"github.com/ghpascon/xbridge-middleware/internal/maintenance"
	"github.com/ghpascon/xbridge-middleware/internal/pipeline"
	"github.com/ghpascon/xbridge-middleware/internal/registry"
	"github.com/ghpascon/xbridge-middleware/internal/sinks"
	"github.com/sirupsen/logrus"
)

// Service holds every long-lived component of a running process.
type Service struct {
	confDir string
	log     *logrus.Entry

	Tags     *cache.TagCache
	Events   *cache.EventRing
	Pipeline *pipeline.Pipeline
	Registry *registry.Registry
	Control  *control.Control
	HTTP     *httpserver.Server

	db    *sinks.DBSink
	maint *maintenance.Manager
}

// Init loads configuration from confDir and builds every component,
// starting supervisors for every valid device config found.
func Init(confDir string) (*Service, error) {
	log := common.NewLogger("xbridge-middleware")

	mainCfg, err := config.LoadMainConfig(confDir)
	if err != nil {
		log.WithError(err).Warn("main config unavailable, using defaults")
		mainCfg = &config.MainConfig{Port: 8080}
	}

	actions, err := config.LoadActionsConfig(confDir)
	if err != nil {
		return nil, fmt.Errorf("service: load actions config: %w", err)
	}

	tags := cache.NewTagCache()
	events := cache.NewEventRing()

	fanout, db, err := sinks.BuildFromActions(actions, log)
	if err != nil {
		log.WithError(err).Error("sink construction failed, continuing without failed sinks")
	}
	if fanout == nil {
		fanout = sinks.NewFanout(log)
	}

	pipe := pipeline.New(log, tags, events, fanout)
	reg := registry.New(confDir, pipe, log)
	if err := reg.LoadAll(); err != nil {
		log.WithError(err).Error("failed to load device configs")
	}

	maint := maintenance.New(actions, db, tags, log)

	ctl := control.New(confDir, reg, tags, events, pipe, actions, db, maint, log)

	addr := fmt.Sprintf(":%d", mainCfg.Port)
	httpSrv := httpserver.New(addr, nil, log)

	return &Service{
		confDir:  confDir,
		log:      log,
		Tags:     tags,
		Events:   events,
		Pipeline: pipe,
		Registry: reg,
		Control:  ctl,
		HTTP:     httpSrv,
		db:       db,
		maint:    maint,
	}, nil
}

// Start begins serving the narrow HTTP surface. Device supervisors are
// already running by the time Init returns.
func (s *Service) Start() {
	s.HTTP.Start()
	s.log.Info("service started")
}

// Shutdown stops every device supervisor, the maintenance schedule,
// and the HTTP server, in that order.
func (s *Service) Shutdown(ctx context.Context) {
	s.Registry.Shutdown(ctx)
	if s.maint != nil {
		s.maint.Stop()
	}
	if err := s.HTTP.Shutdown(); err != nil {
		s.log.WithError(err).Warn("http server shutdown error")
	}
	s.log.Info("service stopped")
}
