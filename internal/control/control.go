// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package control implements the local API the front-end and
// integrators consume: device CRUD, inventory control, tag/event
// queries, reporting, and actions reconfiguration. It is a Go API, not
// an HTTP router; routing is left to the caller.
package control

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ghpascon/xbridge-middleware/internal/cache"
	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/internal/config"
	"github.com/ghpascon/xbridge-middleware/internal/maintenance"
	"github.com/ghpascon/xbridge-middleware/internal/pipeline"
	"github.com/ghpascon/xbridge-middleware/internal/registry"
	"github.com/ghpascon/xbridge-middleware/internal/sinks"
	"github.com/ghpascon/xbridge-middleware/internal/supervisor"
	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/sirupsen/logrus"
)

// Control bundles everything the control surface needs: the device
// registry, the shared caches, and the mutable actions configuration
// whose sinks and maintenance schedule it can reload atomically.
type Control struct {
	confDir string
	reg     *registry.Registry
	tags    *cache.TagCache
	events  *cache.EventRing
	pipe    *pipeline.Pipeline
	log     *logrus.Entry

	mu      sync.Mutex
	actions *models.ActionsConfig
	db      *sinks.DBSink
	maint   *maintenance.Manager
}

func New(confDir string, reg *registry.Registry, tags *cache.TagCache, events *cache.EventRing, pipe *pipeline.Pipeline, actions *models.ActionsConfig, db *sinks.DBSink, maint *maintenance.Manager, log *logrus.Entry) *Control {
	return &Control{
		confDir: confDir,
		reg:     reg,
		tags:    tags,
		events:  events,
		pipe:    pipe,
		actions: actions,
		db:      db,
		maint:   maint,
		log:     log.WithField("component", "control"),
	}
}

// ListDevices returns every configured device name.
func (c *Control) ListDevices() []string {
	cfgs := c.reg.List()
	names := make([]string, 0, len(cfgs))
	for _, cfg := range cfgs {
		names = append(names, cfg.Name)
	}
	return names
}

func (c *Control) GetDeviceConfig(name string) (models.DeviceConfig, error) {
	return c.reg.Get(name)
}

func (c *Control) CreateDevice(cfg models.DeviceConfig) error {
	return c.reg.Create(cfg)
}

func (c *Control) UpdateDevice(name string, cfg models.DeviceConfig) error {
	return c.reg.Update(name, cfg)
}

func (c *Control) DeleteDevice(name string) error {
	return c.reg.Delete(name)
}

// DeviceState implements device_state(name).
func (c *Control) DeviceState(name string) supervisor.State {
	sup, err := c.reg.Supervisor(name)
	if err != nil {
		return supervisor.StateNotFound
	}
	return sup.State()
}

func (c *Control) StartInventory(ctx context.Context, name string) error {
	sup, err := c.reg.Supervisor(name)
	if err != nil {
		return err
	}
	return sup.Driver().StartInventory(ctx)
}

func (c *Control) StopInventory(ctx context.Context, name string) error {
	sup, err := c.reg.Supervisor(name)
	if err != nil {
		return err
	}
	return sup.Driver().StopInventory(ctx)
}

// Clear clears tags for name, or every device's tags when name is
// empty.
func (c *Control) Clear(ctx context.Context, name string) error {
	if name == "" {
		c.pipe.ClearTags("")
		return nil
	}
	sup, err := c.reg.Supervisor(name)
	if err != nil {
		return err
	}
	if err := sup.Driver().ClearTags(ctx); err != nil {
		return err
	}
	c.pipe.ClearTags(name)
	return nil
}

func (c *Control) WriteGPO(ctx context.Context, name string, req driver.WriteGPORequest) error {
	sup, err := c.reg.Supervisor(name)
	if err != nil {
		return err
	}
	return sup.Driver().WriteGPO(ctx, req)
}

func (c *Control) WriteEPC(ctx context.Context, name string, req driver.WriteEPCRequest) error {
	sup, err := c.reg.Supervisor(name)
	if err != nil {
		return err
	}
	return sup.Driver().WriteEPC(ctx, req)
}

func (c *Control) GetTags() []models.Tag       { return c.tags.All() }
func (c *Control) GetTagCount() int            { return c.tags.Count() }
func (c *Control) GetEPCs() []string           { return c.tags.EPCs() }
func (c *Control) GetGtinCounts() map[string]int { return c.tags.GTINCounts() }
func (c *Control) GetEvents() []models.Event   { return c.events.All() }

// GetActions returns a copy of the currently active actions config.
func (c *Control) GetActions() models.ActionsConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.actions
}

// SetActions persists the new actions config, rebuilds the sink
// fan-out and the maintenance schedule from it, and swaps both in
// atomically so no tag or event is lost mid-reload.
func (c *Control) SetActions(cfg models.ActionsConfig) error {
	if err := config.SaveActionsConfig(c.confDir, &cfg); err != nil {
		return err
	}

	newFanout, newDB, err := sinks.BuildFromActions(&cfg, c.log)
	if err != nil {
		return common.NewConfigError("set_actions: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	oldFanout := c.pipe.SetSinks(newFanout)
	oldDB := c.db
	c.db = newDB
	c.actions = &cfg

	if c.maint != nil {
		c.maint.Stop()
	}
	c.maint = maintenance.New(&cfg, newDB, c.tags, c.log)

	if oldFanout != nil {
		oldFanout.Close()
	}
	if oldDB != nil && oldDB != newDB {
		_ = oldDB.Close()
	}
	return nil
}

// GetExampleConfig returns the named read-only example template from
// config/examples.
func (c *Control) GetExampleConfig(name string) ([]byte, error) {
	return readExample(c.confDir, name)
}

// ListExampleConfigs returns the names of every available example template.
func (c *Control) ListExampleConfigs() ([]string, error) {
	return listExamples(c.confDir)
}

// GetReport writes a ZIP export of every database table as CSV.
func (c *Control) GetReport(w io.Writer) error {
	c.mu.Lock()
	db := c.db
	c.mu.Unlock()
	if db == nil {
		return fmt.Errorf("control: no database configured")
	}
	return db.Report(w)
}
