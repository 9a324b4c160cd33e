// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package registry owns the set of configured devices: it loads their
// config files on startup, serializes create/update/delete mutations
// behind a single busy flag, and starts/stops one supervisor per
// device as configs come and go.
package registry

import (
	"context"
	"sync"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/internal/config"
	"github.com/ghpascon/xbridge-middleware/internal/drivers"
	"github.com/ghpascon/xbridge-middleware/internal/supervisor"
	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/sirupsen/logrus"
)

// entry bundles a loaded device config with the supervisor running it.
type entry struct {
	cfg  models.DeviceConfig
	sup  *supervisor.Supervisor
}

// Registry is the single owner of device configuration and lifecycle.
// Reads never block; mutations (create/update/delete) are serialized
// by the updating flag and return common.ErrBusy while one is in
// flight rather than queuing.
type Registry struct {
	confDir string
	cb      driver.Callbacks
	log     *logrus.Entry

	mu       sync.RWMutex
	devices  map[string]*entry
	updating bool
}

func New(confDir string, cb driver.Callbacks, log *logrus.Entry) *Registry {
	return &Registry{
		confDir: confDir,
		cb:      cb,
		log:     log.WithField("component", "registry"),
		devices: map[string]*entry{},
	}
}

// LoadAll reads every valid device config file and starts a
// supervisor for each. Files missing required fields were already
// dropped by config.ListDeviceConfigs.
func (r *Registry) LoadAll() error {
	cfgs, err := config.ListDeviceConfigs(r.confDir)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cfg := range cfgs {
		if err := r.startLocked(cfg); err != nil {
			r.log.WithError(err).WithField("device", cfg.Name).Warn("skipping device on load")
		}
	}
	return nil
}

// startLocked builds the driver/supervisor pair for cfg and records
// it. Caller holds r.mu.
func (r *Registry) startLocked(cfg models.DeviceConfig) error {
	drv, err := drivers.Build(cfg, r.cb)
	if err != nil {
		return err
	}
	backoff := common.SupervisorBackoffMaxTCP
	sup := supervisor.New(cfg.Name, drv, r.log, backoff)
	sup.Start()
	r.devices[cfg.Name] = &entry{cfg: cfg, sup: sup}
	return nil
}

func (r *Registry) beginUpdate() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updating {
		return false
	}
	r.updating = true
	return true
}

func (r *Registry) endUpdate() {
	r.mu.Lock()
	r.updating = false
	r.mu.Unlock()
}

// List returns a snapshot of every configured device.
func (r *Registry) List() []models.DeviceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.DeviceConfig, 0, len(r.devices))
	for _, e := range r.devices {
		out = append(out, e.cfg)
	}
	return out
}

// Get returns the named device's config.
func (r *Registry) Get(name string) (models.DeviceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.devices[name]
	if !ok {
		return models.DeviceConfig{}, common.ErrNotFound
	}
	return e.cfg, nil
}

// Supervisor returns the named device's supervisor, for control-plane
// operations (start/stop inventory, write_epc, state queries).
func (r *Registry) Supervisor(name string) (*supervisor.Supervisor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.devices[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return e.sup, nil
}

// Create validates and persists a new device config, then starts it.
func (r *Registry) Create(cfg models.DeviceConfig) error {
	if !r.beginUpdate() {
		return common.ErrBusy
	}
	defer r.endUpdate()

	if err := cfg.Validate(); err != nil {
		return common.NewValidationError("%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.devices[cfg.Name]; exists {
		return common.NewValidationError("device %s already exists", cfg.Name)
	}
	if err := config.SaveDeviceConfig(r.confDir, cfg); err != nil {
		return err
	}
	return r.startLocked(cfg)
}

// Update replaces the named device's config, restarting its supervisor.
// The old supervisor is stopped outside r.mu so List/Get/Supervisor
// never block on a pending disconnect.
func (r *Registry) Update(name string, cfg models.DeviceConfig) error {
	if !r.beginUpdate() {
		return common.ErrBusy
	}
	defer r.endUpdate()

	cfg.Name = name
	if err := cfg.Validate(); err != nil {
		return common.NewValidationError("%v", err)
	}

	r.mu.RLock()
	_, ok := r.devices[name]
	r.mu.RUnlock()
	if !ok {
		return common.ErrNotFound
	}

	if err := config.SaveDeviceConfig(r.confDir, cfg); err != nil {
		return err
	}

	r.mu.Lock()
	old := r.devices[name]
	delete(r.devices, name)
	r.mu.Unlock()

	if old != nil {
		old.sup.Stop()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(cfg)
}

// Delete stops and removes the named device. The supervisor is stopped
// outside r.mu so List/Get/Supervisor never block on a pending
// disconnect.
func (r *Registry) Delete(name string) error {
	if !r.beginUpdate() {
		return common.ErrBusy
	}
	defer r.endUpdate()

	r.mu.Lock()
	e, ok := r.devices[name]
	if !ok {
		r.mu.Unlock()
		return common.ErrNotFound
	}
	delete(r.devices, name)
	r.mu.Unlock()

	e.sup.Stop()
	return config.DeleteDeviceConfig(r.confDir, name)
}

// Shutdown stops every supervisor. Intended for process exit.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.RLock()
	sups := make([]*supervisor.Supervisor, 0, len(r.devices))
	for _, e := range r.devices {
		sups = append(sups, e.sup)
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sup := range sups {
		wg.Add(1)
		go func(s *supervisor.Supervisor) {
			defer wg.Done()
			s.Stop()
		}(sup)
	}
	wg.Wait()
}
