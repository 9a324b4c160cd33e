// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ghpascon/xbridge-middleware/internal/cache"
	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/internal/pipeline"
	"github.com/ghpascon/xbridge-middleware/internal/registry"
	"github.com/ghpascon/xbridge-middleware/internal/sinks"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopCallbacks struct{}

func (noopCallbacks) OnConnect(string)                                  {}
func (noopCallbacks) OnDisconnect(string)                               {}
func (noopCallbacks) OnStart(string)                                    {}
func (noopCallbacks) OnStop(string)                                     {}
func (noopCallbacks) OnTag(models.RawTag)                               {}
func (noopCallbacks) OnEvent(device, eventType string, data interface{}) {}

func newTestControl(t *testing.T) *Control {
	t.Helper()
	dir := t.TempDir()
	log := common.NewLogger("test")

	reg := registry.New(dir, noopCallbacks{}, log)
	tags := cache.NewTagCache()
	events := cache.NewEventRing()
	fanout := sinks.NewFanout(log)
	pipe := pipeline.New(log, tags, events, fanout)
	actions := &models.ActionsConfig{}

	return New(dir, reg, tags, events, pipe, actions, nil, nil, log)
}

func TestListDevicesEmptyInitially(t *testing.T) {
	c := newTestControl(t)
	assert.Empty(t, c.ListDevices())
}

func TestCreateAndGetDeviceRoundTrips(t *testing.T) {
	c := newTestControl(t)
	cfg := models.DeviceConfig{Name: "R1", ReaderKind: models.ReaderTCP, TCP: &models.TCPParams{IP: "127.0.0.1", Port: 1}}
	require.NoError(t, c.CreateDevice(cfg))

	got, err := c.GetDeviceConfig("R1")
	require.NoError(t, err)
	assert.Equal(t, "R1", got.Name)
	assert.Contains(t, c.ListDevices(), "R1")
}

func TestDeviceStateNotFoundForUnknownDevice(t *testing.T) {
	c := newTestControl(t)
	assert.Equal(t, -1, int(c.DeviceState("MISSING")))
}

func TestSetActionsPersistsAndSwapsConfig(t *testing.T) {
	c := newTestControl(t)
	days := 3
	cfg := models.ActionsConfig{StorageDays: &days}
	require.NoError(t, c.SetActions(cfg))

	got := c.GetActions()
	require.NotNil(t, got.StorageDays)
	assert.Equal(t, 3, *got.StorageDays)

	path := filepath.Join(c.confDir, common.ActionsConfigFile)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestGetExampleConfigRejectsPathEscape(t *testing.T) {
	c := newTestControl(t)
	_, err := c.GetExampleConfig("../../etc/passwd")
	assert.Error(t, err)
}

func TestGetReportWithoutDatabaseFails(t *testing.T) {
	c := newTestControl(t)
	err := c.GetReport(nil)
	assert.Error(t, err)
}
