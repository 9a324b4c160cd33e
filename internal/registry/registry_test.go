// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"testing"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopCallbacks struct{}

func (noopCallbacks) OnConnect(string)                         {}
func (noopCallbacks) OnDisconnect(string)                      {}
func (noopCallbacks) OnStart(string)                           {}
func (noopCallbacks) OnStop(string)                            {}
func (noopCallbacks) OnTag(models.RawTag)                      {}
func (noopCallbacks) OnEvent(device, eventType string, data interface{}) {}

func testConfig(name string) models.DeviceConfig {
	return models.DeviceConfig{
		Name:       name,
		ReaderKind: models.ReaderTCP,
		TCP:        &models.TCPParams{IP: "127.0.0.1", Port: 1}, // refused immediately
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	log := logrus.NewEntry(logrus.New())
	return New(dir, noopCallbacks{}, log)
}

func TestCreateThenGetRoundTrips(t *testing.T) {
	r := newTestRegistry(t)
	cfg := testConfig("R1")
	require.NoError(t, r.Create(cfg))
	defer r.Shutdown(context.Background())

	got, err := r.Get("R1")
	require.NoError(t, err)
	assert.Equal(t, "R1", got.Name)

	sup, err := r.Supervisor("R1")
	require.NoError(t, err)
	assert.NotNil(t, sup)
}

func TestCreateDuplicateNameRejected(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Create(testConfig("R1")))
	defer r.Shutdown(context.Background())

	err := r.Create(testConfig("R1"))
	assert.Error(t, err)
}

func TestGetUnknownDeviceReturnsNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Get("MISSING")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteRemovesDevice(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Create(testConfig("R1")))
	require.NoError(t, r.Delete("R1"))

	_, err := r.Get("R1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateRestartsSupervisor(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Create(testConfig("R1")))
	defer r.Shutdown(context.Background())

	cfg := testConfig("R1")
	cfg.TCP.Port = 2
	require.NoError(t, r.Update("R1", cfg))

	got, err := r.Get("R1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TCP.Port)
}

func TestConcurrentUpdateRejectedWhileBusy(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Create(testConfig("R1")))
	defer r.Shutdown(context.Background())

	r.updating = true
	err := r.Update("R1", testConfig("R1"))
	assert.ErrorIs(t, err, common.ErrBusy)
	r.updating = false
}
