// -*- mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainConfigRoundTripPreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{
		"TITLE": "xbridge",
		"PORT": 8080,
		"LOG_PATH": "/var/log/xbridge.log",
		"OPEN_BROWSER": true,
		"BEEP": false,
		"SECRET_KEY": "s3cr3t",
		"UNKNOWN_FIELD": "keep-me"
	}`), 0o644))

	cfg, err := LoadMainConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "xbridge", cfg.Title)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.OpenBrowser)

	require.NoError(t, SaveMainConfig(dir, cfg))
	reloaded, err := LoadMainConfig(dir)
	require.NoError(t, err)
	assert.Contains(t, reloaded.Extra, "UNKNOWN_FIELD")
}

func TestLoadActionsConfigMissingFileDisablesAllSinks(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadActionsConfig(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.HTTPPost)
	assert.Empty(t, cfg.MQTTURL)
	assert.Empty(t, cfg.XTrackURL)
}

func TestListDeviceConfigsRemovesFilesLackingReaderKind(t *testing.T) {
	dir := t.TempDir()
	devicesDir := filepath.Join(dir, "devices")
	require.NoError(t, os.MkdirAll(devicesDir, 0o755))

	good := filepath.Join(devicesDir, "r1.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"name": "r1",
		"reader_kind": "TCP",
		"tcp": {"ip": "10.0.0.5", "port": 4001}
	}`), 0o644))

	bad := filepath.Join(devicesDir, "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"name": "broken"}`), 0o644))

	configs, err := ListDeviceConfigs(dir)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "R1", configs[0].Name)

	_, statErr := os.Stat(bad)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveAndDeleteDeviceConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := models.DeviceConfig{
		Name:       "r2",
		ReaderKind: models.ReaderTCP,
		TCP:        &models.TCPParams{IP: "10.0.0.6", Port: 4002},
	}
	require.NoError(t, SaveDeviceConfig(dir, cfg))

	loaded, err := LoadDeviceConfig(dir, "r2")
	require.NoError(t, err)
	assert.Equal(t, "r2", loaded.Name)

	require.NoError(t, DeleteDeviceConfig(dir, "r2"))
	_, err = LoadDeviceConfig(dir, "r2")
	assert.Error(t, err)
}
