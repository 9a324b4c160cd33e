// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2017-2018 Canonical Ltd
// Copyright (C) 2018 IOTech Ltd
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads and saves the middleware's JSON configuration
// files: the main config, the actions config, and the per-device
// config directory.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/pkg/errors"
)

// MainConfig mirrors config/config.json. Extra preserves unknown keys
// verbatim so SaveMainConfig round-trips files edited out-of-band.
type MainConfig struct {
	Title       string
	Port        int
	LogPath     string
	OpenBrowser bool
	Beep        bool
	SecretKey   string

	Extra map[string]json.RawMessage
}

var mainConfigKnownKeys = []string{"TITLE", "PORT", "LOG_PATH", "OPEN_BROWSER", "BEEP", "SECRET_KEY"}

func (c MainConfig) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	for k, v := range c.Extra {
		out[k] = v
	}
	fields := map[string]interface{}{
		"TITLE":        c.Title,
		"PORT":         c.Port,
		"LOG_PATH":     c.LogPath,
		"OPEN_BROWSER": c.OpenBrowser,
		"BEEP":         c.Beep,
		"SECRET_KEY":   c.SecretKey,
	}
	for key, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[key] = b
	}
	return json.Marshal(out)
}

func (c *MainConfig) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	get := func(key string, dst interface{}) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		return json.Unmarshal(v, dst)
	}
	if err := get("TITLE", &c.Title); err != nil {
		return err
	}
	if err := get("PORT", &c.Port); err != nil {
		return err
	}
	if err := get("LOG_PATH", &c.LogPath); err != nil {
		return err
	}
	if err := get("OPEN_BROWSER", &c.OpenBrowser); err != nil {
		return err
	}
	if err := get("BEEP", &c.Beep); err != nil {
		return err
	}
	if err := get("SECRET_KEY", &c.SecretKey); err != nil {
		return err
	}

	c.Extra = map[string]json.RawMessage{}
	for key, v := range raw {
		known := false
		for _, k := range mainConfigKnownKeys {
			if key == k {
				known = true
				break
			}
		}
		if !known {
			c.Extra[key] = v
		}
	}
	return nil
}

// LoadMainConfig loads config/config.json from confDir.
func LoadMainConfig(confDir string) (*MainConfig, error) {
	if confDir == "" {
		confDir = common.ConfigDirectory
	}
	path := filepath.Join(confDir, common.MainConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	cfg := &MainConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// SaveMainConfig writes cfg back to config/config.json, preserving
// any keys not recognized by MainConfig.
func SaveMainConfig(confDir string, cfg *MainConfig) error {
	if confDir == "" {
		confDir = common.ConfigDirectory
	}
	path := filepath.Join(confDir, common.MainConfigFile)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "config: marshal main config")
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadActionsConfig loads config/actions.json from confDir. A missing
// file is not an error: it yields a zero-value ActionsConfig with
// every sink disabled.
func LoadActionsConfig(confDir string) (*models.ActionsConfig, error) {
	if confDir == "" {
		confDir = common.ConfigDirectory
	}
	path := filepath.Join(confDir, common.ActionsConfigFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &models.ActionsConfig{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	cfg := &models.ActionsConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// SaveActionsConfig writes cfg back to config/actions.json.
func SaveActionsConfig(confDir string, cfg *models.ActionsConfig) error {
	if confDir == "" {
		confDir = common.ConfigDirectory
	}
	path := filepath.Join(confDir, common.ActionsConfigFile)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "config: marshal actions config")
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadDeviceConfig loads a single config/devices/<NAME>.json file.
func LoadDeviceConfig(confDir, name string) (*models.DeviceConfig, error) {
	if confDir == "" {
		confDir = common.ConfigDirectory
	}
	path := filepath.Join(confDir, common.DevicesDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	cfg := &models.DeviceConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// SaveDeviceConfig writes a device config file.
func SaveDeviceConfig(confDir string, cfg models.DeviceConfig) error {
	if confDir == "" {
		confDir = common.ConfigDirectory
	}
	dir := filepath.Join(confDir, common.DevicesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "config: create devices dir")
	}
	path := filepath.Join(dir, cfg.Name+".json")
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "config: marshal device config")
	}
	return os.WriteFile(path, data, 0o644)
}

// DeleteDeviceConfig removes a device config file.
func DeleteDeviceConfig(confDir, name string) error {
	if confDir == "" {
		confDir = common.ConfigDirectory
	}
	path := filepath.Join(confDir, common.DevicesDir, name+".json")
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "config: remove %s", path)
	}
	return nil
}

// ListDeviceConfigs scans confDir/devices for *.json files, parses
// each, and removes any file lacking a required field. Device names
// are upper-cased.
func ListDeviceConfigs(confDir string) ([]models.DeviceConfig, error) {
	if confDir == "" {
		confDir = common.ConfigDirectory
	}
	dir := filepath.Join(confDir, common.DevicesDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "config: list %s", dir)
	}

	var configs []models.DeviceConfig
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			os.Remove(path)
			continue
		}
		if _, ok := raw["reader_kind"]; !ok {
			os.Remove(path)
			continue
		}
		cfg := models.DeviceConfig{}
		if err := json.Unmarshal(data, &cfg); err != nil {
			os.Remove(path)
			continue
		}
		cfg.Name = toUpper(cfg.Name)
		if err := cfg.Validate(); err != nil {
			os.Remove(path)
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
