// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"os"
	"path/filepath"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/pkg/errors"
)

// readExample loads a single file from config/examples/<name>. Names
// are restricted to a single path segment so a caller cannot escape
// the examples directory.
func readExample(confDir, name string) ([]byte, error) {
	if confDir == "" {
		confDir = common.ConfigDirectory
	}
	if filepath.Base(name) != name {
		return nil, errors.Errorf("control: invalid example name %q", name)
	}
	path := filepath.Join(confDir, common.ExamplesDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "control: read example %s", name)
	}
	return data, nil
}

// listExamples returns the file names present under config/examples.
func listExamples(confDir string) ([]string, error) {
	if confDir == "" {
		confDir = common.ConfigDirectory
	}
	dir := filepath.Join(confDir, common.ExamplesDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "control: list %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
