// -*- mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a structured logrus entry tagged with component.
func NewLogger(component string) *logrus.Entry {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := logrus.ParseLevel(lvl); err == nil {
			base.SetLevel(parsed)
		}
	}
	return base.WithField("component", component)
}
