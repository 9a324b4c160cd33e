// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package sinks

import "fmt"

func errUnexpectedStatus(code int) error {
	return fmt.Errorf("unexpected status %d", code)
}
