// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// IdleFlush is the quiet-period after which a partial frame is
// discarded, so a length-prefixed or binary-framed driver never wakes
// up to a poisoned buffer.
const IdleFlush = 300 * time.Millisecond

// Serial is the Serial transport adapter. Port == AutoPort triggers a
// VID/PID scan instead of opening an explicit device path.
type Serial struct {
	Port string
	Baud int
	VID  uint16
	PID  uint16

	mu        sync.Mutex
	port      *serial.Port
	connected bool
	lastByte  time.Time
}

func NewSerial(port string, baud int, vid, pid uint16) *Serial {
	return &Serial{Port: port, Baud: baud, VID: vid, PID: pid}
}

func (s *Serial) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := s.Port
	if resolved == "" || strings.EqualFold(resolved, "AUTO") {
		var err error
		resolved, err = resolveAutoPort(s.VID, s.PID)
		if err != nil {
			return errors.Wrap(err, "serial: auto-detect")
		}
	}

	cfg := &serial.Config{
		Name:        resolved,
		Baud:        s.Baud,
		ReadTimeout: IdleFlush,
	}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return errors.Wrapf(err, "serial: open %s", resolved)
	}
	s.port = p
	s.connected = true
	s.lastByte = time.Now()
	return nil
}

func (s *Serial) Read(p []byte) (int, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return 0, errNotConnected("serial")
	}

	n, err := port.Read(p)
	if err != nil {
		s.markDisconnected()
		return n, err
	}
	if n == 0 {
		// ReadTimeout elapsed with no bytes: the idle-flush window has
		// passed since the last byte, signal the caller to drop any
		// partial frame it was assembling.
		if time.Since(s.lastByte) >= IdleFlush {
			return 0, errIdleFlush
		}
		return 0, nil
	}
	s.lastByte = time.Now()
	return n, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return 0, errNotConnected("serial")
	}
	return port.Write(p)
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *Serial) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Serial) markDisconnected() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

// errIdleFlush signals "no bytes for IdleFlush": drivers reading
// frame-oriented protocols use this to reset any in-progress frame
// assembly without treating it as a transport failure.
var errIdleFlush = fmt.Errorf("serial: idle flush")

func IsIdleFlush(err error) bool { return err == errIdleFlush }

// resolveAutoPort scans USB serial adapters for one whose VID/PID
// matches, using gousb to confirm the device is actually present on
// the bus and Linux's tty sysfs tree to map it to a /dev/ttyUSB* or
// /dev/ttyACM* path. Other OSes fall back to failing fast: the caller
// will back off and retry, which tolerates a device that appears
// after this process starts.
func resolveAutoPort(vid, pid uint16) (string, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return "", errors.Wrapf(err, "scanning USB bus for %04x:%04x", vid, pid)
	}
	if dev == nil {
		return "", fmt.Errorf("no USB device matching %04x:%04x", vid, pid)
	}
	defer dev.Close()

	entries, err := os.ReadDir("/sys/class/tty")
	if err != nil {
		return "", errors.Wrap(err, "reading /sys/class/tty")
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "ttyUSB") && !strings.HasPrefix(name, "ttyACM") {
			continue
		}
		base := filepath.Join("/sys/class/tty", name, "device")
		gotVID, gotPID, ok := readUSBIDs(base)
		if !ok {
			continue
		}
		if gotVID == vid && gotPID == pid {
			return filepath.Join("/dev", name), nil
		}
	}
	return "", fmt.Errorf("USB device %04x:%04x present but no matching tty node found", vid, pid)
}

// readUSBIDs walks up the sysfs device tree (serial interfaces sit a
// couple of levels below the USB device node) looking for
// idVendor/idProduct.
func readUSBIDs(devicePath string) (vid, pid uint16, ok bool) {
	dir := devicePath
	for i := 0; i < 4; i++ {
		v, errV := os.ReadFile(filepath.Join(dir, "idVendor"))
		p, errP := os.ReadFile(filepath.Join(dir, "idProduct"))
		if errV == nil && errP == nil {
			vi, err1 := strconv.ParseUint(strings.TrimSpace(string(v)), 16, 16)
			pi, err2 := strconv.ParseUint(strings.TrimSpace(string(p)), 16, 16)
			if err1 == nil && err2 == nil {
				return uint16(vi), uint16(pi), true
			}
		}
		resolved, err := filepath.EvalSymlinks(filepath.Join(dir, ".."))
		if err != nil {
			break
		}
		dir = resolved
	}
	return 0, 0, false
}
