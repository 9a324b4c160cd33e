// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/stretchr/testify/assert"
)

type fakeDriver struct {
	connectCount   int32
	disconnectCount int32
	connected      int32
	reading        int32
	blockUntilCtx  bool
}

func (d *fakeDriver) Connect(ctx context.Context) error {
	atomic.AddInt32(&d.connectCount, 1)
	atomic.StoreInt32(&d.connected, 1)
	defer atomic.StoreInt32(&d.connected, 0)
	<-ctx.Done()
	return ctx.Err()
}
func (d *fakeDriver) IsConnected() bool   { return atomic.LoadInt32(&d.connected) == 1 }
func (d *fakeDriver) IsReading() bool     { return atomic.LoadInt32(&d.reading) == 1 }
func (d *fakeDriver) IsRFIDReader() bool  { return true }
func (d *fakeDriver) StartInventory(ctx context.Context) error { return nil }
func (d *fakeDriver) StopInventory(ctx context.Context) error  { return nil }
func (d *fakeDriver) ClearTags(ctx context.Context) error      { return nil }
func (d *fakeDriver) WriteEPC(ctx context.Context, req driver.WriteEPCRequest) error { return nil }
func (d *fakeDriver) WriteGPO(ctx context.Context, req driver.WriteGPORequest) error { return nil }
func (d *fakeDriver) Disconnect(ctx context.Context) error {
	atomic.AddInt32(&d.disconnectCount, 1)
	return nil
}

func TestSupervisorConnectsThenStopsCleanly(t *testing.T) {
	d := &fakeDriver{}
	sv := New("R1", d, common.NewLogger("test"), time.Second)
	sv.Start()

	assert.Eventually(t, func() bool { return d.IsConnected() }, time.Second, 5*time.Millisecond)
	sv.Stop()
	assert.False(t, d.IsConnected())
	assert.Equal(t, int32(1), atomic.LoadInt32(&d.connectCount))
}

func TestSupervisorStateReflectsDriver(t *testing.T) {
	d := &fakeDriver{}
	sv := New("R1", d, common.NewLogger("test"), time.Second)
	assert.Equal(t, StateDisconnected, sv.State())

	atomic.StoreInt32(&d.connected, 1)
	assert.Equal(t, StateConnected, sv.State())

	atomic.StoreInt32(&d.reading, 1)
	assert.Equal(t, StateReading, sv.State())
}
