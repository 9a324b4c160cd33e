// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package ur4 implements the UR4 binary framed TCP protocol: an
// ordered, fail-closed configuration checklist followed by inventory
// streaming, GPI polling and periodic temperature reads.
package ur4

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/pkg/driver"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	"github.com/ghpascon/xbridge-middleware/pkg/transport"
)

var framePrefix = []byte{0xA5, 0x5A}
var frameSuffix = []byte{0x0D, 0x0A}

const (
	cmdSetRegion         = 0x01
	cmdSetInventoryMode  = 0x02
	cmdSetSessionTarget  = 0x03
	cmdSetAntennaMask    = 0x04
	cmdSetCommandMode    = 0x05
	cmdSetTagFocus       = 0x06
	cmdSetFastID         = 0x07
	cmdSetFastInventory  = 0x08
	cmdSetBuzzer         = 0x09
	cmdSetRFLink         = 0x0A
	cmdSetCW             = 0x0B
	cmdGPOOff            = 0x0C
	cmdSetAntennaPower   = 0x0D
	cmdInventoryStart    = 0x80
	cmdInventoryStop     = 0x81
	cmdReadGPI           = 0x85
	cmdReadTemperature   = 0x86

	respTagEvent    = 0x83
	respSuccess     = 0x01
	tagEventPayload = 27 // EPC[12] + TID[12] + RSSI[2] + ANT[1]
)

const gpiPollInterval = 200 * time.Millisecond // ~5 Hz
const tempPollInterval = 10 * time.Second

// setupStep is one entry in the ordered CONFIGURING checklist.
type setupStep struct {
	name    string
	opcode  byte
	payload func(d *Driver) []byte
}

// Driver implements the UR4 binary framed protocol.
type Driver struct {
	device    string
	transport transport.Transport
	cb        driver.Callbacks
	reader    models.ReaderParams

	connected int32
	reading   int32

	mu      sync.Mutex
	gpiPrev map[int]bool
}

func New(device string, t transport.Transport, cb driver.Callbacks, reader models.ReaderParams) *Driver {
	return &Driver{device: device, transport: t, cb: cb, reader: reader, gpiPrev: make(map[int]bool)}
}

var _ driver.Driver = (*Driver)(nil)

func (d *Driver) setupChecklist() []setupStep {
	return []setupStep{
		{"region", cmdSetRegion, func(d *Driver) []byte { return []byte{0x01} }},
		{"inventory_mode", cmdSetInventoryMode, func(d *Driver) []byte { return []byte{0x00} }},
		{"session_target", cmdSetSessionTarget, func(d *Driver) []byte {
			return []byte{byte(d.reader.Session), 0x00}
		}},
		{"antenna_mask", cmdSetAntennaMask, func(d *Driver) []byte { return []byte{d.antennaMask()} }},
		{"command_mode", cmdSetCommandMode, func(d *Driver) []byte { return []byte{0x01} }},
		{"tag_focus", cmdSetTagFocus, func(d *Driver) []byte { return []byte{0x00} }},
		{"fast_id", cmdSetFastID, func(d *Driver) []byte { return []byte{0x00} }},
		{"fast_inventory", cmdSetFastInventory, func(d *Driver) []byte { return []byte{0x01} }},
		{"buzzer", cmdSetBuzzer, func(d *Driver) []byte { return boolByte(d.reader.Buzzer) }},
		{"rf_link", cmdSetRFLink, func(d *Driver) []byte { return []byte{0x00} }},
		{"cw", cmdSetCW, func(d *Driver) []byte { return []byte{0x00} }},
		{"gpo_off", cmdGPOOff, func(d *Driver) []byte { return []byte{0x00} }},
		{"antenna_power", cmdSetAntennaPower, func(d *Driver) []byte { return d.antennaPowerPayload() }},
	}
}

func boolByte(b bool) []byte {
	if b {
		return []byte{0x01}
	}
	return []byte{0x00}
}

func (d *Driver) antennaMask() byte {
	var mask byte
	for ant, cfg := range d.reader.Antennas {
		if cfg.Active && ant >= 1 && ant <= 8 {
			mask |= 1 << uint(ant-1)
		}
	}
	return mask
}

// antennaPowerPayload encodes each active antenna's power as
// power*100 big-endian.
func (d *Driver) antennaPowerPayload() []byte {
	out := make([]byte, 0, len(d.reader.Antennas)*3)
	for ant, cfg := range d.reader.Antennas {
		if !cfg.Active {
			continue
		}
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(cfg.Power*100))
		out = append(out, byte(ant))
		out = append(out, buf...)
	}
	return out
}

func (d *Driver) Connect(ctx context.Context) error {
	if err := d.transport.Connect(ctx); err != nil {
		return err
	}
	atomic.StoreInt32(&d.connected, 1)
	defer atomic.StoreInt32(&d.connected, 0)
	d.cb.OnConnect(d.device)
	defer d.cb.OnDisconnect(d.device)
	defer d.transport.Close()

	respCh := make(chan []byte, 4)
	readErrCh := make(chan error, 1)
	go func() { readErrCh <- d.readLoop(respCh) }()

	if err := d.runSetup(ctx, respCh); err != nil {
		d.transport.Close()
		<-readErrCh
		return err
	}

	if d.reader.StartReading {
		d.writeFrame(cmdInventoryStart, nil)
		atomic.StoreInt32(&d.reading, 1)
		d.cb.OnStart(d.device)
	}

	stopPolls := make(chan struct{})
	go d.gpiPollLoop(ctx, stopPolls)
	go d.tempPollLoop(ctx, stopPolls)
	defer close(stopPolls)

	for {
		select {
		case <-ctx.Done():
			d.transport.Close()
			<-readErrCh
			return ctx.Err()
		case err := <-readErrCh:
			return err
		case frame := <-respCh:
			d.handleFrame(frame)
		}
	}
}

// runSetup walks the ordered checklist; any step without a reply
// within 500 ms fails the connection closed.
func (d *Driver) runSetup(ctx context.Context, respCh chan []byte) error {
	steps := d.setupChecklist()
	for i := 0; i < len(steps); {
		step := steps[i]
		d.writeFrame(step.opcode, step.payload(d))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-respCh:
			i++
		case <-time.After(common.UR4SetupStepTimeout):
			return common.NewProtocolTimeout(d.device, step.name)
		}
	}
	return nil
}

func (d *Driver) handleFrame(frame []byte) {
	if len(frame) == 0 {
		return
	}
	opcode := frame[0]
	payload := frame[1:]
	switch opcode {
	case respTagEvent:
		d.handleTagEvent(payload)
	case cmdReadGPI:
		d.handleGPIResponse(payload)
	}
}

// handleTagEvent decodes EPC[12]/TID[12]/RSSI[2 signed]/ANT[1] and
// drops readings below the antenna's configured RSSI floor.
func (d *Driver) handleTagEvent(payload []byte) {
	if len(payload) < tagEventPayload {
		return
	}
	epc := payload[0:12]
	tid := payload[12:24]
	rssiRaw := int16(binary.BigEndian.Uint16(payload[24:26]))
	ant := int(payload[26])
	if ant <= 0 {
		ant = 1
	}
	rssi := int(rssiRaw)

	if cfg, ok := d.reader.Antennas[ant]; ok && cfg.MinRSSI != 0 && rssi < cfg.MinRSSI {
		return
	}

	d.cb.OnTag(models.RawTag{
		Device: d.device,
		EPC:    hexEncode(epc),
		TID:    hexEncode(tid),
		Ant:    ant,
		RSSI:   &rssi,
	})
}

func (d *Driver) gpiPollLoop(ctx context.Context, stop <-chan struct{}) {
	if !d.reader.GPITrigger.Active {
		return
	}
	ticker := time.NewTicker(gpiPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			d.pollGPI()
		}
	}
}

// pollGPI requests current GPI state; the reply arrives asynchronously
// through readLoop and is handled by handleGPIResponse.
func (d *Driver) pollGPI() {
	d.writeFrame(cmdReadGPI, nil)
}

// gpiPinState reports whether pin (1-8) is set in the GPI read
// response's bitmask byte.
func gpiPinState(bits byte, pin int) bool {
	if pin < 1 || pin > 8 {
		return false
	}
	return bits&(1<<uint(pin-1)) != 0
}

// handleGPIResponse evaluates both the start and stop triggers against
// the real pin states carried in a cmdReadGPI reply, applying
// stop-wins-on-tie precedence when both triggers watch the same
// pin/state pair.
func (d *Driver) handleGPIResponse(payload []byte) {
	trig := d.reader.GPITrigger
	if !trig.Active || len(payload) < 1 {
		return
	}
	bits := payload[0]
	stopState := gpiPinState(bits, trig.Stop.Pin)
	startState := gpiPinState(bits, trig.Start.Pin)

	if trig.Stop.Pin == trig.Start.Pin && trig.Stop.State == trig.Start.State {
		d.evaluateGPIEdge(trig.Stop.Pin, stopState, trig.Stop.State, false)
		return
	}
	d.evaluateGPIEdge(trig.Stop.Pin, stopState, trig.Stop.State, false)
	d.evaluateGPIEdge(trig.Start.Pin, startState, trig.Start.State, true)
}

// evaluateGPIEdge fires start/stop inventory when pin transitions into
// wantState. A read that finds the pin already at wantState (no
// transition) does not re-fire.
func (d *Driver) evaluateGPIEdge(pin int, current, wantState, start bool) {
	d.mu.Lock()
	prev, seen := d.gpiPrev[pin]
	d.gpiPrev[pin] = current
	d.mu.Unlock()

	if current != wantState {
		return
	}
	if seen && prev == wantState {
		return
	}
	if start {
		d.writeFrame(cmdInventoryStart, nil)
		atomic.StoreInt32(&d.reading, 1)
		d.cb.OnStart(d.device)
	} else {
		d.writeFrame(cmdInventoryStop, nil)
		atomic.StoreInt32(&d.reading, 0)
		d.cb.OnStop(d.device)
	}
}

func (d *Driver) tempPollLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(tempPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			d.writeFrame(cmdReadTemperature, nil)
		}
	}
}

// readLoop scans the byte stream for A5 5A ... BCC 0D 0A frames and
// pushes the decoded opcode+payload onto out.
func (d *Driver) readLoop(out chan<- []byte) error {
	buf := make([]byte, 0, 256)
	tmp := make([]byte, 256)
	for {
		n, err := d.transport.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			for {
				frame, rest, ok := extractFrame(buf)
				if !ok {
					break
				}
				buf = rest
				if frame != nil {
					out <- frame
				}
			}
		}
		if err != nil {
			if transport.IsIdleFlush(err) {
				buf = buf[:0] // idle-flush purges any partial frame
				continue
			}
			return err
		}
	}
}

// extractFrame finds the first complete A5 5A ... 0D 0A frame in buf,
// verifies its BCC, and returns the opcode+payload plus the
// unconsumed remainder. ok is false when no complete frame is present
// yet; frame is nil (but ok true) when a frame failed its checksum.
func extractFrame(buf []byte) (frame []byte, rest []byte, ok bool) {
	start := indexOf(buf, framePrefix)
	if start < 0 {
		if len(buf) > 1 {
			return nil, buf[len(buf)-1:], false
		}
		return nil, buf, false
	}
	search := buf[start+2:]
	end := indexOf(search, frameSuffix)
	if end < 0 {
		return nil, buf[start:], false
	}
	body := search[:end] // everything between prefix and suffix, including BCC
	if len(body) < 1 {
		return nil, buf[start+2+end+2:], true
	}
	payload := body[:len(body)-1]
	bcc := body[len(body)-1]
	if xorAll(payload) != bcc {
		return nil, buf[start+2+end+2:], true
	}
	return payload, buf[start+2+end+2:], true
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func xorAll(b []byte) byte {
	var x byte
	for _, v := range b {
		x ^= v
	}
	return x
}

func (d *Driver) writeFrame(opcode byte, payload []byte) {
	body := append([]byte{opcode}, payload...)
	bcc := xorAll(body)
	frame := make([]byte, 0, 2+len(body)+1+2)
	frame = append(frame, framePrefix...)
	frame = append(frame, body...)
	frame = append(frame, bcc)
	frame = append(frame, frameSuffix...)
	_, _ = d.transport.Write(frame)
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

func (d *Driver) IsConnected() bool  { return atomic.LoadInt32(&d.connected) == 1 }
func (d *Driver) IsReading() bool    { return atomic.LoadInt32(&d.reading) == 1 }
func (d *Driver) IsRFIDReader() bool { return true }

func (d *Driver) StartInventory(ctx context.Context) error {
	d.writeFrame(cmdInventoryStart, nil)
	atomic.StoreInt32(&d.reading, 1)
	d.cb.OnStart(d.device)
	return nil
}

func (d *Driver) StopInventory(ctx context.Context) error {
	d.writeFrame(cmdInventoryStop, nil)
	atomic.StoreInt32(&d.reading, 0)
	d.cb.OnStop(d.device)
	return nil
}

func (d *Driver) ClearTags(ctx context.Context) error { return nil }

func (d *Driver) WriteEPC(ctx context.Context, req driver.WriteEPCRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	wasReading := d.IsReading()
	if wasReading {
		_ = d.StopInventory(ctx)
	}
	// Byte-frame write command: opcode + 24-hex new EPC + 8-hex password.
	payload := append([]byte{}, []byte(req.NewEPC)...)
	payload = append(payload, []byte(req.Password)...)
	d.writeFrame(0x40, payload)
	if wasReading {
		_ = d.StartInventory(ctx)
	}
	return nil
}

func (d *Driver) WriteGPO(ctx context.Context, req driver.WriteGPORequest) error {
	control := byte(0x00)
	if req.Control == driver.GPOPulsed {
		control = 0x01
	}
	state := byte(0x00)
	if req.State {
		state = 0x01
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(req.TimeMS))
	payload := []byte{byte(req.Pin), state, control}
	payload = append(payload, buf...)
	d.writeFrame(0x41, payload)
	return nil
}

func (d *Driver) Disconnect(ctx context.Context) error {
	if d.IsReading() {
		_ = d.StopInventory(ctx)
	}
	return d.transport.Close()
}
