// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package transport

import "bytes"

// LineReader accumulates bytes off a Transport into newline-terminated
// lines. Unlike bufio.Scanner, it treats the Serial adapter's idle-
// flush signal as "no data yet" rather than a fatal read error, since
// ASCII line protocols (X714, generic passthrough) see normal gaps
// between reader transmissions that are shorter than a full line.
type LineReader struct {
	t   Transport
	buf bytes.Buffer
	tmp [256]byte
}

func NewLineReader(t Transport) *LineReader {
	return &LineReader{t: t}
}

// ReadLine blocks until a full line (without its trailing newline) is
// available, or a non-idle-flush error occurs.
func (r *LineReader) ReadLine() (string, error) {
	for {
		if line, ok := r.takeLine(); ok {
			return line, nil
		}
		n, err := r.t.Read(r.tmp[:])
		if n > 0 {
			r.buf.Write(r.tmp[:n])
			if line, ok := r.takeLine(); ok {
				return line, nil
			}
		}
		if err != nil {
			if IsIdleFlush(err) {
				continue
			}
			return "", err
		}
	}
}

func (r *LineReader) takeLine() (string, bool) {
	data := r.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		return "", false
	}
	line := string(bytes.TrimRight(data[:idx], "\r"))
	r.buf.Next(idx + 1)
	return line, true
}
