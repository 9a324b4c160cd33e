// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ControlTimeout bounds REST control-plane requests; the streaming
// GET is intentionally unbounded.
const ControlTimeout = 3 * time.Second

// HTTPS is the HTTPS-stream transport adapter used by the R700_IOT
// driver: basic-auth REST control plane plus a single long-lived
// newline-delimited-JSON GET for the data plane. TLS verification is
// disabled because these readers serve a self-signed certificate.
type HTTPS struct {
	Host     string
	Username string
	Password string

	client *http.Client

	mu        sync.Mutex
	connected bool
	streamCancel context.CancelFunc
}

func NewHTTPS(host, username, password string) *HTTPS {
	return &HTTPS{
		Host:     host,
		Username: username,
		Password: password,
		client: &http.Client{
			Timeout: ControlTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed reader cert
			},
		},
	}
}

func (h *HTTPS) url(path string) string {
	return fmt.Sprintf("https://%s%s", h.Host, path)
}

func (h *HTTPS) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "https: marshal body")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.url(path), reader)
	if err != nil {
		return nil, errors.Wrap(err, "https: build request")
	}
	req.SetBasicAuth(h.Username, h.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.markDisconnected()
		return nil, errors.Wrapf(err, "https: %s %s", method, path)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return data, fmt.Errorf("https: %s %s returned %d: %s", method, path, resp.StatusCode, string(data))
	}
	return data, nil
}

func (h *HTTPS) Put(ctx context.Context, path string, body interface{}) error {
	_, err := h.do(ctx, http.MethodPut, path, body)
	return err
}

func (h *HTTPS) Post(ctx context.Context, path string, body interface{}) error {
	_, err := h.do(ctx, http.MethodPost, path, body)
	return err
}

// StreamNDJSON opens the long-lived GET and calls handle once per
// decoded line until ctx is canceled or the connection drops.
func (h *HTTPS) StreamNDJSON(ctx context.Context, path string, handle func(line []byte) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.mu.Lock()
	h.streamCancel = cancel
	h.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url(path), nil)
	if err != nil {
		return errors.Wrap(err, "https: build stream request")
	}
	req.SetBasicAuth(h.Username, h.Password)

	streamClient := &http.Client{Transport: h.client.Transport} // no timeout: long-lived
	resp, err := streamClient.Do(req)
	if err != nil {
		h.markDisconnected()
		return errors.Wrap(err, "https: stream connect")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("https: stream %s returned %d", path, resp.StatusCode)
	}

	h.mu.Lock()
	h.connected = true
	h.mu.Unlock()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := handle(line); err != nil {
			return err
		}
	}
	h.markDisconnected()
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "https: stream read")
	}
	return io.EOF
}

func (h *HTTPS) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *HTTPS) markDisconnected() {
	h.mu.Lock()
	h.connected = false
	h.mu.Unlock()
}

func (h *HTTPS) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = false
	if h.streamCancel != nil {
		h.streamCancel()
		h.streamCancel = nil
	}
	return nil
}
