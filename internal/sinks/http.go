// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/common"
)

// HTTPSink POSTs tags and events as JSON to a fixed endpoint. A 2xx
// response is success; anything else is a SinkError.
type HTTPSink struct {
	url    string
	client *http.Client
}

func NewHTTPSink(postURL string) *HTTPSink {
	return &HTTPSink{
		url:    postURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSink) Name() string { return "http" }

func (s *HTTPSink) PublishTag(ctx context.Context, tag interface{}) error {
	return s.post(ctx, tag)
}

func (s *HTTPSink) PublishEvent(ctx context.Context, event interface{}) error {
	return s.post(ctx, event)
}

func (s *HTTPSink) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return common.NewSinkError("http", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return common.NewSinkError("http", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return common.NewSinkError("http", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return common.NewSinkError("http", errUnexpectedStatus(resp.StatusCode))
	}
	return nil
}

func (s *HTTPSink) Close() error { return nil }
