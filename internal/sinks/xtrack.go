// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package sinks

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
)

// xtrackTagEnvelope is the fixed XML wire shape the XTrack endpoint
// expects for a single tag observation.
type xtrackTagEnvelope struct {
	XMLName   xml.Name `xml:"TagEvent"`
	Device    string   `xml:"Device"`
	EPC       string   `xml:"EPC"`
	Antenna   int      `xml:"Antenna"`
	Timestamp string   `xml:"Timestamp"`
}

// XTrackSink POSTs a fixed XML envelope per tag to a legacy tracking
// endpoint. Non-tag events have no XTrack representation and are
// dropped silently.
type XTrackSink struct {
	url    string
	client *http.Client
}

func NewXTrackSink(postURL string) *XTrackSink {
	return &XTrackSink{
		url:    postURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *XTrackSink) Name() string { return "xtrack" }

func (s *XTrackSink) PublishTag(ctx context.Context, tag interface{}) error {
	t, ok := tag.(models.Tag)
	if !ok {
		return nil
	}
	env := xtrackTagEnvelope{
		Device:    t.Device,
		EPC:       t.EPC,
		Antenna:   t.Ant,
		Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
	}
	body, err := xml.Marshal(env)
	if err != nil {
		return common.NewSinkError("xtrack", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return common.NewSinkError("xtrack", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return common.NewSinkError("xtrack", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return common.NewSinkError("xtrack", errUnexpectedStatus(resp.StatusCode))
	}
	return nil
}

// PublishEvent is a no-op: XTrack only carries tag observations.
func (s *XTrackSink) PublishEvent(ctx context.Context, event interface{}) error { return nil }

func (s *XTrackSink) Close() error { return nil }
