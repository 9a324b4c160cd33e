// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package sinks

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/pkg/errors"
)

// MQTTSink publishes tags and events as JSON at QoS 0 to a broker URL
// of the form mqtt://host:port/topic.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

// NewMQTTSink dials brokerURL and returns a ready publisher. The path
// component of brokerURL is the topic prefix; tags publish under
// "<topic>/tags" and events under "<topic>/events".
func NewMQTTSink(brokerURL string) (*MQTTSink, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, errors.Wrap(err, "sinks: parse mqtt url")
	}
	topic := u.Path
	if topic == "" {
		topic = "/xbridge"
	}
	broker := &url.URL{Scheme: "tcp", Host: u.Host}
	if u.Scheme == "tcps" || u.Scheme == "ssl" {
		broker.Scheme = "ssl"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker.String()).
		SetClientID("xbridge-middleware").
		SetAutoReconnect(true).
		SetConnectTimeout(common.TCPDialTimeout)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pw, ok := u.User.Password(); ok {
			opts.SetPassword(pw)
		}
	}

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(5 * time.Second) {
		return nil, errors.New("sinks: mqtt connect timeout")
	}
	if err := tok.Error(); err != nil {
		return nil, errors.Wrap(err, "sinks: mqtt connect")
	}

	return &MQTTSink{client: client, topic: topic}, nil
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) PublishTag(ctx context.Context, tag interface{}) error {
	return s.publish(s.topic+"/tags", tag)
}

func (s *MQTTSink) PublishEvent(ctx context.Context, event interface{}) error {
	return s.publish(s.topic+"/events", event)
}

func (s *MQTTSink) publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return common.NewSinkError("mqtt", err)
	}
	tok := s.client.Publish(topic, 0, false, data)
	if !tok.WaitTimeout(common.TCPDialTimeout) {
		return common.NewSinkError("mqtt", errors.New("publish timeout"))
	}
	if err := tok.Error(); err != nil {
		return common.NewSinkError("mqtt", err)
	}
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
