package policy

import (
	"encoding/json"
	"fmt"

	"github.com/nergy-se/powersampler/pkg/api/v1/power"
	"github.com/sirupsen/logrus"
)

// Publisher is satisfied by a mochi server with an inline client.
type Publisher interface {
	Publish(topic string, payload []byte, retain bool, qos byte) error
}

// MQTT publishes thresholds once, retained, and a power.Reading on every
// change notification.
type MQTT struct {
	registration
	publisher Publisher
	prefix    string
	name      string
}

func NewMQTT(publisher Publisher, prefix, name string) *MQTT {
	return &MQTT{
		publisher: publisher,
		prefix:    prefix,
		name:      name,
	}
}

func (m *MQTT) PowerTopic() string {
	return fmt.Sprintf("%s/%s/power", m.prefix, m.name)
}

func (m *MQTT) ThresholdsTopic() string {
	return fmt.Sprintf("%s/%s/thresholds", m.prefix, m.name)
}

func (m *MQTT) Register(src Source, thresholds power.Thresholds) error {
	b, err := json.Marshal(thresholds)
	if err != nil {
		return err
	}
	err = m.register(src, thresholds)
	if err != nil {
		return err
	}
	err = m.publisher.Publish(m.ThresholdsTopic(), b, true, 1)
	if err != nil {
		m.mutex.Lock()
		m.src = nil
		m.mutex.Unlock()
		return fmt.Errorf("error publishing thresholds: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"topic":         m.ThresholdsTopic(),
		"totalCapacity": thresholds.TotalCapacity,
		"alertLevel":    thresholds.AlertLevel,
	}).Info("policy: registered power source")
	return nil
}

func (m *MQTT) OnPowerChanged() {
	r, ok := m.reading()
	if !ok {
		return
	}
	if r.Name == "" {
		r.Name = m.name
	}
	b, err := json.Marshal(r)
	if err != nil {
		logrus.Errorf("policy: error encoding reading: %s", err)
		return
	}
	err = m.publisher.Publish(m.PowerTopic(), b, false, 0)
	if err != nil {
		logrus.WithError(err).Warn("policy: error publishing power")
	}
}
