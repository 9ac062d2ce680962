// Package policy hands the smoothed power value to the power-policy
// framework that owns thresholds and alerting.
package policy

import (
	"errors"
	"sync"

	"github.com/nergy-se/powersampler/pkg/api/v1/power"
	"github.com/sirupsen/logrus"
)

var ErrRegistered = errors.New("power source already registered")

// Source is re-queried by the framework on every change notification.
type Source interface {
	Power() int
}

// readingSource is implemented by sources that can also report when and
// in which tick the value was published.
type readingSource interface {
	Reading() power.Reading
}

type Framework interface {
	Register(src Source, thresholds power.Thresholds) error
	// OnPowerChanged is a no-op until Register succeeds.
	OnPowerChanged()
}

// registration is the shared once-only bookkeeping of a Framework.
type registration struct {
	src        Source
	thresholds power.Thresholds
	mutex      sync.RWMutex
}

func (r *registration) register(src Source, thresholds power.Thresholds) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.src != nil {
		return ErrRegistered
	}
	r.src = src
	r.thresholds = thresholds
	return nil
}

// reading returns false when nothing is registered yet.
func (r *registration) reading() (power.Reading, bool) {
	r.mutex.RLock()
	src := r.src
	r.mutex.RUnlock()
	if src == nil {
		return power.Reading{}, false
	}
	if rs, ok := src.(readingSource); ok {
		return rs.Reading(), true
	}
	return power.Reading{Power: src.Power()}, true
}

// Log is a Framework that only logs.
type Log struct {
	registration
	name string
}

func NewLog(name string) *Log {
	return &Log{name: name}
}

func (l *Log) Register(src Source, thresholds power.Thresholds) error {
	err := l.register(src, thresholds)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"name":          l.name,
		"totalCapacity": thresholds.TotalCapacity,
		"alertLevel":    thresholds.AlertLevel,
	}).Info("policy: registered power source")
	return nil
}

func (l *Log) OnPowerChanged() {
	r, ok := l.reading()
	if !ok {
		return
	}
	logrus.WithFields(logrus.Fields{"name": l.name, "power": r.Power, "seq": r.Seq}).Debug("policy: power changed")
}
