// Package install wires a sensor, a sampling engine and a power-policy
// framework together once at startup.
package install

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nergy-se/powersampler/pkg/api/v1/power"
	"github.com/nergy-se/powersampler/pkg/policy"
	"github.com/nergy-se/powersampler/pkg/sampler"
	"github.com/nergy-se/powersampler/pkg/sensor"
)

var ErrNoFramework = errors.New("no power policy framework")

type Params struct {
	Sensor     sensor.Sensor
	Channel    int
	Converter  sampler.Converter
	Framework  policy.Framework
	Interval   time.Duration
	WindowSize int
	Task       sampler.TaskOptions
	Thresholds power.Thresholds
	Clock      clock.Clock
}

// Install enables the sensor channel, starts the sampling engine and
// registers it with the framework. Nothing is registered when the engine
// cannot be created, and the engine is stopped again if registration
// fails. The engine runs until ctx is done.
func Install(ctx context.Context, p Params) (*sampler.Engine, error) {
	if p.Sensor == nil {
		return nil, fmt.Errorf("%w: no sensor device", sensor.ErrUnavailable)
	}
	if p.Framework == nil {
		return nil, ErrNoFramework
	}

	err := p.Sensor.Enable(p.Channel)
	if err != nil {
		if errors.Is(err, sensor.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: error enabling channel %d: %w", sensor.ErrUnavailable, p.Channel, err)
	}

	if p.Interval == 0 {
		p.Interval = sampler.DefaultInterval
	}

	engine, err := sampler.New(sampler.Options{
		Sensor:     p.Sensor,
		Channel:    p.Channel,
		Converter:  p.Converter,
		Interval:   p.Interval,
		WindowSize: p.WindowSize,
		Notifier:   p.Framework,
		Task:       p.Task,
		Clock:      p.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("can't create task for power: %w", err)
	}

	err = engine.Start(ctx)
	if err != nil {
		return nil, err
	}

	err = p.Framework.Register(engine, p.Thresholds)
	if err != nil {
		engine.Stop()
		return nil, fmt.Errorf("error registering power source: %w", err)
	}

	return engine, nil
}
