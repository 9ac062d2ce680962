package app

import (
	"context"
	"fmt"
	"sync"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/nergy-se/powersampler/pkg/api/v1/config"
	"github.com/nergy-se/powersampler/pkg/install"
	"github.com/nergy-se/powersampler/pkg/modbusclient"
	"github.com/nergy-se/powersampler/pkg/mqtt"
	"github.com/nergy-se/powersampler/pkg/policy"
	"github.com/nergy-se/powersampler/pkg/sampler"
	"github.com/nergy-se/powersampler/pkg/sensor"
	"github.com/sirupsen/logrus"
)

type App struct {
	wg     *sync.WaitGroup
	config *config.CliConfig

	engine    *sampler.Engine
	broker    *mqttv2.Server
	framework policy.Framework
	closers   []func() error
}

func New(config *config.CliConfig) *App {
	return &App{
		wg:     &sync.WaitGroup{},
		config: config,
	}
}

func (a *App) Start(ctx context.Context) error {
	conv, err := a.config.Converter()
	if err != nil {
		return err
	}
	task, err := a.config.Task()
	if err != nil {
		return err
	}

	s, err := a.sensor(ctx)
	if err != nil {
		return err
	}

	a.framework, err = a.policy(ctx)
	if err != nil {
		a.close()
		return err
	}

	a.engine, err = install.Install(ctx, install.Params{
		Sensor:     s,
		Channel:    a.config.Channel,
		Converter:  conv,
		Framework:  a.framework,
		Interval:   a.config.SampleInterval(),
		WindowSize: a.config.WindowSize,
		Task:       task,
		Thresholds: a.config.Thresholds(),
	})
	if err != nil {
		a.close()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.engine.Wait()
		a.close()
	}()
	return nil
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logrus.Errorf("error closing: %s", err)
		}
	}
}

func (a *App) Wait() {
	a.wg.Wait()
}

// Engine is nil until Start succeeds.
func (a *App) Engine() *sampler.Engine {
	return a.engine
}

// Broker is nil unless PolicyType is mqtt.
func (a *App) Broker() *mqttv2.Server {
	return a.broker
}

func (a *App) sensor(ctx context.Context) (sensor.Sensor, error) {
	switch a.config.SensorType {
	case sensor.TypeModbus:
		client, err := modbusclient.Dial(a.config.Address, byte(a.config.SlaveID), a.config.Timeout())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", sensor.ErrUnavailable, err)
		}
		m := sensor.NewModbus(client)
		a.closers = append(a.closers, m.Close)
		return m, nil
	case sensor.TypeSimulated:
		s := sensor.NewSimulated(uint32(a.config.SimulatedRaw), uint32(a.config.SimulatedJitter))
		if a.config.SimulatedAddress != "" {
			s.Serve(ctx, a.wg, a.config.SimulatedAddress)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown sensor type %q", sensor.ErrUnavailable, a.config.SensorType)
}

func (a *App) policy(ctx context.Context) (policy.Framework, error) {
	switch a.config.PolicyType {
	case "mqtt":
		server, err := mqtt.Start(ctx, a.wg, a.config.MqttAddress)
		if err != nil {
			return nil, fmt.Errorf("error starting mqtt broker: %w", err)
		}
		a.broker = server
		return policy.NewMQTT(server, a.config.TopicPrefix, a.config.TaskName), nil
	case "log":
		return policy.NewLog(a.config.TaskName), nil
	}
	return nil, fmt.Errorf("unknown policy type %q", a.config.PolicyType)
}
