package install

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nergy-se/powersampler/pkg/api/v1/power"
	"github.com/nergy-se/powersampler/pkg/policy"
	"github.com/nergy-se/powersampler/pkg/sampler"
	"github.com/nergy-se/powersampler/pkg/sensor"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFramework struct {
	src           policy.Source
	thresholds    power.Thresholds
	registerErr   error
	registerCalls int
	notified      chan struct{}
	sync.Mutex
}

func newFakeFramework() *fakeFramework {
	return &fakeFramework{notified: make(chan struct{}, 100)}
}

func (f *fakeFramework) Register(src policy.Source, thresholds power.Thresholds) error {
	f.Lock()
	defer f.Unlock()
	f.registerCalls++
	if f.registerErr != nil {
		return f.registerErr
	}
	f.src = src
	f.thresholds = thresholds
	return nil
}

func (f *fakeFramework) OnPowerChanged() {
	f.notified <- struct{}{}
}

type failingSensor struct {
	enableErr error
}

func (f *failingSensor) Enable(channel int) error { return f.enableErr }
func (f *failingSensor) ReadRaw(channel int) (uint32, error) { return 0, nil }

var thresholds = power.Thresholds{TotalCapacity: power.DefaultTotalCapacity, AlertLevel: power.DefaultAlertLevel}

func TestInstall(t *testing.T) {
	mockClock := clock.NewMock()
	s := sensor.NewSimulated(2048, 0)
	fw := newFakeFramework()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine, err := Install(ctx, Params{
		Sensor:     s,
		Channel:    14,
		Framework:  fw,
		Task:       sampler.TaskOptions{Name: "power", StackSize: 1024, Priority: 20},
		Thresholds: thresholds,
		Clock:      mockClock,
	})
	require.NoError(t, err)

	fw.Lock()
	assert.Equal(t, thresholds, fw.thresholds)
	assert.Equal(t, 0, fw.src.Power())
	fw.Unlock()

	mockClock.Add(sampler.DefaultInterval)
	select {
	case <-fw.notified:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notification")
	}
	assert.Equal(t, 1023, fw.src.Power())

	cancel()
	engine.Wait()
}

func TestInstallFailures(t *testing.T) {
	var tests = []struct {
		name        string
		params      Params
		expectedErr error
		registered  bool
	}{
		{
			name:        "no sensor",
			params:      Params{Task: sampler.TaskOptions{Name: "power"}},
			expectedErr: sensor.ErrUnavailable,
		},
		{
			name:        "enable fails",
			params:      Params{Sensor: &failingSensor{enableErr: errors.New("no such device")}, Task: sampler.TaskOptions{Name: "power"}},
			expectedErr: sensor.ErrUnavailable,
		},
		{
			name:        "task create fails",
			params:      Params{Sensor: &failingSensor{}},
			expectedErr: sampler.ErrTaskCreate,
		},
		{
			name:        "negative interval",
			params:      Params{Sensor: &failingSensor{}, Task: sampler.TaskOptions{Name: "power"}, Interval: -time.Second},
			expectedErr: sampler.ErrTaskCreate,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			fw := newFakeFramework()
			tt.params.Framework = fw
			engine, err := Install(context.Background(), tt.params)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Nil(t, engine)
			assert.Equal(t, 0, fw.registerCalls)
		})
	}
}

func TestInstallNoFramework(t *testing.T) {
	_, err := Install(context.Background(), Params{Sensor: &failingSensor{}, Task: sampler.TaskOptions{Name: "power"}})
	assert.ErrorIs(t, err, ErrNoFramework)
}

func TestInstallRegisterFailureStopsEngine(t *testing.T) {
	fw := newFakeFramework()
	fw.registerErr = policy.ErrRegistered

	mockClock := clock.NewMock()
	engine, err := Install(context.Background(), Params{
		Sensor:    &failingSensor{},
		Framework: fw,
		Task:      sampler.TaskOptions{Name: "power"},
		Clock:     mockClock,
	})
	assert.ErrorIs(t, err, policy.ErrRegistered)
	assert.Nil(t, engine)
	assert.Equal(t, 1, fw.registerCalls)

	mockClock.Add(3 * sampler.DefaultInterval)
	assert.Len(t, fw.notified, 0)
}

func TestInstallTaskCreateFailureIsReturnedNotLogged(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	_, err := Install(context.Background(), Params{Sensor: &failingSensor{}, Framework: newFakeFramework()})
	assert.ErrorIs(t, err, sampler.ErrTaskCreate)
	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, entry.Level, entry.Message)
	}
}
