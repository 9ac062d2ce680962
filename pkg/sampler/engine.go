// Package sampler periodically reads a power sensor and publishes a moving
// average of the converted samples.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nergy-se/powersampler/pkg/api/v1/power"
	"github.com/nergy-se/powersampler/pkg/convert"
	"github.com/nergy-se/powersampler/pkg/sensor"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

const (
	DefaultInterval   = 200 * time.Millisecond
	DefaultWindowSize = 8

	// consecutive identical read errors are reported again after this long
	errorReminder = 10 * time.Second
)

var (
	ErrTaskCreate     = errors.New("error creating sampling task")
	ErrAlreadyStarted = errors.New("sampler already started")
)

type State int32

const (
	StateUninitialized State = iota
	StatePriming
	StateSteady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePriming:
		return "priming"
	case StateSteady:
		return "steady"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Notifier is told after every published average. It gets no payload and
// should call back into the engine if it needs the value.
type Notifier interface {
	OnPowerChanged()
}

type NotifierFunc func()

func (f NotifierFunc) OnPowerChanged() { f() }

type Converter interface {
	Convert(raw uint32) int
}

// TaskOptions names the sampling task. StackSize and Priority are kept for
// parity with RTOS installs and only show up in logs.
type TaskOptions struct {
	Name      string
	StackSize uint32
	Priority  uint8
}

type Options struct {
	Sensor     sensor.Sensor
	Channel    int
	Converter  Converter
	Interval   time.Duration
	WindowSize int
	Notifier   Notifier
	Task       TaskOptions

	// Clock defaults to the wall clock.
	Clock  clock.Clock
	Logger logrus.FieldLogger
}

type Stats struct {
	State         State
	Ticks         uint64
	ReadErrors    uint64
	Notifications uint64
}

type Engine struct {
	sensor    sensor.Sensor
	channel   int
	converter Converter
	interval  time.Duration
	notifier  Notifier
	task      TaskOptions
	clock     clock.Clock
	log       logrus.FieldLogger

	mu      sync.Mutex
	window  *Window
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	current power.Cache
	state   atomic.Int32

	ticks         atomic.Uint64
	readErrors    atomic.Uint64
	notifications atomic.Uint64

	// only touched by the tick goroutine
	lastErr           error
	consecutiveErrors int
	reminderTicks     int
}

func New(opts Options) (*Engine, error) {
	if opts.Task.Name == "" {
		return nil, fmt.Errorf("%w: empty task name", ErrTaskCreate)
	}
	if opts.Sensor == nil {
		return nil, fmt.Errorf("%w: %w", ErrTaskCreate, sensor.ErrUnavailable)
	}
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Interval < 0 {
		return nil, fmt.Errorf("%w: negative interval %s", ErrTaskCreate, opts.Interval)
	}
	if opts.WindowSize == 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.WindowSize < 0 {
		return nil, fmt.Errorf("%w: negative window size %d", ErrTaskCreate, opts.WindowSize)
	}
	if opts.Converter == nil {
		opts.Converter = convert.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func() {})
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("task", opts.Task.Name)
	}

	reminder := int(errorReminder / opts.Interval)
	if reminder < 1 {
		reminder = 1
	}

	return &Engine{
		sensor:        opts.Sensor,
		channel:       opts.Channel,
		converter:     opts.Converter,
		interval:      opts.Interval,
		notifier:      opts.Notifier,
		task:          opts.Task,
		clock:         opts.Clock,
		log:           opts.Logger,
		window:        NewWindow(opts.WindowSize),
		reminderTicks: reminder,
	}, nil
}

// Start runs the sampling loop until ctx is done or Stop is called. The
// first tick, one interval from now, primes the window.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true
	ctx, e.cancel = context.WithCancel(ctx)

	// created before returning so the first interval is measured from Start
	ticker := e.clock.Ticker(e.interval)

	e.wg.Add(1)
	go e.run(ctx, ticker)

	e.log.WithFields(logrus.Fields{
		"interval":  e.interval.String(),
		"window":    e.window.Len(),
		"channel":   e.channel,
		"stackSize": e.task.StackSize,
		"priority":  e.task.Priority,
	}).Info("sampler: started")
	return nil
}

// Stop ends the sampling loop and waits for it to exit. It is a no-op on an
// engine that was never started.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}

// Wait blocks until the loop has exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context, ticker *clock.Ticker) {
	defer e.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			e.tick(now)
		case <-ctx.Done():
			e.log.Debug("sampler: stopped")
			return
		}
	}
}

func (e *Engine) tick(now time.Time) {
	e.ticks.Inc()

	raw, err := e.sensor.ReadRaw(e.channel)
	if err != nil {
		e.readFailed(err)
	} else {
		e.readOK()
	}

	e.mu.Lock()
	if e.State() != StateSteady {
		if err != nil {
			e.state.Store(int32(StatePriming))
			e.mu.Unlock()
			return
		}
		sample := e.converter.Convert(raw)
		e.window.Fill(sample)
		e.state.Store(int32(StateSteady))
		e.log.WithFields(logrus.Fields{"raw": raw, "power": sample}).Info("sampler: primed")
	} else if err == nil {
		e.window.Add(e.converter.Convert(raw))
	}
	avg := e.window.Average()
	e.mu.Unlock()

	e.current.Set(power.Reading{
		Name:  e.task.Name,
		Power: avg,
		Time:  now,
		Seq:   e.notifications.Inc(),
	})
	e.notifier.OnPowerChanged()
}

func (e *Engine) readFailed(err error) {
	e.readErrors.Inc()
	if e.lastErr != nil && err.Error() == e.lastErr.Error() {
		e.consecutiveErrors++
	} else {
		e.log.WithError(err).Warn("sampler: error reading sensor")
		e.consecutiveErrors = 0
	}
	if e.consecutiveErrors == e.reminderTicks {
		e.log.WithError(err).Errorf("sampler: unable to read sensor for %s", errorReminder)
		e.consecutiveErrors = 0
	}
	e.lastErr = err
}

func (e *Engine) readOK() {
	if e.lastErr != nil {
		e.log.Info("sampler: sensor read recovered")
	}
	e.lastErr = nil
	e.consecutiveErrors = 0
}

// Power returns the last published average, or 0 before priming.
func (e *Engine) Power() int {
	return e.current.Get().Power
}

func (e *Engine) Reading() power.Reading {
	return e.current.Get()
}

func (e *Engine) Name() string {
	return e.task.Name
}

// Samples returns the window contents oldest first.
func (e *Engine) Samples() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window.Samples()
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) Stats() Stats {
	return Stats{
		State:         e.State(),
		Ticks:         e.ticks.Load(),
		ReadErrors:    e.readErrors.Load(),
		Notifications: e.notifications.Load(),
	}
}
