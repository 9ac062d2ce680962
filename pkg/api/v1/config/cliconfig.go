package config

import (
	"fmt"
	"time"

	"github.com/nergy-se/powersampler/pkg/api/v1/power"
	"github.com/nergy-se/powersampler/pkg/convert"
	"github.com/nergy-se/powersampler/pkg/sampler"
)

type CliConfig struct {
	// SampleIntervalMs falls back to 200 when zero.
	SampleIntervalMs int `default:"200"`
	WindowSize       int `default:"8"`

	TaskName  string `default:"power"`
	StackSize int    `default:"1024"`
	Priority  int    `default:"20"`

	// SensorType is modbus or simulated.
	SensorType string `default:"modbus"`
	Address    string `default:"127.0.0.1:502"`
	SlaveID    int    `default:"1"`
	Channel    int    `default:"14"`
	TimeoutMs  int    `default:"1000"`

	SimulatedRaw     int    `default:"2048"`
	SimulatedJitter  int    `default:"0"`
	SimulatedAddress string `default:":8888"`

	ReferenceScale int     `default:"330"`
	FullScaleCode  int     `default:"4096"`
	Ratio          float64 `default:"6.2"`

	TotalCapacity int `default:"1260"`
	AlertLevel    int `default:"1110"`

	// PolicyType is mqtt or log.
	PolicyType  string `default:"mqtt"`
	MqttAddress string `default:":1883"`
	TopicPrefix string `default:"power"`

	LogLevel  string `default:"info"`
	LogFormat string `default:"text"`
}

func (c *CliConfig) SampleInterval() time.Duration {
	if c.SampleIntervalMs <= 0 {
		return sampler.DefaultInterval
	}
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

func (c *CliConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c *CliConfig) Converter() (convert.Linear, error) {
	return convert.New(int64(c.ReferenceScale), int64(c.FullScaleCode), c.Ratio)
}

func (c *CliConfig) Thresholds() power.Thresholds {
	return power.Thresholds{
		TotalCapacity: c.TotalCapacity,
		AlertLevel:    c.AlertLevel,
	}
}

func (c *CliConfig) Task() (sampler.TaskOptions, error) {
	if c.StackSize < 0 || int64(c.StackSize) > 0xffffffff {
		return sampler.TaskOptions{}, fmt.Errorf("stack size %d out of range", c.StackSize)
	}
	if c.Priority < 0 || c.Priority > 0xff {
		return sampler.TaskOptions{}, fmt.Errorf("priority %d out of range", c.Priority)
	}
	return sampler.TaskOptions{
		Name:      c.TaskName,
		StackSize: uint32(c.StackSize),
		Priority:  uint8(c.Priority),
	}, nil
}
