// Package sensor provides the raw analog code sources the sampler reads from.
package sensor

import "errors"

// ErrUnavailable is returned when a sensor device cannot be resolved or
// its channel cannot be enabled.
var ErrUnavailable = errors.New("sensor unavailable")

// Sensor is an analog input returning unconverted codes.
type Sensor interface {
	Enable(channel int) error
	ReadRaw(channel int) (uint32, error)
}

const (
	TypeModbus    = "modbus"
	TypeSimulated = "simulated"
)
