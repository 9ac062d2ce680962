package sensor

import (
	"fmt"

	"github.com/nergy-se/powersampler/pkg/modbusclient"
	"github.com/sirupsen/logrus"
)

// Modbus reads raw codes from input registers, one register per channel.
type Modbus struct {
	client modbusclient.Client
}

func NewModbus(client modbusclient.Client) *Modbus {
	return &Modbus{client: client}
}

// Enable probes the channel register so an unreachable or misaddressed
// device fails at install instead of on every tick.
func (m *Modbus) Enable(channel int) error {
	if m.client == nil {
		return fmt.Errorf("%w: no modbus client", ErrUnavailable)
	}
	if channel < 0 || channel > 0xffff {
		return fmt.Errorf("%w: channel %d is not a register address", ErrUnavailable, channel)
	}
	v, err := m.client.ReadInputRegister(uint16(channel))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	logrus.WithFields(logrus.Fields{"channel": channel, "raw": v}).Debug("sensor: modbus channel enabled")
	return nil
}

func (m *Modbus) ReadRaw(channel int) (uint32, error) {
	v, err := m.client.ReadInputRegister(uint16(channel))
	return uint32(v), err
}

func (m *Modbus) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}
