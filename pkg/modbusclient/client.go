package modbusclient

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sirupsen/logrus"
)

type Client interface {
	// ReadInputRegister returns the unsigned 16 bit value at address.
	ReadInputRegister(address uint16) (uint16, error)
	// ReadInputRegisters returns count consecutive unsigned values.
	ReadInputRegisters(address, count uint16) ([]uint16, error)
	Close() error
}

type client struct {
	client modbus.Client
	close  func() error
}

func New(c modbus.Client, close func() error) *client {
	return &client{
		client: c,
		close:  close,
	}
}

// Dial connects a TCP handler to address. The handler reconnects on the
// next request after Close.
func Dial(address string, slaveID byte, timeout time.Duration) (*client, error) {
	handler := modbus.NewTCPClientHandler(address)
	handler.SlaveId = slaveID
	if timeout > 0 {
		handler.Timeout = timeout
	}
	err := handler.Connect()
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s: %w", address, err)
	}
	return New(modbus.NewClient(handler), handler.Close), nil
}

func (c *client) closeIfNeeded(e error) {
	if e == nil {
		return
	}

	if errors.Is(e, syscall.EPIPE) {
		logrus.Warn("reconnect due to broken pipe")
		err := c.close()
		if err != nil {
			logrus.Errorf("error closing client: %s", err)
		}
	}

	if errors.Is(e, os.ErrDeadlineExceeded) {
		logrus.Warn("reconnect due to i/o timeout")
		err := c.close()
		if err != nil {
			logrus.Errorf("error closing client: %s", err)
		}
	}
}

func (c *client) ReadInputRegister(address uint16) (uint16, error) {
	b, err := c.client.ReadInputRegisters(address, 1)
	if err != nil {
		c.closeIfNeeded(err)
		return 0, fmt.Errorf("error reading address %d: %w", address, err)
	}
	if len(b) != 2 {
		return 0, fmt.Errorf("error reading address %d: short response length %d", address, len(b))
	}
	return uint16(DecodeUnsigned(b)), nil
}

func (c *client) ReadInputRegisters(address, count uint16) ([]uint16, error) {
	b, err := c.client.ReadInputRegisters(address, count)
	if err != nil {
		c.closeIfNeeded(err)
		return nil, fmt.Errorf("error reading address %d: %w", address, err)
	}
	if len(b) != int(count)*2 {
		return nil, fmt.Errorf("error reading address %d: expected %d bytes got %d", address, count*2, len(b))
	}
	values := make([]uint16, count)
	for i := range values {
		values[i] = uint16(DecodeUnsigned(b[i*2 : i*2+2]))
	}
	return values, nil
}

func (c *client) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// DecodeUnsigned decodes a big endian unsigned value of 1, 2 or 4 bytes.
// Other lengths give 0.
func DecodeUnsigned(data []byte) uint32 {
	switch len(data) {
	case 1:
		return uint32(data[0])
	case 2:
		return uint32(binary.BigEndian.Uint16(data))
	case 4:
		return binary.BigEndian.Uint32(data)
	}
	return 0
}
