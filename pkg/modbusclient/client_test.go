package modbusclient

import (
	"errors"
	"syscall"
	"testing"

	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
)

func TestDecodeUnsigned(t *testing.T) {
	assert.Equal(t, uint32(0xe4), DecodeUnsigned([]byte{0xe4}))
	assert.Equal(t, uint32(2048), DecodeUnsigned([]byte{0x08, 0x00}))
	assert.Equal(t, uint32(0xffe4), DecodeUnsigned([]byte{0xff, 0xe4}))
	assert.Equal(t, uint32(514773), DecodeUnsigned([]byte{0x00, 0x07, 0xda, 0xd5}))
	assert.Equal(t, uint32(0), DecodeUnsigned(nil))
}

type fakeModbus struct {
	modbus.Client
	registers map[uint16]uint16
	err       error
	short     bool
}

func (f *fakeModbus) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.short {
		return []byte{0x01}, nil
	}
	b := make([]byte, 0, quantity*2)
	for i := uint16(0); i < quantity; i++ {
		v := f.registers[address+i]
		b = append(b, byte(v>>8), byte(v))
	}
	return b, nil
}

func TestReadInputRegister(t *testing.T) {
	c := New(&fakeModbus{registers: map[uint16]uint16{14: 2048, 15: 4095}}, nil)

	v, err := c.ReadInputRegister(14)
	assert.NoError(t, err)
	assert.Equal(t, uint16(2048), v)

	values, err := c.ReadInputRegisters(14, 2)
	assert.NoError(t, err)
	assert.Equal(t, []uint16{2048, 4095}, values)
}

func TestReadInputRegisterShort(t *testing.T) {
	c := New(&fakeModbus{short: true}, nil)
	_, err := c.ReadInputRegister(14)
	assert.Error(t, err)
}

func TestReadInputRegisterClosesOnBrokenPipe(t *testing.T) {
	closed := 0
	c := New(&fakeModbus{err: syscall.EPIPE}, func() error {
		closed++
		return nil
	})

	_, err := c.ReadInputRegister(14)
	assert.True(t, errors.Is(err, syscall.EPIPE))
	assert.Equal(t, 1, closed)
}

func TestReadInputRegisterKeepsConnectionOnOtherErrors(t *testing.T) {
	closed := 0
	c := New(&fakeModbus{err: errors.New("modbus: exception '2' (illegal data address)")}, func() error {
		closed++
		return nil
	})

	_, err := c.ReadInputRegister(14)
	assert.Error(t, err)
	assert.Equal(t, 0, closed)
	assert.NoError(t, New(&fakeModbus{}, nil).Close())
}
