package pca9685

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.
	RegTestMode = 0xff

	PWMMax = 4095

	NumChannels = 16

	oscillatorHz = 25000000

	// Bit 4 of the high on/off byte forces the output fully on/off.
	fullBit = 0x10
)

// Interface is a PCA9685 used as a motor duty generator.  Channels take an
// 8-bit duty, matching the rest of the drivetrain.
type Interface interface {
	Configure() error
	SetDuty(channel int, duty uint8) error
	Close() error
}

type registers interface {
	WriteReg(reg byte, buf []byte) error
	Close() error
}

type PCA9685 struct {
	dev         registers
	frequencyHz int
}

func New(deviceFile string, frequencyHz int) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, DefaultAddr)
	if err != nil {
		return nil, err
	}
	return &PCA9685{
		dev:         dev,
		frequencyHz: frequencyHz,
	}, nil
}

// PreScale calculates the prescaler value for the given output frequency.
func PreScale(frequencyHz int) byte {
	if frequencyHz <= 0 {
		frequencyHz = 1000
	}
	v := math.Round(oscillatorHz/(4096*float64(frequencyHz))) - 1
	if v < 3 {
		v = 3
	} else if v > 255 {
		v = 255
	}
	return byte(v)
}

func (p *PCA9685) Configure() (err error) {
	// Put device to sleep.
	err = p.dev.WriteReg(RegMode1, []byte{0x11})
	if err != nil {
		return
	}
	err = p.dev.WriteReg(RegPreScale, []byte{PreScale(p.frequencyHz)})
	if err != nil {
		return
	}
	// Trigger a reset
	err = p.dev.WriteReg(RegMode1, []byte{0x01})
	if err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable.
	err = p.dev.WriteReg(RegMode1, []byte{0x81})
	return
}

func (p *PCA9685) SetDuty(channel int, duty uint8) error {
	if channel < 0 || channel >= NumChannels {
		return fmt.Errorf("PWM channel out of range: %d", channel)
	}
	addr := RegLEDBase + channel*4
	return p.dev.WriteReg(byte(addr), dutyRegisters(duty))
}

func dutyRegisters(duty uint8) []byte {
	switch duty {
	case 0:
		return []byte{0, 0, 0, fullBit}
	case 255:
		return []byte{0, fullBit, 0, 0}
	}
	off := uint16(int(duty) * PWMMax / 255)
	return []byte{0, 0, byte(off & 0xff), byte(off >> 8)}
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}

func Dummy() Interface {
	return &dummyPWM{}
}

type dummyPWM struct {
}

func (*dummyPWM) Configure() error {
	fmt.Println("DPWM: Configure")
	return nil
}

func (*dummyPWM) SetDuty(channel int, duty uint8) error {
	fmt.Printf("DPWM: SetDuty channel=%v duty=%v\n", channel, duty)
	return nil
}

func (*dummyPWM) Close() error {
	return nil
}
