package hardware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpiotest"
)

type testPins map[string]*gpiotest.Pin

func newTestPins(pins Pins) testPins {
	tp := testPins{}
	for i, name := range append(pins.Outputs(), pins.Echo) {
		tp[name] = &gpiotest.Pin{N: name, Num: i, EdgesChan: make(chan gpio.Level, 4)}
	}
	return tp
}

func (tp testPins) byName(name string) gpio.PinIO {
	p, ok := tp[name]
	if !ok {
		return nil
	}
	return p
}

type fakePWM struct {
	duties map[int]uint8
}

func (f *fakePWM) SetDuty(channel int, duty uint8) error {
	f.duties[channel] = duty
	return nil
}

func TestNewGPIOConfiguresPins(t *testing.T) {
	pins := DefaultPins()
	tp := newTestPins(pins)
	tp[pins.LeftForward].L = gpio.High

	_, err := newGPIO(tp.byName, pins, Options{})
	require.NoError(t, err)

	assert.Equal(t, gpio.Low, tp[pins.LeftForward].L)
	assert.Equal(t, gpio.Low, tp[pins.Echo].Read())
}

func TestNewGPIOMissingPin(t *testing.T) {
	pins := DefaultPins()
	tp := newTestPins(pins)
	delete(tp, pins.RightDuty)

	_, err := newGPIO(tp.byName, pins, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchPin))
	assert.Contains(t, err.Error(), pins.RightDuty)
}

func TestGPIOWrites(t *testing.T) {
	pins := DefaultPins()
	tp := newTestPins(pins)
	g, err := newGPIO(tp.byName, pins, Options{})
	require.NoError(t, err)

	g.DigitalWrite(pins.Trigger, gpio.High)
	assert.Equal(t, gpio.High, tp[pins.Trigger].L)

	g.AnalogWrite(pins.LeftDuty, 128)
	assert.Equal(t, DutyFromByte(128), tp[pins.LeftDuty].D)
	assert.Equal(t, DefaultPWMFrequency, tp[pins.LeftDuty].F)

	g.AnalogWrite(pins.RightDuty, 255)
	assert.Equal(t, gpio.High, tp[pins.RightDuty].L)
	g.AnalogWrite(pins.RightDuty, 0)
	assert.Equal(t, gpio.Low, tp[pins.RightDuty].L)

	// Unknown pins are logged and ignored.
	g.DigitalWrite("GPIO99", gpio.High)
	g.AnalogWrite("GPIO99", 10)

	g.Halt()
	assert.Equal(t, gpio.Low, tp[pins.Trigger].L)
}

func TestGPIOExternalPWM(t *testing.T) {
	pins := DefaultPins()
	tp := newTestPins(pins)
	// The duty pins live on the PWM board, not the host.
	delete(tp, pins.LeftDuty)
	delete(tp, pins.RightDuty)
	pwm := &fakePWM{duties: map[int]uint8{}}

	g, err := newGPIO(tp.byName, pins, Options{
		PWM:      pwm,
		Channels: map[string]int{pins.LeftDuty: 0, pins.RightDuty: 1},
	})
	require.NoError(t, err)

	g.AnalogWrite(pins.LeftDuty, 142)
	g.AnalogWrite(pins.RightDuty, 115)
	assert.Equal(t, map[int]uint8{0: 142, 1: 115}, pwm.duties)

	g.Halt()
	assert.Equal(t, map[int]uint8{0: 0, 1: 0}, pwm.duties)
}

func TestGPIOPulseIn(t *testing.T) {
	pins := DefaultPins()
	tp := newTestPins(pins)
	g, err := newGPIO(tp.byName, pins, Options{})
	require.NoError(t, err)

	echo := tp[pins.Echo]
	go func() {
		echo.EdgesChan <- gpio.High
		time.Sleep(5 * time.Millisecond)
		echo.EdgesChan <- gpio.Low
	}()
	d := g.PulseIn(pins.Echo, time.Second)
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	assert.Less(t, d, time.Second)
}

func TestGPIOPulseInTimeout(t *testing.T) {
	pins := DefaultPins()
	tp := newTestPins(pins)
	g, err := newGPIO(tp.byName, pins, Options{})
	require.NoError(t, err)

	start := time.Now()
	assert.Equal(t, time.Duration(0), g.PulseIn(pins.Echo, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	// Rising edge but no falling edge.
	tp[pins.Echo].EdgesChan <- gpio.High
	assert.Equal(t, time.Duration(0), g.PulseIn(pins.Echo, 20*time.Millisecond))

	// Only the echo pin can be measured.
	assert.Equal(t, time.Duration(0), g.PulseIn(pins.Trigger, time.Millisecond))
}

func TestDutyFromByte(t *testing.T) {
	assert.Equal(t, gpio.Duty(0), DutyFromByte(0))
	assert.Equal(t, gpio.DutyMax, DutyFromByte(255))
	assert.Equal(t, gpio.Duty(int64(gpio.DutyMax)*128/255), DutyFromByte(128))
}
