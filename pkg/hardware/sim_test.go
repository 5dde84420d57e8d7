package hardware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"
)

func TestSimClock(t *testing.T) {
	s := NewSim(DefaultPins(), nil)
	s.Delay(70 * time.Millisecond)
	s.Delay(0)
	s.Delay(15 * time.Millisecond)
	assert.Equal(t, 85*time.Millisecond, s.Now())
	assert.Len(t, s.Events(), 3)
}

func TestSimPulseIn(t *testing.T) {
	pins := DefaultPins()
	s := NewSim(pins, FixedDistance(100))
	s.QueueEchoes(1000*time.Microsecond, 0)

	assert.Equal(t, 1000*time.Microsecond, s.PulseIn(pins.Echo, time.Second))
	assert.Equal(t, time.Millisecond, s.Now())

	// A queued miss waits out the whole timeout.
	assert.Equal(t, time.Duration(0), s.PulseIn(pins.Echo, time.Second))
	assert.Equal(t, time.Second+time.Millisecond, s.Now())

	// Queue exhausted, the world answers.
	assert.Equal(t, EchoForDistance(100), s.PulseIn(pins.Echo, time.Second))

	// Further than the timeout allows.
	assert.Equal(t, time.Duration(0), s.PulseIn(pins.Echo, time.Millisecond))

	events := s.Events()
	require.Len(t, events, 4)
	assert.Equal(t, EventPulseIn, events[1].Kind)
	assert.Equal(t, time.Millisecond, events[1].At)
}

func TestSimNoWorld(t *testing.T) {
	pins := DefaultPins()
	s := NewSim(pins, nil)
	assert.Equal(t, time.Duration(0), s.PulseIn(pins.Echo, 50*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, s.Now())
}

func TestSimOutputsAndHalt(t *testing.T) {
	pins := DefaultPins()
	s := NewSim(pins, nil)
	s.DigitalWrite(pins.LeftForward, gpio.High)
	s.AnalogWrite(pins.LeftDuty, 200)
	assert.Equal(t, gpio.High, s.Level(pins.LeftForward))
	assert.Equal(t, uint8(200), s.Duty(pins.LeftDuty))

	s.Halt()
	assert.Equal(t, gpio.Low, s.Level(pins.LeftForward))
	assert.Equal(t, uint8(0), s.Duty(pins.LeftDuty))

	s.ClearEvents()
	assert.Empty(t, s.Events())
}

func TestEchoForDistance(t *testing.T) {
	assert.Equal(t, time.Duration(0), EchoForDistance(0))
	assert.Equal(t, time.Duration(0), EchoForDistance(-5))
	// 17cm round trip at 0.034cm/us is 1000us.
	assert.InDelta(t, float64(time.Millisecond), float64(EchoForDistance(17)), float64(time.Microsecond))
}

func TestRoomDriving(t *testing.T) {
	pins := DefaultPins()
	room := NewRoom(100, 300)
	s := NewSim(pins, room)

	// Full speed ahead for half a second: 50cm closer.
	s.DigitalWrite(pins.LeftForward, gpio.High)
	s.DigitalWrite(pins.RightForward, gpio.High)
	s.AnalogWrite(pins.LeftDuty, 255)
	s.AnalogWrite(pins.RightDuty, 255)
	s.Delay(500 * time.Millisecond)
	assert.InDelta(t, 50, room.DistanceCM(), 0.001)

	// Straight into the wall.
	s.Delay(time.Second)
	assert.Equal(t, 1.0, room.DistanceCM())

	// Spin right for one turn.
	s.DigitalWrite(pins.RightForward, gpio.Low)
	s.DigitalWrite(pins.RightBackward, gpio.High)
	s.Delay(room.TurnTime)
	assert.Equal(t, 1, room.Heading())
	assert.Equal(t, 300.0, room.DistanceCM())

	// Both direction pins high is a brake, not a drive.
	s.DigitalWrite(pins.LeftBackward, gpio.High)
	s.DigitalWrite(pins.RightForward, gpio.High)
	s.Delay(time.Second)
	assert.Equal(t, 300.0, room.DistanceCM())
}

func TestSimRealTime(t *testing.T) {
	s := NewSim(DefaultPins(), nil)
	s.SetRealTime(true)
	start := time.Now()
	s.Delay(20 * time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, s.Now())
}
