package rangesensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/calibration"
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
)

type recorder struct {
	lines []string
}

func (r *recorder) Println(line string) {
	r.lines = append(r.lines, line)
}

func us(n int) time.Duration {
	return time.Duration(n) * time.Microsecond
}

func newSensor(echoes ...time.Duration) (*Sensor, *hardware.Sim, *recorder) {
	pins := hardware.DefaultPins()
	sim := hardware.NewSim(pins, nil)
	sim.QueueEchoes(echoes...)
	rec := &recorder{}
	return New(sim, pins.Trigger, pins.Echo, calibration.Default(), rec), sim, rec
}

func TestMeasureMean(t *testing.T) {
	s, _, rec := newSensor(us(1000), us(2000), us(3000), us(4000), us(5000))

	d := s.Measure()
	// 17, 34, 51, 68, 85cm.
	assert.InDelta(t, 51, d, 1e-9)
	assert.Equal(t, 0, s.LastMissedEchoes())
	assert.Equal(t, []string{"Filtered Distance: 51.00"}, rec.lines)
}

func TestMeasureOrderIndependent(t *testing.T) {
	a, _, _ := newSensor(us(5000), us(100), us(2900), us(700), us(11764))
	b, _, _ := newSensor(us(700), us(11764), us(100), us(5000), us(2900))
	assert.InDelta(t, a.Measure(), b.Measure(), 1e-9)
}

func TestMeasureTriggerSequence(t *testing.T) {
	s, sim, _ := newSensor(us(1000), us(1000), us(1000), us(1000), us(1000))
	pins := hardware.DefaultPins()
	s.Measure()

	events := sim.Events()
	require.Len(t, events, 5*7)
	first := events[:7]
	assert.Equal(t, hardware.Event{At: 0, Kind: hardware.EventDigitalWrite, Pin: pins.Trigger, Level: gpio.Low}, first[0])
	assert.Equal(t, hardware.EventDelay, first[1].Kind)
	assert.Equal(t, 2*time.Microsecond, first[1].Duration)
	assert.Equal(t, gpio.High, first[2].Level)
	assert.Equal(t, 10*time.Microsecond, first[3].Duration)
	assert.Equal(t, gpio.Low, first[4].Level)
	assert.Equal(t, hardware.EventPulseIn, first[5].Kind)
	assert.Equal(t, pins.Echo, first[5].Pin)
	assert.Equal(t, 10*time.Millisecond, first[6].Duration)

	// Each sample: 12us of trigger, 1ms of echo, 10ms of settling.
	assert.Equal(t, 5*(12*time.Microsecond+time.Millisecond+10*time.Millisecond), sim.Now())
}

func TestMeasureMissedEchoes(t *testing.T) {
	s, sim, rec := newSensor(0, us(5000), 0, us(5000), us(5000))

	d := s.Measure()
	assert.InDelta(t, 3*85.0/5, d, 1e-9)
	assert.Equal(t, 2, s.LastMissedEchoes())
	assert.Equal(t, "Filtered Distance: 51.00", rec.lines[0])
	// Silent samples wait out the full echo timeout.
	assert.Greater(t, sim.Now(), 2*time.Second)
}

func TestMeasureNothingInRange(t *testing.T) {
	s, _, rec := newSensor(0, 0, 0, 0, 0)
	assert.Equal(t, float64(NoEchoDistance), s.Measure())
	assert.Equal(t, 5, s.LastMissedEchoes())
	assert.Equal(t, "Filtered Distance: 0.00", rec.lines[0])
}

func TestMeasureFromWorld(t *testing.T) {
	pins := hardware.DefaultPins()
	sim := hardware.NewSim(pins, hardware.FixedDistance(200))
	s := New(sim, pins.Trigger, pins.Echo, calibration.Default(), nil)
	assert.InDelta(t, 200, s.Measure(), 0.02)
}

func TestEchoToCM(t *testing.T) {
	tests := []struct {
		echo time.Duration
		want float64
	}{
		{0, 0},
		{-time.Millisecond, 0},
		{us(1000), 17},
		{us(11764), 199.988},
		// Sub-microsecond remainders are dropped.
		{us(1000) + 999*time.Nanosecond, 17},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, EchoToCM(tt.echo), 1e-9, "echo %v", tt.echo)
	}
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 7.0, Mean([]float64{7}))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
}
