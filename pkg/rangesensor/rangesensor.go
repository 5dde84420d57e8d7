// Package rangesensor reads an HC-SR04 style ultrasonic range finder: pulse
// the trigger, time the echo.
package rangesensor

import (
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/calibration"
	"github.com/tigerbot-team/sonarbot/pkg/diag"
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
)

// NoEchoDistance is what a sample reports when no echo came back in time.
// Treating silence as an obstacle at zero distance biases the controller
// towards the evasive maneuver.
const NoEchoDistance = 0

const (
	triggerSettle = 2 * time.Microsecond
	triggerPulse  = 10 * time.Microsecond
)

type Interface interface {
	Measure() float64
}

type Sensor struct {
	hw           hardware.Interface
	trigger      string
	echo         string
	profile      calibration.Profile
	sink         diag.Sink
	log          *logrus.Entry
	missedEchoes int
}

var _ Interface = (*Sensor)(nil)

func New(hw hardware.Interface, trigger, echo string, profile calibration.Profile, sink diag.Sink) *Sensor {
	if sink == nil {
		sink = diag.Discard
	}
	return &Sensor{
		hw:      hw,
		trigger: trigger,
		echo:    echo,
		profile: profile,
		sink:    sink,
		log:     logrus.WithField("component", "rangesensor"),
	}
}

// Measure takes Samples readings, SampleInterval apart, and returns their mean
// in centimetres.  The result is also written to the diagnostic sink.
func (s *Sensor) Measure() float64 {
	n := s.profile.Samples
	if n < 1 {
		n = 1
	}
	distances := make([]float64, 0, n)
	s.missedEchoes = 0
	for i := 0; i < n; i++ {
		echo := s.ping()
		if echo == 0 {
			s.missedEchoes++
		}
		distances = append(distances, EchoToCM(echo))
		s.hw.Delay(s.profile.SampleInterval)
	}
	mean := Mean(distances)
	if s.missedEchoes > 0 {
		s.log.WithField("missed", s.missedEchoes).Debug("No echo on some samples")
	}
	diag.Printf(s.sink, "Filtered Distance: %.2f", mean)
	return mean
}

// LastMissedEchoes is how many samples of the last Measure got no echo.
func (s *Sensor) LastMissedEchoes() int {
	return s.missedEchoes
}

func (s *Sensor) ping() time.Duration {
	s.hw.DigitalWrite(s.trigger, gpio.Low)
	s.hw.Delay(triggerSettle)
	s.hw.DigitalWrite(s.trigger, gpio.High)
	s.hw.Delay(triggerPulse)
	s.hw.DigitalWrite(s.trigger, gpio.Low)
	return s.hw.PulseIn(s.echo, s.profile.EchoTimeout)
}

// EchoToCM converts a round-trip echo time to a distance.  Only whole
// microseconds count.
func EchoToCM(echo time.Duration) float64 {
	if echo <= 0 {
		return NoEchoDistance
	}
	return float64(echo.Microseconds()) * calibration.SoundCMPerMicrosecond / 2
}

func Mean(distances []float64) float64 {
	if len(distances) == 0 {
		return NoEchoDistance
	}
	var sum float64
	for _, d := range distances {
		sum += d
	}
	return sum / float64(len(distances))
}
