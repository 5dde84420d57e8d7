package hardware

import (
	"time"

	"periph.io/x/periph/conn/gpio"
)

// Interface is the pin-level capability the sensor and motor code consumes.
// Pins are addressed by name, as understood by gpioreg.ByName (e.g. "GPIO16").
//
// None of the methods return errors; implementations log failures and carry
// on.
type Interface interface {
	DigitalWrite(pin string, level gpio.Level)

	// AnalogWrite sets a PWM duty cycle, 0 = off, 255 = fully on.
	AnalogWrite(pin string, duty uint8)

	// PulseIn blocks until a HIGH pulse has been seen on pin and returns its
	// length.  Returns 0 if no complete pulse was seen within timeout.
	PulseIn(pin string, timeout time.Duration) time.Duration

	// Delay blocks for d.
	Delay(d time.Duration)
}

// Pins is the fixed role assignment of the vehicle's pins.
type Pins struct {
	Trigger string `yaml:"trigger"`
	Echo    string `yaml:"echo"`

	LeftForward   string `yaml:"leftForward"`
	LeftBackward  string `yaml:"leftBackward"`
	RightForward  string `yaml:"rightForward"`
	RightBackward string `yaml:"rightBackward"`

	LeftDuty  string `yaml:"leftDuty"`
	RightDuty string `yaml:"rightDuty"`
}

// DefaultPins is the stock wiring.
func DefaultPins() Pins {
	return Pins{
		Trigger: "GPIO16",
		Echo:    "GPIO10",

		LeftForward:   "GPIO13",
		LeftBackward:  "GPIO4",
		RightForward:  "GPIO14",
		RightBackward: "GPIO12",

		LeftDuty:  "GPIO5",
		RightDuty: "GPIO2",
	}
}

// Outputs lists every pin driven as an output.
func (p Pins) Outputs() []string {
	return []string{
		p.Trigger,
		p.LeftForward, p.LeftBackward, p.RightForward, p.RightBackward,
		p.LeftDuty, p.RightDuty,
	}
}

// DutyPins lists the PWM pins.
func (p Pins) DutyPins() []string {
	return []string{p.LeftDuty, p.RightDuty}
}
