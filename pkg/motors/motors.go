// Package motors drives the two-sided differential drivetrain through an
// H-bridge: two direction lines and one PWM duty line per side.
package motors

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/calibration"
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
)

type Direction int

const (
	Neutral Direction = iota
	Forward
	Backward
)

// Inverted is the direction that counter-drives d.  Neutral stays neutral.
func (d Direction) Inverted() Direction {
	switch d {
	case Forward:
		return Backward
	case Backward:
		return Forward
	}
	return Neutral
}

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Neutral:
		return "neutral"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

type Side struct {
	Direction Direction
	Duty      uint8
}

// Command is what is currently being asked of each side of the drivetrain.
type Command struct {
	Left, Right Side
}

func (c Command) String() string {
	return fmt.Sprintf("L=%v/%d R=%v/%d", c.Left.Direction, c.Left.Duty, c.Right.Direction, c.Right.Duty)
}

type Interface interface {
	DriveForward(duty uint8, d time.Duration)
	DriveBackward(duty uint8, d time.Duration)
	TurnRight(duty uint8)
	Brake(duty uint8, wasForward bool)
	Stop()
	Command() Command
}

// Actuator issues maneuvers.  Timed maneuvers block for their whole duration
// on the hardware's Delay; none of them can be interrupted.
type Actuator struct {
	hw      hardware.Interface
	pins    hardware.Pins
	profile calibration.Profile
	log     *logrus.Entry

	cmd Command
}

var _ Interface = (*Actuator)(nil)

func New(hw hardware.Interface, pins hardware.Pins, profile calibration.Profile) *Actuator {
	return &Actuator{
		hw:      hw,
		pins:    pins,
		profile: profile,
		log:     logrus.WithField("component", "motors"),
	}
}

// DriveForward drives both sides forward, the left side scaled down by its
// calibration multiplier.  With d > 0 it then brakes to a stop; with d == 0 it
// returns with the motors still running.
func (a *Actuator) DriveForward(duty uint8, d time.Duration) {
	a.apply(Command{
		Left:  Side{Forward, calibration.Scale(duty, a.profile.LeftForwardMult)},
		Right: Side{Forward, duty},
	})
	if d > 0 {
		a.hw.Delay(d)
		a.Brake(duty, true)
	}
}

// DriveBackward is DriveForward in reverse; here the right side is the one
// scaled down.
func (a *Actuator) DriveBackward(duty uint8, d time.Duration) {
	a.apply(Command{
		Left:  Side{Backward, duty},
		Right: Side{Backward, calibration.Scale(duty, a.profile.RightBackwardMult)},
	})
	if d > 0 {
		a.hw.Delay(d)
		a.Brake(duty, false)
	}
}

// TurnRight spins on the spot for the calibrated turn time, then stops.
func (a *Actuator) TurnRight(duty uint8) {
	a.apply(Command{
		Left:  Side{Forward, duty},
		Right: Side{Backward, duty},
	})
	a.hw.Delay(a.profile.TurnDuration)
	a.Stop()
}

// Brake counter-drives the left side only for BrakeDuration, then stops.  The
// right side keeps whatever it was last told.
func (a *Actuator) Brake(duty uint8, wasForward bool) {
	was := Backward
	if wasForward {
		was = Forward
	}
	cmd := a.cmd
	cmd.Left = Side{was.Inverted(), duty}
	a.apply(cmd)
	a.hw.Delay(a.profile.BrakeDuration)
	a.Stop()
}

// Stop releases both sides: all direction lines LOW, duty 0.
func (a *Actuator) Stop() {
	a.apply(Command{})
}

func (a *Actuator) Command() Command {
	return a.cmd
}

func (a *Actuator) apply(cmd Command) {
	a.log.WithField("cmd", cmd).Debug("Motor command")
	a.setSide(a.pins.LeftForward, a.pins.LeftBackward, a.pins.LeftDuty, cmd.Left)
	a.setSide(a.pins.RightForward, a.pins.RightBackward, a.pins.RightDuty, cmd.Right)
	a.cmd = cmd
}

func (a *Actuator) setSide(fwdPin, backPin, dutyPin string, s Side) {
	fwd, back := gpio.Low, gpio.Low
	switch s.Direction {
	case Forward:
		fwd = gpio.High
	case Backward:
		back = gpio.High
	}
	a.hw.DigitalWrite(fwdPin, fwd)
	a.hw.DigitalWrite(backPin, back)
	a.hw.AnalogWrite(dutyPin, s.Duty)
}
