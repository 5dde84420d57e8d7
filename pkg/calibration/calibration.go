// Package calibration holds the tuning constants shared by the range sensor,
// the motor actuator and the avoidance policy.
package calibration

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrThresholdOrder = errors.New("distance thresholds must satisfy 0 <= critical < warning < safe")
	ErrMultiplier     = errors.New("duty multipliers must be in [0, 1]")
	ErrSamples        = errors.New("at least one sample per measurement is required")
)

// Profile is loaded once at startup and never modified afterwards.  Maneuvers
// take their duty as an argument; the duties here are the avoidance policy's
// choices.
type Profile struct {
	// Per-side corrections for drivetrain bias.
	LeftForwardMult   float64 `yaml:"leftForwardMult"`
	RightBackwardMult float64 `yaml:"rightBackwardMult"`

	TurnDuration  time.Duration `yaml:"turnDuration"`
	BrakeDuration time.Duration `yaml:"brakeDuration"`

	// Zone thresholds, in centimetres.
	CriticalCM float64 `yaml:"criticalCM"`
	WarningCM  float64 `yaml:"warningCM"`
	SafeCM     float64 `yaml:"safeCM"`

	// Duties used by the avoidance policy for each zone.
	EvasiveReverseDuty     uint8         `yaml:"evasiveReverseDuty"`
	EvasiveReverseDuration time.Duration `yaml:"evasiveReverseDuration"`
	EvasiveTurnDuty        uint8         `yaml:"evasiveTurnDuty"`
	WarningDuty            uint8         `yaml:"warningDuty"`
	MaxDuty                uint8         `yaml:"maxDuty"`

	// Range sensor sampling window.
	Samples        int           `yaml:"samples"`
	SampleInterval time.Duration `yaml:"sampleInterval"`
	EchoTimeout    time.Duration `yaml:"echoTimeout"`
}

// Default returns the stock tuning.
func Default() Profile {
	return Profile{
		LeftForwardMult:   0.95,
		RightBackwardMult: 0.77,

		TurnDuration:  50 * time.Millisecond, // ~90 degrees
		BrakeDuration: 15 * time.Millisecond,

		CriticalCM: 40,
		WarningCM:  80,
		SafeCM:     120,

		EvasiveReverseDuty:     150,
		EvasiveReverseDuration: 70 * time.Millisecond,
		EvasiveTurnDuty:        100,
		WarningDuty:            100,
		MaxDuty:                255,

		Samples:        5,
		SampleInterval: 10 * time.Millisecond,
		EchoTimeout:    time.Second,
	}
}

// Validate reports the first inconsistency in the profile.  Callers decide
// whether to act on it; the controller itself works with any values, it just
// may never reach some zones.
func (p Profile) Validate() error {
	if p.CriticalCM < 0 || p.CriticalCM >= p.WarningCM || p.WarningCM >= p.SafeCM {
		return fmt.Errorf("%w: critical=%v warning=%v safe=%v", ErrThresholdOrder, p.CriticalCM, p.WarningCM, p.SafeCM)
	}
	for name, m := range map[string]float64{
		"leftForwardMult":   p.LeftForwardMult,
		"rightBackwardMult": p.RightBackwardMult,
	} {
		if m < 0 || m > 1 {
			return fmt.Errorf("%w: %s=%v", ErrMultiplier, name, m)
		}
	}
	if p.Samples < 1 {
		return ErrSamples
	}
	return nil
}

// Scale applies a multiplier to a duty, truncating toward zero the way the
// PWM output expects an integer duty.
func Scale(duty uint8, mult float64) uint8 {
	v := float64(duty) * mult
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// SoundCMPerMicrosecond is the speed of sound used to turn an ultrasonic echo
// into a distance.  Echo times are round trips, so halve the product.
const SoundCMPerMicrosecond = 0.034
