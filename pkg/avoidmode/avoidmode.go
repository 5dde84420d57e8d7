// Package avoidmode is the reactive obstacle-avoidance loop: measure the
// distance ahead, pick a zone, run that zone's maneuver, repeat.
package avoidmode

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/sonarbot/pkg/calibration"
	"github.com/tigerbot-team/sonarbot/pkg/motors"
	"github.com/tigerbot-team/sonarbot/pkg/rangesensor"
	"github.com/tigerbot-team/sonarbot/pkg/sound"
)

type Zone int

const (
	Critical Zone = iota
	Warning
	Safe
)

func (z Zone) String() string {
	switch z {
	case Critical:
		return "critical"
	case Warning:
		return "warning"
	case Safe:
		return "safe"
	}
	return fmt.Sprintf("Zone(%d)", int(z))
}

// Classify maps a distance onto a zone.  A distance exactly on the warning
// threshold is safe.
func Classify(d float64, p calibration.Profile) Zone {
	switch {
	case d <= p.CriticalCM:
		return Critical
	case d < p.WarningCM:
		return Warning
	}
	return Safe
}

// SafeDuty scales the cruising duty with the free distance ahead, reaching
// MaxDuty at the safe threshold.
func SafeDuty(d float64, p calibration.Profile) uint8 {
	if d > p.SafeCM || p.SafeCM <= 0 {
		return p.MaxDuty
	}
	if d <= 0 {
		return 0
	}
	return uint8(float64(p.MaxDuty) * d / p.SafeCM)
}

// Decision records what one cycle did.
type Decision struct {
	DistanceCM float64
	Zone       Zone
	// Duty of the first maneuver issued.
	Duty uint8
}

type Options struct {
	// Played as an evasive maneuver starts.
	EvasiveSound string
	Sounds       sound.Interface

	// Called at the end of every cycle.
	OnDecision func(Decision)
}

type AvoidMode struct {
	sensor  rangesensor.Interface
	motors  motors.Interface
	profile calibration.Profile
	opts    Options
	log     *logrus.Entry

	cancel context.CancelFunc
	stopWG sync.WaitGroup
}

func New(sensor rangesensor.Interface, m motors.Interface, profile calibration.Profile, opts Options) *AvoidMode {
	return &AvoidMode{
		sensor:  sensor,
		motors:  m,
		profile: profile,
		opts:    opts,
		log:     logrus.WithField("component", "avoidmode"),
	}
}

func (m *AvoidMode) Name() string {
	return "Obstacle avoidance mode"
}

func (m *AvoidMode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	go m.loop(loopCtx)
}

// Stop waits for the current cycle to finish, then stops the motors.
func (m *AvoidMode) Stop() {
	m.cancel()
	m.stopWG.Wait()
}

func (m *AvoidMode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	defer m.motors.Stop()
	m.Run(ctx)
}

// Run cycles until ctx is cancelled.
func (m *AvoidMode) Run(ctx context.Context) int {
	return m.RunCycles(ctx, 0)
}

// RunCycles runs at most n cycles, or until ctx is cancelled if n <= 0, and
// returns how many it ran.  The motors are stopped before the first cycle.
// Cancellation is only checked between cycles: a maneuver that has started
// always completes.
func (m *AvoidMode) RunCycles(ctx context.Context, n int) int {
	m.motors.Stop()
	cycles := 0
	for n <= 0 || cycles < n {
		if ctx.Err() != nil {
			break
		}
		m.Step()
		cycles++
	}
	return cycles
}

// Step runs one sense-decide-act cycle.
func (m *AvoidMode) Step() Decision {
	p := m.profile
	d := m.sensor.Measure()
	dec := Decision{DistanceCM: d, Zone: Classify(d, p)}

	switch dec.Zone {
	case Critical:
		dec.Duty = p.EvasiveReverseDuty
		m.log.WithField("distance", d).Info("Obstacle too close, evading")
		if m.opts.Sounds != nil {
			m.opts.Sounds.Play(m.opts.EvasiveSound)
		}
		m.motors.DriveBackward(p.EvasiveReverseDuty, p.EvasiveReverseDuration)
		m.motors.TurnRight(p.EvasiveTurnDuty)
	case Warning:
		dec.Duty = p.WarningDuty
		m.motors.DriveForward(dec.Duty, 0)
	default:
		dec.Duty = SafeDuty(d, p)
		m.motors.DriveForward(dec.Duty, 0)
	}

	m.log.WithFields(logrus.Fields{
		"distance": d,
		"zone":     dec.Zone,
		"duty":     dec.Duty,
	}).Debug("Cycle complete")
	if m.opts.OnDecision != nil {
		m.opts.OnDecision(dec)
	}
	return dec
}
