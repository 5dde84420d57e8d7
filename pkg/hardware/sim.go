package hardware

import (
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/calibration"
)

// Halter is implemented by backends that can force every output off in one
// go, for use on shutdown.
type Halter interface {
	Halt()
}

type EventKind int

const (
	EventDigitalWrite EventKind = iota
	EventAnalogWrite
	EventPulseIn
	EventDelay
)

// Event is one recorded call on a Sim, stamped with the virtual time at which
// it started.
type Event struct {
	At    time.Duration
	Kind  EventKind
	Pin   string
	Level gpio.Level
	Duty  uint8
	// Delay length, or the echo returned by PulseIn.
	Duration time.Duration
}

// World supplies the echoes seen by a Sim and is told how the motors have been
// driving.
type World interface {
	// DistanceCM is the distance to the nearest obstacle ahead, <= 0 for none
	// in range.
	DistanceCM() float64
	// Advance moves the world on by d.  left and right are the signed motor
	// outputs in [-1, 1].
	Advance(d time.Duration, left, right float64)
}

// FixedDistance is a World with an obstacle that never moves.
type FixedDistance float64

func (f FixedDistance) DistanceCM() float64                          { return float64(f) }
func (f FixedDistance) Advance(d time.Duration, left, right float64) {}

// Sim is a simulated vehicle on a virtual clock.  Delay and PulseIn advance
// the clock rather than sleeping, so timing can be asserted exactly.  See
// SetRealTime for watching a run.
type Sim struct {
	lock sync.Mutex

	pins   Pins
	now    time.Duration
	levels map[string]gpio.Level
	duties map[string]uint8
	events []Event

	world  World
	echoes []time.Duration

	realTime bool
}

var _ Interface = (*Sim)(nil)

func NewSim(pins Pins, world World) *Sim {
	return &Sim{
		pins:   pins,
		levels: map[string]gpio.Level{},
		duties: map[string]uint8{},
		world:  world,
	}
}

// QueueEchoes makes the next PulseIn calls return exactly these durations,
// ahead of anything the World would produce.  A zero models a missed echo.
func (s *Sim) QueueEchoes(echoes ...time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.echoes = append(s.echoes, echoes...)
}

func (s *Sim) DigitalWrite(pin string, level gpio.Level) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.levels[pin] = level
	s.events = append(s.events, Event{At: s.now, Kind: EventDigitalWrite, Pin: pin, Level: level})
}

func (s *Sim) AnalogWrite(pin string, duty uint8) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.duties[pin] = duty
	s.events = append(s.events, Event{At: s.now, Kind: EventAnalogWrite, Pin: pin, Duty: duty})
}

// SetRealTime makes Delay and PulseIn also sleep for the time they simulate,
// so that a simulated run can be watched.
func (s *Sim) SetRealTime(realTime bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.realTime = realTime
}

func (s *Sim) PulseIn(pin string, timeout time.Duration) time.Duration {
	s.lock.Lock()
	at := s.now

	var echo time.Duration
	if len(s.echoes) > 0 {
		echo = s.echoes[0]
		s.echoes = s.echoes[1:]
	} else if s.world != nil {
		echo = EchoForDistance(s.world.DistanceCM())
	}
	if echo <= 0 || echo > timeout {
		echo = 0
		s.advance(timeout)
	} else {
		s.advance(echo)
	}
	s.events = append(s.events, Event{At: at, Kind: EventPulseIn, Pin: pin, Duration: echo})
	s.sleep(s.now - at)
	return echo
}

func (s *Sim) Delay(d time.Duration) {
	s.lock.Lock()
	s.events = append(s.events, Event{At: s.now, Kind: EventDelay, Duration: d})
	s.advance(d)
	s.sleep(d)
}

// sleep releases the lock and, in real time mode, waits for d.
func (s *Sim) sleep(d time.Duration) {
	realTime := s.realTime
	s.lock.Unlock()
	if realTime && d > 0 {
		time.Sleep(d)
	}
}

func (s *Sim) Halt() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, p := range s.pins.Outputs() {
		s.levels[p] = gpio.Low
	}
	for _, p := range s.pins.DutyPins() {
		s.duties[p] = 0
	}
}

func (s *Sim) advance(d time.Duration) {
	if d <= 0 {
		return
	}
	s.now += d
	if s.world != nil {
		s.world.Advance(d, s.output(s.pins.LeftForward, s.pins.LeftBackward, s.pins.LeftDuty),
			s.output(s.pins.RightForward, s.pins.RightBackward, s.pins.RightDuty))
	}
}

// output is the signed drive of one side.  Both direction pins HIGH is an
// H-bridge short brake and produces no drive.
func (s *Sim) output(fwd, back, duty string) float64 {
	v := float64(s.duties[duty]) / 255
	switch {
	case s.levels[fwd] == gpio.High && s.levels[back] == gpio.Low:
		return v
	case s.levels[back] == gpio.High && s.levels[fwd] == gpio.Low:
		return -v
	}
	return 0
}

func (s *Sim) Now() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.now
}

func (s *Sim) Level(pin string) gpio.Level {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.levels[pin]
}

func (s *Sim) Duty(pin string) uint8 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.duties[pin]
}

// Events returns a copy of everything recorded so far.
func (s *Sim) Events() []Event {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *Sim) ClearEvents() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.events = nil
}

// EchoForDistance is the round-trip echo an HC-SR04 style sensor reports for
// an obstacle at cm.
func EchoForDistance(cm float64) time.Duration {
	if cm <= 0 {
		return 0
	}
	micros := cm * 2 / calibration.SoundCMPerMicrosecond
	return time.Duration(micros * float64(time.Microsecond))
}
