package hardware

import (
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

var ErrNoSuchPin = errors.New("no such GPIO pin")

// DefaultPWMFrequency is the motor PWM carrier frequency.
const DefaultPWMFrequency = physic.KiloHertz

var log = logrus.WithField("component", "hardware")

// PWMDriver is an external PWM generator (e.g. a PCA9685) that the duty pins
// can be routed to instead of the host's own PWM.
type PWMDriver interface {
	SetDuty(channel int, duty uint8) error
}

type Options struct {
	PWMFrequency physic.Frequency

	// If PWM is set, the duty pins are looked up in Channels and written to
	// the driver rather than to a GPIO pin.
	PWM      PWMDriver
	Channels map[string]int
}

// GPIO drives the vehicle through the host's GPIO pins using periph.
type GPIO struct {
	pins     map[string]gpio.PinIO
	echoPins map[string]bool

	pwm      PWMDriver
	channels map[string]int
	freq     physic.Frequency
}

var _ Interface = (*GPIO)(nil)

// NewGPIO initialises periph, resolves every pin in pins and puts it into
// its idle state: outputs LOW, echo as a pulled-down input with edge
// detection.
func NewGPIO(pins Pins, opts Options) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to initialise periph host")
	}
	return newGPIO(gpioreg.ByName, pins, opts)
}

func newGPIO(byName func(string) gpio.PinIO, pins Pins, opts Options) (*GPIO, error) {
	g := &GPIO{
		pins:     map[string]gpio.PinIO{},
		echoPins: map[string]bool{},
		pwm:      opts.PWM,
		channels: opts.Channels,
		freq:     opts.PWMFrequency,
	}
	if g.freq == 0 {
		g.freq = DefaultPWMFrequency
	}

	for _, name := range pins.Outputs() {
		if g.pwm != nil {
			if _, ok := g.channels[name]; ok {
				continue
			}
		}
		p := byName(name)
		if p == nil {
			return nil, pkgerrors.Wrapf(ErrNoSuchPin, "output %q", name)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to configure %s as output", name)
		}
		g.pins[name] = p
	}

	echo := byName(pins.Echo)
	if echo == nil {
		return nil, pkgerrors.Wrapf(ErrNoSuchPin, "echo %q", pins.Echo)
	}
	if err := echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to configure %s as input", pins.Echo)
	}
	g.pins[pins.Echo] = echo
	g.echoPins[pins.Echo] = true

	log.WithField("pins", len(g.pins)).Info("GPIO initialised")
	return g, nil
}

func (g *GPIO) DigitalWrite(pin string, level gpio.Level) {
	p, ok := g.pins[pin]
	if !ok {
		log.WithField("pin", pin).Warn("Write to unknown pin")
		return
	}
	if err := p.Out(level); err != nil {
		log.WithError(err).WithField("pin", pin).Warn("Failed to write pin")
	}
}

func (g *GPIO) AnalogWrite(pin string, duty uint8) {
	if g.pwm != nil {
		if ch, ok := g.channels[pin]; ok {
			if err := g.pwm.SetDuty(ch, duty); err != nil {
				log.WithError(err).WithField("channel", ch).Warn("Failed to set PWM duty")
			}
			return
		}
	}
	p, ok := g.pins[pin]
	if !ok {
		log.WithField("pin", pin).Warn("PWM write to unknown pin")
		return
	}
	var err error
	switch duty {
	case 0:
		err = p.Out(gpio.Low)
	case 255:
		err = p.Out(gpio.High)
	default:
		err = p.PWM(DutyFromByte(duty), g.freq)
	}
	if err != nil {
		log.WithError(err).WithField("pin", pin).Warn("Failed to set PWM duty")
	}
}

// PulseIn measures the next HIGH pulse on an echo pin.  A pulse already in
// progress when the call starts is skipped.
func (g *GPIO) PulseIn(pin string, timeout time.Duration) time.Duration {
	p, ok := g.pins[pin]
	if !ok || !g.echoPins[pin] {
		log.WithField("pin", pin).Warn("PulseIn on a pin not configured as echo input")
		return 0
	}
	deadline := time.Now().Add(timeout)
	waitWhile := func(l gpio.Level) bool {
		for p.Read() == l {
			remaining := time.Until(deadline)
			if remaining <= 0 || !p.WaitForEdge(remaining) {
				return false
			}
		}
		return true
	}
	if !waitWhile(gpio.High) || !waitWhile(gpio.Low) {
		return 0
	}
	start := time.Now()
	if !waitWhile(gpio.High) {
		return 0
	}
	return time.Since(start)
}

func (g *GPIO) Delay(d time.Duration) {
	time.Sleep(d)
}

// Halt drives every output LOW.
func (g *GPIO) Halt() {
	for name, p := range g.pins {
		if g.echoPins[name] {
			continue
		}
		if err := p.Out(gpio.Low); err != nil {
			log.WithError(err).WithField("pin", name).Warn("Failed to halt pin")
		}
	}
	if g.pwm != nil {
		for _, ch := range g.channels {
			_ = g.pwm.SetDuty(ch, 0)
		}
	}
}

// DutyFromByte maps an 8-bit duty onto periph's duty range.
func DutyFromByte(duty uint8) gpio.Duty {
	return gpio.Duty(int64(duty) * int64(gpio.DutyMax) / 255)
}
