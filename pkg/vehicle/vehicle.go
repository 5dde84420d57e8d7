// Package vehicle assembles the hardware and diagnostic outputs described by
// a config, for use by the command line tools.
package vehicle

import (
	"errors"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/diag"
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
	"github.com/tigerbot-team/sonarbot/pkg/pca9685"
	"github.com/tigerbot-team/sonarbot/pkg/screen"
)

const (
	BackendGPIO  = "gpio"
	BackendDummy = "dummy"
	BackendSim   = "sim"
)

var ErrUnknownBackend = errors.New("unknown hardware backend")

type Options struct {
	Backend string

	// Obstacle distance per heading for the sim backend, in cm.
	SimulateDistances []float64
	// Run the sim backend in real time rather than as fast as possible.
	SimulateRealTime bool

	// Echo reported by the dummy backend.
	DummyEcho time.Duration
}

// Hardware is an open hardware backend.  Close halts every output and
// releases any devices.
type Hardware struct {
	hardware.Interface
	closers []func() error
}

func (h *Hardware) Close() error {
	if halter, ok := h.Interface.(hardware.Halter); ok {
		halter.Halt()
	}
	var firstErr error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func OpenHardware(cfg config.Config, opts Options) (*Hardware, error) {
	switch opts.Backend {
	case BackendDummy:
		echo := opts.DummyEcho
		if echo == 0 {
			echo = hardware.EchoForDistance(200)
		}
		return &Hardware{Interface: hardware.NewDummy(echo)}, nil
	case BackendSim:
		sim := hardware.NewSim(cfg.Pins, hardware.NewRoom(opts.SimulateDistances...))
		sim.SetRealTime(opts.SimulateRealTime)
		return &Hardware{Interface: sim}, nil
	case BackendGPIO, "":
		return openGPIO(cfg)
	}
	return nil, pkgerrors.Wrapf(ErrUnknownBackend, "%q", opts.Backend)
}

func openGPIO(cfg config.Config) (*Hardware, error) {
	h := &Hardware{}
	hwOpts := hardware.Options{
		PWMFrequency: physic.Frequency(cfg.PWM.FrequencyHz) * physic.Hertz,
	}
	if cfg.PWM.Driver == config.PWMDriverPCA9685 {
		pwm, err := pca9685.New(cfg.PWM.I2CDevice, cfg.PWM.FrequencyHz)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to open PCA9685 on %s", cfg.PWM.I2CDevice)
		}
		if err := pwm.Configure(); err != nil {
			_ = pwm.Close()
			return nil, pkgerrors.Wrap(err, "failed to configure PCA9685")
		}
		h.closers = append(h.closers, pwm.Close)
		hwOpts.PWM = pwm
		hwOpts.Channels = map[string]int{
			cfg.Pins.LeftDuty:  cfg.PWM.LeftChannel,
			cfg.Pins.RightDuty: cfg.PWM.RightChannel,
		}
	}
	gpio, err := hardware.NewGPIO(cfg.Pins, hwOpts)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	h.Interface = gpio
	return h, nil
}

// Outputs are the diagnostic sinks a config asks for.  Stdout is always
// included.  Screen is nil if disabled or not present.
type Outputs struct {
	Sink   diag.Multi
	Screen *screen.Screen
	serial *diag.Serial
}

func OpenOutputs(cfg config.Config) *Outputs {
	o := &Outputs{Sink: diag.Multi{diag.Stdout()}}
	if cfg.Serial.Port != "" {
		s, err := diag.OpenSerial(cfg.Serial.Port, cfg.Serial.BaudRate)
		if err != nil {
			logrus.WithError(err).Warn("Serial diagnostics disabled")
		} else {
			o.serial = s
			o.Sink = append(o.Sink, s)
		}
	}
	if cfg.Screen.Device != "" {
		if _, err := os.Stat(cfg.Screen.Device); err != nil {
			logrus.WithError(err).Info("No screen")
		} else {
			o.Screen = screen.New(cfg.Screen.Device, cfg.Screen.Lines)
			o.Sink = append(o.Sink, o.Screen)
		}
	}
	return o
}

func (o *Outputs) Close() {
	if o.serial != nil {
		_ = o.serial.Close()
	}
}
