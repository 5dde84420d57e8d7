// Package config loads the vehicle configuration: defaults, then the YAML
// file, then environment overrides for the deployment-specific bits.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/sonarbot/pkg/calibration"
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
)

const DefaultPath = "/cfg/sonarbot.yaml"

const (
	PWMDriverGPIO    = "gpio"
	PWMDriverPCA9685 = "pca9685"
)

var ErrUnknownPWMDriver = errors.New("unknown PWM driver")

type Config struct {
	Pins        hardware.Pins       `yaml:"pins"`
	Calibration calibration.Profile `yaml:"calibration"`
	PWM         PWM                 `yaml:"pwm"`
	Serial      Serial              `yaml:"serial"`
	Screen      Screen              `yaml:"screen"`
	Sounds      Sounds              `yaml:"sounds"`
}

type PWM struct {
	// Driver is "gpio" for the host's own PWM or "pca9685".
	Driver      string `yaml:"driver"`
	FrequencyHz int    `yaml:"frequencyHz"`

	// Only used by the pca9685 driver.
	I2CDevice    string `yaml:"i2cDevice"`
	LeftChannel  int    `yaml:"leftChannel"`
	RightChannel int    `yaml:"rightChannel"`
}

// Serial is the diagnostic serial port.  Empty Port disables it.
type Serial struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baudRate"`
}

// Screen is the status framebuffer.  Empty Device disables it.
type Screen struct {
	Device string `yaml:"device"`
	Lines  int    `yaml:"lines"`
}

type Sounds struct {
	Startup string `yaml:"startup"`
	Evasive string `yaml:"evasive"`
}

type overrides struct {
	SerialPort   string `env:"SONARBOT_SERIAL_PORT"`
	ScreenDevice string `env:"SONARBOT_SCREEN_DEVICE"`
	PWMDriver    string `env:"SONARBOT_PWM_DRIVER"`
	I2CDevice    string `env:"SONARBOT_I2C_DEVICE"`
}

func Default() Config {
	return Config{
		Pins:        hardware.DefaultPins(),
		Calibration: calibration.Default(),
		PWM: PWM{
			Driver:       PWMDriverGPIO,
			FrequencyHz:  1000,
			I2CDevice:    "/dev/i2c-1",
			LeftChannel:  0,
			RightChannel: 1,
		},
		Serial: Serial{
			BaudRate: 9600,
		},
		Screen: Screen{
			Device: "/dev/fb1",
			Lines:  6,
		},
		Sounds: Sounds{
			Startup: "/sounds/sonarbotstart.wav",
			Evasive: "/sounds/evade.wav",
		},
	}
}

// Load reads the config at path over the defaults.  A missing file is fine.
// An inconsistent calibration profile is logged but still returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logrus.WithField("path", path).Info("No config file, using defaults")
	case err != nil:
		return cfg, pkgerrors.Wrapf(err, "failed to read config %s", path)
	default:
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, pkgerrors.Wrapf(err, "failed to parse config %s", path)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	switch cfg.PWM.Driver {
	case PWMDriverGPIO, PWMDriverPCA9685:
	default:
		return cfg, pkgerrors.Wrapf(ErrUnknownPWMDriver, "%q", cfg.PWM.Driver)
	}

	if err := cfg.Calibration.Validate(); err != nil {
		logrus.WithError(err).Warn("Calibration profile is inconsistent, using it anyway")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var o overrides
	if err := env.Parse(&o); err != nil {
		return pkgerrors.Wrap(err, "failed to parse environment")
	}
	if o.SerialPort != "" {
		cfg.Serial.Port = o.SerialPort
	}
	if o.ScreenDevice != "" {
		cfg.Screen.Device = o.ScreenDevice
	}
	if o.PWMDriver != "" {
		cfg.PWM.Driver = o.PWMDriver
	}
	if o.I2CDevice != "" {
		cfg.PWM.I2CDevice = o.I2CDevice
	}
	return nil
}

// InUsePath is where the effective config for path gets written:
// /cfg/sonarbot.yaml -> /cfg/sonarbot-in-use.yaml.
func InUsePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "-in-use.yaml"
}

// WriteInUse records the effective config next to the file it came from so
// that the values actually driven can be checked after a run.
func WriteInUse(path string, cfg Config) error {
	cfgBytes, err := yaml.Marshal(&cfg)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal config")
	}
	inUse := InUsePath(path)
	if err := os.WriteFile(inUse, cfgBytes, 0666); err != nil {
		return pkgerrors.Wrapf(err, "failed to write %s", inUse)
	}
	return nil
}
