package vehicle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
)

func TestOpenSim(t *testing.T) {
	cfg := config.Default()
	hw, err := OpenHardware(cfg, Options{Backend: BackendSim, SimulateDistances: []float64{30, 300}})
	require.NoError(t, err)

	sim, ok := hw.Interface.(*hardware.Sim)
	require.True(t, ok)
	echo := sim.PulseIn(cfg.Pins.Echo, time.Second)
	assert.Equal(t, hardware.EchoForDistance(30), echo)

	sim.DigitalWrite(cfg.Pins.LeftForward, gpio.High)
	require.NoError(t, hw.Close())
	assert.Equal(t, gpio.Low, sim.Level(cfg.Pins.LeftForward))
}

func TestOpenDummy(t *testing.T) {
	hw, err := OpenHardware(config.Default(), Options{Backend: BackendDummy})
	require.NoError(t, err)
	assert.Equal(t, hardware.EchoForDistance(200), hw.PulseIn("GPIO10", time.Second))
	assert.NoError(t, hw.Close())
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := OpenHardware(config.Default(), Options{Backend: "carrier-pigeon"})
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestOpenOutputs(t *testing.T) {
	cfg := config.Default()
	cfg.Screen.Device = filepath.Join(t.TempDir(), "fb")
	require.NoError(t, os.WriteFile(cfg.Screen.Device, nil, 0666))

	o := OpenOutputs(cfg)
	defer o.Close()
	require.NotNil(t, o.Screen)
	assert.Len(t, o.Sink, 2)

	o.Sink.Println("Filtered Distance: 42.00")
	assert.Equal(t, []string{"Filtered Distance: 42.00"}, o.Screen.Lines())
}

func TestOpenOutputsMissingDevices(t *testing.T) {
	cfg := config.Default()
	cfg.Screen.Device = filepath.Join(t.TempDir(), "no-fb")
	cfg.Serial.Port = filepath.Join(t.TempDir(), "no-tty")

	o := OpenOutputs(cfg)
	defer o.Close()
	assert.Nil(t, o.Screen)
	assert.Len(t, o.Sink, 1)
}
