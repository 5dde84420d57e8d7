package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/sonarbot/pkg/avoidmode"
	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/diag"
	"github.com/tigerbot-team/sonarbot/pkg/rangesensor"
	"github.com/tigerbot-team/sonarbot/pkg/vehicle"
)

var CLI struct {
	Config string `help:"Config file." default:"/cfg/sonarbot.yaml" type:"path"`
	Dummy  bool   `help:"Print hardware calls instead of driving pins."`
	Count  int    `help:"Number of measurements; 0 measures forever."`
}

func main() {
	kong.Parse(&CLI, kong.Description("Prints range sensor readings. The motors are not touched."))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Println("Failed to load config ", err)
		os.Exit(1)
	}

	opts := vehicle.Options{Backend: vehicle.BackendGPIO}
	if CLI.Dummy {
		opts.Backend = vehicle.BackendDummy
	}
	hw, err := vehicle.OpenHardware(cfg, opts)
	if err != nil {
		fmt.Println("Failed to open hardware ", err)
		os.Exit(1)
	}
	defer func() {
		_ = hw.Close()
	}()

	sensor := rangesensor.New(hw, cfg.Pins.Trigger, cfg.Pins.Echo, cfg.Calibration, diag.Discard)
	for n := 0; CLI.Count <= 0 || n < CLI.Count; n++ {
		d := sensor.Measure()
		fmt.Printf("%8.2fcm  %-8v missed=%d/%d\n",
			d, avoidmode.Classify(d, cfg.Calibration), sensor.LastMissedEchoes(), cfg.Calibration.Samples)
	}
}
