package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/sonarbot/pkg/avoidmode"
	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/motors"
	"github.com/tigerbot-team/sonarbot/pkg/rangesensor"
	"github.com/tigerbot-team/sonarbot/pkg/screen"
	"github.com/tigerbot-team/sonarbot/pkg/sound"
	"github.com/tigerbot-team/sonarbot/pkg/vehicle"
)

var CLI struct {
	Config           string    `help:"Config file." default:"/cfg/sonarbot.yaml" type:"path"`
	Dummy            bool      `help:"Print hardware calls instead of driving pins."`
	Simulate         bool      `help:"Drive a simulated vehicle in a simulated room."`
	SimulateDistance []float64 `help:"Wall distance in cm for each heading of the simulated room." default:"150,60,300,25"`
	LogLevel         string    `help:"Log level." default:"info" enum:"trace,debug,info,warn,error"`
	Cycles           int       `help:"Stop after this many cycles; 0 runs until interrupted."`
}

func main() {
	kong.Parse(&CLI, kong.Description("Reactive obstacle-avoidance controller."))

	fmt.Println("---- sonarbot ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	level, err := logrus.ParseLevel(CLI.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Bad log level")
	}
	logrus.SetLevel(level)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	if err := config.WriteInUse(CLI.Config, cfg); err != nil {
		logrus.WithError(err).Warn("Failed to record in-use config")
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	opts := vehicle.Options{Backend: vehicle.BackendGPIO}
	switch {
	case CLI.Simulate:
		opts.Backend = vehicle.BackendSim
		opts.SimulateDistances = CLI.SimulateDistance
		opts.SimulateRealTime = CLI.Cycles == 0
	case CLI.Dummy:
		opts.Backend = vehicle.BackendDummy
	}
	hw, err := vehicle.OpenHardware(cfg, opts)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialise hardware")
	}

	outputs := vehicle.OpenOutputs(cfg)
	defer outputs.Close()
	if outputs.Screen != nil {
		go outputs.Screen.LoopUpdatingScreen(ctx)
	}

	var sounds sound.Interface = sound.Dummy{}
	if opts.Backend == vehicle.BackendGPIO {
		player := sound.New()
		defer player.Close()
		sounds = player
	}

	sensor := rangesensor.New(hw, cfg.Pins.Trigger, cfg.Pins.Echo, cfg.Calibration, outputs.Sink)
	actuator := motors.New(hw, cfg.Pins, cfg.Calibration)
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		actuator.Stop()
		if err := hw.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close hardware")
		}
		time.Sleep(100 * time.Millisecond)
	}()

	sounds.Play(cfg.Sounds.Startup)

	mode := avoidmode.New(sensor, actuator, cfg.Calibration, avoidmode.Options{
		Sounds:       sounds,
		EvasiveSound: cfg.Sounds.Evasive,
		OnDecision: func(d avoidmode.Decision) {
			if outputs.Screen == nil {
				return
			}
			fill := d.DistanceCM / cfg.Calibration.SafeCM
			outputs.Screen.SetStatus(screen.StatusLine(d.Zone.String(), d.DistanceCM), fill, d.Zone == avoidmode.Critical)
		},
	})
	fmt.Printf("----- %s -----\n", mode.Name())

	if CLI.Cycles > 0 {
		n := mode.RunCycles(ctx, CLI.Cycles)
		logrus.WithField("cycles", n).Info("Finished")
		return
	}

	mode.Start(ctx)
	<-ctx.Done()
	fmt.Println("Context done, stopping active mode and shutting down")
	mode.Stop()
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		logrus.WithField("signal", s).Info("Signal received")
		cancelFunc()
		// A cycle with no echoes takes Samples * EchoTimeout to finish.
		time.Sleep(10 * time.Second)
		os.Exit(0)
	}()
}
