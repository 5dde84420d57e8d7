package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/motors"
	"github.com/tigerbot-team/sonarbot/pkg/vehicle"
)

var CLI struct {
	Config string `help:"Config file." default:"/cfg/sonarbot.yaml" type:"path"`
	Dummy  bool   `help:"Print hardware calls instead of driving pins."`
}

const usage = `Commands:
    f <duty> <ms>            # Drive forward, then brake; ms=0 leaves the motors running
    b <duty> <ms>            # Drive backward, then brake
    r <duty>                 # Turn right on the spot
    k <duty> <fwd|back>      # Brake, as if coming out of the given direction
    s                        # Stop
    q                        # Quit

<duty>   PWM duty cycle 0-255
`

var errQuit = errors.New("quit")

func main() {
	kong.Parse(&CLI, kong.Description("Interactive motor maneuver console."))

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
	actuator := motors.New(hw, cfg.Pins, cfg.Calibration)
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		actuator.Stop()
		_ = hw.Close()
	}()

	fmt.Print(usage + "\n")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				fmt.Println("\nFailed to read stdin: ", err)
			}
			return
		}
		err = execute(actuator, line)
		if err == errQuit {
			return
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Println(actuator.Command())
	}
}

func execute(m motors.Interface, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	switch parts[0] {
	case "f", "b":
		if len(parts) < 3 {
			return errors.New("Not enough parameters")
		}
		duty, err := parseDuty(parts[1])
		if err != nil {
			return err
		}
		ms, err := strconv.Atoi(parts[2])
		if err != nil || ms < 0 {
			return errors.Errorf("Expected milliseconds, not %q", parts[2])
		}
		d := time.Duration(ms) * time.Millisecond
		if parts[0] == "f" {
			m.DriveForward(duty, d)
		} else {
			m.DriveBackward(duty, d)
		}
	case "r":
		if len(parts) < 2 {
			return errors.New("Not enough parameters")
		}
		duty, err := parseDuty(parts[1])
		if err != nil {
			return err
		}
		m.TurnRight(duty)
	case "k":
		if len(parts) < 3 {
			return errors.New("Not enough parameters")
		}
		duty, err := parseDuty(parts[1])
		if err != nil {
			return err
		}
		switch parts[2] {
		case "fwd":
			m.Brake(duty, true)
		case "back":
			m.Brake(duty, false)
		default:
			return errors.Errorf("Expected fwd or back, not %q", parts[2])
		}
	case "s":
		m.Stop()
	case "q":
		return errQuit
	default:
		return errors.Errorf("Unknown command %q", parts[0])
	}
	return nil
}

func parseDuty(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, errors.Errorf("Expected duty 0-255, not %q", s)
	}
	return uint8(v), nil
}
