package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/sonarbot/pkg/avoidmode"
	"github.com/tigerbot-team/sonarbot/pkg/calibration"
	"github.com/tigerbot-team/sonarbot/pkg/diag"
	"github.com/tigerbot-team/sonarbot/pkg/screen"
)

var CLI struct {
	Device string `help:"Framebuffer device." default:"/dev/fb1"`
}

// Each line typed is treated as a distance in cm and shown the way the
// controller would show it.
func main() {
	kong.Parse(&CLI)
	ctx := context.Background()

	s := screen.New(CLI.Device, 6)
	go s.LoopUpdatingScreen(ctx)

	profile := calibration.Default()
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		d, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil {
			s.Println(strings.TrimSpace(line))
			continue
		}
		diag.Printf(s, "Filtered Distance: %.2f", d)
		zone := avoidmode.Classify(d, profile)
		s.SetStatus(screen.StatusLine(zone.String(), d), d/profile.SafeCM, zone == avoidmode.Critical)
	}
}
