package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/sonarbot/pkg/pca9685"
)

var CLI struct {
	Device      string `help:"I2C device the PCA9685 is on." default:"/dev/i2c-1" env:"SONARBOT_I2C_DEVICE"`
	FrequencyHz int    `help:"PWM frequency." default:"1000"`
}

func main() {
	kong.Parse(&CLI)

	pwmController, err := pca9685.New(CLI.Device, CLI.FrequencyHz)
	if err != nil {
		fmt.Println("Failed to open PCA9685", err)
		return
	}
	defer pwmController.Close()

	err = pwmController.Configure()
	if err != nil {
		fmt.Println("Failed to configure PCA9685", err)
		return
	}

	fmt.Println(
		`Commands:
    p <n> <duty>  # Set channel duty

<n>     Channel number 0-15
<duty>  Duty cycle 0-255; 0=fully off, 255=fully on`)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 || parts[0] != "p" {
			continue
		}
		if len(parts) < 3 {
			fmt.Println("Not enough parameters")
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			fmt.Println("Expected int, not ", parts[1])
			continue
		}
		v, err := strconv.ParseUint(parts[2], 10, 8)
		if err != nil {
			fmt.Println("Expected duty 0-255, not ", parts[2])
			continue
		}
		fmt.Printf("Setting channel %d to %d\n", n, v)
		if err := pwmController.SetDuty(n, uint8(v)); err != nil {
			fmt.Println("Failed to write to PCA9685: ", err)
		}
	}
}
