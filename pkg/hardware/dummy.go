package hardware

import (
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
)

// Dummy prints every call instead of touching hardware.  PulseIn reports a
// fixed echo so that the controller has something to act on.
type Dummy struct {
	Echo time.Duration
}

func NewDummy(echo time.Duration) *Dummy {
	return &Dummy{Echo: echo}
}

func (d *Dummy) DigitalWrite(pin string, level gpio.Level) {
	fmt.Printf("DHW: DigitalWrite pin=%v level=%v\n", pin, level)
}

func (d *Dummy) AnalogWrite(pin string, duty uint8) {
	fmt.Printf("DHW: AnalogWrite pin=%v duty=%v\n", pin, duty)
}

func (d *Dummy) PulseIn(pin string, timeout time.Duration) time.Duration {
	fmt.Printf("DHW: PulseIn pin=%v timeout=%v\n", pin, timeout)
	if d.Echo > timeout {
		return 0
	}
	return d.Echo
}

func (d *Dummy) Delay(dur time.Duration) {
	time.Sleep(dur)
}

func (d *Dummy) Halt() {
	fmt.Println("DHW: Halt")
}

var _ Interface = (*Dummy)(nil)
