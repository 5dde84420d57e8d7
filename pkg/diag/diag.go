// Package diag carries the controller's human-readable diagnostic lines, such
// as the filtered distance, to wherever someone is watching.
package diag

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// DefaultBaudRate is the usual microcontroller serial monitor rate.
const DefaultBaudRate = 9600

// Sink accepts diagnostic lines.  Implementations must not block the control
// loop for long; none of them report errors.
type Sink interface {
	Println(line string)
}

// Writer writes each line, newline terminated, to an io.Writer.
type Writer struct {
	lock sync.Mutex
	w    io.Writer
	eol  string
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, eol: "\n"}
}

// Stdout is a Writer on os.Stdout.
func Stdout() *Writer {
	return NewWriter(os.Stdout)
}

func (w *Writer) Println(line string) {
	w.lock.Lock()
	defer w.lock.Unlock()
	_, _ = io.WriteString(w.w, line+w.eol)
}

// Serial writes lines to a serial port using CRLF line endings, the way a
// microcontroller serial monitor expects them.
type Serial struct {
	Writer
	port io.Closer
}

func OpenSerial(device string, baud int) (*Serial, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", device)
	}
	return newSerial(port), nil
}

func newSerial(port io.WriteCloser) *Serial {
	return &Serial{
		Writer: Writer{w: port, eol: "\r\n"},
		port:   port,
	}
}

func (s *Serial) Close() error {
	return s.port.Close()
}

// Multi sends every line to each of its sinks in turn.
type Multi []Sink

func (m Multi) Println(line string) {
	for _, s := range m {
		s.Println(line)
	}
}

// Discard drops every line.
var Discard Sink = discard{}

type discard struct{}

func (discard) Println(string) {}

// Printf formats a line and sends it to s.
func Printf(s Sink, format string, a ...interface{}) {
	s.Println(fmt.Sprintf(format, a...))
}
