package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (c *closingBuffer) Close() error {
	c.closed = true
	return nil
}

type recorder struct {
	lines []string
}

func (r *recorder) Println(line string) {
	r.lines = append(r.lines, line)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Println("Filtered Distance: 12.50")
	Printf(w, "Filtered Distance: %.2f", 3.0)
	assert.Equal(t, "Filtered Distance: 12.50\nFiltered Distance: 3.00\n", buf.String())
}

func TestSerialUsesCRLF(t *testing.T) {
	port := &closingBuffer{}
	s := newSerial(port)
	s.Println("Filtered Distance: 0.00")
	assert.Equal(t, "Filtered Distance: 0.00\r\n", port.String())
	assert.NoError(t, s.Close())
	assert.True(t, port.closed)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, Discard, b}
	m.Println("one")
	m.Println("two")
	assert.Equal(t, []string{"one", "two"}, a.lines)
	assert.Equal(t, a.lines, b.lines)
}
