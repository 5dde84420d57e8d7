package screen

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"
)

const S = 128

var log = logrus.WithField("component", "screen")

// Screen is a diagnostic sink that shows the most recent lines, plus a status
// bar, on the 128x128 RGB565 framebuffer.
type Screen struct {
	lock sync.Mutex

	device   string
	maxLines int
	lines    []string

	status string
	fill   float64
	warn   bool
}

func New(device string, maxLines int) *Screen {
	if maxLines < 1 {
		maxLines = 1
	}
	return &Screen{
		device:   device,
		maxLines: maxLines,
	}
}

func (s *Screen) Println(line string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.lines = append(s.lines, line)
	if len(s.lines) > s.maxLines {
		s.lines = s.lines[len(s.lines)-s.maxLines:]
	}
}

// SetStatus updates the status bar.  fill is the bar length in [0, 1]; warn
// draws the warning triangle.
func (s *Screen) SetStatus(status string, fill float64, warn bool) {
	if fill < 0 {
		fill = 0
	} else if fill > 1 {
		fill = 1
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.status = status
	s.fill = fill
	s.warn = warn
}

func (s *Screen) Lines() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *Screen) Render() image.Image {
	s.lock.Lock()
	lines := append([]string(nil), s.lines...)
	status, fill, warn := s.status, s.fill, s.warn
	s.lock.Unlock()

	dc := gg.NewContext(S, S)
	dc.SetRGBA(1, 0.9, 0, 1)
	for i, l := range lines {
		dc.DrawString(l, 2, float64(14+i*13))
	}

	dc.Push()
	dc.Translate(0, S-24)
	dc.DrawString(status, 2, 10)
	if warn {
		dc.SetRGBA(1, 0.2, 0, 1)
	}
	dc.DrawRectangle(2, 14, (S-4)*fill, 8)
	dc.Fill()
	dc.Pop()

	if warn {
		dc.Push()
		dc.Translate(S-16, S-34)
		DrawWarning(dc)
		dc.Pop()
	}
	return dc.Image()
}

// LoopUpdatingScreen redraws the framebuffer until ctx is done, then blanks
// it.
func (s *Screen) LoopUpdatingScreen(ctx context.Context) {
	f, err := os.OpenFile(s.device, os.O_RDWR, 0666)
	if err != nil {
		log.WithError(err).Warn("Failed to open screen, ignoring")
		return
	}
	defer f.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var buf [S * S * 2]byte
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(buf[:])
			return
		case <-ticker.C:
		}

		buf := ToRGB565(s.Render())
		_, err = f.Seek(0, 0)
		if err != nil {
			log.WithError(err).Warn("Screen failure")
			return
		}
		for i := 0; i < S; i++ {
			_, err = f.Write(buf[i*256 : i*256+256])
			if err != nil {
				log.WithError(err).Warn("Screen failure")
				return
			}
			time.Sleep(10 * time.Microsecond)
		}
	}
}

// ToRGB565 converts an S x S image to the panel's layout: rotated a quarter
// turn, 16 bits per pixel, low byte first.
func ToRGB565(img image.Image) []byte {
	buf := make([]byte, S*S*2)
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			c := img.At(x, y)
			r, g, b, _ := c.RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+(x)*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+(x)*S*2] = bb | (gb << 5)
		}
	}
	return buf
}

func DrawWarning(dc *gg.Context) {
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 14, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -3, 3)
}

// StatusLine is the text shown in the status bar.
func StatusLine(zone string, distanceCM float64) string {
	return fmt.Sprintf("%s %.0fcm", zone, distanceCM)
}
