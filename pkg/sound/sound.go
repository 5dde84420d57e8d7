package sound

import (
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "sound")

type Interface interface {
	Play(path string)
}

// Player plays wav files on a background goroutine.  A sound that starts
// playing cuts off whatever was playing before.
type Player struct {
	soundsToPlay chan string
}

var _ Interface = (*Player)(nil)

func New() *Player {
	p := &Player{soundsToPlay: make(chan string)}
	go p.loop()
	return p
}

func (p *Player) loop() {
	defer func() {
		recover()
		for s := range p.soundsToPlay {
			log.WithField("path", s).Warn("Unable to play sound")
		}
	}()
	sampleRate := beep.SampleRate(44100)
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
	if err != nil {
		log.WithError(err).Warn("Failed to open speaker")
		for s := range p.soundsToPlay {
			log.WithField("path", s).Warn("Unable to play sound")
		}
		return
	}
	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for soundToPlay := range p.soundsToPlay {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			log.WithError(err).Warn("Failed to open sound")
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			log.WithError(err).Warn("Failed to decode sound")
			f.Close()
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}

// Play queues a sound.  It gives up rather than hold up the caller if the
// player is busy.
func (p *Player) Play(path string) {
	if path == "" {
		return
	}
	defer func() {
		recover() // Don't die if the channel is already closed.
	}()
	select {
	case p.soundsToPlay <- path:
	case <-time.After(10 * time.Millisecond):
		log.WithField("path", path).Warn("Timed out trying to play sound")
	}
}

func (p *Player) Close() {
	close(p.soundsToPlay)
}

// Dummy logs instead of playing.
type Dummy struct{}

func (Dummy) Play(path string) {
	log.WithField("path", path).Info("DSND: Play")
}
