package hardware

import "time"

// Room is a crude World for bench runs.  The vehicle faces a wall that gets
// closer as it drives forward and further away as it reverses.  Spinning on
// the spot for TurnTime swaps the wall for the next entry of Headings.
//
// Room is not safe for concurrent use; the Sim that owns it serialises calls.
type Room struct {
	Headings      []float64
	SpeedCMPerSec float64 // at full duty
	TurnTime      time.Duration

	heading  int
	distance float64
	turning  time.Duration
}

func NewRoom(headings ...float64) *Room {
	if len(headings) == 0 {
		headings = []float64{150}
	}
	return &Room{
		Headings:      headings,
		SpeedCMPerSec: 100,
		TurnTime:      50 * time.Millisecond,
		distance:      headings[0],
	}
}

func (r *Room) DistanceCM() float64 {
	return r.distance
}

func (r *Room) Advance(d time.Duration, left, right float64) {
	if (left > 0 && right < 0) || (left < 0 && right > 0) {
		r.turning += d
		for r.turning >= r.TurnTime {
			r.turning -= r.TurnTime
			r.heading = (r.heading + 1) % len(r.Headings)
			r.distance = r.Headings[r.heading]
		}
		return
	}
	r.turning = 0
	r.distance -= (left + right) / 2 * r.SpeedCMPerSec * d.Seconds()
	if r.distance < 1 {
		// Bumper on the wall.
		r.distance = 1
	}
}

func (r *Room) Heading() int {
	return r.heading
}
