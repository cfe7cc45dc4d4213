package integrators

import "math"

// Delay is a fixed-length delay line over whole timesteps.
type Delay struct {
	buf []float64
	pos int
}

// NewDelay creates a delay of steps timesteps, at least one.
func NewDelay(steps int) *Delay {
	if steps < 1 {
		steps = 1
	}
	return &Delay{buf: make([]float64, steps)}
}

// NewDelayTime creates a delay of roughly delay seconds at timestep dt.
func NewDelayTime(delay, dt float64) *Delay {
	return NewDelay(int(math.Round(delay / dt)))
}

// Initialize fills the line with v.
func (d *Delay) Initialize(v float64) {
	for i := range d.buf {
		d.buf[i] = v
	}
	d.pos = 0
}

// Update pushes v and returns the value pushed Len steps ago.
func (d *Delay) Update(v float64) float64 {
	out := d.buf[d.pos]
	d.buf[d.pos] = v
	d.pos = (d.pos + 1) % len(d.buf)
	return out
}

// Oldest returns the value Update would return next.
func (d *Delay) Oldest() float64 { return d.buf[d.pos] }

func (d *Delay) Len() int { return len(d.buf) }
