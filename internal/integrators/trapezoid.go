// Package integrators holds the small numerical state machines that
// components step once per timestep.
package integrators

// Trapezoid integrates a signal with the trapezoidal rule:
//
//	y[n] = y[n-1] + dt/2 * (u[n] + u[n-1])
type Trapezoid struct {
	dt    float64
	prevU float64
	y     float64
}

func NewTrapezoid() *Trapezoid {
	return &Trapezoid{}
}

// Initialize sets the timestep, the previous input and the output.
func (tr *Trapezoid) Initialize(dt, u0, y0 float64) {
	tr.dt = dt
	tr.prevU = u0
	tr.y = y0
}

// Update advances one step with input u and returns the new output.
func (tr *Trapezoid) Update(u float64) float64 {
	tr.y += 0.5 * tr.dt * (u + tr.prevU)
	tr.prevU = u
	return tr.y
}

func (tr *Trapezoid) Value() float64 { return tr.y }

// Limited is Trapezoid with the output clamped to [min, max].
type Limited struct {
	Trapezoid
	min, max float64
}

func NewLimited(min, max float64) *Limited {
	if min > max {
		min, max = max, min
	}
	return &Limited{min: min, max: max}
}

func (l *Limited) Update(u float64) float64 {
	y := l.Trapezoid.Update(u)
	switch {
	case y < l.min:
		l.y = l.min
	case y > l.max:
		l.y = l.max
	}
	return l.y
}
