package integrators

import (
	"math"
	"testing"
)

func TestTrapezoidRamp(t *testing.T) {
	integ := NewTrapezoid()
	dt := 0.01
	integ.Initialize(dt, 0, 0)

	steps := 100
	for i := 1; i <= steps; i++ {
		integ.Update(float64(i) * dt)
	}

	// integral of t from 0 to 1 is exact for the trapezoidal rule
	if math.Abs(integ.Value()-0.5) > 1e-12 {
		t.Errorf("got %.12f, expected 0.5", integ.Value())
	}
}

func TestTrapezoidSine(t *testing.T) {
	integ := NewTrapezoid()
	dt := 0.001
	integ.Initialize(dt, 0, 0)

	steps := 1000
	for i := 1; i <= steps; i++ {
		integ.Update(math.Sin(float64(i) * dt))
	}

	expected := 1 - math.Cos(1.0)
	if math.Abs(integ.Value()-expected) > 1e-6 {
		t.Errorf("got %.8f, expected %.8f", integ.Value(), expected)
	}
}

func TestLimited(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"upper", 10, 1},
		{"lower", -10, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimited(1, -1)
			l.Initialize(1, 0, 0)
			var y float64
			for i := 0; i < 5; i++ {
				y = l.Update(tt.input)
			}
			if y != tt.expected {
				t.Errorf("got %v, expected %v", y, tt.expected)
			}
		})
	}
}

func TestDelay(t *testing.T) {
	d := NewDelay(3)
	d.Initialize(-1)

	var got []float64
	for i := 0; i < 6; i++ {
		got = append(got, d.Update(float64(i)))
	}

	expected := []float64{-1, -1, -1, 0, 1, 2}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("step %d: got %v, expected %v", i, got[i], expected[i])
		}
	}
	if d.Oldest() != 3 {
		t.Errorf("oldest: got %v, expected 3", d.Oldest())
	}
}

func TestDelayTime(t *testing.T) {
	tests := []struct {
		delay, dt float64
		steps     int
	}{
		{0.01, 0.001, 10},
		{0.0001, 0.001, 1},
		{0.0026, 0.001, 3},
	}

	for _, tt := range tests {
		if got := NewDelayTime(tt.delay, tt.dt).Len(); got != tt.steps {
			t.Errorf("NewDelayTime(%v, %v): got %d steps, expected %d", tt.delay, tt.dt, got, tt.steps)
		}
	}
}
