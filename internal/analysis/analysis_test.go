package analysis

import (
	"math"
	"strings"
	"testing"
)

func sine(freq, dt float64, n int) ([]float64, []float64) {
	times := make([]float64, n)
	values := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * dt
		values[i] = math.Sin(2 * math.Pi * freq * times[i])
	}
	return times, values
}

func TestFFT_Pads(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 0},
		{1, 1},
		{3, 4},
		{8, 8},
		{100, 128},
	}
	for _, tt := range tests {
		if got := len(FFT(make([]float64, tt.n))); got != tt.want {
			t.Errorf("len(FFT(%d)) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestFFT_Constant(t *testing.T) {
	out := FFT([]float64{1, 1, 1, 1})
	if math.Abs(real(out[0])-4) > 1e-12 {
		t.Errorf("DC bin = %v, want 4", out[0])
	}
	for k := 1; k < 4; k++ {
		if math.Abs(real(out[k]))+math.Abs(imag(out[k])) > 1e-12 {
			t.Errorf("bin %d = %v, want 0", k, out[k])
		}
	}
}

func TestSpectrum_Dominant(t *testing.T) {
	_, values := sine(5, 0.01, 256)
	spec := NewSpectrum(values, 0.01)

	if len(spec.Frequencies) != 128 {
		t.Fatalf("expected 128 bins, got %d", len(spec.Frequencies))
	}
	if f := spec.Dominant(); math.Abs(f-5) > 0.4 {
		t.Errorf("dominant frequency %g, want about 5", f)
	}
	if (Spectrum{}).Dominant() != 0 {
		t.Error("empty spectrum should have no dominant frequency")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{3, -1, 2})
	if s.Min != -1 || s.Max != 3 || s.Final != 2 || s.Samples != 3 {
		t.Errorf("unexpected summary %+v", s)
	}
	if math.Abs(s.Mean-4.0/3) > 1e-12 {
		t.Errorf("mean %g", s.Mean)
	}
	if math.Abs(s.RMS-math.Sqrt(14.0/3)) > 1e-12 {
		t.Errorf("rms %g", s.RMS)
	}
	if (Summarize(nil) != Summary{}) {
		t.Error("empty series should give zero summary")
	}
}

func TestSettlingTime(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4, 5}
	values := []float64{0, 0.5, 0.9, 0.99, 1, 1}

	if got := SettlingTime(times, values, 0.02); got != 3 {
		t.Errorf("settling time %g, want 3", got)
	}
	if got := SettlingTime(times, []float64{1, 1, 1, 1, 1, 1}, 0.02); got != 0 {
		t.Errorf("flat series settles at %g, want 0", got)
	}
}

func TestCrossingsAndPeriod(t *testing.T) {
	times, values := sine(5, 0.001, 1000)

	c := Crossings(times, values, 0.5)
	if len(c) != 5 {
		t.Fatalf("expected 5 crossings, got %d", len(c))
	}
	// sin(2*pi*5*t) = 0.5 first at t = 1/60.
	if math.Abs(c[0]-1.0/60) > 1e-4 {
		t.Errorf("first crossing %g", c[0])
	}
	if p := Period(times, values); math.Abs(p-0.2) > 1e-3 {
		t.Errorf("period %g, want 0.2", p)
	}
}

func TestPhasePortrait(t *testing.T) {
	_, x := sine(1, 0.01, 100)
	_, y := sine(1, 0.01, 120)
	p := NewPhasePortrait("x", x, "y", y)
	if len(p.Points) != 100 {
		t.Fatalf("expected 100 points, got %d", len(p.Points))
	}

	out := PhasePortraitToASCII(p, 40, 10)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 10 {
		t.Errorf("expected 10 lines, got %d", len(lines))
	}
	if !strings.Contains(out, "•") {
		t.Error("expected plotted points")
	}
	if PhasePortraitToASCII(nil, 40, 10) != "" {
		t.Error("nil portrait should render empty")
	}
}
