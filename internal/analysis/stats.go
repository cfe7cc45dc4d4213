package analysis

import "math"

// Summary holds simple statistics of a series.
type Summary struct {
	Min, Max  float64
	Mean, RMS float64
	Final     float64
	Samples   int
}

func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{Min: values[0], Max: values[0], Final: values[len(values)-1], Samples: len(values)}
	var sum, sq float64
	for _, v := range values {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		sum += v
		sq += v * v
	}
	s.Mean = sum / float64(len(values))
	s.RMS = math.Sqrt(sq / float64(len(values)))
	return s
}

// SettlingTime returns the first time after which values stay within tol
// (relative to the final value) of the final value.
func SettlingTime(times, values []float64, tol float64) float64 {
	n := min(len(times), len(values))
	if n == 0 {
		return 0
	}
	final := values[n-1]
	band := tol * math.Abs(final)
	if band == 0 {
		band = tol
	}
	for i := n - 1; i >= 0; i-- {
		if math.Abs(values[i]-final) > band {
			return times[i+1]
		}
	}
	return times[0]
}
