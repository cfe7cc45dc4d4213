package metrics

import (
	"math"

	"github.com/san-kum/tlmsim/internal/core"
)

// Stability counts the steps in which any node variable of a system left
// [-threshold, threshold] or was not finite.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) OnRunStart(sys *core.System, startT, stopT float64, threads int) {}

func (s *Stability) OnStep(sys *core.System, info core.StepInfo) {
	s.samples++
	for _, n := range sys.AllNodes() {
		if !s.within(n) {
			s.violations++
			return
		}
	}
}

func (s *Stability) within(n *core.Node) bool {
	for i := 0; i < n.NumDataVariables(); i++ {
		v := n.Data(i)
		if math.IsNaN(v) || math.Abs(v) > s.threshold {
			return false
		}
	}
	return true
}

func (s *Stability) OnRunEnd(sys *core.System, steps int, err error) {}

// Value is the fraction of steps without a violation.
func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
