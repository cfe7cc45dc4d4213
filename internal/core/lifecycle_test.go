package core

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("System lifecycle", func() {
	var (
		root    *System
		counter *testCounter
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		root = NewSystem("root")
		Expect(root.SetDesiredTimestep(0.1)).To(Succeed())
		counter = newTestCounter("counter")
		Expect(root.AddComponent(counter)).To(Succeed())
	})

	It("starts unconfigured", func() {
		Expect(root.State()).To(Equal(StateUnconfigured))
		Expect(root.Simulate(ctx, 0, 1)).To(MatchError(ErrNotInitialized))
	})

	It("moves through initialize, simulate and finalize", func() {
		Expect(root.Initialize(0, 1, 0)).To(Succeed())
		Expect(root.State()).To(Equal(StateInitialized))
		Expect(counter.inits).To(Equal(1))

		Expect(root.Simulate(ctx, 0, 1)).To(Succeed())
		Expect(root.State()).To(Equal(StateInitialized))
		Expect(counter.steps).To(Equal(10))

		Expect(root.Finalize(0, 1)).To(Succeed())
		Expect(root.State()).To(Equal(StateFinalized))
		Expect(counter.finals).To(Equal(1))
		Expect(root.Simulate(ctx, 0, 1)).To(MatchError(ErrNotInitialized))
	})

	It("reports running to observers", func() {
		var seen []State
		root.AddObserver(stateProbe(func(s *System) { seen = append(seen, s.State()) }))
		Expect(root.Initialize(0, 0.3, 0)).To(Succeed())
		Expect(root.Simulate(ctx, 0, 0.3)).To(Succeed())
		Expect(seen).To(HaveLen(3))
		Expect(seen).To(HaveEach(StateRunning))
	})

	Context("after a structural change", func() {
		BeforeEach(func() {
			Expect(root.Initialize(0, 1, 0)).To(Succeed())
		})

		It("drops back to unconfigured when a component is added", func() {
			Expect(root.AddComponent(newTestCounter("other"))).To(Succeed())
			Expect(root.State()).To(Equal(StateUnconfigured))
		})

		It("marks the parents dirty too", func() {
			sub := NewSystem("sub")
			Expect(root.AddComponent(sub)).To(Succeed())
			Expect(root.Initialize(0, 1, 0)).To(Succeed())
			Expect(sub.State()).To(Equal(StateInitialized))

			Expect(sub.AddComponent(newTestCounter("inner"))).To(Succeed())
			Expect(sub.State()).To(Equal(StateUnconfigured))
			Expect(root.State()).To(Equal(StateUnconfigured))
		})

		It("can be initialized again", func() {
			Expect(root.SetDesiredTimestep(0.5)).To(Succeed())
			Expect(root.Initialize(0, 1, 0)).To(Succeed())
			Expect(root.Simulate(ctx, 0, 1)).To(Succeed())
			Expect(root.Steps()).To(Equal(2))
			Expect(counter.inits).To(Equal(2))
		})
	})
})

// stateProbe calls fn after every step.
type stateProbe func(*System)

func (p stateProbe) OnRunStart(*System, float64, float64, int) {}
func (p stateProbe) OnStep(sys *System, _ StepInfo) { p(sys) }
func (p stateProbe) OnRunEnd(*System, int, error) {}
