package core

import (
	"context"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// executor runs one phase of a timestep.
type executor interface {
	run(entries []scheduled, t float64)
	log(nodes []*Node, t float64)
}

type sequential struct{}

func (sequential) run(entries []scheduled, t float64) {
	for i := range entries {
		entries[i].simulate(t)
	}
}

func (sequential) log(nodes []*Node, t float64) {
	for _, n := range nodes {
		n.logSample(t)
	}
}

// phaseGroup is a fixed set of worker goroutines. run hands the same task
// to every worker and returns only when all of them are done, so consecutive
// calls are separated by a barrier.
type phaseGroup struct {
	tasks  []chan func(worker int)
	wg     sync.WaitGroup
	panics []any
}

func newPhaseGroup(workers int) *phaseGroup {
	g := &phaseGroup{
		tasks:  make([]chan func(int), workers),
		panics: make([]any, workers),
	}
	for w := range g.tasks {
		g.tasks[w] = make(chan func(int))
		go g.worker(w)
	}
	return g
}

func (g *phaseGroup) worker(w int) {
	for fn := range g.tasks[w] {
		func() {
			defer g.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					g.panics[w] = r
				}
			}()
			fn(w)
		}()
	}
}

// run executes fn on every worker and waits. A panic in a worker is raised
// again on the calling goroutine.
func (g *phaseGroup) run(fn func(worker int)) {
	g.wg.Add(len(g.tasks))
	for _, ch := range g.tasks {
		ch <- fn
	}
	g.wg.Wait()
	for w, r := range g.panics {
		if r != nil {
			g.panics[w] = nil
			panic(r)
		}
	}
}

func (g *phaseGroup) close() {
	for _, ch := range g.tasks {
		close(ch)
	}
}

func (g *phaseGroup) size() int { return len(g.tasks) }

// partition returns the contiguous range [lo, hi) of n items that worker w
// of parts handles.
func partition(n, parts, w int) (lo, hi int) {
	size, rem := n/parts, n%parts
	lo = w*size + min(w, rem)
	hi = lo + size
	if w < rem {
		hi++
	}
	return lo, hi
}

type parallel struct {
	g *phaseGroup
}

func (p parallel) run(entries []scheduled, t float64) {
	switch len(entries) {
	case 0:
		return
	case 1:
		entries[0].simulate(t)
		return
	}
	n := p.g.size()
	p.g.run(func(w int) {
		lo, hi := partition(len(entries), n, w)
		for i := lo; i < hi; i++ {
			entries[i].simulate(t)
		}
	})
}

func (p parallel) log(nodes []*Node, t float64) {
	if len(nodes) == 0 {
		return
	}
	n := p.g.size()
	p.g.run(func(w int) {
		lo, hi := partition(len(nodes), n, w)
		for i := lo; i < hi; i++ {
			nodes[i].logSample(t)
		}
	})
}

// SimulateMultiThreaded is Simulate with the C and Q phases, and node
// logging, split across nThreads workers. Signal components run on the
// calling goroutine. A barrier separates every phase, so results equal those
// of Simulate. nThreads <= 0 uses one worker per CPU.
func (s *System) SimulateMultiThreaded(ctx context.Context, startT, stopT float64, nThreads int) error {
	if nThreads <= 0 {
		nThreads = runtime.NumCPU()
	}
	if nThreads == 1 {
		return s.Simulate(ctx, startT, stopT)
	}
	if err := s.checkCanSimulate(); err != nil {
		return err
	}
	g := newPhaseGroup(nThreads)
	defer g.close()
	logrus.Debugf("%s: simulating with %d workers", s.name, nThreads)
	return s.run(ctx, startT, stopT, nThreads, parallel{g: g})
}
