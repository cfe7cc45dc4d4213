// Package core provides the component-based simulation engine.
//
// A model is a tree of components. Leaf components exchange physical
// quantities through shared [Node] records that their [Port]s are bound to;
// a [System] owns components, the nodes between them, and the timestep loop:
//
//   - [Node]: typed bundle of float64 data slots (pressure, flow, ...)
//   - [Port]: named, capability-constrained attachment point on a component
//   - [ComponentBase]: common state embedded by every leaf component
//   - [Solver]: the per-timestep equation contract of a leaf component
//   - [System]: container, connection graph and scheduler
//
// # Example
//
//	root := core.NewSystem("model")
//	root.SetDesiredTimestep(0.001)
//	_ = root.AddComponents(src, gain, sink)
//	_ = root.ConnectByName("src", "out", "gain", "in")
//	_ = root.Initialize(0, 10, 2048)
//	_ = root.Simulate(ctx, 0, 10)
//	_ = root.Finalize(0, 10)
//
// # Execution order
//
// Components are classified as Signal, C or Q. Every timestep runs all
// Signal components (sorted so writers run before readers), then all C
// components, then all Q components, then logs every node. C components
// publish wave variables and characteristic impedances from the previous
// step's flows; Q components compute flows and efforts from them. Because the
// two sides write disjoint slots, components inside one phase can run in
// parallel ([System.SimulateMultiThreaded]).
//
// # Thread Safety
//
// Graph mutation (connect, disconnect, add, remove) is not safe for
// concurrent use and is rejected while a simulation is running. [System.Stop]
// may be called from any goroutine.
package core
