package core

import (
	"errors"
	"fmt"
)

// Structural errors. The graph is left unchanged when one of these is
// returned.
var (
	ErrUnknownComponent  = errors.New("core: unknown component")
	ErrUnknownPort       = errors.New("core: unknown port")
	ErrUnknownParameter  = errors.New("core: unknown parameter")
	ErrAlreadyOwned      = errors.New("core: component already belongs to a system")
	ErrNotSolver         = errors.New("core: leaf component does not implement Solver")
	ErrPortNotInSystem   = errors.New("core: port is not reachable from this system")
	ErrNodeTypeMismatch  = errors.New("core: incompatible node types")
	ErrUndefinedNodeType = errors.New("core: node type cannot be determined")
	ErrCrossConnection   = errors.New("core: cross connection")
	ErrSelfConnection    = errors.New("core: component connected to itself")
	ErrAlreadyConnected  = errors.New("core: ports are already connected")
	ErrNotConnected      = errors.New("core: ports are not connected")
	ErrConnectionRule    = errors.New("core: connection violates node rules")
	ErrCQSConflict       = errors.New("core: CQS type conflict")
)

// Consistency and lifecycle errors.
var (
	ErrUnconnectedPort  = errors.New("core: required port is not connected")
	ErrUndefinedCQS     = errors.New("core: component has undefined CQS type")
	ErrInvalidTimestep  = errors.New("core: timestep must be positive")
	ErrInvalidTimeRange = errors.New("core: stop time before start time")
	ErrNotInitialized   = errors.New("core: system is not initialized")
	ErrSystemRunning    = errors.New("core: system is running")
	ErrStopped          = errors.New("core: simulation stopped")
	ErrNonFiniteValue   = errors.New("core: node value is NaN or Inf")
)

// ConnectionError describes a rejected connect or disconnect request.
type ConnectionError struct {
	Op    string
	Port1 string
	Port2 string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s <-> %s: %v", e.Op, e.Port1, e.Port2, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SimulationError wraps an error with the step at which it happened.
type SimulationError struct {
	System string
	Step   int
	Time   float64
	Node   NodeID
	Err    error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s: step %d (t=%.6g): %v", e.System, e.Step, e.Time, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}
