package core

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Connect joins two ports. Both must be system ports of s or ports of direct
// children. A multiport gets a new sub-port for the connection. On error the
// graph is unchanged.
func (s *System) Connect(p1, p2 *Port) error {
	if err := s.connect(p1, p2); err != nil {
		logrus.Warnf("%s: connect %s <-> %s rejected: %v", s.name, portName(p1), portName(p2), err)
		return &ConnectionError{Op: "connect", Port1: portName(p1), Port2: portName(p2), Err: err}
	}
	logrus.Debugf("%s: connected %s <-> %s", s.name, p1.FullName(), p2.FullName())
	return nil
}

// ConnectByName is Connect for ports given as component and port names. The
// system's own name addresses its system ports.
func (s *System) ConnectByName(comp1, port1, comp2, port2 string) error {
	p1, p2, err := s.lookupPair(comp1, port1, comp2, port2)
	if err != nil {
		return &ConnectionError{Op: "connect", Port1: comp1 + "." + port1, Port2: comp2 + "." + port2, Err: err}
	}
	return s.Connect(p1, p2)
}

// Disconnect removes the connection between two ports. Ports that end up
// alone lose their node; if both sides still hold other ports the node is
// split in two.
func (s *System) Disconnect(p1, p2 *Port) error {
	if err := s.disconnect(p1, p2); err != nil {
		logrus.Warnf("%s: disconnect %s <-> %s rejected: %v", s.name, portName(p1), portName(p2), err)
		return &ConnectionError{Op: "disconnect", Port1: portName(p1), Port2: portName(p2), Err: err}
	}
	logrus.Debugf("%s: disconnected %s <-> %s", s.name, p1.FullName(), p2.FullName())
	return nil
}

// DisconnectByName is Disconnect for ports given by name.
func (s *System) DisconnectByName(comp1, port1, comp2, port2 string) error {
	p1, p2, err := s.lookupPair(comp1, port1, comp2, port2)
	if err != nil {
		return &ConnectionError{Op: "disconnect", Port1: comp1 + "." + port1, Port2: comp2 + "." + port2, Err: err}
	}
	return s.Disconnect(p1, p2)
}

func portName(p *Port) string {
	if p == nil {
		return "<nil>"
	}
	return p.FullName()
}

func (s *System) lookupPair(comp1, port1, comp2, port2 string) (*Port, *Port, error) {
	p1, err := s.lookupPort(comp1, port1)
	if err != nil {
		return nil, nil, err
	}
	p2, err := s.lookupPort(comp2, port2)
	if err != nil {
		return nil, nil, err
	}
	return p1, p2, nil
}

// FindPort looks up a port of a direct child, or a system port when comp is
// the name of s.
func (s *System) FindPort(comp, port string) (*Port, error) {
	return s.lookupPort(comp, port)
}

func (s *System) lookupPort(comp, port string) (*Port, error) {
	if comp == s.name {
		return s.Port(port)
	}
	c, err := s.Component(comp)
	if err != nil {
		return nil, err
	}
	return c.base().Port(port)
}

func (s *System) connect(p1, p2 *Port) error {
	if s.isRunning() {
		return ErrSystemRunning
	}
	if p1 == nil || p2 == nil {
		return fmt.Errorf("%w: nil port", ErrUnknownPort)
	}
	for _, p := range []*Port{p1, p2} {
		if !s.inScope(p) {
			return fmt.Errorf("%w: %s in %s", ErrPortNotInSystem, p.FullName(), s.name)
		}
	}
	nodeType, err := ensureSameNodeType(p1, p2)
	if err != nil {
		return err
	}
	if err := ensureNotCrossConnecting(p1, p2); err != nil {
		return err
	}

	a1, a2 := p1, p2
	if p1.IsMultiPort() {
		a1 = p1.addSubPort()
	}
	if p2.IsMultiPort() {
		a2 = p2.addSubPort()
	}
	rollback := func() {
		if a1 != p1 {
			p1.removeSubPort(a1)
		}
		if a2 != p2 {
			p2.removeSubPort(a2)
		}
	}

	if err := ensureConnectionOK(netOf(a1, a2)); err != nil {
		rollback()
		return err
	}

	var fresh *Node
	if a1.node == nil && a2.node == nil {
		if fresh, err = newNode(nodeType); err != nil {
			rollback()
			return err
		}
	}

	// Nothing below can fail.
	for _, a := range []*Port{a1, a2} {
		if a.kind == SystemPort && a.nodeType == "" {
			a.nodeType = nodeType
			a.allocStart()
		}
	}
	n := s.joinNodes(a1, a2, fresh)
	a1.addConnection(a2)
	a2.addConnection(a1)
	n.loadStartValues()
	determineWhereToStoreNode(n)
	s.markDirty()
	return nil
}

// joinNodes binds a1 and a2 to one node: a new one, the one node already
// present, or the larger of two nodes with the other merged into it.
func (s *System) joinNodes(a1, a2 *Port, fresh *Node) *Node {
	n1, n2 := a1.node, a2.node
	switch {
	case n1 == nil && n2 == nil:
		a1.setNode(fresh)
		a2.setNode(fresh)
		return fresh
	case n1 == nil:
		a1.setNode(n2)
		return n2
	case n2 == nil:
		a2.setNode(n1)
		return n1
	}

	survivor, loser := n1, n2
	if len(n2.ports) > len(n1.ports) {
		survivor, loser = n2, n1
	}
	for _, p := range loser.Ports() {
		p.setNode(survivor)
	}
	if loser.owner != nil {
		loser.owner.removeNode(loser)
	}
	logrus.Debugf("%s: merged %s into %s", s.name, loser, survivor)
	return survivor
}

func (s *System) disconnect(p1, p2 *Port) error {
	if s.isRunning() {
		return ErrSystemRunning
	}
	if p1 == nil || p2 == nil {
		return fmt.Errorf("%w: nil port", ErrUnknownPort)
	}
	for _, p := range []*Port{p1, p2} {
		if !s.inScope(p) {
			return fmt.Errorf("%w: %s in %s", ErrPortNotInSystem, p.FullName(), s.name)
		}
	}
	a1, a2 := adjacentMembers(p1, p2)
	if a1 == nil {
		return ErrNotConnected
	}
	s.disconnectPorts(a1, a2)
	return nil
}

// adjacentMembers finds the pair of (sub-)ports that carries the connection
// between p1 and p2.
func adjacentMembers(p1, p2 *Port) (*Port, *Port) {
	for _, a := range p1.members() {
		for _, b := range p2.members() {
			if a.isAdjacent(b) {
				return a, b
			}
		}
	}
	return nil, nil
}

// disconnectPorts removes the edge between two adjacent ports. Nets are
// trees, so removing the edge leaves exactly two components.
func (s *System) disconnectPorts(a1, a2 *Port) {
	n := a1.node
	a1.removeConnection(a2)
	a2.removeConnection(a1)

	side1, side2 := reach(a1), reach(a2)
	switch {
	case len(side1) > 1 && len(side2) > 1:
		split, err := newNode(n.typ)
		if err != nil {
			panic(fmt.Sprintf("core: split %s: %v", n, err))
		}
		split.copyDataFrom(n)
		for _, p := range side2 {
			p.setNode(split)
		}
		determineWhereToStoreNode(n)
		determineWhereToStoreNode(split)
	case len(side1) > 1:
		a2.clearNode()
		determineWhereToStoreNode(n)
	case len(side2) > 1:
		a1.clearNode()
		determineWhereToStoreNode(n)
	default:
		a1.clearNode()
		a2.clearNode()
		if n != nil && n.owner != nil {
			n.owner.removeNode(n)
		}
	}

	for _, a := range []*Port{a1, a2} {
		if a.parent != nil && len(a.connected) == 0 {
			a.clearNode()
			a.parent.removeSubPort(a)
		}
		if a.kind == SystemPort && a.node == nil {
			a.nodeType = ""
			a.allocStart()
			a.dummy = nil
		}
	}
	s.markDirty()
}

// reach returns every port connected to p through any chain of connections,
// p included.
func reach(p *Port) []*Port {
	seen := map[*Port]bool{p: true}
	out := []*Port{p}
	for i := 0; i < len(out); i++ {
		for _, q := range out[i].connected {
			if !seen[q] {
				seen[q] = true
				out = append(out, q)
			}
		}
	}
	return out
}

// ensureSameNodeType returns the node type a connection between p1 and p2
// would have. An untyped system port takes the type of the other side.
func ensureSameNodeType(p1, p2 *Port) (NodeType, error) {
	t1, t2 := p1.nodeType, p2.nodeType
	switch {
	case t1 == "" && t2 == "":
		return "", fmt.Errorf("%w: %s and %s are both untyped", ErrUndefinedNodeType, p1.FullName(), p2.FullName())
	case t1 == "":
		return t2, nil
	case t2 == "":
		return t1, nil
	case t1 != t2:
		return "", fmt.Errorf("%w: %s is %s, %s is %s", ErrNodeTypeMismatch, p1.FullName(), t1, p2.FullName(), t2)
	}
	return t1, nil
}

// ensureNotCrossConnecting rejects connections that would make a loop in a
// net or connect a component to itself.
func ensureNotCrossConnecting(p1, p2 *Port) error {
	if p1 == p2 || p1.owner == p2.owner {
		return fmt.Errorf("%w: %s and %s", ErrSelfConnection, p1.FullName(), p2.FullName())
	}
	if a, _ := adjacentMembers(p1, p2); a != nil {
		return ErrAlreadyConnected
	}
	if p1.IsMultiPort() || p2.IsMultiPort() {
		return nil
	}
	if p1.node != nil && p1.node == p2.node {
		return fmt.Errorf("%w: %s and %s already share %s", ErrCrossConnection, p1.FullName(), p2.FullName(), p1.node)
	}
	return nil
}

// netOf lists the ports that would share a node once a1 and a2 are joined.
func netOf(a1, a2 *Port) []*Port {
	var net []*Port
	for _, a := range []*Port{a1, a2} {
		if a.node == nil {
			net = append(net, a)
			continue
		}
		net = append(net, a.node.ports...)
	}
	return net
}

// ensureConnectionOK checks the port mix of a prospective node: at most two
// power ports, at most one write port and never both, no net of read ports
// only, and at most one C and one Q component on the power side.
func ensureConnectionOK(net []*Port) error {
	var nPower, nRead, nWrite, nSystem, nC, nQ int
	for _, p := range net {
		switch p.kind {
		case PowerPort, PowerMultiPort:
			nPower++
			switch p.owner.cqs {
			case TypeC:
				nC++
			case TypeQ:
				nQ++
			}
		case ReadPort, ReadMultiPort:
			nRead++
		case WritePort:
			nWrite++
		case SystemPort:
			nSystem++
		}
	}
	switch {
	case nPower > 2:
		return fmt.Errorf("%w: %d power ports on one node", ErrConnectionRule, nPower)
	case nWrite > 1:
		return fmt.Errorf("%w: %d write ports on one node", ErrConnectionRule, nWrite)
	case nWrite > 0 && nPower > 0:
		return fmt.Errorf("%w: write port and power port on one node", ErrConnectionRule)
	case nRead > 0 && nPower == 0 && nWrite == 0 && nSystem == 0:
		return fmt.Errorf("%w: node has only read ports", ErrConnectionRule)
	case nC > 1:
		return fmt.Errorf("%w: two C components on one node", ErrCQSConflict)
	case nQ > 1:
		return fmt.Errorf("%w: two Q components on one node", ErrCQSConflict)
	}
	return nil
}

// determineWhereToStoreNode moves n to the lowest system that contains all
// of its ports.
func determineWhereToStoreNode(n *Node) {
	if n == nil {
		return
	}
	var lca *System
	for _, p := range n.ports {
		sys := p.system()
		if sys == nil {
			continue
		}
		if lca == nil {
			lca = sys
			continue
		}
		lca = commonAncestor(lca, sys)
	}
	if lca == nil || lca == n.owner {
		return
	}
	if n.owner != nil {
		n.owner.removeNode(n)
	}
	lca.addNode(n)
}

func commonAncestor(a, b *System) *System {
	seen := make(map[*System]bool)
	for x := a; x != nil; x = x.parent {
		seen[x] = true
	}
	for y := b; y != nil; y = y.parent {
		if seen[y] {
			return y
		}
	}
	return nil
}
