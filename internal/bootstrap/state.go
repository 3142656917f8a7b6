package bootstrap

import "sync/atomic"

// State is the startup reconciliation phase.
type State int32

const (
	Uninitialized State = iota
	TrustingLocal
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case TrustingLocal:
		return "TRUSTING_LOCAL"
	case Ready:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// Gate publishes the current State to consumers that must wait for
// reconciliation, such as cart sync. It is created before the machine so both
// can share it.
type Gate struct {
	state atomic.Int32
}

func NewGate() *Gate {
	return &Gate{}
}

func (g *Gate) State() State {
	return State(g.state.Load())
}

// SyncAllowed is true only once reconciliation is Ready.
func (g *Gate) SyncAllowed() bool {
	return g.State() == Ready
}

func (g *Gate) set(s State) {
	g.state.Store(int32(s))
}
