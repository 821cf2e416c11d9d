// Package namespace resolves per-kind namespace requests: creating a new,
// empty namespace with unshare or joining the namespace of a running process
// through its /proc/<pid>/ns handle.
//
// Operations take effect synchronously on the calling thread. Callers that
// intend to exec afterwards must lock the goroutine to its OS thread so the
// transitioned thread is the one that performs the exec.
package namespace

import "fmt"

// Kind identifies a namespace category by its /proc/<pid>/ns entry name.
type Kind string

// Namespace kinds handled by the resolver.
const (
	Net   Kind = "net"
	Mount Kind = "mnt"
	PID   Kind = "pid"
	UTS   Kind = "uts"
)

// Action selects between creating a new namespace and joining an existing one.
type Action int

const (
	// ActionCreate allocates a new, empty namespace of the given kind and
	// makes the current thread its sole initial member.
	ActionCreate Action = iota + 1
	// ActionJoin attaches the current thread to the namespace of the
	// process identified by Op.Pid.
	ActionJoin
)

// Op is a single namespace operation. Ops are recorded in the order the
// caller requested them and applied in that same order.
type Op struct {
	Kind   Kind
	Action Action

	// Pid is the join target, resolved through /proc/<pid>/ns/<kind>.
	// Only meaningful for ActionJoin.
	Pid int
}

func (o Op) String() string {
	switch o.Action {
	case ActionCreate:
		return fmt.Sprintf("create[%s]", o.Kind)
	case ActionJoin:
		return fmt.Sprintf("join[%s:%d]", o.Kind, o.Pid)
	default:
		return fmt.Sprintf("none[%s]", o.Kind)
	}
}
