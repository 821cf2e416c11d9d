// Package launcher sequences one mxexec invocation: descriptor hygiene,
// namespace resolution, cgroup and scheduler attachment, the PID-namespace
// re-exec protocol, filesystem rectification and the final exec.
//
// The stages are strictly ordered. Namespace operations run in the order
// the caller requested them, except that a mount-namespace join is always
// deferred until after the PID-namespace fork boundary, because only the
// process that execs the command may change its final mount namespace.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nsg-ethz/p4-utils/pkg/cgroup"
	"github.com/nsg-ethz/p4-utils/pkg/namespace"
)

// ChildCommand is the hidden CLI stage re-executed by the supervisor for
// the PID-namespace fork protocol and the detach fork.
const ChildCommand = "child"

// Flag names of the child stage, shared between argv construction here and
// flag registration in the cmd layer.
const (
	FlagJoinMount = "join-mnt"
	FlagMountProc = "mount-proc"
	FlagMountSys  = "mount-sys"
	FlagAnnounce  = "announce"
)

// StageEnv marks a process as a fork-protocol re-execution. Only the forking
// parent sets it; argv alone cannot tell the hidden stage apart from a user
// command that happens to be named "child". The child removes it again
// before exec so the launched command never sees it.
const StageEnv = "MXEXEC_STAGE"

// ErrProcfsPreconditions is returned when a procfs remount is requested
// without both a new PID namespace and a new mount namespace in the same
// invocation. Remounting /proc over a joined mount namespace would corrupt
// the view for every process sharing it.
var ErrProcfsPreconditions = errors.New("launcher: procfs mount requires new PID and mount namespaces")

// Request is the sole configuration entity of an invocation. It is built
// once from caller input and immutable after Run starts.
type Request struct {
	// CloseExtraFDs withholds every descriptor above stderr from the
	// launched command.
	CloseExtraFDs bool

	// Detach requests session detachment. It is deferred until namespace
	// decisions are final: a new PID namespace makes it unnecessary.
	Detach bool

	// Ops are the namespace operations in caller order.
	Ops []namespace.Op

	// MountProcfs remounts /proc to pick up the new PID namespace.
	// Requires that both the PID and the mount namespace were created in
	// this invocation.
	MountProcfs bool

	// PrintPID emits the control-prefixed PID line before exec.
	PrintPID bool

	// CgroupName attaches the process across the cpu, cpuacct and cpuset
	// controllers before the fork protocol, so the child inherits
	// membership.
	CgroupName string

	// RTPriority, when positive, assigns SCHED_RR with this priority.
	RTPriority int

	// Command and its arguments, passed verbatim to exec. Empty means
	// show usage and exit successfully.
	Command []string

	// Usage displays the usage text when no command was supplied.
	Usage func() error
}

// created reports whether a create operation for kind was requested.
func (r *Request) created(kind namespace.Kind) bool {
	for _, op := range r.Ops {
		if op.Kind == kind && op.Action == namespace.ActionCreate {
			return true
		}
	}
	return false
}

// pidNamespaceActive reports whether a PID namespace was created or joined,
// which is what forces the fork protocol.
func (r *Request) pidNamespaceActive() bool {
	for _, op := range r.Ops {
		if op.Kind == namespace.PID {
			return true
		}
	}
	return false
}

// mountJoinPid returns the deferred mount-namespace join target, 0 if none.
func (r *Request) mountJoinPid() int {
	for _, op := range r.Ops {
		if op.Kind == namespace.Mount && op.Action == namespace.ActionJoin {
			return op.Pid
		}
	}
	return 0
}

// mountSysfs reports whether /sys must be remounted: only when both a new
// network namespace and a new mount namespace were created here. A joined
// mount namespace already carries an appropriate /sys.
func (r *Request) mountSysfs() bool {
	return r.created(namespace.Net) && r.created(namespace.Mount)
}

// Validate rejects invalid configurations before any namespace transition
// is applied, so failures leave no side effects behind.
func (r *Request) Validate() error {
	if r.MountProcfs && !(r.created(namespace.PID) && r.created(namespace.Mount)) {
		return ErrProcfsPreconditions
	}
	if r.CgroupName != "" {
		if err := cgroup.ValidateName(r.CgroupName); err != nil {
			return err
		}
	}
	return nil
}

// childArgs builds the argv tail for the fork-protocol child stage. The
// deferred mount join and the rectification decisions travel as flags; the
// command follows a terminator so its own flags stay untouched.
func (r *Request) childArgs() []string {
	args := []string{ChildCommand}
	if pid := r.mountJoinPid(); pid != 0 {
		args = append(args, "--"+FlagJoinMount, strconv.Itoa(pid))
	}
	if r.MountProcfs {
		args = append(args, "--"+FlagMountProc)
	}
	if r.mountSysfs() {
		args = append(args, "--"+FlagMountSys)
	}
	if len(r.Command) > 0 {
		args = append(args, "--")
		args = append(args, r.Command...)
	}
	return args
}

// detachArgs builds the argv tail for the detach fork. All mounts are done
// by then; the new session only announces itself if asked and execs.
func (r *Request) detachArgs() []string {
	args := []string{ChildCommand}
	if r.PrintPID {
		args = append(args, "--"+FlagAnnounce)
	}
	if len(r.Command) > 0 {
		args = append(args, "--")
		args = append(args, r.Command...)
	}
	return args
}

// Runner drives a full invocation from a Request.
type Runner struct {
	Request

	// Stdout receives the PID announcement. Defaults to os.Stdout.
	Stdout io.Writer
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

// announce emits the control-prefixed PID line: byte 0x01, the decimal pid
// and a newline. The prefix lets a line-oriented parent tell the
// announcement apart from the launched program's own stdout. os.Stdout is
// unbuffered, so the line is visible as soon as the write returns.
func announce(w io.Writer, pid int) error {
	if _, err := fmt.Fprintf(w, "\x01%d\n", pid); err != nil {
		return fmt.Errorf("launcher: announcing pid %d: %w", pid, err)
	}
	return nil
}
