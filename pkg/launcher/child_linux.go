package launcher

import (
	"io"
	"os"
	"runtime"

	"github.com/nsg-ethz/p4-utils/pkg/namespace"
)

// Child is the re-executed half of the fork protocol. It runs as PID 1 of
// a fresh PID namespace (or a new member of a joined one), finishes the
// deferred mount-namespace join, rectifies the filesystem view and execs
// the command. It also serves as the detach fork's new session.
type Child struct {
	// JoinMountPid is the deferred mount-namespace join target, 0 if none.
	JoinMountPid int

	// MountProcfs and MountSysfs carry the rectification decisions made by
	// the parent; their preconditions were validated there.
	MountProcfs bool
	MountSysfs  bool

	// Announce prints this process's own control-prefixed PID line. Only
	// set on the detach path, where no supervisor reported a pid.
	Announce bool

	Command []string
	Usage   func() error

	// Stdout receives the announcement. Defaults to os.Stdout.
	Stdout io.Writer
}

// Run finishes the child half: joining-mount, rectifying-fs, launching.
func (c *Child) Run() error {
	runtime.LockOSThread()

	// The stage marker stops here; a nested invocation under the launched
	// command must not mistake its own "child" argument for a stage.
	os.Unsetenv(StageEnv)

	if c.JoinMountPid != 0 {
		op := namespace.Op{Kind: namespace.Mount, Action: namespace.ActionJoin, Pid: c.JoinMountPid}
		if err := op.Apply(); err != nil {
			return err
		}
	}
	if err := rectify(c.MountProcfs, c.MountSysfs); err != nil {
		return err
	}
	if c.Announce {
		w := c.Stdout
		if w == nil {
			w = os.Stdout
		}
		if err := announce(w, os.Getpid()); err != nil {
			return err
		}
	}
	return execCommand(c.Command, c.Usage)
}
