package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nsg-ethz/p4-utils/pkg/cgroup"
	"github.com/nsg-ethz/p4-utils/pkg/mount"
	"github.com/nsg-ethz/p4-utils/pkg/namespace"
	"github.com/nsg-ethz/p4-utils/pkg/sched"
)

// selfExe is re-executed for the fork protocol stages.
const selfExe = "/proc/self/exe"

// stageEnviron is the environment for a re-executed stage: the current one
// plus the marker that routes argv[1] to the hidden child command.
func stageEnviron() []string {
	return append(os.Environ(), StageEnv+"="+ChildCommand)
}

// Run executes the stages in order: resolve namespaces, fork when a PID
// namespace is in play, rectify /proc and /sys, then exec the command.
//
// Namespace transitions are per-thread on Linux, so the goroutine is locked
// to its OS thread for the whole invocation and never unlocked: the
// transitioned thread is the one that re-execs or execs. On the supervisor
// path Run does not return; it exits with the child's status or re-raises
// its fatal signal.
func (r *Runner) Run() error {
	runtime.LockOSThread()

	if err := r.Validate(); err != nil {
		return err
	}

	if r.CloseExtraFDs {
		markExtraFDsCloseExec()
	}

	for _, op := range r.Ops {
		// The mount-namespace join must happen in the process that will
		// exec the command; with a PID namespace in play that is the
		// re-exec child, so the join is deferred past the fork boundary.
		if op.Kind == namespace.Mount && op.Action == namespace.ActionJoin {
			continue
		}
		if err := op.Apply(); err != nil {
			return err
		}
	}

	if r.CgroupName != "" {
		if err := cgroup.New().Attach(r.CgroupName, os.Getpid()); err != nil {
			return err
		}
	}
	if r.RTPriority > 0 {
		if err := sched.SetRoundRobin(os.Getpid(), r.RTPriority); err != nil {
			return err
		}
	}

	if r.pidNamespaceActive() {
		return r.supervise()
	}

	// Single-process path: the deferred join lands here, before any
	// rectification.
	if pid := r.mountJoinPid(); pid != 0 {
		op := namespace.Op{Kind: namespace.Mount, Action: namespace.ActionJoin, Pid: pid}
		if err := op.Apply(); err != nil {
			return err
		}
	}
	if err := rectify(r.MountProcfs, r.mountSysfs()); err != nil {
		return err
	}

	if r.Detach {
		if err := r.detach(); err != nil {
			return err
		}
	}
	if r.PrintPID {
		if err := announce(r.stdout(), os.Getpid()); err != nil {
			return err
		}
	}
	return execCommand(r.Command, r.Usage)
}

// supervise runs the parent half of the fork protocol: re-exec the child
// stage into the target PID namespace, report its namespace-external pid,
// then block until it terminates and relay how it terminated.
func (r *Runner) supervise() error {
	argv := append([]string{selfExe}, r.childArgs()...)
	pid, err := syscall.ForkExec(selfExe, argv, &syscall.ProcAttr{
		Env:   stageEnviron(),
		Files: []uintptr{0, 1, 2},
	})
	if err != nil {
		return fmt.Errorf("launcher: starting namespace child: %w", err)
	}

	if r.PrintPID {
		// The pid as seen from this namespace, not the child's own
		// PID-1 view; it is what an orchestrator needs to build
		// /proc/<pid>/ns paths for later joins.
		r.announceChild(pid)
	}

	var ws unix.WaitStatus
	_, err = unix.Wait4(pid, &ws, 0, nil)
	for err == unix.EINTR {
		_, err = unix.Wait4(pid, &ws, 0, nil)
	}
	if err != nil {
		return fmt.Errorf("launcher: waiting for child %d: %w", pid, err)
	}
	exitRelay(ws)
	return nil
}

// announceChild reports the child's namespace-external pid. The child is
// already running at this point; a failed write must not abandon it to
// reparenting, so the failure is logged and the supervisor keeps waiting.
func (r *Runner) announceChild(pid int) {
	if err := announce(r.stdout(), pid); err != nil {
		log.WithError(err).Warn("pid announcement failed")
	}
}

// relay classifies a child wait status into the supervisor's terminal
// action: the exit code to forward, or the signal to re-raise.
func relay(ws unix.WaitStatus) (code int, sig syscall.Signal) {
	switch {
	case ws.Exited():
		return ws.ExitStatus(), 0
	case ws.Signaled():
		return 1, ws.Signal()
	default:
		return 1, 0
	}
}

// exitRelay terminates the supervisor the way the child terminated, so a
// process supervising the parent observes the same termination mode.
func exitRelay(ws unix.WaitStatus) {
	code, sig := relay(ws)
	if sig != 0 {
		signal.Reset(sig)
		unix.Kill(os.Getpid(), sig)
	}
	os.Exit(code)
}

// rectify remounts /proc and /sys so the process and device views match the
// namespaces committed in this invocation. The procfs remount is best
// effort, a stale /proc only degrades tooling. A sysfs failure is fatal:
// observing the new network namespace is the main reason it was created,
// and failing silently would mislead any caller inspecting interface state.
func rectify(procfs, sysfs bool) error {
	if procfs {
		if err := remountProc(); err != nil {
			log.WithError(err).Warn("remounting /proc failed, continuing with stale view")
		}
	}
	if sysfs {
		if err := mount.NewSysfs().Mount(); err != nil {
			return fmt.Errorf("launcher: %w", err)
		}
	}
	return nil
}

// remountProc detaches /proc from any shared propagation first, so the
// fresh mount stays confined to this mount namespace.
func remountProc() error {
	if err := mount.MakeRecPrivate("/proc"); err != nil {
		return err
	}
	return mount.NewProcfs().Mount()
}

// detach separates from the controlling terminal. A process-group leader
// cannot setsid directly, so it re-executes the remaining stages with a
// fresh session and exits; anything else starts the new session in place.
// Only reached when no PID namespace was requested.
func (r *Runner) detach() error {
	if unix.Getpgrp() != os.Getpid() {
		if _, err := unix.Setsid(); err != nil {
			return fmt.Errorf("launcher: setsid: %w", err)
		}
		return nil
	}
	argv := append([]string{selfExe}, r.detachArgs()...)
	_, err := syscall.ForkExec(selfExe, argv, &syscall.ProcAttr{
		Env:   stageEnviron(),
		Files: []uintptr{0, 1, 2},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return fmt.Errorf("launcher: detaching: %w", err)
	}
	os.Exit(0)
	return nil
}

// execCommand replaces the process image with the requested command, or
// shows usage and reports success when none was supplied.
func execCommand(args []string, usage func() error) error {
	if len(args) == 0 {
		if usage != nil {
			return usage()
		}
		return nil
	}
	path, err := exec.LookPath(args[0])
	if err != nil {
		return fmt.Errorf("launcher: %s: %w", args[0], err)
	}
	if err := unix.Exec(path, args, os.Environ()); err != nil {
		return fmt.Errorf("launcher: exec %s: %w", path, err)
	}
	return nil
}
