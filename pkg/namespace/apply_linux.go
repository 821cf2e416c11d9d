package namespace

import (
	"fmt"
	"os"

	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

// cloneFlag maps a namespace kind to its unshare / setns flag.
var cloneFlag = map[Kind]int{
	Net:   unix.CLONE_NEWNET,
	Mount: unix.CLONE_NEWNS,
	PID:   unix.CLONE_NEWPID,
	UTS:   unix.CLONE_NEWUTS,
}

// Apply commits the operation on the calling thread. Creating or joining a
// PID namespace only affects children spawned afterwards; every other kind
// changes the effective identity of the current thread immediately.
func (o Op) Apply() error {
	switch o.Action {
	case ActionCreate:
		return o.create()
	case ActionJoin:
		return o.join()
	default:
		return fmt.Errorf("namespace: no action for %s", o.Kind)
	}
}

func (o Op) create() error {
	if o.Kind == Net {
		// netns.New unshares a network namespace and enters it; the
		// returned handle is closed since thread membership keeps the
		// namespace alive.
		h, err := netns.New()
		if err != nil {
			return fmt.Errorf("namespace: creating network namespace: %w", err)
		}
		return h.Close()
	}

	flags := cloneFlag[o.Kind]
	if o.Kind == Mount {
		// The fs struct is shared between runtime threads; a mount
		// namespace cannot be unshared while it is. CLONE_FS detaches
		// it for this thread first.
		flags |= unix.CLONE_FS
	}
	if err := unix.Unshare(flags); err != nil {
		return fmt.Errorf("namespace: unshare %s: %w", o.Kind, err)
	}
	return nil
}

func (o Op) join() error {
	if o.Kind == Net {
		h, err := netns.GetFromPid(o.Pid)
		if err != nil {
			return fmt.Errorf("namespace: opening network namespace of pid %d: %w", o.Pid, err)
		}
		defer h.Close()
		if err := netns.Set(h); err != nil {
			return fmt.Errorf("namespace: joining network namespace of pid %d: %w", o.Pid, err)
		}
		return nil
	}

	p, err := HandlePath(o.Pid, o.Kind)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("namespace: opening %s: %w", p, err)
	}
	defer f.Close()

	if o.Kind == Mount {
		// Same fs sharing restriction as for unshare above.
		if err := unix.Unshare(unix.CLONE_FS); err != nil {
			return fmt.Errorf("namespace: unshare fs before joining %s: %w", p, err)
		}
	}
	if err := unix.Setns(int(f.Fd()), cloneFlag[o.Kind]); err != nil {
		return fmt.Errorf("namespace: setns %s: %w", p, err)
	}
	return nil
}
