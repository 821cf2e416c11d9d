package namespace

import (
	"os"
	"runtime"
	"testing"

	"github.com/vishvananda/netns"
)

type applyResult struct {
	moved bool
	err   error
}

// inNamespacedThread runs fn on a locked thread. The namespace transitions
// poison the thread; never unlocking discards it with the goroutine.
func inNamespacedThread(fn func() applyResult) applyResult {
	ch := make(chan applyResult, 1)
	go func() {
		runtime.LockOSThread()
		ch <- fn()
	}()
	return <-ch
}

func TestApplyCreatesNetworkNamespace(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}

	res := inNamespacedThread(func() applyResult {
		before, err := netns.Get()
		if err != nil {
			return applyResult{err: err}
		}
		defer before.Close()

		op := Op{Kind: Net, Action: ActionCreate}
		if err := op.Apply(); err != nil {
			return applyResult{err: err}
		}
		after, err := netns.Get()
		if err != nil {
			return applyResult{err: err}
		}
		defer after.Close()
		return applyResult{moved: !after.Equal(before)}
	})
	if res.err != nil {
		t.Fatal(res.err)
	}
	if !res.moved {
		t.Fatal("network namespace unchanged after create")
	}
}

func TestApplyJoinsNetworkNamespaceByPid(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}

	// Create a fresh namespace on the locked thread, then join back the
	// process's initial one through its pid, the way a node join does.
	res := inNamespacedThread(func() applyResult {
		initial, err := netns.GetFromPid(os.Getpid())
		if err != nil {
			return applyResult{err: err}
		}
		defer initial.Close()

		if err := (Op{Kind: Net, Action: ActionCreate}).Apply(); err != nil {
			return applyResult{err: err}
		}
		if err := (Op{Kind: Net, Action: ActionJoin, Pid: os.Getpid()}).Apply(); err != nil {
			return applyResult{err: err}
		}
		after, err := netns.Get()
		if err != nil {
			return applyResult{err: err}
		}
		defer after.Close()
		return applyResult{moved: !after.Equal(initial)}
	})
	if res.err != nil {
		t.Fatal(res.err)
	}
	if res.moved {
		t.Fatal("thread did not return to the namespace of its pid")
	}
}
