package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/nsg-ethz/p4-utils/pkg/namespace"
)

const (
	helperModeEnv = "LAUNCHER_TEST_MODE"
	helperPidEnv  = "LAUNCHER_TEST_PID"
)

// TestHelperProcess is not a test. It hosts the subprocess halves of the
// tests below, selected by environment variable, because relaying a
// termination mode or switching namespaces destroys the process doing it.
func TestHelperProcess(t *testing.T) {
	switch os.Getenv(helperModeEnv) {
	case "":
		// normal test run
	case "relay-code":
		exitRelay(unix.WaitStatus(23 << 8))
	case "relay-signal":
		exitRelay(unix.WaitStatus(int(unix.SIGTERM)))
	case "hold-mount-ns":
		holdMountNamespace()
	case "join-mount-ns":
		joinMountNamespace()
	}
}

func helperCommand(t *testing.T, mode string, env ...string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$")
	cmd.Env = append(os.Environ(), helperModeEnv+"="+mode)
	cmd.Env = append(cmd.Env, env...)
	return cmd
}

// holdMountNamespace parks a process in a fresh mount namespace. It execs
// so the process-level /proc/<pid>/ns/mnt reflects the transitioned thread,
// for the same reason the launcher itself always ends in exec.
func holdMountNamespace() {
	runtime.LockOSThread()
	op := namespace.Op{Kind: namespace.Mount, Action: namespace.ActionCreate}
	if err := op.Apply(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := execCommand([]string{"sleep", "60"}, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// joinMountNamespace runs the child stage against the pid from the
// environment and lets the exec'd readlink report where it landed.
func joinMountNamespace() {
	pid, err := strconv.Atoi(os.Getenv(helperPidEnv))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	c := Child{
		JoinMountPid: pid,
		Command:      []string{"readlink", "/proc/self/ns/mnt"},
	}
	if err := c.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func TestExitRelayForwardsExitCode(t *testing.T) {
	err := helperCommand(t, "relay-code").Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 23, exitErr.ExitCode())
}

func TestExitRelayReRaisesSignal(t *testing.T) {
	// A supervisor whose child died of SIGTERM must itself die of SIGTERM,
	// not map it to an exit code, so its own parent sees the same mode.
	err := helperCommand(t, "relay-signal").Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)

	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.True(t, ws.Signaled())
	assert.Equal(t, syscall.SIGTERM, ws.Signal())
}

func TestMountJoinEntersTargetNamespace(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}

	hold := helperCommand(t, "hold-mount-ns")
	require.NoError(t, hold.Start())
	defer func() {
		hold.Process.Kill()
		hold.Wait()
	}()

	self, err := os.Readlink("/proc/self/ns/mnt")
	require.NoError(t, err)

	// The holder is in its own namespace once its ns link diverges from
	// ours; before the exec it still shows the inherited one.
	holdLink := fmt.Sprintf("/proc/%d/ns/mnt", hold.Process.Pid)
	var target string
	require.Eventually(t, func() bool {
		target, err = os.Readlink(holdLink)
		return err == nil && target != self
	}, 5*time.Second, 20*time.Millisecond)

	out, err := helperCommand(t, "join-mount-ns",
		fmt.Sprintf("%s=%d", helperPidEnv, hold.Process.Pid)).Output()
	require.NoError(t, err)
	assert.Equal(t, target, strings.TrimSpace(string(out)))
}
