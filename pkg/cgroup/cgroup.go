// Package cgroup attaches processes to pre-existing cgroup v1 hierarchies
// under the systemd mount path (/sys/fs/cgroup).
//
// Attachment is a side effect on a shared filesystem-backed structure;
// concurrent invocations may add different processes to the same group
// without coordination.
package cgroup

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
)

const (
	// systemd mounted cgroup v1 hierarchies
	basePath  = "/sys/fs/cgroup"
	tasksFile = "tasks"

	filePerm = 0644
)

// controllers are the hierarchies a group is attached across. A controller
// without the named group is skipped; only missing the group in all of them
// is an error.
var controllers = []string{"cpu", "cpuacct", "cpuset"}

var (
	// ErrInvalidName is returned for group names containing anything but
	// alphanumerics and '/'.
	ErrInvalidName = errors.New("cgroup: invalid group name")

	// ErrNoController is returned when no controller accepted the pid.
	ErrNoController = errors.New("cgroup: no writable controller for group")
)

// V1 attaches pids to cgroup v1 controllers below Base.
type V1 struct {
	Base string
}

// New creates an accessor for the default mount path.
func New() *V1 {
	return &V1{Base: basePath}
}

// ValidateName checks that name is a plain alphanumeric path like
// foo1/bar2/baz, rejecting anything that could escape the hierarchy.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '/':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// Attach writes pid into the tasks file of every controller that has the
// named group. The group directories must already exist; they are created
// by the orchestrator, not here.
func (c *V1) Attach(name string, pid int) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	count := 0
	for _, ctrl := range controllers {
		p := path.Join(c.Base, ctrl, name, tasksFile)
		f, err := os.OpenFile(p, os.O_WRONLY, filePerm)
		if err != nil {
			continue
		}
		_, err = f.WriteString(strconv.Itoa(pid) + "\n")
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("cgroup: adding pid %d to %s: %w", pid, p, err)
		}
		count++
	}
	if count == 0 {
		return fmt.Errorf("%w %s", ErrNoController, name)
	}
	return nil
}
