// Package mount rectifies the filesystem view after namespace transitions:
// a fresh procfs so /proc reflects a new PID namespace and a fresh sysfs so
// /sys reflects a new network namespace.
package mount

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mount describes a single mount syscall.
type Mount struct {
	Source string
	Target string
	FsType string
	Flags  uintptr
	Data   string
}

// NewProcfs returns the procfs mount used to pick up a new PID namespace.
func NewProcfs() Mount {
	return Mount{
		Source: "proc",
		Target: "/proc",
		FsType: "proc",
		Flags:  unix.MS_NOSUID | unix.MS_NOEXEC | unix.MS_NODEV,
	}
}

// NewSysfs returns the sysfs mount used to pick up a new network namespace.
func NewSysfs() Mount {
	return Mount{
		Source: "sysfs",
		Target: "/sys",
		FsType: "sysfs",
	}
}

func (m Mount) String() string {
	switch m.FsType {
	case "proc":
		return "proc[" + m.Target + "]"
	case "sysfs":
		return "sysfs[" + m.Target + "]"
	default:
		return fmt.Sprintf("mount[%s,%s:%s:%x,%s]", m.FsType, m.Source, m.Target, m.Flags, m.Data)
	}
}
