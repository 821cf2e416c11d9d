package mount

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestNewProcfs(t *testing.T) {
	m := NewProcfs()
	if m.Source != "proc" || m.Target != "/proc" || m.FsType != "proc" {
		t.Errorf("unexpected procfs mount: %+v", m)
	}
	const restricted = unix.MS_NOSUID | unix.MS_NOEXEC | unix.MS_NODEV
	if m.Flags != restricted {
		t.Errorf("expected nosuid,noexec,nodev, got %x", m.Flags)
	}
}

func TestNewSysfs(t *testing.T) {
	m := NewSysfs()
	if m.Source != "sysfs" || m.Target != "/sys" || m.FsType != "sysfs" {
		t.Errorf("unexpected sysfs mount: %+v", m)
	}
	if m.Flags != 0 {
		t.Errorf("expected no extra flags, got %x", m.Flags)
	}
}

func TestString(t *testing.T) {
	if s := NewProcfs().String(); s != "proc[/proc]" {
		t.Errorf("unexpected string: %s", s)
	}
	if s := NewSysfs().String(); s != "sysfs[/sys]" {
		t.Errorf("unexpected string: %s", s)
	}
	m := Mount{Source: "tmpfs", Target: "/w", FsType: "tmpfs", Data: "size=8m"}
	if s := m.String(); s != "mount[tmpfs,tmpfs:/w:0,size=8m]" {
		t.Errorf("unexpected string: %s", s)
	}
}
