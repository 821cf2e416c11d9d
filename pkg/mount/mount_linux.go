package mount

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mount calls the mount syscall.
func (m Mount) Mount() error {
	if err := unix.Mount(m.Source, m.Target, m.FsType, m.Flags, m.Data); err != nil {
		return fmt.Errorf("mount %s: %w", m, err)
	}
	return nil
}

// MakeRecPrivate turns the mount at target (and everything below it) into a
// private propagation domain, so a following remount cannot leak into mount
// namespaces that still share the old peer group.
func MakeRecPrivate(target string) error {
	if err := unix.Mount("none", target, "", unix.MS_PRIVATE|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("mount private %s: %w", target, err)
	}
	return nil
}
