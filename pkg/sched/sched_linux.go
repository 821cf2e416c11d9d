// Package sched assigns real-time scheduling parameters.
package sched

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SetRoundRobin puts pid under SCHED_RR with the given static priority
// (1..99, usually combined with a cpu cgroup that grants rt runtime).
func SetRoundRobin(pid, priority int) error {
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_RR,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(pid, &attr, 0); err != nil {
		return fmt.Errorf("sched: SCHED_RR priority %d for pid %d: %w", priority, pid, err)
	}
	return nil
}
