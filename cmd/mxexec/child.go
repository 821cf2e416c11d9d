package main

import (
	"github.com/spf13/cobra"

	"github.com/nsg-ethz/p4-utils/pkg/launcher"
)

// newChildCommand is the re-executed stage of the fork protocol. It is
// dispatched explicitly from main on argv[1] plus the stage environment
// marker, never exposed to users.
func newChildCommand(run func(*launcher.Child) error, usage func() error) *cobra.Command {
	var c launcher.Child

	cmd := &cobra.Command{
		Use:           launcher.ChildCommand,
		Hidden:        true,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Command = args
			c.Usage = usage
			c.Stdout = cmd.OutOrStdout()
			return run(&c)
		},
	}

	f := cmd.Flags()
	f.SetInterspersed(false)
	f.IntVar(&c.JoinMountPid, launcher.FlagJoinMount, 0, "join the mount namespace of pid before exec")
	f.BoolVar(&c.MountProcfs, launcher.FlagMountProc, false, "mount a fresh procfs")
	f.BoolVar(&c.MountSysfs, launcher.FlagMountSys, false, "mount a fresh sysfs")
	f.BoolVar(&c.Announce, launcher.FlagAnnounce, false, "print ^A + pid before exec")

	return cmd
}
