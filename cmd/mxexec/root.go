package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsg-ethz/p4-utils/pkg/launcher"
	"github.com/nsg-ethz/p4-utils/pkg/namespace"
	"github.com/nsg-ethz/p4-utils/pkg/version"
)

func newRootCommand(run func(*launcher.Runner) error) *cobra.Command {
	var (
		req         launcher.Request
		showVersion bool
	)

	cmd := &cobra.Command{
		Use:   "mxexec [flags] cmd args...",
		Short: "Execution utility for emulated network nodes",
		Long: `mxexec launches a command inside a chosen combination of new or shared
network, mount, PID and UTS namespaces, optionally attached to a cgroup
and scheduled under SCHED_RR, and reports the pid to the orchestrator.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return nil
			}
			req.Command = args
			req.Usage = cmd.Usage
			return run(&launcher.Runner{Request: req, Stdout: cmd.OutOrStdout()})
		},
	}

	f := cmd.Flags()
	// stop flag parsing at the first non-flag argument: everything after
	// it belongs to the launched command
	f.SetInterspersed(false)

	f.BoolVarP(&req.CloseExtraFDs, "close-fds", "c", false, "close all file descriptors except stdin/out/error")
	f.BoolVarP(&req.Detach, "detach", "d", false, "detach from tty by calling setsid()")
	addCreateFlag(f, &req, namespace.Net, "net", "n", "run in new network namespace")
	addCreateFlag(f, &req, namespace.Mount, "mnt", "m", "run in new mount namespace")
	addCreateFlag(f, &req, namespace.PID, "pid", "i", "run in new PID namespace")
	addCreateFlag(f, &req, namespace.UTS, "uts", "u", "run in new UTS namespace")
	f.BoolVarP(&req.MountProcfs, "procfs", "f", false, "mount procfs (requires new PID and mount namespaces)")
	f.BoolVarP(&req.PrintPID, "print-pid", "p", false, "print ^A + pid")
	addJoinFlag(f, &req, namespace.Net, "net-pid", "a", "attach to pid's network namespace")
	addJoinFlag(f, &req, namespace.Mount, "mnt-pid", "b", "attach to pid's mount namespace")
	addJoinFlag(f, &req, namespace.PID, "pid-pid", "k", "attach to pid's PID namespace")
	addJoinFlag(f, &req, namespace.UTS, "uts-pid", "j", "attach to pid's UTS namespace")
	f.StringVarP(&req.CgroupName, "cgroup", "g", "", "add to cgroup")
	f.IntVarP(&req.RTPriority, "rtprio", "r", 0, "run with SCHED_RR priority (usually requires -g)")
	f.BoolVarP(&showVersion, "version", "v", false, "print version")

	// create and join are mutually exclusive per namespace kind
	cmd.MarkFlagsMutuallyExclusive("net", "net-pid")
	cmd.MarkFlagsMutuallyExclusive("mnt", "mnt-pid")
	cmd.MarkFlagsMutuallyExclusive("pid", "pid-pid")
	cmd.MarkFlagsMutuallyExclusive("uts", "uts-pid")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.Println(c.UsageString())
		return err
	})

	return cmd
}
