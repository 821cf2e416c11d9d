// Command mxexec launches a process into a precisely ordered combination of
// new or shared Linux namespaces as the entry point for emulated network
// nodes. One invocation materializes one isolated execution context.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/nsg-ethz/p4-utils/pkg/launcher"
)

func main() {
	log.SetOutput(os.Stderr)

	root := newRootCommand((*launcher.Runner).Run)

	// The fork protocol re-executes /proc/self/exe with the child stage as
	// argv[1] and a marker in the environment. Dispatching on both here
	// keeps the stage out of cobra's subcommand matching and lets a user
	// command literally named "child" launch normally.
	if childStage(os.Args[1:]) {
		child := newChildCommand((*launcher.Child).Run, root.Usage)
		child.SetArgs(os.Args[2:])
		if err := child.Execute(); err != nil {
			log.Error(err)
			os.Exit(1)
		}
		return
	}

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// childStage reports whether this process is a fork-protocol re-execution:
// the stage name in argv and the marker set by the forking parent.
func childStage(args []string) bool {
	return os.Getenv(launcher.StageEnv) == launcher.ChildCommand &&
		len(args) > 0 && args[0] == launcher.ChildCommand
}
