package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/nsg-ethz/p4-utils/pkg/launcher"
	"github.com/nsg-ethz/p4-utils/pkg/namespace"
)

// nsFlag records a namespace operation into the request's ordered op list
// as pflag parses it, so operations are applied in the order the caller
// wrote them on the command line.
type nsFlag struct {
	req    *launcher.Request
	kind   namespace.Kind
	action namespace.Action
}

func (f *nsFlag) Set(s string) error {
	op := namespace.Op{Kind: f.kind, Action: f.action}
	if f.action == namespace.ActionJoin {
		pid, err := strconv.Atoi(s)
		if err != nil || pid <= 0 {
			return fmt.Errorf("invalid pid %q", s)
		}
		op.Pid = pid
	}
	f.req.Ops = append(f.req.Ops, op)
	return nil
}

func (f *nsFlag) String() string { return "" }

func (f *nsFlag) Type() string {
	if f.action == namespace.ActionJoin {
		return "pid"
	}
	return "bool"
}

func addCreateFlag(f *pflag.FlagSet, req *launcher.Request, kind namespace.Kind, name, shorthand, usage string) {
	f.VarP(&nsFlag{req: req, kind: kind, action: namespace.ActionCreate}, name, shorthand, usage)
	// behaves like a bool flag, combinable in shorthand groups (-cdnp)
	f.Lookup(name).NoOptDefVal = "true"
}

func addJoinFlag(f *pflag.FlagSet, req *launcher.Request, kind namespace.Kind, name, shorthand, usage string) {
	f.VarP(&nsFlag{req: req, kind: kind, action: namespace.ActionJoin}, name, shorthand, usage)
}
