package system

import (
	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/fs"
)

// ProcessState is one registered process: its implementation, its
// append-only observable output queue of locals, and its
// address.
type ProcessState struct {
	Impl   Process
	Locals []string
	Addr   address.Address
}

// Node holds every process hosted on one machine, plus its optional
// filesystem and shutdown flag.
type Node struct {
	Name     string
	Procs    map[string]*ProcessState
	FS       *fs.Manager
	Shutdown bool
}

func newNode(name string) *Node {
	return &Node{Name: name, Procs: make(map[string]*ProcessState)}
}
