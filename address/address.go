// Package address defines the process addressing scheme shared by every
// other package in this module: a process is identified by the node it
// lives on plus its name on that node.
package address

import "fmt"

// Address identifies a process: (node_name, process_name).
type Address struct {
	Node    string
	Process string
}

// New builds an Address.
func New(node, process string) Address {
	return Address{Node: node, Process: process}
}

func (a Address) String() string {
	return fmt.Sprintf("%s:%s", a.Node, a.Process)
}

// OnNode reports whether the address names a process on node.
func (a Address) OnNode(node string) bool {
	return a.Node == node
}
