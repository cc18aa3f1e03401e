// Package node implements C7/C8: a Node owning a set of Cores plus the
// XLinks that reach its neighbours, and the inter-tile channel-end and
// switch-configuration routing described in spec.md §4.6. A bare *core.Core
// can run entirely self-contained programs on its own; wiring it into a
// Node is what lets its chanends and SSCTRL traffic reach another tile.
package node

import (
	"github.com/tileforge/tilesim/core"
	"github.com/tileforge/tilesim/resource"
)

// MaxLinks bounds the number of directions a Node's XLink table holds: one
// slot per bit position the §4.6 "xor then highest set bit" rule can ever
// select in a 16-bit node field.
const MaxLinks = 16

// Node is one tile's routing presence: its own id, the Cores running on
// it, and the XLinks reaching its neighbours.
type Node struct {
	id         uint16
	numberBits uint8

	cores   []*core.Core
	links   [MaxLinks]*XLink
	sswitch *SSwitch
	net     *Network
}

// New returns a Node addressed by id. numberBits is how many of id's high
// bits actually name the node (the rest are free for AddCore to place a
// local core number in, per §4.6's CoreID formula).
func New(id uint16, numberBits uint8) *Node {
	return &Node{id: id, numberBits: numberBits, sswitch: newSSwitch(id)}
}

// ID returns the node's own address.
func (n *Node) ID() uint16 { return n.id }

// coreMask is the set of low bits of a CoreID that encode a local core
// number within this node, per §4.6.
func (n *Node) coreMask() uint16 {
	localBits := uint(16 - n.numberBits)
	if localBits >= 16 {
		return 0xffff
	}
	return uint16(1<<localBits) - 1
}

// AddCore wires c into this node as local core number num: c's CoreID
// becomes this node's id with num folded into the low core-number bits
// (§4.6's "CoreID = nodeID ⊕ local core number"), and c is given this node
// as its Router so any chanend destination it cannot resolve locally is
// tried against the fabric.
func (n *Node) AddCore(num uint8, c *core.Core) {
	id := n.id ^ (uint16(num) & n.coreMask())
	c.SetCoreID(id)
	c.SetRouter(n)
	n.cores = append(n.cores, c)
}

// Cores returns the node's wired-in cores in AddCore order.
func (n *Node) Cores() []*core.Core { return n.cores }

// SetLink wires direction (the bit position a route to destNodeID would
// select) to a new, enabled XLink reaching destNodeID, and returns it so
// the caller can Disable it later to simulate a down link.
func (n *Node) SetLink(direction int, destNodeID uint16) *XLink {
	l := &XLink{enabled: true, destNodeID: destNodeID}
	n.links[direction] = l
	return l
}

// Attach registers n with net, making it reachable from other nodes'
// routing walks and giving n's own Resolve calls somewhere to hop through.
func (n *Node) Attach(net *Network) { net.add(n) }

// Resolve implements core.Router: the cross-tile half of §4.6's
// getChanendDest. dest is a chanend ResourceID a Core could not resolve
// against its own pool; this either answers directly (dest belongs to one
// of this node's own cores) or walks the XLink route to the node that owns
// dest and resolves it there.
func (n *Node) Resolve(from resource.ID, dest resource.ID) (resource.ChanEndpoint, bool) {
	if dest.IsConfig() {
		// SSCTRL traffic is reached through Node.ReadConfig/WriteConfig,
		// not the chanend token path: no instruction in this opcode set
		// issues a plain OUT to a config resource.
		return nil, false
	}
	targetNode := dest.Node() &^ n.coreMask()
	if targetNode == n.id {
		return n.localResolve(dest)
	}
	if n.net == nil {
		return nil, false
	}
	next, ok := n.net.walk(n.id, targetNode)
	if !ok {
		return nil, false
	}
	return next.Resolve(from, dest)
}

// localResolve answers a dest this node itself owns: find the core whose
// exact CoreID (node bits and core-number bits both) matches, and ask it
// for the chanend by ResourceByID, same as a Core's own local lookup.
func (n *Node) localResolve(dest resource.ID) (resource.ChanEndpoint, bool) {
	for _, c := range n.cores {
		if c.CoreID() != dest.Node() {
			continue
		}
		v, ok := c.ResourceByID(dest)
		if !ok {
			return nil, false
		}
		inUse, hasInUse := v.(interface{ IsInUse() bool })
		if hasInUse && !inUse.IsInUse() {
			return nil, false
		}
		ch, ok := v.(resource.ChanEndpoint)
		return ch, ok
	}
	return nil, false
}

// findConfigNode walks toward the node named by dest's node field (taken
// literally, since §4.6 says "SSCTRL config targets resolve to the
// destination node's SSwitch regardless of core bits") and returns it.
func (n *Node) findConfigNode(dest resource.ID) (*Node, bool) {
	if dest.Node() == n.id {
		return n, true
	}
	if n.net == nil {
		return nil, false
	}
	next, ok := n.net.walk(n.id, dest.Node())
	if !ok {
		return nil, false
	}
	return next.findConfigNode(dest)
}

// ReadConfig implements an inbound SSwitch register read (§4.6): dest
// names the target node and, in its Num field, which config register.
func (n *Node) ReadConfig(dest resource.ID) (value uint32, ack bool) {
	target, ok := n.findConfigNode(dest)
	if !ok {
		return 0, false
	}
	return target.sswitch.read(resource.ConfigType(dest.Num())), true
}

// WriteConfig implements an inbound SSwitch register write.
func (n *Node) WriteConfig(dest resource.ID, value uint32) (ack bool) {
	target, ok := n.findConfigNode(dest)
	if !ok {
		return false
	}
	target.sswitch.write(resource.ConfigType(dest.Num()), value)
	return true
}

var _ core.Router = (*Node)(nil)
