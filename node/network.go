package node

// Network is the arena every Node in one inter-tile fabric is registered
// in, addressed by node id (§9: "Represent nodes in an arena indexed by
// id; XLinks carry (destNodeId, destLinkIdx)... Routing walks the arena").
type Network struct {
	nodes map[uint16]*Node
}

// NewNetwork returns an empty arena.
func NewNetwork() *Network {
	return &Network{nodes: make(map[uint16]*Node)}
}

func (net *Network) add(n *Node) {
	net.nodes[n.id] = n
	n.net = net
}

// Node returns the node registered under id, if any.
func (net *Network) Node(id uint16) (*Node, bool) {
	n, ok := net.nodes[id]
	return n, ok
}

// highestSetBit returns the bit position of v's most significant set bit.
func highestSetBit(v uint16) (int, bool) {
	if v == 0 {
		return 0, false
	}
	for b := 15; b >= 0; b-- {
		if v&(1<<uint(b)) != 0 {
			return b, true
		}
	}
	return 0, false
}

// hop advances one step from the node at from toward dest, per §4.6: xor
// the current node's id with the destination, take the highest set bit's
// position as a direction, and follow that direction's XLink if one is
// enabled.
func (net *Network) hop(from, dest uint16) (uint16, bool) {
	n, ok := net.nodes[from]
	if !ok {
		return 0, false
	}
	bit, ok := highestSetBit(from ^ dest)
	if !ok {
		return 0, false
	}
	link := n.links[bit]
	if link == nil || !link.enabled {
		return 0, false
	}
	return link.destNodeID, true
}

// walk follows hop from start toward dest, one hop at a time, stopping as
// soon as dest is reached. Since dest is fixed for the whole walk, hop is
// a deterministic single-successor function of the current node, so
// repeatedly applying it traces exactly the rho-shaped sequence Brent's
// cycle-detection algorithm is built for (§9: "cycle detection uses
// Brent's algorithm as specified") — used here as a bound on the walk so a
// misconfigured or genuinely cyclic XLink table that never reaches dest is
// reported as a failed route instead of looping forever.
func (net *Network) walk(start, dest uint16) (*Node, bool) {
	if start == dest {
		return net.nodes[start], true
	}
	power, length := 1, 1
	tortoise := start
	hare, ok := net.hop(start, dest)
	if !ok {
		return nil, false
	}
	if hare == dest {
		return net.nodes[dest], true
	}
	for tortoise != hare {
		if power == length {
			tortoise = hare
			power *= 2
			length = 0
		}
		hare, ok = net.hop(hare, dest)
		if !ok {
			return nil, false
		}
		if hare == dest {
			return net.nodes[dest], true
		}
		length++
	}
	return nil, false
}
