package node

// XLink is one directed link out of a Node toward a neighbouring node,
// carrying only the destination's id (never an owning pointer), per §9's
// "XLinks carry (destNodeId, destLinkIdx), never owning pointers" design
// note for representing the Node↔XLink↔Node graph's cycles safely.
type XLink struct {
	enabled    bool
	destNodeID uint16
}

// Enabled reports whether routing may hop across this link.
func (l *XLink) Enabled() bool { return l.enabled }

// Enable arms the link.
func (l *XLink) Enable() { l.enabled = true }

// Disable downs the link, simulating a severed or not-yet-configured
// physical connection; routing treats a disabled link exactly like a
// missing one (§4.6: "If no enabled XLink exists... drop the message").
func (l *XLink) Disable() { l.enabled = false }

// DestNodeID returns the node this link reaches when enabled.
func (l *XLink) DestNodeID() uint16 { return l.destNodeID }
