package node

import "github.com/tileforge/tilesim/resource"

// SSwitch is a node's switch configuration register file (§4.6): a small
// set of named registers (resource.ConfigPSCtrl, resource.ConfigSSCtrl)
// reached through the chanend-config ResourceID namespace rather than
// through a GETR-allocated resource, since switch configuration belongs to
// the node as a whole rather than to any one of its cores.
type SSwitch struct {
	nodeID uint16
	regs   map[resource.ConfigType]uint32
}

func newSSwitch(nodeID uint16) *SSwitch {
	return &SSwitch{nodeID: nodeID, regs: make(map[resource.ConfigType]uint32)}
}

func (s *SSwitch) read(reg resource.ConfigType) uint32 { return s.regs[reg] }

func (s *SSwitch) write(reg resource.ConfigType, v uint32) { s.regs[reg] = v }
