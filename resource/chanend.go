package resource

import "github.com/tileforge/tilesim/clock"

// TokenKind distinguishes a plain data byte from the two control tokens
// chanends use to delimit and pause a transaction.
type TokenKind uint8

const (
	// TokenData carries one byte of payload.
	TokenData TokenKind = iota
	// TokenCTEnd marks the end of a message.
	TokenCTEnd
	// TokenCTPause marks a pause point a receiver can resume from.
	TokenCTPause
)

// Token is one entry in a chanend's FIFO: a payload byte (meaningful only
// when Kind == TokenData) tagged with its kind.
type Token struct {
	Kind  TokenKind
	Value uint8
}

func (t TokenKind) String() string {
	switch t {
	case TokenData:
		return "DATA"
	case TokenCTEnd:
		return "CT_END"
	case TokenCTPause:
		return "CT_PAUSE"
	default:
		return "UNKNOWN"
	}
}

// ChanEndpoint is anything a Chanend can exchange tokens with: another
// local Chanend, or a routed connection reaching into another node's
// network fabric. Defined here, rather than depending on a routing
// package, so resource has no outward dependency. Chanend implements it;
// a core or node resolves a destination ResourceID to the Chanend it
// names, whether local or on another tile.
type ChanEndpoint interface {
	ID() ID
	// ReceiveToken delivers a single token sent to this endpoint at time.
	ReceiveToken(tok Token, time clock.Ticks)
}

// Chanend is a bidirectional token FIFO addressed by a ResourceID,
// connected to a destination ChanEndpoint (another chanend, possibly on a
// different node reached through the switch fabric).
type Chanend struct {
	EventableResource

	dest   ChanEndpoint
	destID ID

	queue []Token

	pausedIn  Owner
	condition Condition
}

// NewChanend returns an unconnected chanend.
func NewChanend(id ID) *Chanend {
	c := &Chanend{}
	c.InitEventable(id, c)
	return c
}

func (c *Chanend) seeEventEnable(time clock.Ticks) bool { return len(c.queue) > 0 }

// SetDest wires the chanend's destination endpoint (resolved by the core
// or node from the destination ResourceID at the point of connection,
// the first OUT/OUTCT after SETD).
func (c *Chanend) SetDest(dest ChanEndpoint) { c.dest = dest }

// Dest returns the chanend's current destination, or nil if unconnected.
func (c *Chanend) Dest() ChanEndpoint { return c.dest }

// SetData implements SETD on a chanend: records the raw destination
// ResourceID, matching the reference's "SETD sets a resource's network
// destination" semantics for chanends. The resolved ChanEndpoint is left
// unset here; resolving destID to a concrete endpoint (a local chanend,
// or one reached through the owning core's Router) happens lazily, at
// the first OUT, since the destination core or node may not have
// allocated its own end yet at SETD time.
func (c *Chanend) SetData(owner Owner, v uint32, time clock.Ticks) bool {
	c.updateOwner(owner)
	c.destID = ID(v)
	c.dest = nil
	return true
}

// DestID returns the raw destination ResourceID last set by SETD, or 0 if
// none has been set.
func (c *Chanend) DestID() ID { return c.destID }

// ReceiveToken appends an incoming token to the queue, waking a
// descheduled reader and raising an event/interrupt if permitted.
func (c *Chanend) ReceiveToken(tok Token, time clock.Ticks) {
	c.queue = append(c.queue, tok)
	if c.pausedIn != nil {
		owner := c.pausedIn
		c.pausedIn = nil
		owner.Take(c, time, c.IsInterruptMode())
		return
	}
	if c.EventsPermitted() && c.seeEventEnable(time) {
		c.Event(time)
	}
}

// SendToken transmits a token to the chanend's destination. It is the
// chanend-level half of the OUT/OUTT/OUTCT instruction family; the
// dispatch loop supplies the token kind from the instruction being
// executed.
func (c *Chanend) SendToken(owner Owner, tok Token, time clock.Ticks) OpResult {
	c.updateOwner(owner)
	if c.dest == nil {
		return Illegal
	}
	c.dest.ReceiveToken(tok, time)
	return Continue
}

// In implements the IN instruction: pops the next data byte, descheduling
// the thread if the queue is empty.
func (c *Chanend) In(owner Owner, time clock.Ticks) (uint32, OpResult) {
	c.updateOwner(owner)
	if len(c.queue) == 0 {
		c.pausedIn = owner
		return 0, Deschedule
	}
	tok := c.queue[0]
	c.queue = c.queue[1:]
	return uint32(tok.Value), Continue
}

// Out implements the OUT instruction: sends a single data-token byte.
func (c *Chanend) Out(owner Owner, value uint32, time clock.Ticks) OpResult {
	return c.SendToken(owner, Token{Kind: TokenData, Value: uint8(value)}, time)
}

// SetCondition implements SETC COND on a chanend by recording the
// condition; no chanend operation consults it.
func (c *Chanend) SetCondition(owner Owner, cond Condition, time clock.Ticks) bool {
	c.updateOwner(owner)
	c.condition = cond
	return true
}

// PeekHeadIsControl reports whether the queue's head token is a control
// token (CT_END or CT_PAUSE), used by CHKCT/TESTCT.
func (c *Chanend) PeekHeadIsControl() (isControl bool, present bool) {
	if len(c.queue) == 0 {
		return false, false
	}
	return c.queue[0].Kind != TokenData, true
}

// InControl implements the INCT instruction: pops the next token,
// requiring it be a control token (CT_END/CT_PAUSE) rather than a plain
// data byte, descheduling the thread if the queue is empty. A data token
// at the head is a protocol violation (the two ends disagree on whether a
// message has ended), reported as Illegal.
func (c *Chanend) InControl(owner Owner, time clock.Ticks) (uint32, OpResult) {
	c.updateOwner(owner)
	if len(c.queue) == 0 {
		c.pausedIn = owner
		return 0, Deschedule
	}
	if c.queue[0].Kind == TokenData {
		return 0, Illegal
	}
	tok := c.queue[0]
	c.queue = c.queue[1:]
	return uint32(tok.Value), Continue
}

// CheckControl implements the CHKCT instruction: reports, without
// consuming it, whether the head of the queue is a control token whose
// value equals cmp, descheduling the thread until a token arrives if the
// queue is currently empty.
func (c *Chanend) CheckControl(owner Owner, cmp uint32, time clock.Ticks) (uint32, OpResult) {
	c.updateOwner(owner)
	isControl, present := c.PeekHeadIsControl()
	if !present {
		c.pausedIn = owner
		return 0, Deschedule
	}
	if isControl && uint32(c.queue[0].Value) == cmp {
		return 1, Continue
	}
	return 0, Continue
}

// Cancel abandons a paused reader (used on thread unwind).
func (c *Chanend) Cancel() { c.pausedIn = nil }
