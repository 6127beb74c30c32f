// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package socket implements the mux table and per-connection ring buffers
// that multiplex up to five logical TCP connections over one physical AT
// channel, and the short AT exchanges that drive them.
package socket

import "github.com/pkg/errors"

// MuxCount is the number of logical TCP connections the modem multiplexes
// over its single serial channel.
const MuxCount = 5

// DefaultRingCapacity is the per-socket ring buffer size used when a Table
// isn't given an explicit one.
const DefaultRingCapacity = 64

var (
	// ErrUnknownMux is returned by a socket operation given a mux index
	// outside [0, MuxCount).
	ErrUnknownMux = errors.New("socket: unknown mux")
	// ErrNotConnected is returned by an operation on a mux with no live
	// connection; it never touches the transport.
	ErrNotConnected = errors.New("socket: not connected")
)

// Slot holds the state the response matcher and socket operations share for
// one mux index: connection state, the unsolicited-data flags the URC
// dispatcher sets, and the inbound ring buffer.
type Slot struct {
	mux       int
	connected bool
	gotData   bool
	available int
	ring      *ringBuffer
}

// Mux returns the slot's mux index.
func (s *Slot) Mux() int { return s.mux }

// Connected reports whether the slot currently believes it has a live
// connection. It can go stale until the next Status/Available call or URC.
func (s *Slot) Connected() bool { return s.connected }

// Table is the fixed-size array of socket slots a ModemSession owns. It
// implements at.URCSink so the response matcher can fold URC state changes
// directly into slot state as they're discovered inline, with no
// thread-safety: the table is only ever touched by the single engine owner.
type Table struct {
	slots        [MuxCount]*Slot
	ringCapacity int
}

// NewTable creates a Table whose ring buffers have the given capacity. A
// capacity of 0 uses DefaultRingCapacity.
func NewTable(ringCapacity int) *Table {
	if ringCapacity <= 0 {
		ringCapacity = DefaultRingCapacity
	}
	return &Table{ringCapacity: ringCapacity}
}

// slot returns the slot for mux, or nil if mux is out of range.
func (t *Table) slot(mux int) *Slot {
	if mux < 0 || mux >= MuxCount {
		return nil
	}
	return t.slots[mux]
}

// open creates (or resets) the slot for mux, marking it connected. It is
// called by Socket.Connect once the modem has confirmed the connection.
func (t *Table) open(mux int) *Slot {
	s := &Slot{mux: mux, connected: true, ring: newRingBuffer(t.ringCapacity)}
	t.slots[mux] = s
	return s
}

// clear removes the slot for mux entirely, as happens on a deliberate close.
func (t *Table) clear(mux int) {
	if mux >= 0 && mux < MuxCount {
		t.slots[mux] = nil
	}
}

// NotifyDataReady implements at.URCSink: a "+CIPRXGET: 1,<mux>" inline URC
// flags that the modem has unsolicited data buffered for mux. A mux id
// outside range or with no live slot is silently ignored, per the
// at-most-one-slot-per-mux invariant.
func (t *Table) NotifyDataReady(mux int) {
	if s := t.slot(mux); s != nil {
		s.gotData = true
	}
}

// NotifyReceiveLen implements at.URCSink: a "+RECEIVE: <mux>,<len>" inline
// URC flags pending data and records its length.
func (t *Table) NotifyReceiveLen(mux, length int) {
	if s := t.slot(mux); s != nil {
		s.gotData = true
		s.available = length
	}
}

// NotifyClosed implements at.URCSink: a "<mux>, CLOSED" inline URC marks
// that connection dead. The ring buffer is left intact so a caller can
// still drain whatever arrived before the close (draining allowed, per the
// slot invariant).
func (t *Table) NotifyClosed(mux int) {
	if s := t.slot(mux); s != nil {
		s.connected = false
	}
}
