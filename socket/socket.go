// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package socket

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/alexgavs/simcom/at"
	"github.com/alexgavs/simcom/info"
)

// Status is the connection state reported by a status query.
type Status int

const (
	StatusInitial Status = iota
	StatusConnected
	StatusClosing
	StatusRemoteClosing
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "CONNECTED"
	case StatusClosing:
		return "CLOSING"
	case StatusRemoteClosing:
		return "REMOTE CLOSING"
	case StatusClosed:
		return "CLOSED"
	default:
		return "INITIAL"
	}
}

// DefaultCloseTimeoutMs is how long Close waits for the modem's OK before
// giving up and returning anyway; the close is applied locally regardless.
const DefaultCloseTimeoutMs = 15000

// Socket is a handle to one mux's connection. It carries only a mux index
// and references to the table and engine it belongs to - not ownership of
// the slot itself, which lives in the Table and may be recreated by a
// fresh Connect or torn down by a remote CLOSED.
type Socket struct {
	table         *Table
	eng           *at.Engine
	mux           int
	sslCapable    bool
	hexTransport  bool
	readTimeoutMs int64
}

// SocketOption configures a Socket returned by Table.Socket.
type SocketOption func(*Socket)

// WithSSLCapable marks the modem variant as supporting +CIPSSL; Connect
// issues +CIPSSL=<0|1> only on sockets built with this option.
// SIM900 has no TLS support and should leave this unset.
func WithSSLCapable() SocketOption {
	return func(s *Socket) { s.sslCapable = true }
}

// WithReadTimeoutMs sets the per-read deadline used by Read and Available.
func WithReadTimeoutMs(ms int64) SocketOption {
	return func(s *Socket) { s.readTimeoutMs = ms }
}

// WithHexTransport switches Read to fetch payload bytes via +CIPRXGET=3
// (two hex characters per byte) instead of the default +CIPRXGET=2 binary
// fetch. Some hosts prefer this when their transport can't reliably pass
// arbitrary binary octets through the command stream.
func WithHexTransport() SocketOption {
	return func(s *Socket) { s.hexTransport = true }
}

// Socket returns a handle bound to mux on t, driving AT exchanges through
// eng. It does not by itself create or require a live slot; Connect does.
func (t *Table) Socket(eng *at.Engine, mux int, opts ...SocketOption) *Socket {
	s := &Socket{table: t, eng: eng, mux: mux, readTimeoutMs: 5000}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mux returns the socket's mux index.
func (s *Socket) Mux() int { return s.mux }

// connectTerminators covers the five completion lines a CIPSTART exchange
// can end in.
var connectTerminators = at.Terminators{
	"CONNECT OK\r\n",
	"CONNECT FAIL\r\n",
	"ALREADY CONNECT\r\n",
	"ERROR\r\n",
	"CLOSE OK\r\n",
}

// ErrConnectFailed is returned by Connect when the modem reports anything
// other than CONNECT OK or ALREADY CONNECT.
var ErrConnectFailed = errors.New("socket: connect failed")

// Connect opens mux to host:port. If the socket was built WithSSLCapable,
// AT+CIPSSL=1 (ssl true) or AT+CIPSSL=0 (ssl false) is issued first; its
// failure aborts the connect only when ssl is true. timeoutMs bounds the
// wait for the connect outcome.
func (s *Socket) Connect(host string, port int, ssl bool, timeoutMs int64) error {
	if s.mux < 0 || s.mux >= MuxCount {
		return ErrUnknownMux
	}
	if s.sslCapable {
		bit := 0
		if ssl {
			bit = 1
		}
		if err := s.eng.Command(timeoutMs, "+CIPSSL=", bit); ssl && err != nil {
			return err
		}
	}
	if err := s.eng.Write("+CIPSTART=", s.mux, ",\"TCP\",\"", host, "\",", port); err != nil {
		return err
	}
	idx := s.eng.Wait(timeoutMs, connectTerminators)
	switch idx {
	case 1, 3: // CONNECT OK, ALREADY CONNECT
		s.table.open(s.mux)
		return nil
	default:
		return ErrConnectFailed
	}
}

// Send writes buf to mux and returns the number of bytes the modem
// confirmed it accepted. A non-OK exchange yields (0, nil), matching the
// original driver's "any other response means zero bytes sent" behaviour.
func (s *Socket) Send(buf []byte, timeoutMs int64) (int, error) {
	slot := s.table.slot(s.mux)
	if slot == nil || !slot.connected {
		return 0, ErrNotConnected
	}
	if err := s.eng.Write("+CIPSEND=", s.mux, ",", len(buf)); err != nil {
		return 0, err
	}
	if idx := s.eng.Wait(timeoutMs, at.Terminators{">"}); idx == 0 {
		return 0, nil
	}
	if err := s.eng.WriteRaw(buf); err != nil {
		return 0, err
	}
	if idx := s.eng.Wait(timeoutMs, at.Terminators{"DATA ACCEPT:"}); idx == 0 {
		return 0, nil
	}
	if _, ok := s.eng.ReadUntil(timeoutMs, ','); !ok {
		return 0, nil
	}
	nStr, ok := s.eng.ReadLine(timeoutMs)
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(nStr))
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Read pulls up to n bytes for mux: if the ring buffer holds fewer than n
// bytes, a +CIPRXGET data fetch (see fill) first tops the ring up from the
// transport; bytes already in the ring are returned ahead of fetched ones.
func (s *Socket) Read(n int) ([]byte, error) {
	slot := s.table.slot(s.mux)
	if slot == nil {
		return nil, ErrUnknownMux
	}
	if slot.ring.len() < n {
		if err := s.fill(slot, n); err != nil {
			return nil, err
		}
	}
	out := make([]byte, n)
	got := slot.ring.read(out)
	return out[:got], nil
}

// fill issues a +CIPRXGET data-fetch exchange (mode 2, binary, or mode 3,
// hex, per WithHexTransport) to pull n bytes for mux from the transport
// into the ring buffer.
func (s *Socket) fill(slot *Slot, n int) error {
	mode := 2
	if s.hexTransport {
		mode = 3
	}
	if err := s.eng.Write("+CIPRXGET=", mode, ",", s.mux, ",", n); err != nil {
		return err
	}
	if idx := s.eng.Wait(s.readTimeoutMs, at.Terminators{"+CIPRXGET:"}); idx == 0 {
		return nil
	}
	// " <mode>,<mux>,<requested>,<confirmed>\n"
	if _, ok := s.eng.ReadUntil(s.readTimeoutMs, ','); !ok {
		return nil
	}
	if _, ok := s.eng.ReadUntil(s.readTimeoutMs, ','); !ok {
		return nil
	}
	reqStr, ok := s.eng.ReadUntil(s.readTimeoutMs, ',')
	if !ok {
		return nil
	}
	confStr, ok := s.eng.ReadLine(s.readTimeoutMs)
	if !ok {
		return nil
	}
	requested, err := strconv.Atoi(strings.TrimSpace(reqStr))
	if err != nil {
		return nil
	}
	confirmed, err := strconv.Atoi(strings.TrimSpace(confStr))
	if err != nil {
		confirmed = 0
	}
	var payload []byte
	if s.hexTransport {
		raw := s.eng.ReadExactly(s.readTimeoutMs, requested*2)
		payload = make([]byte, hex.DecodedLen(len(raw)))
		if n, err := hex.Decode(payload, raw); err == nil {
			payload = payload[:n]
		}
	} else {
		payload = s.eng.ReadExactly(s.readTimeoutMs, requested)
	}
	slot.ring.write(payload)
	slot.available = confirmed
	s.eng.Wait(s.readTimeoutMs, at.DefaultTerminators())
	return nil
}

// Available reports how many bytes are ready to Read without blocking on
// the transport: the ring count if non-empty, else the modem-reported
// pending length (refreshed via +CIPRXGET=4 if the got-data flag is set).
func (s *Socket) Available(timeoutMs int64) (int, error) {
	slot := s.table.slot(s.mux)
	if slot == nil {
		return 0, ErrUnknownMux
	}
	if slot.ring.len() > 0 {
		return slot.ring.len(), nil
	}
	if !slot.gotData {
		return slot.available, nil
	}
	if err := s.eng.Write("+CIPRXGET=4,", s.mux); err != nil {
		return 0, err
	}
	count := 0
	if idx := s.eng.Wait(timeoutMs, at.Terminators{"+CIPRXGET:"}); idx != 0 {
		if _, ok := s.eng.ReadUntil(timeoutMs, ','); ok {
			if _, ok := s.eng.ReadUntil(timeoutMs, ','); ok {
				if cStr, ok := s.eng.ReadLine(timeoutMs); ok {
					if c, err := strconv.Atoi(strings.TrimSpace(cStr)); err == nil {
						count = c
					}
				}
			}
		}
		s.eng.Wait(timeoutMs, at.DefaultTerminators())
	}
	slot.gotData = false
	slot.available = count
	if count == 0 {
		if _, err := s.Status(timeoutMs); err != nil {
			return 0, err
		}
	}
	return slot.available, nil
}

// Close issues a quick close for mux and marks it disconnected immediately;
// it waits for the modem's OK on a best-effort basis up to maxWaitMs (or
// DefaultCloseTimeoutMs if 0), never returning an error for a slow or
// missing OK.
func (s *Socket) Close(maxWaitMs int64) error {
	slot := s.table.slot(s.mux)
	if slot == nil {
		return ErrUnknownMux
	}
	if maxWaitMs <= 0 {
		maxWaitMs = DefaultCloseTimeoutMs
	}
	if err := s.eng.Write("+CIPCLOSE=", s.mux, ",1"); err != nil {
		return err
	}
	slot.connected = false
	s.eng.Wait(maxWaitMs, at.DefaultTerminators())
	s.table.clear(s.mux)
	return nil
}

// Status issues a +CIPSTATUS query for mux and parses the state line it
// replies with. It also refreshes the slot's connected flag.
func (s *Socket) Status(timeoutMs int64) (Status, error) {
	slot := s.table.slot(s.mux)
	if slot == nil {
		return StatusInitial, ErrUnknownMux
	}
	if err := s.eng.Write("+CIPSTATUS=", s.mux); err != nil {
		return StatusInitial, err
	}
	for {
		line, ok := s.eng.ReadLine(timeoutMs)
		if !ok {
			return StatusInitial, at.ErrTimeout
		}
		if line == "" {
			continue
		}
		if line == "OK" {
			return StatusInitial, errors.New("socket: no status line")
		}
		if st, matched := parseStatusLine(line); matched {
			slot.connected = st == StatusConnected
			// drain the trailing OK, best effort.
			s.eng.Wait(timeoutMs, at.DefaultTerminators())
			return st, nil
		}
	}
}

// parseStatusLine classifies a CIPSTATUS response line. REMOTE CLOSING is
// checked before CLOSING since the latter is a substring of the former.
func parseStatusLine(line string) (Status, bool) {
	if info.HasPrefix(line, "+CIPSTATUS") {
		line = info.TrimPrefix(line, "+CIPSTATUS")
	}
	switch {
	case strings.Contains(line, "REMOTE CLOSING"):
		return StatusRemoteClosing, true
	case strings.Contains(line, "CONNECTED"):
		return StatusConnected, true
	case strings.Contains(line, "CLOSING"):
		return StatusClosing, true
	case strings.Contains(line, "CLOSED"):
		return StatusClosed, true
	case strings.Contains(line, "INITIAL"):
		return StatusInitial, true
	}
	return StatusInitial, false
}
