// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package at provides the low level AT request/response engine: command
// assembly, the response matcher, and inline dispatch of the three SIMCom
// URC families the matcher must recognise mid-stream.
//
// The engine is single-threaded and cooperative: every blocking call is a
// loop bounded by an explicit deadline that calls a yield hook on every
// iteration so a host event loop can service other work while waiting.
// There is no internal goroutine, and no command may be issued while
// another is outstanding — callers serialise themselves, as the engine has
// exactly one owner (see Session in the modem package).
package at

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Port is the non-blocking byte stream the engine reads commands responses
// from and writes commands to. It is supplied by the host environment (see
// the transport package for a reference implementation over io.ReadWriter).
type Port interface {
	// ReadByte returns the next byte without blocking; ok is false if none
	// is currently available.
	ReadByte() (b byte, ok bool)
	Write(p []byte) (int, error)
	Flush() error
	Available() int
}

// Clock is the monotonic time source consumed by the engine.
type Clock interface {
	NowMs() int64
}

// Yielder is invoked on every iteration of the matcher's wait loop, so a
// host scheduler can service other work while the engine waits for a
// response. The default is a no-op.
type Yielder func()

// Logger is the line-oriented debug sink consumed by the engine. It is
// optional; a nil Logger disables diagnostics.
type Logger interface {
	Printf(format string, args ...interface{})
}

// Terminators holds up to five literal byte patterns the response matcher
// watches for, tried in order. An empty pattern is never matched.
type Terminators [5]string

// DefaultTerminators returns the terminator set used when a command has no
// unusual completion lines: "OK\r\n" as index 1, "ERROR\r\n" as index 2.
func DefaultTerminators() Terminators {
	return Terminators{"OK\r\n", "ERROR\r\n"}
}

// URCSink receives the per-socket state changes the response matcher
// discovers inline while waiting for some other command's response. It is
// implemented by the socket package's Table.
type URCSink interface {
	// NotifyDataReady marks mux as having unsolicited data waiting
	// (+CIPRXGET: 1,<mux>).
	NotifyDataReady(mux int)
	// NotifyReceiveLen marks mux as having length bytes waiting
	// (+RECEIVE: <mux>,<len>).
	NotifyReceiveLen(mux, length int)
	// NotifyClosed marks mux as no longer connected (<mux>, CLOSED).
	NotifyClosed(mux int)
}

// Engine is the AT request/response engine for a single modem connection.
type Engine struct {
	port    Port
	clock   Clock
	yield   Yielder
	logger  Logger
	urc     URCSink
	scratch []byte
}

// Option configures an Engine created by New.
type Option func(*Engine)

// WithYielder sets the cooperative yield hook invoked while waiting for a
// response. The default is a no-op.
func WithYielder(y Yielder) Option {
	return func(e *Engine) { e.yield = y }
}

// WithLogger sets the debug sink used to report unhandled response data.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithURCSink sets the receiver of inline URC state changes. Without one,
// the three recognised URC shapes are still consumed (so they don't
// corrupt the response stream) but their effects are discarded.
func WithURCSink(u URCSink) Option {
	return func(e *Engine) { e.urc = u }
}

// New creates an Engine reading and writing through port, using clock as
// its time source.
func New(port Port, clock Clock, opts ...Option) *Engine {
	e := &Engine{
		port:    port,
		clock:   clock,
		yield:   func() {},
		scratch: make([]byte, 0, 64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetURCSink installs (or replaces) the URC sink after construction, which
// lets a ModemSession wire its socket table in once both exist.
func (e *Engine) SetURCSink(u URCSink) {
	e.urc = u
}

// Write assembles "AT" + fragments + "\r\n" and writes it to the port,
// flushing afterwards. Fragments are concatenated with no separator;
// callers insert literal commas/quotes as fragments.
//
// Supported fragment types are string, []byte, byte (one character), int
// (decimal) and bool ("1" or "0"), mirroring the variadic sendAT of the
// original driver.
func (e *Engine) Write(fragments ...interface{}) error {
	var sb strings.Builder
	sb.WriteString("AT")
	for _, f := range fragments {
		switch v := f.(type) {
		case string:
			sb.WriteString(v)
		case []byte:
			sb.Write(v)
		case int:
			sb.WriteString(strconv.Itoa(v))
		case bool:
			if v {
				sb.WriteString("1")
			} else {
				sb.WriteString("0")
			}
		case byte:
			sb.WriteByte(v)
		default:
			return errors.Errorf("at: unsupported command fragment type %T", f)
		}
	}
	sb.WriteString("\r\n")
	if _, err := e.port.Write([]byte(sb.String())); err != nil {
		return err
	}
	return e.port.Flush()
}

// WriteRaw writes bytes directly to the port, bypassing command framing.
// It is used to send SMS bodies and raw socket payloads.
func (e *Engine) WriteRaw(p []byte) error {
	if _, err := e.port.Write(p); err != nil {
		return err
	}
	return e.port.Flush()
}

// deadline returns the absolute clock time timeoutMs from now.
func (e *Engine) deadline(timeoutMs int64) int64 {
	return e.clock.NowMs() + timeoutMs
}

// readByte returns the next byte from the port, spinning the yield hook
// until one is available or deadlineMs elapses.
func (e *Engine) readByte(deadlineMs int64) (byte, bool) {
	for {
		if b, ok := e.port.ReadByte(); ok {
			return b, true
		}
		if e.clock.NowMs() >= deadlineMs {
			return 0, false
		}
		e.yield()
	}
}

// ReadUntil reads bytes up to (but not including) the first occurrence of
// any byte in delims, discarding the delimiter. It is used by higher layers
// to pull comma/CRLF-delimited fields out of a response once its prefix has
// matched a terminator, mirroring the original driver's streamSkipUntil /
// readStringUntil helpers.
func (e *Engine) ReadUntil(timeoutMs int64, delims ...byte) (string, bool) {
	dl := e.deadline(timeoutMs)
	var sb strings.Builder
	for {
		b, ok := e.readByte(dl)
		if !ok {
			return sb.String(), false
		}
		for _, d := range delims {
			if b == d {
				return sb.String(), true
			}
		}
		sb.WriteByte(b)
	}
}

// ReadLine reads up to and including the next "\r\n", returning the line
// with the terminator stripped.
func (e *Engine) ReadLine(timeoutMs int64) (string, bool) {
	dl := e.deadline(timeoutMs)
	var sb strings.Builder
	for {
		b, ok := e.readByte(dl)
		if !ok {
			return sb.String(), false
		}
		if b == '\n' {
			s := sb.String()
			return strings.TrimSuffix(s, "\r"), true
		}
		sb.WriteByte(b)
	}
}

// ReadExactly blocks, bounded by timeoutMs, until it has read n bytes (or
// the deadline passes, returning what it has so far). Used by socket reads
// to pull a known-length payload out of the transport.
func (e *Engine) ReadExactly(timeoutMs int64, n int) []byte {
	dl := e.deadline(timeoutMs)
	out := make([]byte, 0, n)
	for len(out) < n {
		b, ok := e.readByte(dl)
		if !ok {
			break
		}
		out = append(out, b)
	}
	return out
}

// Wait is the response matcher: it reads bytes from the port, appending
// each to a scratch buffer, until one of the (up to five) terms matches the
// scratch buffer's suffix, the timeout elapses, or a recognised URC is
// spotted and dispatched, in which case the scratch is cleared and waiting
// continues.
//
// The return value is 1..5 naming the terminator that matched, or 0 on
// timeout; a timeoutMs of 0 or less returns 0 at once, without reading from
// the port. Terminator tests always run before URC tests, so a caller that
// deliberately includes "+CIPRXGET:" as one of its terms (to read back a
// data-fetch response) still gets precedence over the inline notify-URC
// handling of the same prefix.
func (e *Engine) Wait(timeoutMs int64, terms Terminators) int {
	dl := e.deadline(timeoutMs)
	e.scratch = e.scratch[:0]
	if timeoutMs <= 0 {
		return 0
	}
	for {
		b, ok := e.readByte(dl)
		if !ok {
			break
		}
		if b == 0 {
			// guard against NUL glitches on the wire
			continue
		}
		e.scratch = append(e.scratch, b)
		if idx := matchTerminator(e.scratch, terms); idx != 0 {
			e.scratch = e.scratch[:0]
			return idx
		}
		if hasSuffix(e.scratch, "\r\n+CIPRXGET:") {
			e.handleCIPRXGET(dl)
			continue
		}
		if hasSuffix(e.scratch, "\r\n+RECEIVE:") {
			e.handleReceive(dl)
			continue
		}
		if hasSuffix(e.scratch, "CLOSED\r\n") {
			e.handleClosed()
			continue
		}
	}
	if trimmed := strings.TrimSpace(string(e.scratch)); trimmed != "" && e.logger != nil {
		e.logger.Printf("at: unhandled response data: %q", trimmed)
	}
	e.scratch = e.scratch[:0]
	return 0
}

func matchTerminator(scratch []byte, terms Terminators) int {
	for i, t := range terms {
		if t == "" {
			continue
		}
		if hasSuffix(scratch, t) {
			return i + 1
		}
	}
	return 0
}

func hasSuffix(scratch []byte, pattern string) bool {
	if len(scratch) < len(pattern) {
		return false
	}
	return string(scratch[len(scratch)-len(pattern):]) == pattern
}

// handleCIPRXGET implements priority-2 of the matcher algorithm: a
// "\r\n+CIPRXGET:" suffix reads one more comma-delimited integer (the
// mode). Mode 1 is an unsolicited notify URC: it reads one more
// newline-delimited integer (the mux), flags that socket's data-ready
// state, and clears scratch. Any other mode belongs to a data-fetch
// command's response, so the mode digits are appended back to scratch for
// the caller's own terminator (typically "+CIPRXGET:") to match against.
func (e *Engine) handleCIPRXGET(dl int64) {
	modeStr, ok := e.ReadUntil(dl-e.clock.NowMs(), ',')
	if !ok {
		return
	}
	mode, err := strconv.Atoi(strings.TrimSpace(modeStr))
	if err != nil {
		e.scratch = append(e.scratch, []byte(modeStr)...)
		return
	}
	if mode != 1 {
		e.scratch = append(e.scratch, []byte(modeStr)...)
		return
	}
	muxStr, ok := e.ReadUntil(dl-e.clock.NowMs(), '\n')
	if !ok {
		e.scratch = e.scratch[:0]
		return
	}
	if mux, err := strconv.Atoi(strings.TrimSpace(muxStr)); err == nil && e.urc != nil {
		e.urc.NotifyDataReady(mux)
	}
	e.scratch = e.scratch[:0]
}

// handleReceive implements priority-3: a "\r\n+RECEIVE:" suffix reads the
// comma-delimited mux then the newline-delimited length, flags that
// socket's available length, and clears scratch.
func (e *Engine) handleReceive(dl int64) {
	muxStr, okMux := e.ReadUntil(dl-e.clock.NowMs(), ',')
	lenStr, okLen := e.ReadUntil(dl-e.clock.NowMs(), '\n')
	e.scratch = e.scratch[:0]
	if !okMux || !okLen {
		return
	}
	mux, errA := strconv.Atoi(strings.TrimSpace(muxStr))
	length, errB := strconv.Atoi(strings.TrimSpace(lenStr))
	if errA == nil && errB == nil && e.urc != nil {
		e.urc.NotifyReceiveLen(mux, length)
	}
}

// handleClosed implements priority-4: a "CLOSED\r\n" suffix identifies the
// mux id immediately following the preceding CRLF and marks that socket
// disconnected.
func (e *Engine) handleClosed() {
	s := string(e.scratch)
	cut := len(s) - len("CLOSED\r\n")
	if cut < 0 {
		e.scratch = e.scratch[:0]
		return
	}
	idx := strings.LastIndex(s[:cut], "\r\n")
	start := idx + 2
	comma := strings.IndexByte(s[start:cut], ',')
	if comma >= 0 {
		if mux, err := strconv.Atoi(strings.TrimSpace(s[start : start+comma])); err == nil && e.urc != nil {
			e.urc.NotifyClosed(mux)
		}
	}
	e.scratch = e.scratch[:0]
}

// Command sends a plain AT command and waits for OK/ERROR, classifying any
// +CME ERROR:/+CMS ERROR: line it sees along the way. It is the convenience
// path used by the bulk of simple, single-line-response AT commands.
func (e *Engine) Command(timeoutMs int64, fragments ...interface{}) error {
	if err := e.Write(fragments...); err != nil {
		return err
	}
	return e.awaitStatus(timeoutMs)
}

// awaitStatus reads lines until one classifies as OK, ERROR, or a CME/CMS
// error, mirroring the teacher package's parseRxLine/newError split even
// though the core matcher only deals in literal suffix patterns.
func (e *Engine) awaitStatus(timeoutMs int64) error {
	dl := e.deadline(timeoutMs)
	for {
		remaining := dl - e.clock.NowMs()
		if remaining <= 0 {
			return ErrTimeout
		}
		line, ok := e.ReadLine(remaining)
		if !ok {
			return ErrTimeout
		}
		if line == "" {
			continue
		}
		switch {
		case line == "OK":
			return nil
		case strings.HasPrefix(line, "ERROR"):
			return ErrError
		case strings.HasPrefix(line, "+CME ERROR:"):
			return CMEError(strings.TrimSpace(strings.TrimPrefix(line, "+CME ERROR:")))
		case strings.HasPrefix(line, "+CMS ERROR:"):
			return CMSError(strings.TrimSpace(strings.TrimPrefix(line, "+CMS ERROR:")))
		}
	}
}

// CMEError indicates a CME Error was returned by the modem. The value is
// the error value, in string form, which may be numeric or textual
// depending on the modem's +CMEE configuration.
type CMEError string

// CMSError indicates a CMS Error was returned by the modem.
type CMSError string

func (e CMEError) Error() string { return "CME Error: " + string(e) }
func (e CMSError) Error() string { return "CMS Error: " + string(e) }

var (
	// ErrTimeout indicates the response matcher's deadline elapsed before
	// any terminator matched.
	ErrTimeout = errors.New("at: timeout")
	// ErrError indicates the modem returned a generic AT ERROR.
	ErrError = errors.New("at: ERROR")
)
