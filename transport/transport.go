// Package transport adapts a byte stream to the non-blocking contract the AT
// engine needs: read one byte without blocking, write raw bytes, flush, and
// query how many bytes are waiting. It is the "Transport Adapter" collaborator
// of the driver — supplied by the host environment, not part of the AT engine
// itself.
package transport

import (
	"io"
	"sync"
	"time"
)

// Port is the byte stream contract consumed by the at package.
//
// ReadByte never blocks: it returns ok == false when no byte is currently
// available. Write and Flush behave as the underlying stream dictates.
// Available reports how many bytes are queued and ready for ReadByte.
type Port interface {
	ReadByte() (b byte, ok bool)
	Write(p []byte) (int, error)
	Flush() error
	Available() int
}

// Stream adapts any io.ReadWriter into a Port by running a single background
// reader goroutine that pumps bytes into a mutex-guarded queue. This mirrors
// the reader goroutine the teacher package runs to turn a blocking stream
// into a channel of lines (at/at.go's lineReader); here it operates at byte
// granularity because line framing and URC recognition are the AT engine's
// job, not the transport's.
//
// The goroutine is a property of this host-supplied adapter, not of the AT
// engine: the engine itself remains strictly single-threaded and only ever
// calls ReadByte/Available/Write/Flush from the caller's goroutine.
type Stream struct {
	rw io.ReadWriter

	mu     sync.Mutex
	buf    []byte
	closed bool
	err    error
}

// NewStream wraps rw as a Port, starting its background reader.
func NewStream(rw io.ReadWriter) *Stream {
	s := &Stream{rw: rw}
	go s.pump()
	return s
}

func (s *Stream) pump() {
	b := make([]byte, 256)
	for {
		n, err := s.rw.Read(b)
		if n > 0 {
			s.mu.Lock()
			s.buf = append(s.buf, b[:n]...)
			s.mu.Unlock()
		}
		if err != nil {
			s.mu.Lock()
			s.closed = true
			s.err = err
			s.mu.Unlock()
			return
		}
	}
}

// ReadByte returns the next byte from the stream, or ok=false if none is
// currently queued.
func (s *Stream) ReadByte() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) == 0 {
		return 0, false
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, true
}

// Available reports the number of bytes currently queued.
func (s *Stream) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Err returns the error that terminated the background reader, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Write writes bytes to the underlying stream.
func (s *Stream) Write(p []byte) (int, error) {
	return s.rw.Write(p)
}

// Flush flushes the underlying stream if it supports flushing; otherwise it
// is a no-op.
func (s *Stream) Flush() error {
	if f, ok := s.rw.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// WallClock is the real-time Clock used outside of tests: NowMs reports
// milliseconds since the Unix epoch.
type WallClock struct{}

// NowMs implements at.Clock.
func (WallClock) NowMs() int64 {
	return time.Now().UnixMilli()
}
