// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package socket

import (
	"testing"

	"github.com/alexgavs/simcom/at"
)

type mockPort struct {
	rx      []byte
	written []byte
}

func (m *mockPort) ReadByte() (byte, bool) {
	if len(m.rx) == 0 {
		return 0, false
	}
	b := m.rx[0]
	m.rx = m.rx[1:]
	return b, true
}

func (m *mockPort) Write(p []byte) (int, error) {
	m.written = append(m.written, p...)
	return len(p), nil
}
func (m *mockPort) Flush() error   { return nil }
func (m *mockPort) Available() int { return len(m.rx) }

type fakeClock struct{ t, step int64 }

func (c *fakeClock) NowMs() int64 { c.t += c.step; return c.t }

func TestConnectSuccess(t *testing.T) {
	p := &mockPort{rx: []byte("\r\nCONNECT OK\r\n")}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	sock := tbl.Socket(eng, 0)
	if err := sock.Connect("example.com", 80, false, 1000); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s := tbl.slot(0); s == nil || !s.connected {
		t.Fatal("expected connected slot")
	}
	want := "AT+CIPSTART=0,\"TCP\",\"example.com\",80\r\n"
	if string(p.written) != want {
		t.Fatalf("written = %q, want %q", p.written, want)
	}
}

func TestConnectAlreadyConnected(t *testing.T) {
	p := &mockPort{rx: []byte("\r\nALREADY CONNECT\r\n")}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	sock := tbl.Socket(eng, 0)
	if err := sock.Connect("example.com", 80, false, 1000); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func TestConnectFail(t *testing.T) {
	p := &mockPort{rx: []byte("\r\nCONNECT FAIL\r\n")}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	sock := tbl.Socket(eng, 3)
	if err := sock.Connect("example.com", 80, false, 1000); err != ErrConnectFailed {
		t.Fatalf("err = %v, want ErrConnectFailed", err)
	}
	if s := tbl.slot(3); s != nil {
		t.Fatal("expected no slot created on failed connect")
	}
}

func TestConnectUnknownMux(t *testing.T) {
	p := &mockPort{}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	sock := tbl.Socket(eng, MuxCount)
	if err := sock.Connect("h", 1, false, 1000); err != ErrUnknownMux {
		t.Fatalf("err = %v, want ErrUnknownMux", err)
	}
}

func TestSendSuccess(t *testing.T) {
	p := &mockPort{rx: []byte("\r\n>DATA ACCEPT:0,5\r\n")}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	tbl.open(0)
	sock := tbl.Socket(eng, 0)
	n, err := sock.Send([]byte("hello"), 1000)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n != 5 {
		t.Fatalf("n = %d, want 5", n)
	}
}

func TestSendNotConnected(t *testing.T) {
	p := &mockPort{}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	sock := tbl.Socket(eng, 0)
	if _, err := sock.Send([]byte("x"), 1000); err != ErrNotConnected {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestReadFillsRingFromTransport(t *testing.T) {
	p := &mockPort{rx: []byte("\r\n+CIPRXGET: 2,0,5,0\nhello\r\nOK\r\n")}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	tbl.open(0)
	sock := tbl.Socket(eng, 0, WithReadTimeoutMs(1000))
	got, err := sock.Read(5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestReadHexTransportDecodesPairs(t *testing.T) {
	p := &mockPort{rx: []byte("\r\n+CIPRXGET: 3,0,5,0\n68656c6c6f\r\nOK\r\n")}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	tbl.open(0)
	sock := tbl.Socket(eng, 0, WithReadTimeoutMs(1000), WithHexTransport())
	got, err := sock.Read(5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestAvailableServesFromRingFirst(t *testing.T) {
	p := &mockPort{}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	slot := tbl.open(0)
	slot.ring.write([]byte{1, 2, 3})
	sock := tbl.Socket(eng, 0)
	n, err := sock.Available(1000)
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if n != 3 {
		t.Fatalf("n = %d, want 3", n)
	}
}

func TestAvailableQueriesModemWhenFlagged(t *testing.T) {
	p := &mockPort{rx: []byte("\r\n+CIPRXGET: 4,0,9\r\nOK\r\n")}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	slot := tbl.open(0)
	slot.gotData = true
	sock := tbl.Socket(eng, 0)
	n, err := sock.Available(1000)
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if n != 9 {
		t.Fatalf("n = %d, want 9", n)
	}
	if slot.gotData {
		t.Fatal("expected gotData cleared")
	}
}

func TestClose(t *testing.T) {
	p := &mockPort{rx: []byte("\r\nOK\r\n")}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	tbl.open(2)
	sock := tbl.Socket(eng, 2)
	if err := sock.Close(0); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if tbl.slot(2) != nil {
		t.Fatal("expected slot cleared after close")
	}
}

func TestStatusConnected(t *testing.T) {
	p := &mockPort{rx: []byte("\r\n+CIPSTATUS: 0\r\n\r\nSTATE: CONNECTED\r\n\r\nOK\r\n")}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	tbl.open(0)
	sock := tbl.Socket(eng, 0)
	st, err := sock.Status(1000)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st != StatusConnected {
		t.Fatalf("status = %v, want Connected", st)
	}
}

func TestStatusRemoteClosingNotConfusedWithClosing(t *testing.T) {
	p := &mockPort{rx: []byte("\r\nSTATE: REMOTE CLOSING\r\n\r\nOK\r\n")}
	eng := at.New(p, &fakeClock{step: 1})
	tbl := NewTable(8)
	tbl.open(0)
	sock := tbl.Socket(eng, 0)
	st, err := sock.Status(1000)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st != StatusRemoteClosing {
		t.Fatalf("status = %v, want RemoteClosing", st)
	}
}
