// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package modem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexgavs/simcom/modem"
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

func TestGetModemNameAndCapabilities(t *testing.T) {
	s := modem.New(&mockPort{}, &fakeClock{step: 1}, modem.SIM900)
	assert.Equal(t, "SIM900", s.GetModemName())
	assert.False(t, s.HasSSL())
	assert.True(t, s.HasGPRS())
	assert.False(t, s.HasWiFi())

	s = modem.New(&mockPort{}, &fakeClock{step: 1}, modem.SIM808)
	assert.Equal(t, "SIM808", s.GetModemName())
	assert.True(t, s.HasSSL())
}

func TestInitSucceedsWhenSimReady(t *testing.T) {
	script := "OK\r\n" + // AT probe
		"OK\r\n" + // &FZ
		"OK\r\n" + // E0
		"\r\n+CPIN: READY\r\n\r\nOK\r\n" // +CPIN?
	s := modem.New(&mockPort{rx: []byte(script)}, &fakeClock{step: 1}, modem.SIM800)
	ready, err := s.Init("")
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestInitUnlocksWithPin(t *testing.T) {
	script := "OK\r\n" + // AT probe
		"OK\r\n" + // &FZ
		"OK\r\n" + // E0
		"\r\n+CPIN: SIM PIN\r\n\r\nOK\r\n" + // locked
		"OK\r\n" + // +CPIN=1234
		"\r\n+CPIN: READY\r\n\r\nOK\r\n" // re-check
	s := modem.New(&mockPort{rx: []byte(script)}, &fakeClock{step: 1}, modem.SIM800)
	ready, err := s.Init("1234")
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestInitLockedWithNoPinOfferedStillReportsReady(t *testing.T) {
	script := "OK\r\nOK\r\nOK\r\n\r\n+CPIN: SIM PIN\r\n\r\nOK\r\n"
	s := modem.New(&mockPort{rx: []byte(script)}, &fakeClock{step: 1}, modem.SIM800)
	ready, err := s.Init("")
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestInitFailsWhenProbeNeverAnswers(t *testing.T) {
	s := modem.New(&mockPort{}, &fakeClock{step: 1000}, modem.SIM800)
	ready, err := s.Init("")
	assert.Error(t, err)
	assert.False(t, ready)
}

func TestGPRSConnectRunsFullSequence(t *testing.T) {
	script := "OK\r\n" + // CIPSHUT
		"OK\r\n" + // SAPBR Contype
		"OK\r\n" + // SAPBR APN
		"OK\r\n" + // SAPBR USER
		"OK\r\n" + // SAPBR PWD
		"OK\r\n" + // CGDCONT
		"OK\r\n" + // CGACT
		"OK\r\n" + // SAPBR=1,1
		"OK\r\n" + // SAPBR=2,1
		"OK\r\n" + // CGATT=1
		"OK\r\n" + // CIPMUX
		"OK\r\n" + // CIPQSEND
		"OK\r\n" + // CIPRXGET=1
		"OK\r\n" + // CSTT
		"OK\r\n" + // CIICR
		"OK\r\n" + // CIFSR;E0
		"OK\r\n" // CDNSCFG
	p := &mockPort{rx: []byte(script)}
	s := modem.New(p, &fakeClock{step: 1}, modem.SIM800)
	ok, err := s.GPRSConnect("internet", "", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, string(p.written), "AT+CIICR\r\n")
	assert.Contains(t, string(p.written), "AT+CSTT=\"internet\",\"\",\"\"\r\n")
}

func TestGPRSConnectAbortsOnFailedStep(t *testing.T) {
	script := "OK\r\n" + "ERROR\r\n" // CIPSHUT ok, SAPBR Contype fails
	s := modem.New(&mockPort{rx: []byte(script)}, &fakeClock{step: 1}, modem.SIM800)
	ok, err := s.GPRSConnect("internet", "", "")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestGPRSDisconnectIsIdempotent(t *testing.T) {
	s := modem.New(&mockPort{rx: []byte("OK\r\nOK\r\nOK\r\nOK\r\n")}, &fakeClock{step: 1}, modem.SIM800)
	require.NoError(t, s.GPRSDisconnect())
	require.NoError(t, s.GPRSDisconnect())
}

func TestSocketHonoursVariantSSLCapability(t *testing.T) {
	p := &mockPort{rx: []byte("\r\nCONNECT OK\r\n")}
	s := modem.New(p, &fakeClock{step: 1}, modem.SIM900)
	sock := s.Socket(1, 5000)
	require.NotNil(t, sock)
	require.NoError(t, sock.Connect("example.com", 80, true, 1000))
	assert.NotContains(t, string(p.written), "+CIPSSL")
}
