// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package sms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexgavs/simcom/at"
	"github.com/alexgavs/simcom/sms"
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

func newLeaves(script string) (*sms.Leaves, *mockPort) {
	p := &mockPort{rx: []byte(script)}
	eng := at.New(p, &fakeClock{step: 1})
	return sms.New(eng, sms.DefaultCodec{}, 1000), p
}

func TestSendSMS(t *testing.T) {
	// CMGF=1 -> OK, CSCS -> OK, CMGS prompt -> '>', then +CMGS: 42 / OK
	l, p := newLeaves("OK\r\nOK\r\n\r\n>\r\n+CMGS: 42\r\n\r\nOK\r\n")
	mr, err := l.SendSMS("+12345", "hi")
	require.NoError(t, err)
	assert.Equal(t, 42, mr)
	assert.Contains(t, string(p.written), "hi\x1a")
}

func TestReadSMS(t *testing.T) {
	l, _ := newLeaves("\r\n+CMGR: \"REC READ\",\"+12345\",\"\",\"24/01/01,00:00:00+00\"\r\nhello\r\n\r\nOK\r\n")
	m, err := l.ReadSMS(1)
	require.NoError(t, err)
	assert.Equal(t, "REC READ", m.Status)
	assert.Equal(t, "+12345", m.Address)
	assert.Equal(t, "hello", m.Message)
}

func TestReadSMSNotFoundOnEmptySlot(t *testing.T) {
	l, _ := newLeaves("\r\nOK\r\n")
	_, err := l.ReadSMS(99)
	assert.Equal(t, sms.ErrNotFound, err)
}

func TestGetPreferredMessageStorage(t *testing.T) {
	l, _ := newLeaves("\r\n+CPMS: \"SM\",3,50,\"ME\",0,20,\"MT\",5,100\r\n\r\nOK\r\n")
	triple, err := l.GetPreferredMessageStorage()
	require.NoError(t, err)
	assert.Equal(t, sms.MessageStorage{Type: "SM", Used: 3, Total: 50}, triple[0])
	assert.Equal(t, sms.MessageStorage{Type: "ME", Used: 0, Total: 20}, triple[1])
	assert.Equal(t, sms.MessageStorage{Type: "MT", Used: 5, Total: 100}, triple[2])
}

func TestGetUnreadMessagesSelectsSlot(t *testing.T) {
	l, _ := newLeaves("\r\n+CPMS: \"SM\",3,50,\"ME\",0,20,\"MT\",5,100\r\n\r\nOK\r\n")
	used, err := l.GetUnreadMessages(sms.SlotReceive)
	require.NoError(t, err)
	assert.Equal(t, 5, used)
}

func TestReadPhonebookEntryInternational(t *testing.T) {
	l, _ := newLeaves("\r\n+CPBR: 1,\"+440000000\",145,\"Alice\"\r\n\r\nOK\r\n")
	e, err := l.ReadPhonebookEntry(1)
	require.NoError(t, err)
	assert.Equal(t, "+440000000", e.Number)
	assert.Equal(t, "INTERNATIONAL", e.Type)
	assert.Equal(t, "Alice", e.Text)
}

func TestReadPhonebookEntryNational(t *testing.T) {
	l, _ := newLeaves("\r\n+CPBR: 2,\"0700000000\",129,\"Bob\"\r\n\r\nOK\r\n")
	e, err := l.ReadPhonebookEntry(2)
	require.NoError(t, err)
	assert.Equal(t, "NATIONAL", e.Type)
}

func TestReadPhonebookEntryNotFoundOnEmptySlot(t *testing.T) {
	l, _ := newLeaves("\r\nOK\r\n")
	_, err := l.ReadPhonebookEntry(50)
	assert.Equal(t, sms.ErrNotFound, err)
}

func TestFindPhonebookEntriesReturnsIndicesOnly(t *testing.T) {
	script := "\r\n+CPBF: 1,\"+440000000\",145,\"Alice\"\r\n" +
		"\r\n+CPBF: 3,\"0700000000\",129,\"Bob\"\r\n\r\nOK\r\n"
	l, _ := newLeaves(script)
	m, err := l.FindPhonebookEntries("a")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count)
	assert.Equal(t, 1, m.Indices[0])
	assert.Equal(t, 3, m.Indices[1])
}

func TestSendUSSDHex8Bit(t *testing.T) {
	// DCS 15: plain 8-bit hex, one hex pair per byte - "Hi" is 0x48 0x69.
	script := "OK\r\nOK\r\nOK\r\n\r\n+CUSD: 0,\"4869\",15\r\n\r\nOK\r\n"
	l, _ := newLeaves(script)
	reply, err := l.SendUSSD("*101#")
	require.NoError(t, err)
	assert.Equal(t, "Hi", reply)
}

func TestSendUSSDRawHexForUnknownDCS(t *testing.T) {
	l, _ := newLeaves("OK\r\nOK\r\nOK\r\n\r\n+CUSD: 0,\"deadbeef\",0\r\n\r\nOK\r\n")
	reply, err := l.SendUSSD("*123#")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", reply)
}

func TestDeleteAllSMSMapsMethodToFlag(t *testing.T) {
	l, p := newLeaves("OK\r\n")
	err := l.DeleteAllSMS(sms.DeleteAll)
	require.NoError(t, err)
	assert.Equal(t, "AT+CMGD=1,4\r\n", string(p.written))
}

func TestReceiveCallerIDNotification(t *testing.T) {
	l, p := newLeaves("OK\r\n")
	err := l.ReceiveCallerIDNotification(true)
	require.NoError(t, err)
	assert.Equal(t, "AT+CLIP=1\r\n", string(p.written))
}

func TestDTMFSendClampsDuration(t *testing.T) {
	l, p := newLeaves("OK\r\nOK\r\n")
	err := l.DTMFSend('5', 5000)
	require.NoError(t, err)
	assert.Contains(t, string(p.written), "AT+VTD=10\r\n")
}

func TestDTMFSendClampsMinimumDuration(t *testing.T) {
	l, p := newLeaves("OK\r\nOK\r\n")
	err := l.DTMFSend('5', 1)
	require.NoError(t, err)
	assert.Contains(t, string(p.written), "AT+VTD=1\r\n")
}

func TestGetTemperatureIsDocumentedStub(t *testing.T) {
	l, _ := newLeaves("")
	assert.Equal(t, 36.6, l.GetTemperature())
}

func TestNTPServerSyncSuccess(t *testing.T) {
	l, _ := newLeaves("OK\r\nOK\r\n\r\n+CNTP: 1\r\n\r\nOK\r\n")
	code, err := l.NTPServerSync("pool.ntp.org", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestNTPServerSyncFailureReturnsError(t *testing.T) {
	l, _ := newLeaves("OK\r\nOK\r\n\r\n+CNTP: 3\r\n\r\nOK\r\n")
	_, err := l.NTPServerSync("pool.ntp.org", 0)
	assert.Error(t, err)
}
