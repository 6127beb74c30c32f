// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package sms

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/alexgavs/simcom/at"
)

// ErrSendFailed indicates the modem did not confirm an SMS send with
// +CMGS.
var ErrSendFailed = errors.New("sms: send failed")

// ErrNotFound indicates a CMGR/CPBR read found nothing at the requested
// index.
var ErrNotFound = errors.New("sms: not found")

// Leaves implements the SMS, phonebook, USSD, NTP, battery, time, DTMF and
// call-control feature leaves. Each method is a short, linear AT exchange
// over the engine it's constructed with.
type Leaves struct {
	eng       *at.Engine
	codec     Codec
	timeoutMs int64
}

// New creates a Leaves driving AT exchanges through eng, using codec for
// the hex<->8-bit/UCS2 conversions it can't do itself. timeoutMs bounds the
// ordinary (non-SMS-send) exchanges; SMS sends always use a fixed 60s
// budget per the wire format's own allowance for network round-trips.
func New(eng *at.Engine, codec Codec, timeoutMs int64) *Leaves {
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	return &Leaves{eng: eng, codec: codec, timeoutMs: timeoutMs}
}

// readQuotedField skips to the next '"' and returns the text up to the
// following one, consuming both quotes. It implements the quoted-field
// sequence parsing pattern shared by SMS headers and phonebook rows.
func (l *Leaves) readQuotedField(timeoutMs int64) (string, bool) {
	if _, ok := l.eng.ReadUntil(timeoutMs, '"'); !ok {
		return "", false
	}
	return l.eng.ReadUntil(timeoutMs, '"')
}

// SendSMS sends text to number in text mode, returning the modem's message
// reference.
func (l *Leaves) SendSMS(number, text string) (int, error) {
	if err := l.eng.Command(l.timeoutMs, "+CMGF=1"); err != nil {
		return 0, err
	}
	if err := l.eng.Command(l.timeoutMs, "+CSCS=\"GSM\""); err != nil {
		return 0, err
	}
	if err := l.eng.Write("+CMGS=\"", number, "\""); err != nil {
		return 0, err
	}
	if idx := l.eng.Wait(l.timeoutMs, at.Terminators{">"}); idx == 0 {
		return 0, at.ErrTimeout
	}
	body := append([]byte(text), 0x1A)
	if err := l.eng.WriteRaw(body); err != nil {
		return 0, err
	}
	return l.awaitSendConfirmation()
}

// SendSMSPDU sends a pre-encoded PDU (such as one produced by a Codec's
// EncodePDU) in PDU mode. tpduLen is the TPDU length in octets, excluding
// the SMSC prefix, as +CMGS's argument requires.
func (l *Leaves) SendSMSPDU(pdu []byte, tpduLen int) (int, error) {
	if err := l.eng.Command(l.timeoutMs, "+CMGF=0"); err != nil {
		return 0, err
	}
	if err := l.eng.Write("+CMGS=", tpduLen); err != nil {
		return 0, err
	}
	if idx := l.eng.Wait(l.timeoutMs, at.Terminators{">"}); idx == 0 {
		return 0, at.ErrTimeout
	}
	hexPDU := strings.ToUpper(hex.EncodeToString(pdu))
	body := append([]byte(hexPDU), 0x1A)
	if err := l.eng.WriteRaw(body); err != nil {
		return 0, err
	}
	return l.awaitSendConfirmation()
}

func (l *Leaves) awaitSendConfirmation() (int, error) {
	const sendTimeoutMs = 60000
	idx := l.eng.Wait(sendTimeoutMs, at.Terminators{"+CMGS:", "ERROR\r\n"})
	if idx == 0 {
		return 0, at.ErrTimeout
	}
	if idx != 1 {
		return 0, ErrSendFailed
	}
	mrStr, _ := l.eng.ReadLine(sendTimeoutMs)
	mr, _ := strconv.Atoi(strings.TrimSpace(mrStr))
	l.eng.Wait(sendTimeoutMs, at.DefaultTerminators())
	return mr, nil
}

// ReadSMS reads message index in text mode. The literal-suffix form of the
// status string is used ("REC READ", "REC UNREAD", "STO SENT", "STO
// UNSENT") rather than the enumerated constants some modem firmwares also
// accept, matching the more complete of the two status-parsing variants
// found in the reference driver.
func (l *Leaves) ReadSMS(index int) (Sms, error) {
	if err := l.eng.Write("+CMGR=", index); err != nil {
		return Sms{}, err
	}
	idx := l.eng.Wait(l.timeoutMs, at.Terminators{"+CMGR:", "ERROR\r\n", "OK\r\n"})
	if idx == 0 {
		return Sms{}, at.ErrTimeout
	}
	if idx != 1 {
		return Sms{}, ErrNotFound
	}
	stat, _ := l.readQuotedField(l.timeoutMs)
	addr, _ := l.readQuotedField(l.timeoutMs)
	alpha, _ := l.readQuotedField(l.timeoutMs)
	received, _ := l.eng.ReadLine(l.timeoutMs)
	message, _ := l.eng.ReadLine(l.timeoutMs)
	l.eng.Wait(l.timeoutMs, at.DefaultTerminators())
	return Sms{
		Status:   stat,
		Address:  addr,
		AlphaTag: alpha,
		Received: strings.TrimSpace(received),
		Alphabet: AlphabetGSM7, // text mode: the modem has already decoded the body
		Message:  message,
	}, nil
}

// DeleteSMS removes message index.
func (l *Leaves) DeleteSMS(index int) error {
	return l.eng.Command(l.timeoutMs, "+CMGD=", index)
}

// cmgdFlag maps a DeleteAllSmsMethod onto the +CMGD delete-flag values the
// modem understands: 1 delete read, 2 +sent, 3 +unsent, 4 all.
func cmgdFlag(method DeleteAllSmsMethod) int {
	switch method {
	case DeleteSent:
		return 2
	case DeleteUnsent:
		return 3
	case DeleteAll:
		return 4
	default: // DeleteRead, DeleteUnread, DeleteReceived: no distinct flag
		return 1
	}
}

// DeleteAllSMS removes every message matching method.
func (l *Leaves) DeleteAllSMS(method DeleteAllSmsMethod) error {
	return l.eng.Command(l.timeoutMs, "+CMGD=1,", cmgdFlag(method))
}

// GetPreferredMessageStorage reads the three parallel <type,used,total>
// tuples from +CPMS?, in Read/Write/Receive order.
func (l *Leaves) GetPreferredMessageStorage() (MessageStorageTriple, error) {
	var triple MessageStorageTriple
	if err := l.eng.Write("+CPMS?"); err != nil {
		return triple, err
	}
	if idx := l.eng.Wait(l.timeoutMs, at.Terminators{"+CPMS:", "ERROR\r\n"}); idx != 1 {
		return triple, at.ErrError
	}
	for i := 0; i < 3; i++ {
		name, _ := l.readQuotedField(l.timeoutMs)
		l.eng.ReadUntil(l.timeoutMs, ',') // the separator right after the closing quote
		usedStr, _ := l.eng.ReadUntil(l.timeoutMs, ',')
		totalStr, _ := l.eng.ReadUntil(l.timeoutMs, ',', '\n')
		used, _ := strconv.Atoi(strings.TrimSpace(usedStr))
		total, _ := strconv.Atoi(strings.TrimSpace(totalStr))
		triple[i] = MessageStorage{Type: name, Used: used, Total: total}
	}
	l.eng.Wait(l.timeoutMs, at.DefaultTerminators())
	return triple, nil
}

// SetPreferredMessageStorage assigns the storage used for each of the three
// CPMS slots.
func (l *Leaves) SetPreferredMessageStorage(read, write, receive string) error {
	return l.eng.Command(l.timeoutMs, "+CPMS=\"", read, "\",\"", write, "\",\"", receive, "\"")
}

// GetUnreadMessages reports the used count of the CPMS tuple named by
// slot. The original reads all three tuples but reports only the first
// regardless of any filter; this resolves that ambiguity by letting the
// caller pick which of the three tuples it means.
func (l *Leaves) GetUnreadMessages(slot StorageSlot) (int, error) {
	triple, err := l.GetPreferredMessageStorage()
	if err != nil {
		return 0, err
	}
	return triple[slot].Used, nil
}
