// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package sms

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/alexgavs/simcom/at"
)

// ErrNoUSSDResponse indicates the modem answered a USSD request with ERROR
// instead of a +CUSD reply; a reply that never arrives within the budget is
// reported as at.ErrTimeout.
var ErrNoUSSDResponse = errors.New("sms: no USSD response")

// SendUSSD sends msg as a USSD request (DCS 15, 8-bit hex) and returns the
// decoded response text. DCS==15 decodes as plain 8-bit hex, DCS==72 as
// UCS2, and any other DCS value is returned as the raw hex payload, since
// its alphabet isn't one this driver's Codec understands.
func (l *Leaves) SendUSSD(msg string) (string, error) {
	if err := l.eng.Command(l.timeoutMs, "+CMGF=1"); err != nil {
		return "", err
	}
	if err := l.eng.Command(l.timeoutMs, "+CSCS=\"HEX\""); err != nil {
		return "", err
	}
	hexMsg, err := l.codec.EncodeHex8BitUSSD(msg)
	if err != nil {
		return "", err
	}
	if err := l.eng.Command(l.timeoutMs, "+CUSD=1,\"", strings.ToUpper(hexMsg), "\",15"); err != nil {
		return "", err
	}
	idx := l.eng.Wait(l.timeoutMs, at.Terminators{"+CUSD:", "ERROR\r\n"})
	if idx == 0 {
		return "", at.ErrTimeout
	}
	if idx != 1 {
		return "", ErrNoUSSDResponse
	}
	l.eng.ReadUntil(l.timeoutMs, ',') // the mode digit, e.g. "0,"
	payload, _ := l.readQuotedField(l.timeoutMs)
	dcsStr, _ := l.eng.ReadLine(l.timeoutMs)
	l.eng.Wait(l.timeoutMs, at.DefaultTerminators())
	dcs, _ := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(dcsStr, ",")))
	switch dcs {
	case 15:
		return l.codec.DecodeHex8BitUSSD(payload)
	case 72:
		return l.codec.DecodeUCS2(payload)
	default:
		return payload, nil
	}
}

// GetBattStats reads the modem's battery charge state, percentage, and
// voltage via +CBC.
func (l *Leaves) GetBattStats() (BatteryStats, error) {
	if err := l.eng.Write("+CBC"); err != nil {
		return BatteryStats{}, err
	}
	if idx := l.eng.Wait(l.timeoutMs, at.Terminators{"+CBC:", "ERROR\r\n"}); idx != 1 {
		return BatteryStats{}, at.ErrError
	}
	chargeStr, _ := l.eng.ReadUntil(l.timeoutMs, ',')
	pctStr, _ := l.eng.ReadUntil(l.timeoutMs, ',')
	mvStr, _ := l.eng.ReadLine(l.timeoutMs)
	l.eng.Wait(l.timeoutMs, at.DefaultTerminators())
	charge, _ := strconv.Atoi(strings.TrimSpace(chargeStr))
	pct, _ := strconv.Atoi(strings.TrimSpace(pctStr))
	mv, _ := strconv.Atoi(strings.TrimSpace(mvStr))
	return BatteryStats{ChargeState: charge, Percent: pct, Voltage: mv}, nil
}

// GetBattVoltage is a convenience accessor over GetBattStats.
func (l *Leaves) GetBattVoltage() (int, error) {
	s, err := l.GetBattStats()
	return s.Voltage, err
}

// GetBattPercent is a convenience accessor over GetBattStats.
func (l *Leaves) GetBattPercent() (int, error) {
	s, err := l.GetBattStats()
	return s.Percent, err
}

// GetTemperature returns a fixed 36.6 degrees; the source it's grounded on
// hard-codes the same value with no sensor read behind it, so this is kept
// as a documented stub rather than invented hardware access (see the Open
// Question in DESIGN.md).
func (l *Leaves) GetTemperature() float64 {
	return 36.6
}

// GetGSMDateTime reads the network-set clock via +CCLK?.
func (l *Leaves) GetGSMDateTime() (GSMDateTime, error) {
	if err := l.eng.Write("+CCLK?"); err != nil {
		return GSMDateTime{}, err
	}
	if idx := l.eng.Wait(l.timeoutMs, at.Terminators{"+CCLK:", "ERROR\r\n"}); idx != 1 {
		return GSMDateTime{}, at.ErrError
	}
	raw, _ := l.readQuotedField(l.timeoutMs)
	l.eng.Wait(l.timeoutMs, at.DefaultTerminators())
	return GSMDateTime{Raw: raw}, nil
}

// NTPServerSync asks the modem to sync its clock against server, returning
// the modem's numeric result code. The source returns a sentinel -1 from a
// function declared to return an unsigned byte on failure; this instead
// reports failure through the error return, as decided in DESIGN.md.
func (l *Leaves) NTPServerSync(server string, timeZoneQuarterHours int) (int, error) {
	if err := l.eng.Command(l.timeoutMs, "+CNTP=\"", server, "\",", timeZoneQuarterHours); err != nil {
		return 0, err
	}
	if err := l.eng.Command(30000, "+CNTP"); err != nil {
		return 0, err
	}
	idx := l.eng.Wait(30000, at.Terminators{"+CNTP:"})
	if idx == 0 {
		return 0, at.ErrTimeout
	}
	codeStr, _ := l.eng.ReadLine(30000)
	l.eng.Wait(30000, at.DefaultTerminators())
	code, err := strconv.Atoi(strings.TrimSpace(codeStr))
	if err != nil {
		return 0, err
	}
	if code != 1 {
		return code, errors.Errorf("sms: NTP sync failed with code %d", code)
	}
	return code, nil
}

// clampDTMFDuration clamps a DTMF tone duration to the modem's supported
// [100, 1000] ms range.
func clampDTMFDuration(durationMs int) int {
	if durationMs < 100 {
		return 100
	}
	if durationMs > 1000 {
		return 1000
	}
	return durationMs
}

// DTMFSend plays digit for durationMs (clamped to [100,1000]); the AT
// payload is duration/100 tenths of a second, per +VTD.
func (l *Leaves) DTMFSend(digit byte, durationMs int) error {
	durationMs = clampDTMFDuration(durationMs)
	if err := l.eng.Command(l.timeoutMs, "+VTD=", durationMs/100); err != nil {
		return err
	}
	return l.eng.Command(l.timeoutMs, "+VTS=", digit)
}

// SetGSMBusy enables or disables automatic busy signalling for incoming
// calls via +GSMBUSY.
func (l *Leaves) SetGSMBusy(busy bool) error {
	return l.eng.Command(l.timeoutMs, "+GSMBUSY=", busy)
}

// ReceiveCallerIDNotification enables or disables unsolicited caller-ID
// reporting for incoming calls via +CLIP.
func (l *Leaves) ReceiveCallerIDNotification(enable bool) error {
	return l.eng.Command(l.timeoutMs, "+CLIP=", enable)
}

// CallAnswer answers an incoming call.
func (l *Leaves) CallAnswer() error {
	return l.eng.Command(l.timeoutMs, "A")
}

// CallHangup ends the current call.
func (l *Leaves) CallHangup() error {
	return l.eng.Command(l.timeoutMs, "H")
}

// CallNumber dials number and waits up to timeoutMs for one of the call
// outcome lines, returning it verbatim ("OK", "BUSY", "NO ANSWER", or
// "NO CARRIER").
func (l *Leaves) CallNumber(number string, timeoutMs int64) (string, error) {
	if err := l.eng.Write("D", number, ";"); err != nil {
		return "", err
	}
	idx := l.eng.Wait(timeoutMs, at.Terminators{"OK\r\n", "BUSY\r\n", "NO ANSWER\r\n", "NO CARRIER\r\n"})
	switch idx {
	case 1:
		return "OK", nil
	case 2:
		return "BUSY", nil
	case 3:
		return "NO ANSWER", nil
	case 4:
		return "NO CARRIER", nil
	default:
		return "", at.ErrTimeout
	}
}

// GetGSMLocation reads the modem-assisted location fix via +CIPGSMLOC.
func (l *Leaves) GetGSMLocation(timeoutMs int64) (lat, lon string, err error) {
	if err := l.eng.Write("+CIPGSMLOC=1,1"); err != nil {
		return "", "", err
	}
	if idx := l.eng.Wait(timeoutMs, at.Terminators{"+CIPGSMLOC:", "ERROR\r\n"}); idx != 1 {
		return "", "", at.ErrError
	}
	l.eng.ReadUntil(timeoutMs, ',') // locationcode
	lonStr, _ := l.eng.ReadUntil(timeoutMs, ',')
	latStr, _ := l.eng.ReadUntil(timeoutMs, ',')
	l.eng.ReadLine(timeoutMs) // date/time fields
	l.eng.Wait(timeoutMs, at.DefaultTerminators())
	return strings.TrimSpace(latStr), strings.TrimSpace(lonStr), nil
}
