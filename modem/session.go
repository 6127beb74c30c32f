// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package modem decorates the AT engine with the modem lifecycle
// (init/restart/SIM-unlock/GPRS bring-up and tear-down) and the
// variant-dependent capability and power/radio leaves, the way the
// reference driver's gsm package decorates the AT engine with GSM-specific
// functionality.
package modem

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/alexgavs/simcom/at"
	"github.com/alexgavs/simcom/socket"
	"github.com/alexgavs/simcom/sms"
)

// Variant replaces the reference driver's preprocessor-selected modem
// family with a constructor parameter; it affects only the reported model
// string and whether +CIPSSL is issued (SIM900 has no TLS support).
type Variant int

const (
	SIM800 Variant = iota
	SIM808
	SIM868
	SIM900
)

func (v Variant) String() string {
	switch v {
	case SIM808:
		return "SIM808"
	case SIM868:
		return "SIM868"
	case SIM900:
		return "SIM900"
	default:
		return "SIM800"
	}
}

func (v Variant) sslCapable() bool { return v != SIM900 }

// Session is a single modem connection: the AT engine, the socket table it
// feeds URC state into, and the SMS/phonebook/USSD feature leaves. It owns
// the transport exclusively; all AT exchanges are serialized through it.
type Session struct {
	*at.Engine
	*sms.Leaves
	table    *socket.Table
	variant  Variant
	ringCap  int
	smsCodec sms.Codec
}

// Option configures a Session created by New.
type Option func(*Session)

// WithRingCapacity sets the per-socket ring buffer capacity (default
// socket.DefaultRingCapacity).
func WithRingCapacity(n int) Option {
	return func(s *Session) { s.ringCap = n }
}

// WithSMSCodec overrides the default warthog618/sms-backed Codec used by
// the SMS feature leaves.
func WithSMSCodec(codec sms.Codec) Option {
	return func(s *Session) { s.smsCodec = codec }
}

// New creates a Session for a modem of the given variant, driving AT
// exchanges through port and clock. The socket table's URC sink is wired
// to the engine immediately, so inline URC dispatch is live from the first
// command.
func New(port at.Port, clock at.Clock, variant Variant, opts ...Option) *Session {
	s := &Session{variant: variant, ringCap: socket.DefaultRingCapacity, smsCodec: sms.DefaultCodec{}}
	for _, opt := range opts {
		opt(s)
	}
	s.table = socket.NewTable(s.ringCap)
	eng := at.New(port, clock, at.WithURCSink(s.table))
	s.Engine = eng
	s.Leaves = sms.New(eng, s.smsCodec, 5000)
	return s
}

// Socket returns a handle bound to mux, wired to this session's engine and
// table. ssl requests are only honoured for variants that support +CIPSSL.
func (s *Session) Socket(mux int, readTimeoutMs int64) *socket.Socket {
	opts := []socket.SocketOption{socket.WithReadTimeoutMs(readTimeoutMs)}
	if s.variant.sslCapable() {
		opts = append(opts, socket.WithSSLCapable())
	}
	return s.table.Socket(s.Engine, mux, opts...)
}

// GetModemName reports the configured variant's model string.
func (s *Session) GetModemName() string { return s.variant.String() }

// HasSSL reports whether this variant supports +CIPSSL.
func (s *Session) HasSSL() bool { return s.variant.sslCapable() }

// HasGPRS reports GPRS support; all SIMCom variants this driver targets
// have it.
func (s *Session) HasGPRS() bool { return true }

// HasWiFi reports WiFi support; none of SIM800/808/868/900 have it.
func (s *Session) HasWiFi() bool { return false }

// ErrNotReady indicates init() could not bring the SIM to a usable state.
var ErrNotReady = errors.New("modem: SIM not ready")

// simStatus reads +CPIN? and classifies the response.
func (s *Session) simStatus(timeoutMs int64) (sms.SimStatus, error) {
	if err := s.Engine.Write("+CPIN?"); err != nil {
		return sms.SimError, err
	}
	idx := s.Engine.Wait(timeoutMs, at.Terminators{"+CPIN:", "ERROR\r\n"})
	if idx == 0 {
		return sms.SimError, at.ErrTimeout
	}
	if idx != 1 {
		return sms.SimError, at.ErrError
	}
	line, _ := s.Engine.ReadLine(timeoutMs)
	s.Engine.Wait(timeoutMs, at.DefaultTerminators())
	switch strings.TrimSpace(line) {
	case "READY":
		return sms.SimReady, nil
	case "SIM PIN", "SIM PUK":
		return sms.SimLocked, nil
	default:
		return sms.SimError, nil
	}
}

// Init probes the modem with a bounded retry loop, resets to factory
// defaults, disables echo, and checks SIM readiness, unlocking with pin if
// the SIM is locked and a pin was supplied. It returns true iff the SIM ends
// up Ready, or Locked with no pin offered (matching the source's own
// success condition); otherwise it returns false with ErrNotReady.
func (s *Session) Init(pin string) (bool, error) {
	const probeTimeoutMs = 300
	ready := false
	for i := 0; i < 10; i++ {
		if err := s.Engine.Command(probeTimeoutMs, ""); err == nil {
			ready = true
			break
		}
	}
	if !ready {
		return false, at.ErrTimeout
	}
	if err := s.Engine.Command(3000, "&FZ"); err != nil {
		return false, err
	}
	if err := s.Engine.Command(3000, "E0"); err != nil {
		return false, err
	}
	status, err := s.simStatus(3000)
	if err != nil {
		return false, err
	}
	if status == sms.SimLocked && pin != "" {
		if err := s.Engine.Command(3000, "+CPIN=", pin); err != nil {
			return false, err
		}
		status, err = s.simStatus(3000)
		if err != nil {
			return false, err
		}
	}
	if status == sms.SimReady || (status == sms.SimLocked && pin == "") {
		return true, nil
	}
	return false, ErrNotReady
}

// Restart power-cycles the modem's function level and re-runs Init.
func (s *Session) Restart(pin string) (bool, error) {
	if err := s.Engine.Command(3000, "+CLTS=1"); err != nil {
		return false, err
	}
	if err := s.Engine.Command(3000, "&W"); err != nil {
		return false, err
	}
	if err := s.Engine.Command(3000, "+CFUN=0"); err != nil {
		return false, err
	}
	if err := s.Engine.Command(3000, "+CFUN=1,1"); err != nil {
		return false, err
	}
	s.sleepBoot()
	return s.Init(pin)
}

// sleepBoot busy-waits roughly 3s of clock time via the yield hook,
// covering the restart's required post-CFUN settle time. It relies on the
// same Clock the engine uses, so tests with an accelerated fake clock
// don't actually block.
func (s *Session) sleepBoot() {
	s.Engine.Wait(3000, at.Terminators{})
}

// PowerOff issues a clean shutdown and waits for the modem's confirmation.
func (s *Session) PowerOff() error {
	if err := s.Engine.Write("+CPOWD=1"); err != nil {
		return err
	}
	if idx := s.Engine.Wait(5000, at.Terminators{"NORMAL POWER DOWN\r\n"}); idx == 0 {
		return at.ErrTimeout
	}
	return nil
}

// RadioOff disables the RF section without powering down (+CFUN=4).
func (s *Session) RadioOff() error {
	return s.Engine.Command(3000, "+CFUN=4")
}

// SleepEnable toggles the modem's UART sleep mode (+CSCLK).
func (s *Session) SleepEnable(enable bool) error {
	return s.Engine.Command(3000, "+CSCLK=", enable)
}

// NetlightEnable toggles the network status LED (+CNETLIGHT), a
// SIM800-family extension not present on all variants; callers should
// check HasGPRS/variant compatibility themselves, as the source does.
func (s *Session) NetlightEnable(enable bool) error {
	return s.Engine.Command(3000, "+CNETLIGHT=", enable)
}

// FactoryDefault resets NVRAM settings to factory defaults (&F).
func (s *Session) FactoryDefault() error {
	return s.Engine.Command(3000, "&F0")
}

// SetBaud requests the modem switch to a new fixed baud rate (+IPR). The
// caller is responsible for reconfiguring the underlying transport to
// match afterwards.
func (s *Session) SetBaud(baud int) error {
	return s.Engine.Command(3000, "+IPR=", baud)
}
