// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package sms

import (
	"encoding/hex"
	"unicode/utf16"

	"github.com/warthog618/sms"
	"github.com/warthog618/sms/encoding/pdumode"
)

// Codec is the SMS text encoding/decoding collaborator: hex<->8-bit/UCS2
// conversions and PDU assembly. It is supplied by the host so the engine
// itself never depends on a particular character-set library.
type Codec interface {
	// DecodeHex8BitUSSD decodes a plain 8-bit hex payload (as used in USSD
	// responses with DCS==15) into text; each byte is one hex-encoded
	// character, with no GSM-7 septet packing involved.
	DecodeHex8BitUSSD(hexPayload string) (string, error)
	// EncodeHex8BitUSSD hex-encodes text one byte per character, for
	// sending as a USSD request's code.
	EncodeHex8BitUSSD(text string) (string, error)
	// DecodeUCS2 decodes a hex string of UCS2 (UTF-16BE) code units into
	// text, as used in USSD responses with DCS==72 and in UCS2 SMS bodies.
	DecodeUCS2(hexPayload string) (string, error)
	// EncodePDU assembles a text message addressed to number into one or
	// more PDUs (concatenated if necessary), returning each PDU's
	// marshaled bytes in +CMGS-ready form.
	EncodePDU(number, text string, smsc string) ([][]byte, error)
}

// DefaultCodec is the Codec implementation backed by
// github.com/warthog618/sms, the same library the reference gsm package
// uses for PDU-mode sends.
type DefaultCodec struct{}

// DecodeHex8BitUSSD decodes a plain hex payload into bytes and returns them
// as text, matching the original's TinyGsmDecodeHex8bit (a byte-for-byte hex
// decode, not a packed-septet GSM-7 unpack).
func (DefaultCodec) DecodeHex8BitUSSD(hexPayload string) (string, error) {
	raw, err := hex.DecodeString(hexPayload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// EncodeHex8BitUSSD hex-encodes text one byte per character; the USSD code
// itself is sent un-encoded by the original, with CSCS set to HEX so the
// modem expects each character as two hex digits.
func (DefaultCodec) EncodeHex8BitUSSD(text string) (string, error) {
	return hex.EncodeToString([]byte(text)), nil
}

// DecodeUCS2 treats the hex payload as big-endian UTF-16 code units, which
// is what SIMCom modems mean by "UCS2". encoding/hex + unicode/utf16 are
// stdlib because no library in the dependency pack exposes bare UCS2
// hex<->text conversion outside of a full SMS TPDU (see DESIGN.md).
func (DefaultCodec) DecodeUCS2(hexPayload string) (string, error) {
	raw, err := hex.DecodeString(hexPayload)
	if err != nil {
		return "", err
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	return string(utf16.Decode(units)), nil
}

func (DefaultCodec) EncodePDU(number, text string, smsc string) ([][]byte, error) {
	pdus, err := sms.Encode([]byte(text), sms.To(number), sms.WithAllCharsets)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(pdus))
	for _, p := range pdus {
		tp, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		full := pdumode.PDU{SMSC: smsc, TPDU: tp}
		b, err := full.MarshalHexString()
		if err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(b)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}
