// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package sms implements the modem's SMS, phonebook, USSD, NTP, battery,
// time, and DTMF feature leaves: short, linear AT exchanges whose
// interesting parts are their response parsers.
package sms

// SimStatus is the SIM readiness state reported by +CPIN?.
type SimStatus int

const (
	SimError SimStatus = iota
	SimReady
	SimLocked
)

// RegStatus is the network registration state reported by +CREG?. Values
// match the modem's own numeric codes.
type RegStatus int

const (
	RegUnregistered RegStatus = 0
	RegOkHome       RegStatus = 1
	RegSearching    RegStatus = 2
	RegDenied       RegStatus = 3
	RegUnknown      RegStatus = 4
	RegOkRoaming    RegStatus = 5
)

// Alphabet is the SMS Data Coding Scheme alphabet, extracted from bits 3..2
// of the DCS byte.
type Alphabet int

const (
	AlphabetGSM7 Alphabet = iota
	Alphabet8Bit
	AlphabetUCS2
	AlphabetReserved
)

// DCSAlphabet extracts the alphabet from an SMS Data Coding Scheme byte:
// bits 3..2, i.e. (dcs >> 2) & 3.
func DCSAlphabet(dcs byte) Alphabet {
	return Alphabet((dcs >> 2) & 3)
}

// StorageSlot selects one of the three parallel tuples a CPMS query
// returns, resolving the ambiguity of a single message-count query: the
// source reads all three but only ever reports the first, regardless of
// any filter argument. This driver instead lets the caller choose which
// tuple it wants.
type StorageSlot int

const (
	// SlotRead is the tuple used for reading/listing/deleting ("REC READ"/
	// "REC UNREAD"/"ALL" messages live here).
	SlotRead StorageSlot = iota
	// SlotWrite is the tuple used for writing and sending ("STO SENT"/
	// "STO UNSENT").
	SlotWrite
	// SlotReceive is the tuple bearer new SMS are written into on receipt.
	SlotReceive
)

// MessageStorage is one <type,used,total> tuple from a +CPMS query.
type MessageStorage struct {
	Type  string
	Used  int
	Total int
}

// MessageStorageTriple holds the three parallel tuples a +CPMS query
// reports, in Read/Write/Receive order.
type MessageStorageTriple [3]MessageStorage

// PhonebookStorageType names which phonebook a session is addressing.
type PhonebookStorageType int

const (
	PhonebookSIM PhonebookStorageType = iota
	PhonebookPhone
	PhonebookInvalid
)

// PhonebookStorage reports used/total capacity for one phonebook.
type PhonebookStorage struct {
	Used  int
	Total int
}

// PhonebookEntry is one row read from the phonebook.
type PhonebookEntry struct {
	Index  int
	Number string
	Type   string // "INTERNATIONAL" when the numeric type is 145, else "NATIONAL"
	Text   string
}

// PhonebookMatches is the fixed-size result set FindPhonebookEntries
// returns: the matched entries' indices only, not their full contents,
// mirroring the protocol's own fixed index array
// (uint8_t index[TINY_GSM_PHONEBOOK_RESULTS]). Use ReadPhonebookEntry on
// each index to fetch the number/type/text.
type PhonebookMatches struct {
	Indices [DefaultPhonebookResults]int
	// Count is how many of Indices were actually filled.
	Count int
}

// DeleteAllSmsMethod selects which subset of messages DeleteAllSMS removes.
type DeleteAllSmsMethod int

const (
	DeleteRead DeleteAllSmsMethod = iota + 1
	DeleteUnread
	DeleteSent
	DeleteUnsent
	DeleteReceived
	DeleteAll
)

// Sms is one SMS read from the modem.
type Sms struct {
	Status   string // literal status string, e.g. "REC READ"
	Address  string
	AlphaTag string
	Received string // raw +CMGR timestamp field
	Alphabet Alphabet
	Message  string // decoded text for GSM-7/UCS2; raw for 8-bit/reserved
}

// BatteryStats is the modem's reported battery state, from +CBC.
type BatteryStats struct {
	ChargeState int // 0 not charging, 1 charging, 2 finished
	Percent     int
	Voltage     int // mV
}

// GSMDateTime is a timestamp read back from +CCLK.
type GSMDateTime struct {
	Raw string // as reported by the modem, quotes stripped
}
