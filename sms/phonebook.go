// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package sms

import (
	"strconv"
	"strings"

	"github.com/alexgavs/simcom/at"
)

// DefaultPhonebookResults bounds the number of entries FindPhonebookEntries
// returns, mirroring the protocol's own fixed result array.
const DefaultPhonebookResults = 5

func storageTypeString(t PhonebookStorageType) string {
	if t == PhonebookPhone {
		return "FD"
	}
	return "SM"
}

// GetPhonebookStorage reads the active phonebook and its used/total
// capacity from +CPBS?.
func (l *Leaves) GetPhonebookStorage() (PhonebookStorageType, PhonebookStorage, error) {
	if err := l.eng.Write("+CPBS?"); err != nil {
		return PhonebookInvalid, PhonebookStorage{}, err
	}
	if idx := l.eng.Wait(l.timeoutMs, at.Terminators{"+CPBS:", "ERROR\r\n"}); idx != 1 {
		return PhonebookInvalid, PhonebookStorage{}, at.ErrError
	}
	name, _ := l.readQuotedField(l.timeoutMs)
	l.eng.ReadUntil(l.timeoutMs, ',')
	usedStr, _ := l.eng.ReadUntil(l.timeoutMs, ',')
	totalStr, _ := l.eng.ReadUntil(l.timeoutMs, ',', '\n')
	l.eng.Wait(l.timeoutMs, at.DefaultTerminators())
	used, _ := strconv.Atoi(strings.TrimSpace(usedStr))
	total, _ := strconv.Atoi(strings.TrimSpace(totalStr))
	st := PhonebookSIM
	if name == "FD" {
		st = PhonebookPhone
	}
	return st, PhonebookStorage{Used: used, Total: total}, nil
}

// SetPhonebookStorage selects which phonebook subsequent operations
// address.
func (l *Leaves) SetPhonebookStorage(t PhonebookStorageType) error {
	return l.eng.Command(l.timeoutMs, "+CPBS=\"", storageTypeString(t), "\"")
}

// numericType returns the TOA numeric type byte for a phone number: 145
// ("INTERNATIONAL") if it begins with '+', 129 ("NATIONAL") otherwise.
func numericType(number string) int {
	if strings.HasPrefix(number, "+") {
		return 145
	}
	return 129
}

// AddPhonebookEntry writes a new entry at index (0 to let the modem choose
// the first free slot).
func (l *Leaves) AddPhonebookEntry(index int, number, text string) error {
	return l.eng.Command(l.timeoutMs, "+CPBW=", index, ",\"", number, "\",", numericType(number), ",\"", text, "\"")
}

// DeletePhonebookEntry removes the entry at index by writing it with no
// number.
func (l *Leaves) DeletePhonebookEntry(index int) error {
	return l.eng.Command(l.timeoutMs, "+CPBW=", index)
}

// typeString converts a TOA numeric type to its "INTERNATIONAL"/"NATIONAL"
// tag: 145 means international, anything else national.
func typeString(numeric int) string {
	if numeric == 145 {
		return "INTERNATIONAL"
	}
	return "NATIONAL"
}

// ReadPhonebookEntry reads the entry at index via +CPBR.
func (l *Leaves) ReadPhonebookEntry(index int) (PhonebookEntry, error) {
	if err := l.eng.Write("+CPBR=", index); err != nil {
		return PhonebookEntry{}, err
	}
	idx := l.eng.Wait(l.timeoutMs, at.Terminators{"+CPBR:", "ERROR\r\n", "OK\r\n"})
	if idx == 0 {
		return PhonebookEntry{}, at.ErrTimeout
	}
	if idx != 1 {
		return PhonebookEntry{}, ErrNotFound
	}
	l.eng.ReadUntil(l.timeoutMs, ',') // index field, already known
	number, _ := l.readQuotedField(l.timeoutMs)
	l.eng.ReadUntil(l.timeoutMs, ',')
	numTypeStr, _ := l.eng.ReadUntil(l.timeoutMs, ',')
	text, _ := l.readQuotedField(l.timeoutMs)
	l.eng.Wait(l.timeoutMs, at.DefaultTerminators())
	numType, _ := strconv.Atoi(strings.TrimSpace(numTypeStr))
	return PhonebookEntry{Index: index, Number: number, Type: typeString(numType), Text: text}, nil
}

// FindPhonebookEntries searches the active phonebook for pattern via
// +CPBF, returning the indices of up to DefaultPhonebookResults matches.
// Only the indices are reported, mirroring the protocol's fixed index
// array; use ReadPhonebookEntry on each to fetch its number/type/text.
func (l *Leaves) FindPhonebookEntries(pattern string) (PhonebookMatches, error) {
	if err := l.eng.Write("+CPBF=\"", pattern, "\""); err != nil {
		return PhonebookMatches{}, err
	}
	var out PhonebookMatches
	for out.Count < DefaultPhonebookResults {
		idx := l.eng.Wait(l.timeoutMs, at.Terminators{"+CPBF:", "OK\r\n", "ERROR\r\n"})
		if idx != 1 {
			break
		}
		indexStr, _ := l.eng.ReadUntil(l.timeoutMs, ',')
		l.readQuotedField(l.timeoutMs) // number, unused here
		l.eng.ReadUntil(l.timeoutMs, ',')
		l.eng.ReadUntil(l.timeoutMs, ',') // numeric type, unused here
		l.readQuotedField(l.timeoutMs)    // text, unused here
		l.eng.ReadLine(l.timeoutMs)       // consume rest of line
		index, _ := strconv.Atoi(strings.TrimSpace(indexStr))
		out.Indices[out.Count] = index
		out.Count++
	}
	return out, nil
}
