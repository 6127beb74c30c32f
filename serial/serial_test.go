// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package serial_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexgavs/simcom/serial"
)

func modemExists(name string) func(t *testing.T) {
	return func(t *testing.T) {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			t.Skip("no modem available")
		}
	}
}

func TestNew(t *testing.T) {
	patterns := []struct {
		name    string
		prereq  func(t *testing.T)
		options []serial.Option
		wantErr bool
	}{
		{"default", modemExists("/dev/ttyUSB0"), nil, false},
		{"empty", modemExists("/dev/ttyUSB0"), []serial.Option{}, false},
		{"baud", modemExists("/dev/ttyUSB0"), []serial.Option{serial.WithBaud(9600)}, false},
		{"port", modemExists("/dev/ttyUSB0"), []serial.Option{serial.WithPort("/dev/ttyUSB0")}, false},
		{"bad port", nil, []serial.Option{serial.WithPort("nosuchmodem")}, true},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			if p.prereq != nil {
				p.prereq(t)
			}
			m, err := serial.New(p.options...)
			require.Equal(t, p.wantErr, err != nil)
			require.Equal(t, err == nil, m != nil)
			if m != nil {
				m.Close()
			}
		}
		t.Run(p.name, f)
	}
}
