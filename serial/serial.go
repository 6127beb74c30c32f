// SPDX-License-Identifier: MIT

// Package serial provides the concrete serial port that connects the at and
// modem packages to a physical modem.
package serial

import (
	"go.bug.st/serial"
)

// Config holds the serial port configuration.
type Config struct {
	port string
	baud int
}

// Option modifies a Config created by New.
type Option func(*Config)

// WithPort sets the serial device path.
func WithPort(port string) Option {
	return func(c *Config) { c.port = port }
}

// WithBaud sets the baud rate.
func WithBaud(baud int) Option {
	return func(c *Config) { c.baud = baud }
}

// Port is a serial connection to a modem; it implements io.ReadWriteCloser.
type Port struct {
	serial.Port
}

// New opens a serial port using the given options, falling back to the
// platform default (see serial_linux.go, serial_darwin.go, serial_windows.go)
// for any option not provided.
func New(options ...Option) (*Port, error) {
	cfg := defaultConfig
	for _, option := range options {
		option(&cfg)
	}
	mode := &serial.Mode{BaudRate: cfg.baud}
	p, err := serial.Open(cfg.port, mode)
	if err != nil {
		return nil, err
	}
	return &Port{Port: p}, nil
}

// Flush flushes any pending writes to the port.
func (p *Port) Flush() error {
	return p.Port.ResetOutputBuffer()
}
