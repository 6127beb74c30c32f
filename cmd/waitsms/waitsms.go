// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// waitsms polls the modem's SIM message storage for newly received SMSs
// and dumps them to stdout.
//
// This provides an example of driving the engine's cooperative wait loop
// from a host-side poll, as well as a test that the library works with the
// modem.
package main

import (
	"flag"
	"io"
	"log"
	"time"

	"github.com/alexgavs/simcom/modem"
	"github.com/alexgavs/simcom/serial"
	"github.com/alexgavs/simcom/sms"
	"github.com/alexgavs/simcom/trace"
	"github.com/alexgavs/simcom/transport"
)

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	period := flag.Duration("p", 10*time.Minute, "period to wait")
	poll := flag.Duration("i", 5*time.Second, "poll interval")
	verbose := flag.Bool("v", false, "log modem interactions")
	flag.Parse()
	m, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		log.Println(err)
		return
	}
	defer m.Close()
	var mio io.ReadWriter = m
	if *verbose {
		mio = trace.New(m)
	}
	port := transport.NewStream(mio)
	s := modem.New(port, transport.WallClock{}, modem.SIM800)
	ready, err := s.Init("")
	if err != nil || !ready {
		log.Println(err)
		return
	}
	deadline := time.Now().Add(*period)
	seen := map[int]bool{}
	for time.Now().Before(deadline) {
		pollOnce(s, seen)
		time.Sleep(*poll)
	}
}

// pollOnce scans the receive-storage tuple's capacity for received messages
// (read or unread) not already reported, logging each.
func pollOnce(s *modem.Session, seen map[int]bool) {
	triple, err := s.GetPreferredMessageStorage()
	if err != nil {
		log.Println(err)
		return
	}
	total := triple[sms.SlotReceive].Total
	for index := 1; index <= total; index++ {
		if seen[index] {
			continue
		}
		m, err := s.ReadSMS(index)
		if err == sms.ErrNotFound {
			continue
		}
		if err != nil {
			log.Println(err)
			continue
		}
		seen[index] = true
		if m.Status == "REC UNREAD" || m.Status == "REC READ" {
			log.Printf("%s: %s\n", m.Address, m.Message)
		}
	}
}
