// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// phonebook dumps the contents of the modem SIM phonebook.
//
// This provides an example of processing the info returned by the modem.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/alexgavs/simcom/modem"
	"github.com/alexgavs/simcom/serial"
	"github.com/alexgavs/simcom/sms"
	"github.com/alexgavs/simcom/trace"
	"github.com/alexgavs/simcom/transport"
)

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	verbose := flag.Bool("v", false, "log modem interactions")
	flag.Parse()
	m, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		log.Println(err)
		return
	}
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
	for index := 1; index <= 99; index++ {
		e, err := s.ReadPhonebookEntry(index)
		if err == sms.ErrNotFound {
			continue
		}
		if err != nil {
			log.Println(err)
			return
		}
		fmt.Printf("%2d %-16s %s\n", e.Index, e.Number, e.Text)
	}
}
