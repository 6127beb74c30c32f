// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// sendsms sends an SMS using the modem.
//
// This provides an example of using the SendSMS command, as well as a test
// that the library works with the modem.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/alexgavs/simcom/modem"
	"github.com/alexgavs/simcom/serial"
	"github.com/alexgavs/simcom/sms"
	"github.com/alexgavs/simcom/trace"
	"github.com/alexgavs/simcom/transport"
)

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	num := flag.String("n", "+12345", "number to send to, in international format")
	msg := flag.String("m", "Zoot Zoot", "the message to send")
	verbose := flag.Bool("v", false, "log modem interactions")
	pdumode := flag.Bool("p", false, "send in PDU mode")
	flag.Parse()

	m, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		log.Fatal(err)
	}
	var mio io.ReadWriter = m
	if *verbose {
		mio = trace.New(m, trace.WithLogger(log.New(os.Stdout, "", log.LstdFlags)))
	}
	port := transport.NewStream(mio)
	s := modem.New(port, transport.WallClock{}, modem.SIM800)
	ready, err := s.Init("")
	if err != nil || !ready {
		log.Fatal("modem not ready: ", err)
	}
	if *pdumode {
		sendPDU(s, *num, *msg)
		return
	}
	mr, err := s.SendSMS(*num, *msg)
	log.Printf("%v %v\n", mr, err)
}

func sendPDU(s *modem.Session, number, msg string) {
	codec := sms.DefaultCodec{}
	pdus, err := codec.EncodePDU(number, msg, "")
	if err != nil {
		log.Fatal(err)
	}
	for i, p := range pdus {
		// p starts with the SMSC length octet and that many SMSC octets,
		// which +CMGS's length argument does not count.
		mr, err := s.SendSMSPDU(p, len(p)-1-int(p[0]))
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("PDU %d: %v\n", i+1, mr)
	}
}
