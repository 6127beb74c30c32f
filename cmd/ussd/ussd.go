// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

// ussd sends an USSD message using the modem.
//
// This provides an example of using the SendUSSD leaf.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/alexgavs/simcom/modem"
	"github.com/alexgavs/simcom/serial"
	"github.com/alexgavs/simcom/trace"
	"github.com/alexgavs/simcom/transport"
)

var version = "undefined"

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	msg := flag.String("m", "*101#", "the message to send")
	verbose := flag.Bool("v", false, "log modem interactions")
	vsn := flag.Bool("version", false, "report version and exit")
	flag.Parse()
	if *vsn {
		fmt.Printf("%s %s\n", os.Args[0], version)
		os.Exit(0)
	}
	m, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		log.Fatal(err)
	}
	var mio io.ReadWriter = m
	if *verbose {
		mio = trace.New(m)
	}
	port := transport.NewStream(mio)
	s := modem.New(port, transport.WallClock{}, modem.SIM800)
	if ready, err := s.Init(""); err != nil || !ready {
		log.Fatal("modem not ready: ", err)
	}
	reply, err := s.SendUSSD(*msg)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply)
}
