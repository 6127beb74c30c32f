// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// modeminfo collects and displays information related to the modem and its
// current configuration.
//
// This serves as an example of how interact with a modem, as well as
// providing information which may be useful for debugging.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/alexgavs/simcom/modem"
	"github.com/alexgavs/simcom/serial"
	"github.com/alexgavs/simcom/trace"
	"github.com/alexgavs/simcom/transport"
)

var version = "undefined"

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	timeout := flag.Duration("t", 400*time.Millisecond, "command timeout period")
	verbose := flag.Bool("v", false, "log modem interactions")
	vsn := flag.Bool("version", false, "report version and exit")
	flag.Parse()
	if *vsn {
		fmt.Printf("%s %s\n", os.Args[0], version)
		os.Exit(0)
	}
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
	cmds := []string{
		"I",
		"+GCAP",
		"+CMEE=2",
		"+CGMI",
		"+CGMM",
		"+CGMR",
		"+CGSN",
		"+CSQ",
		"+CIMI",
		"+CREG?",
		"+CNUM",
		"+CPIN?",
		"+CEER",
		"+CSCA?",
		"+CSMS?",
		"+CSMS=?",
		"+CPMS=?",
		"+CCID?",
		"+CCID=?",
		"^ICCID?",
		"+CNMI?",
		"+CNMI=?",
		"+CNMA=?",
		"+CMGF?",
		"+CMGF=?",
		"+CUSD?",
		"+CUSD=?",
		"^USSDMODE?",
		"^USSDMODE=?",
	}
	timeoutMs := timeout.Milliseconds()
	for _, cmd := range cmds {
		fmt.Println("AT" + cmd)
		for _, l := range dumpCommand(s, cmd, timeoutMs) {
			fmt.Printf(" %s\n", l)
		}
	}
}

// dumpCommand issues cmd and collects every info line up to its terminating
// OK/ERROR/CME/CMS status line, including that line unless it is OK, for
// display purposes only;
// unlike modem.Session.Command it doesn't discard the body.
func dumpCommand(s *modem.Session, cmd string, timeoutMs int64) []string {
	if err := s.Write(cmd); err != nil {
		return []string{err.Error()}
	}
	var lines []string
	for {
		line, ok := s.ReadLine(timeoutMs)
		if !ok {
			lines = append(lines, "timeout")
			return lines
		}
		if line == "" {
			continue
		}
		if line == "OK" || strings.HasPrefix(line, "ERROR") ||
			strings.HasPrefix(line, "+CME ERROR:") || strings.HasPrefix(line, "+CMS ERROR:") {
			if line != "OK" {
				lines = append(lines, line)
			}
			return lines
		}
		lines = append(lines, line)
	}
}
