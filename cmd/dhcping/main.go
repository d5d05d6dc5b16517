// Command dhcping checks that a DHCP server is alive and reachable by
// sending it DISCOVER probes and waiting for any reply.
//
// The probe poses as a relay agent so the server answers the local address
// directly; binding the bootps port normally requires privileges. Exit
// status is 0 when the server replied, 2 when it never did, 1 on any error.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/irai/dhcping/endpoint"
	"github.com/irai/dhcping/probe"
	log "github.com/sirupsen/logrus"
)

const (
	exitReplied  = 0
	exitError    = 1
	exitTimedOut = 2
)

var (
	server   = flag.String("s", "", "dhcp server to probe (required)")
	mac      = flag.String("h", "", "client hardware address carried by the probe")
	local    = flag.String("l", "", "local address to bind (default chosen by the kernel)")
	nic      = flag.String("I", "", "interface supplying the local address and default hardware address")
	tries    = flag.Int("t", triesDefault, "number of tries (1-32)")
	interval = flag.Int("i", intervalDefault, "seconds between tries (1-10)")
	wait     = flag.Int("w", maxWaitDefault, "maximum seconds to wait for a reply (3-60)")
	confFile = flag.String("C", "", "yaml file with configuration defaults")
	verbose  = flag.Bool("v", false, "log each transmission")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg := defaultConfig()
	if *confFile != "" {
		if err := cfg.loadFile(*confFile); err != nil {
			log.Errorf("config %s: %s", *confFile, err)
			return exitError
		}
	}
	cfg.applyFlags()

	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return exitError
	}

	if cfg.Interface != "" {
		ip, hw, err := endpoint.InterfaceAddr(cfg.Interface)
		if err != nil {
			log.Error(err)
			return exitError
		}
		if cfg.Local == "" {
			cfg.Local = ip.String()
		}
		if cfg.HardwareAddr == "" {
			cfg.HardwareAddr = hw.String()
		}
	}

	hwAddr, err := net.ParseMAC(cfg.HardwareAddr)
	if err != nil || len(hwAddr) != 6 {
		log.Errorf("invalid mac %s", cfg.HardwareAddr)
		return exitError
	}

	conn, err := endpoint.Dial(cfg.Local, cfg.Server)
	if err != nil {
		log.Error(err)
		return exitError
	}
	defer conn.Close()

	session, err := probe.NewSession(conn, probe.Config{
		HardwareAddr: hwAddr,
		Tries:        uint(cfg.Tries),
		Interval:     time.Duration(cfg.Interval) * time.Second,
		MaxWait:      time.Duration(cfg.Wait) * time.Second,
		Verbose:      cfg.Verbose,
	})
	if err != nil {
		log.Error(err)
		return exitError
	}

	// the only place a terminal outcome turns into an exit status
	out, err := probe.Run(session)
	switch out {
	case probe.Replied:
		return exitReplied
	case probe.TimedOut:
		return exitTimedOut
	default:
		log.Error(err)
		return exitError
	}
}
