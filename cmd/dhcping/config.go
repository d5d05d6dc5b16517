package main

import (
	"flag"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Bounds and defaults for the probe parameters.
const (
	triesMin     = 1
	triesMax     = 32
	triesDefault = 3

	intervalMin     = 1
	intervalMax     = 10
	intervalDefault = 2

	maxWaitMin     = 3
	maxWaitMax     = 60
	maxWaitDefault = 8
)

// config is the probe configuration. File values override the defaults;
// flags given on the command line override the file.
type config struct {
	Server       string `yaml:"server"`
	HardwareAddr string `yaml:"mac"`
	Local        string `yaml:"local"`
	Interface    string `yaml:"interface"`
	Tries        int    `yaml:"tries"`
	Interval     int    `yaml:"interval"`
	Wait         int    `yaml:"wait"`
	Verbose      bool   `yaml:"verbose"`
}

func defaultConfig() *config {
	return &config{Tries: triesDefault, Interval: intervalDefault, Wait: maxWaitDefault}
}

func (c *config) loadFile(filename string) error {
	source, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(source, c)
}

// applyFlags copies the flags explicitly set on the command line over any
// file values.
func (c *config) applyFlags() {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "s":
			c.Server = *server
		case "h":
			c.HardwareAddr = *mac
		case "l":
			c.Local = *local
		case "I":
			c.Interface = *nic
		case "t":
			c.Tries = *tries
		case "i":
			c.Interval = *interval
		case "w":
			c.Wait = *wait
		case "v":
			c.Verbose = *verbose
		}
	})
}

func (c *config) validate() error {
	if c.Server == "" {
		return fmt.Errorf("server is required")
	}
	if c.HardwareAddr == "" && c.Interface == "" {
		return fmt.Errorf("mac or interface is required")
	}
	if c.Tries < triesMin || c.Tries > triesMax {
		return fmt.Errorf("tries %d: out of range %d-%d", c.Tries, triesMin, triesMax)
	}
	if c.Interval < intervalMin || c.Interval > intervalMax {
		return fmt.Errorf("interval %d s: out of range %d-%d", c.Interval, intervalMin, intervalMax)
	}
	if c.Wait < maxWaitMin || c.Wait > maxWaitMax {
		return fmt.Errorf("wait %d s: out of range %d-%d", c.Wait, maxWaitMin, maxWaitMax)
	}
	// the core relies on this holding before the session starts
	if c.Tries*c.Interval > c.Wait {
		return fmt.Errorf("tries %d by interval %d s > wait %d s", c.Tries, c.Interval, c.Wait)
	}
	return nil
}
