package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/gesturearm/internal/log"
	"github.com/gwillem/gesturearm/pkg/robot"
)

type Options struct {
	Config   string `long:"config" short:"c" default:"gesturearm.yaml" description:"Configuration file"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`
	LogFile  string `long:"log-file" description:"Write process logs to this file instead of stderr"`

	Setup  SetupCommand  `command:"setup" description:"Find the servo bus, assign and calibrate the motors"`
	Run    RunCommand    `command:"run" alias:"teleop" description:"Drive the arm from the armband"`
	Status StatusCommand `command:"status" description:"Probe the sensors and motors once"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "gesturearm - drive a robotic arm with an armband's wrist orientation and hand poses"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// setupLogging sends process logs to --log-file, or to quiet when no file
// is given and the terminal belongs to a full-screen UI.
func setupLogging(quiet bool) (io.Closer, error) {
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.Init(opts.LogLevel, f)
		return f, nil
	}
	if quiet {
		log.Discard()
	} else {
		log.Init(opts.LogLevel, os.Stderr)
	}
	return nopCloser{}, nil
}

// loadConfig reads the configuration file. With allowMissing a missing file
// yields the defaults.
func loadConfig(allowMissing bool) (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if allowMissing && errors.Is(err, fs.ErrNotExist) {
		return robot.Default(), nil
	}
	return cfg, err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
