package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/urfave/cli"

	"picogate/core"
	"picogate/host/config"
	"picogate/host/monitor"
	"picogate/host/serial"
	"picogate/host/sim"
	"picogate/protocol"
)

func main() {
	app := cli.NewApp()
	app.Name = "gatemon"
	app.Usage = "watch and simulate picogate timing gates"
	app.Version = protocol.Version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error (default from GATEMON_LOG_LEVEL)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "monitor",
			Usage: "decode gate reports from the firmware's serial port or a recorded file",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "device", Usage: "serial device path"},
				cli.IntFlag{Name: "baud", Usage: "baud rate (ignored by USB CDC)"},
				cli.StringFlag{Name: "file", Usage: "read a recorded report stream instead of a port"},
				cli.IntFlag{Name: "summary", Value: -1, Usage: "log a summary every N reports (0 disables)"},
			},
			Action: runMonitor,
		},
		{
			Name:  "simulate",
			Usage: "run the gated blink loop on this machine with synthetic work",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "period", Usage: "gate period in microseconds"},
				cli.Uint64Flag{Name: "work", Usage: "work per cycle in microseconds"},
				cli.Uint64Flag{Name: "jitter", Usage: "extra work in microseconds added every --jitter-every cycles"},
				cli.IntFlag{Name: "jitter-every", Value: -1, Usage: "cycles between jitter spikes (0 disables)"},
				cli.IntFlag{Name: "cycles", Usage: "number of gate cycles"},
				cli.BoolFlag{Name: "deterministic", Usage: "use a stepping counter instead of the host clock"},
				cli.StringFlag{Name: "record", Usage: "write the report stream to this file"},
			},
			Action: runSimulate,
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("gatemon failed", "error", err)
		os.Exit(1)
	}
}

// setup loads config, applies the global flags and installs the logger
func setup(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if lvl := c.GlobalString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runMonitor(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	if c.IsSet("device") {
		cfg.Serial.Device = c.String("device")
	}
	if c.IsSet("baud") {
		cfg.Serial.Baud = c.Int("baud")
	}
	if s := c.Int("summary"); s >= 0 {
		cfg.Monitor.Summary = s
	}

	var src io.ReadCloser
	m := monitor.New(logger, cfg.Monitor.Summary)
	if path := c.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open report file: %w", err)
		}
		src = f
		logger.Info("reading recorded reports", "file", path)
	} else {
		port, err := serial.Open(&serial.Config{
			Device:      cfg.Serial.Device,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.Timeout,
		})
		if err != nil {
			return err
		}
		src = port
		m.Follow = true
		logger.Info("monitoring serial port", "device", cfg.Serial.Device)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = m.Run(ctx, src)
	src.Close()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	snap := m.Snapshot()
	logger.Info("monitor finished",
		"reports", snap.Reports,
		"overruns", snap.Stats.Overruns,
		"max_excess_us", snap.Stats.MaxExcess,
		"mean_excess_us", snap.Stats.MeanExcess(),
		"dropped", snap.Dropped,
		"bad_frames", snap.BadFrames)
	return err
}

func runSimulate(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	opts := sim.Options{
		Period:      cfg.Simulate.Period,
		Work:        cfg.Simulate.Work,
		Jitter:      cfg.Simulate.Jitter,
		JitterEvery: cfg.Simulate.JitterEvery,
		Cycles:      cfg.Simulate.Cycles,
	}
	if c.IsSet("period") {
		opts.Period = c.Uint64("period")
	}
	if c.IsSet("work") {
		opts.Work = c.Uint64("work")
	}
	if c.IsSet("jitter") {
		opts.Jitter = c.Uint64("jitter")
	}
	if n := c.Int("jitter-every"); n >= 0 {
		opts.JitterEvery = n
	}
	if c.IsSet("cycles") {
		opts.Cycles = c.Int("cycles")
	}

	var source core.TickSource = core.NewHostClock()
	if c.Bool("deterministic") || cfg.Simulate.Deterministic {
		source = core.NewCounter(0, 1)
	}

	var record io.Writer
	if path := c.String("record"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create record file: %w", err)
		}
		defer f.Close()
		record = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("simulating",
		"period", core.FormatMicros(opts.Period),
		"work", core.FormatMicros(opts.Work),
		"cycles", opts.Cycles)

	s := sim.New(source, opts, record, logger)
	stats, err := s.Run(ctx)
	logger.Info("simulation finished",
		"cycles", stats.Cycles,
		"overruns", stats.Overruns,
		"overrun_permille", stats.OverrunPermille(),
		"max_excess_us", stats.MaxExcess,
		"mean_excess_us", stats.MeanExcess())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
