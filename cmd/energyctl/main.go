// cmd/energyctl/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/config"
	"github.com/tamzrod/energy-control/internal/exporter"
	"github.com/tamzrod/energy-control/internal/status"
	"github.com/tamzrod/energy-control/internal/transport"
	"github.com/tamzrod/energy-control/internal/wallbox"
)

// Exit codes.
const (
	exitOK     = 0
	exitDevice = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("energyctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", os.Getenv("ENERGYCTL_CONFIG"), "path to the YAML config")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		usage(fs)
		return exitUsage
	}

	name, cmdArgs := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "energyctl: unknown command %q\n", name)
		usage(fs)
		return exitUsage
	}
	if len(cmdArgs) != cmd.args {
		fmt.Fprintf(stderr, "usage: energyctl [-config file] %s %s\n", name, cmd.usage)
		return exitUsage
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "energyctl: config load failed: %v\n", err)
		return exitUsage
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "energyctl: config validation failed: %v\n", err)
		return exitUsage
	}
	config.Normalize(cfg)

	log := newLogger(cfg.Log, stderr)

	// --------------------
	// Open link + device
	// --------------------

	reg := prometheus.NewRegistry()

	var tr wallbox.Transport
	tr, err = transport.Build(transport.Config{
		Driver:  cfg.Transport.Driver,
		Port:    cfg.Transport.Port,
		Timeout: time.Duration(cfg.Transport.TimeoutMs) * time.Millisecond,
		Trace:   cfg.Transport.Trace,
		Logger:  log.With().Str("component", "transport").Logger(),
	})
	if err != nil {
		log.Error().Err(err).Msg("transport open failed")
		return exitDevice
	}

	if cmd.instrument {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		inst, err := exporter.Instrument(tr, reg)
		if err != nil {
			log.Error().Err(err).Msg("instrument transport failed")
			_ = tr.Close()
			return exitDevice
		}
		tr = inst
	}

	dev, err := wallbox.New(tr, cfg.Device.UnitID, wallbox.WithLogger(log.With().Str("component", "wallbox").Logger()))
	if err != nil {
		_ = tr.Close()
		log.Error().Err(err).Msg("device setup failed")
		return exitUsage
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}()

	a := &app{
		ctx: ctx,
		cfg: cfg,
		dev: dev,
		out: stdout,
		log: log,
		reg: reg,
	}

	if err := cmd.run(a, cmdArgs); err != nil {
		log.Error().
			Err(err).
			Str("command", name).
			Str("kind", wallbox.KindOf(err).String()).
			Uint16("code", status.CodeOf(err)).
			Msg("command failed")
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps caller mistakes to 2 and everything else to 1.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ue *usageError
	if errors.As(err, &ue) || wallbox.KindOf(err) == wallbox.KindPrecondition {
		return exitUsage
	}
	return exitDevice
}

func newLogger(c config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if c.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "usage: energyctl [-config file] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range commandNames() {
		c := commands[name]
		fmt.Fprintf(w, "  %-22s %s\n", strings.TrimSpace(name+" "+c.usage), c.help)
	}
	fmt.Fprintln(w)
	fs.PrintDefaults()
}
