// cmd/energyctl/commands.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/config"
	"github.com/tamzrod/energy-control/internal/exporter"
	"github.com/tamzrod/energy-control/internal/telemetry"
	"github.com/tamzrod/energy-control/internal/wallbox"
	"github.com/tamzrod/energy-control/internal/writer"
)

// device is the part of *wallbox.Device the commands use.
type device interface {
	telemetry.Source
	Info() (wallbox.Info, error)
	ExternLockState() (wallbox.LockState, error)
	RemoteLock() (wallbox.LockState, error)
	StandbyFunctionControl() (wallbox.StandbyMode, error)
	WatchdogTimeout() (uint16, error)
	MaximalCurrentCommand() (float64, error)
	FailsafeCurrentConfig() (float64, error)

	SetMaximalCurrentCommand(amps float64) (bool, error)
	SetFailsafeCurrentConfig(amps float64) error
	SetStandbyFunctionControl(m wallbox.StandbyMode) error
	SetRemoteLock(l wallbox.LockState) error
	SetWatchdogTimeout(ms uint16) error
}

type app struct {
	ctx context.Context
	cfg *config.Config
	dev device
	out io.Writer
	log zerolog.Logger
	reg *prometheus.Registry

	// nil means writer.BuildSinks
	buildSinks func(config.Config, zerolog.Logger) (writer.Fanout, error)
}

type command struct {
	args       int
	usage      string
	help       string
	instrument bool
	run        func(a *app, args []string) error
}

var commands = map[string]command{
	"read":                 {0, "", "sample telemetry once and print it as JSON", false, cmdRead},
	"info":                 {0, "", "print identification and settings", false, cmdInfo},
	"set-max-current":      {1, "<A>", "set the maximal current command (skipped if unchanged)", false, cmdSetMaxCurrent},
	"set-failsafe-current": {1, "<A>", "set the failsafe current", false, cmdSetFailsafeCurrent},
	"set-standby":          {1, "<0|4>", "0 enables, 4 disables the standby function", false, cmdSetStandby},
	"set-remote-lock":      {1, "<0|1>", "0 locks, 1 unlocks the wallbox", false, cmdSetRemoteLock},
	"set-watchdog":         {1, "<ms>", "set the communication watchdog timeout", false, cmdSetWatchdog},
	"publish":              {0, "", "sample once and deliver to the configured sinks", false, cmdPublish},
	"serve":                {0, "", "serve /metrics and /api/v1/status, sampling per request", true, cmdServe},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// usageError is a malformed command line argument.
type usageError struct {
	arg string
	err error
}

func (e *usageError) Error() string { return fmt.Sprintf("invalid argument %q: %v", e.arg, e.err) }
func (e *usageError) Unwrap() error { return e.err }

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &usageError{arg: s, err: err}
	}
	return v, nil
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, &usageError{arg: s, err: err}
	}
	return uint16(v), nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ---- read ----

type readOutput struct {
	UnitID  uint8             `json:"unit_id"`
	Reading telemetry.Reading `json:"reading"`
	Fields  []string          `json:"fields"`
	Tuple   []float64         `json:"tuple"`
}

func cmdRead(a *app, _ []string) error {
	res := telemetry.Sample(a.dev)
	if res.Err != nil {
		return res.Err
	}
	return a.printJSON(readOutput{
		UnitID:  res.UnitID,
		Reading: res.Reading,
		Fields:  telemetry.TupleFields,
		Tuple:   res.Reading.Tuple(),
	})
}

// ---- info ----

type infoOutput struct {
	Device           string  `json:"device"`
	UnitID           uint8   `json:"unit_id"`
	LayoutVersion    string  `json:"register_layout_version"`
	SoftwareRevision uint16  `json:"software_revision"`
	HWMaxCurrent     uint16  `json:"hw_max_current_a"`
	HWMinCurrent     uint16  `json:"hw_min_current_a"`
	ExternLock       string  `json:"extern_lock"`
	RemoteLock       string  `json:"remote_lock"`
	Standby          string  `json:"standby"`
	WatchdogMs       uint16  `json:"watchdog_timeout_ms"`
	MaxCurrent       float64 `json:"max_current_a"`
	FailsafeCurrent  float64 `json:"failsafe_current_a"`
}

func cmdInfo(a *app, _ []string) error {
	info, err := a.dev.Info()
	if err != nil {
		return err
	}
	out := infoOutput{
		Device:           a.cfg.Device.Name,
		UnitID:           a.dev.UnitID(),
		LayoutVersion:    info.LayoutVersion,
		SoftwareRevision: info.SoftwareRevision,
		HWMaxCurrent:     info.HWMaxCurrent,
		HWMinCurrent:     info.HWMinCurrent,
	}

	extern, err := a.dev.ExternLockState()
	if err != nil {
		return err
	}
	remote, err := a.dev.RemoteLock()
	if err != nil {
		return err
	}
	standby, err := a.dev.StandbyFunctionControl()
	if err != nil {
		return err
	}
	out.ExternLock, out.RemoteLock, out.Standby = extern.String(), remote.String(), standby.String()

	if out.WatchdogMs, err = a.dev.WatchdogTimeout(); err != nil {
		return err
	}
	if out.MaxCurrent, err = a.dev.MaximalCurrentCommand(); err != nil {
		return err
	}
	if out.FailsafeCurrent, err = a.dev.FailsafeCurrentConfig(); err != nil {
		return err
	}

	return a.printJSON(out)
}

// ---- setters ----

func cmdSetMaxCurrent(a *app, args []string) error {
	amps, err := parseFloat(args[0])
	if err != nil {
		return err
	}
	written, err := a.dev.SetMaximalCurrentCommand(amps)
	if err != nil {
		return err
	}
	if written {
		fmt.Fprintln(a.out, "written")
	} else {
		fmt.Fprintln(a.out, "unchanged")
	}
	return nil
}

func cmdSetFailsafeCurrent(a *app, args []string) error {
	amps, err := parseFloat(args[0])
	if err != nil {
		return err
	}
	return a.dev.SetFailsafeCurrentConfig(amps)
}

func cmdSetStandby(a *app, args []string) error {
	v, err := parseUint16(args[0])
	if err != nil {
		return err
	}
	return a.dev.SetStandbyFunctionControl(wallbox.StandbyMode(v))
}

func cmdSetRemoteLock(a *app, args []string) error {
	v, err := parseUint16(args[0])
	if err != nil {
		return err
	}
	return a.dev.SetRemoteLock(wallbox.LockState(v))
}

func cmdSetWatchdog(a *app, args []string) error {
	ms, err := parseUint16(args[0])
	if err != nil {
		return err
	}
	return a.dev.SetWatchdogTimeout(ms)
}

// ---- publish / serve ----

func (a *app) sinks() (writer.Fanout, error) {
	build := a.buildSinks
	if build == nil {
		build = writer.BuildSinks
	}
	return build(*a.cfg, a.log)
}

func cmdPublish(a *app, _ []string) error {
	sinks, err := a.sinks()
	if err != nil {
		return err
	}
	defer sinks.Close()

	if len(sinks) == 0 {
		return &usageError{arg: "publish", err: errors.New("no mqtt broker or replica endpoint configured")}
	}

	res := telemetry.Sample(a.dev)
	if err := sinks.Write(res); err != nil {
		return err
	}
	return res.Err
}

func cmdServe(a *app, _ []string) error {
	sinks, err := a.sinks()
	if err != nil {
		return err
	}
	defer sinks.Close()

	var sink exporter.Sink
	if len(sinks) > 0 {
		sink = sinks
	}

	c := exporter.NewCollector(a.dev, sink, a.log.With().Str("component", "collector").Logger())
	if err := a.reg.Register(c); err != nil {
		return err
	}

	srv := exporter.NewServer(a.cfg.Exporter.Listen, a.cfg.Device.Name, c, a.reg, a.log.With().Str("component", "http").Logger())
	return srv.Run(a.ctx)
}
