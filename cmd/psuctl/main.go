// Package main is the psuctl command line tool for controlling SCPI bench
// power supplies over USB-serial and LAN.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.org/carrierlabs/go-powersupply/powersupply"
)

var version = "develop"

const (
	flagVoltage = "voltage"
	flagCurrent = "current"
	flagOutput  = "output"
	flagAddress = "address"
	flagMeasure = "measure"
	flagList    = "list"
	flagDebug   = "debug"

	// Settle time before reading back a freshly switched output.
	measureSettle = 500 * time.Millisecond
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	// -v belongs to --voltage; keep the version flag long-form only.
	cli.VersionFlag = &cli.BoolFlag{Name: "version"}

	return &cli.App{
		Name:    "psuctl",
		Usage:   "control a SCPI bench power supply",
		Version: version,
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:    flagVoltage,
				Aliases: []string{"v"},
				Usage:   "set the output voltage in `VOLTS`",
			},
			&cli.Float64Flag{
				Name:    flagCurrent,
				Aliases: []string{"c"},
				Usage:   "set the current limit in `AMPS`",
			},
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Usage:   "switch the output `on|off`",
			},
			&cli.StringFlag{
				Name:    flagAddress,
				Aliases: []string{"a"},
				EnvVars: []string{"PSU_ADDRESS"},
				Usage:   "resource `ADDRESS` of the instrument (default: first enumerated)",
			},
			&cli.BoolFlag{
				Name:    flagMeasure,
				Aliases: []string{"m"},
				Usage:   "measure voltage and current after the operations",
			},
			&cli.BoolFlag{
				Name:    flagList,
				Aliases: []string{"l"},
				Usage:   "list available instrument resources and exit",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "shell",
				Aliases: []string{"sh"},
				Usage:   "interactive control shell",
				Action:  runShell,
			},
		},
		Action: runOneShot,
	}
}

// newLogger keeps the CLI quiet unless --debug is given.
func newLogger(c *cli.Context) *zap.SugaredLogger {
	if c.Bool(flagDebug) {
		logger, _ := zap.NewDevelopment()
		return logger.Sugar()
	}
	return zap.NewNop().Sugar()
}

func runOneShot(c *cli.Context) error {
	logger := newLogger(c)
	defer logger.Sync()

	if c.Bool(flagList) {
		return listResources(c.App.Writer)
	}

	hasOp := c.IsSet(flagVoltage) || c.IsSet(flagCurrent) || c.IsSet(flagOutput)
	if !hasOp && !c.Bool(flagMeasure) {
		cli.ShowAppHelp(c)
		fmt.Fprintln(c.App.Writer, "\nSpecify at least one operation, e.g.: psuctl -v 5.0 -o on")
		return nil
	}

	var outputOn bool
	if c.IsSet(flagOutput) {
		var err error
		outputOn, err = parseOnOff(c.String(flagOutput))
		if err != nil {
			return err
		}
	}

	sess, err := openSession(c, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	// Set before switching: the output should come up at the requested
	// setpoints, not at whatever the instrument last held.
	if c.IsSet(flagVoltage) {
		volts := c.Float64(flagVoltage)
		if err := sess.SetVoltage(volts); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Voltage set to %v V\n", volts)
	}
	if c.IsSet(flagCurrent) {
		amps := c.Float64(flagCurrent)
		if err := sess.SetCurrent(amps); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Current limit set to %v A\n", amps)
	}
	if c.IsSet(flagOutput) {
		if err := sess.SetOutput(outputOn); err != nil {
			return err
		}
		if outputOn {
			fmt.Fprintln(c.App.Writer, "Output on")
		} else {
			fmt.Fprintln(c.App.Writer, "Output off")
		}
	}

	// Read back when asked, and after switching the output on, once the
	// supply has had a moment to settle.
	if c.Bool(flagMeasure) || (c.IsSet(flagOutput) && outputOn) {
		time.Sleep(measureSettle)
		v, err := sess.MeasureVoltage()
		if err != nil {
			return err
		}
		i, err := sess.MeasureCurrent()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Measured: %.4f V, %.4f A\n", v, i)
	}

	return nil
}

// newSession builds the session for an address. A variable so tests can
// inject a scripted transport opener.
var newSession = func(address string, logger *zap.SugaredLogger) *powersupply.Session {
	return powersupply.NewSession(address, powersupply.WithLogger(logger))
}

// openSession resolves the target address, connects and reports the
// instrument identity. The --address flag (or PSU_ADDRESS) wins; otherwise
// the first enumerated resource is used.
func openSession(c *cli.Context, logger *zap.SugaredLogger) (*powersupply.Session, error) {
	address := c.String(flagAddress)
	if address == "" {
		r, err := powersupply.FirstResource()
		if err != nil {
			return nil, err
		}
		address = r.Address
		fmt.Fprintf(c.App.Writer, "Auto-selected instrument: %s\n", r)
	} else {
		fmt.Fprintf(c.App.Writer, "Using instrument: %s\n", address)
	}

	sess := newSession(address, logger)
	if err := sess.Connect(); err != nil {
		return nil, err
	}
	fmt.Fprintf(c.App.Writer, "Connected: %s\n", sess.Identity())
	return sess, nil
}

// listResources renders the enumerated resources as a table.
func listResources(w io.Writer) error {
	resources, err := powersupply.ListResources()
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		fmt.Fprintln(w, "No instrument resources found.")
		return nil
	}
	renderResources(w, resources)
	return nil
}

func renderResources(w io.Writer, resources []powersupply.Resource) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Address", "Vendor"})
	for i, r := range resources {
		t.AppendRow(table.Row{i + 1, r.Address, r.Vendor})
	}
	t.Render()
}

// parseOnOff maps the --output flag value to a switch state.
func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid output state %q (want on or off)", s)
	}
}
