package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.org/carrierlabs/go-powersupply/powersupply"
)

// shell is the interactive command loop bound to one session.
type shell struct {
	sess     *powersupply.Session
	rl       *readline.Instance
	out      io.Writer
	errColor *color.Color
}

func runShell(c *cli.Context) error {
	logger := newLogger(c)
	defer logger.Sync()

	sess, err := openSession(c, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	sh, err := newShell(sess)
	if err != nil {
		return err
	}
	return sh.run()
}

func newShell(sess *powersupply.Session) (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "psu> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &shell{
		sess:     sess,
		rl:       rl,
		out:      rl.Stdout(),
		errColor: color.New(color.FgRed),
	}, nil
}

// run reads commands until quit, EOF or interrupt at an empty prompt.
func (s *shell) run() error {
	defer s.rl.Close()

	s.printHelp()

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return nil
		}
		if quit := s.exec(strings.TrimSpace(line)); quit {
			return nil
		}
	}
}

// exec dispatches one command line. It reports quit=true when the loop
// should end; every other outcome, including bad input, keeps it running.
func (s *shell) exec(line string) (quit bool) {
	if line == "" {
		return false
	}

	parts := strings.Fields(strings.ToLower(line))
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "q", "quit", "exit":
		fmt.Fprintln(s.out, "Bye.")
		return true

	case "help", "?":
		s.printHelp()

	case "v", "volt", "voltage":
		s.cmdVoltage(args)

	case "c", "curr", "current":
		s.cmdCurrent(args)

	case "on":
		if err := s.sess.SetOutput(true); err != nil {
			s.errorf("output on: %s", err)
			return false
		}
		fmt.Fprintln(s.out, "Output on")

	case "off":
		if err := s.sess.SetOutput(false); err != nil {
			s.errorf("output off: %s", err)
			return false
		}
		fmt.Fprintln(s.out, "Output off")

	case "loc", "local":
		s.sess.SetLocalMode()
		fmt.Fprintln(s.out, "Instrument returned to local control")

	case "m", "meas", "measure":
		s.cmdMeasure()

	case "l", "list", "ls":
		s.cmdList()

	default:
		s.errorf("unknown command %q (try help)", cmd)
	}

	return false
}

func (s *shell) cmdVoltage(args []string) {
	if len(args) == 0 {
		s.errorf("missing voltage value, e.g.: v 5.0")
		return
	}
	volts, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		s.errorf("voltage must be a number, got %q", args[0])
		return
	}
	if err := s.sess.SetVoltage(volts); err != nil {
		s.errorf("set voltage: %s", err)
		return
	}
	fmt.Fprintf(s.out, "Voltage set to %v V\n", volts)
}

func (s *shell) cmdCurrent(args []string) {
	if len(args) == 0 {
		s.errorf("missing current value, e.g.: c 1.0")
		return
	}
	amps, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		s.errorf("current must be a number, got %q", args[0])
		return
	}
	if err := s.sess.SetCurrent(amps); err != nil {
		s.errorf("set current: %s", err)
		return
	}
	fmt.Fprintf(s.out, "Current limit set to %v A\n", amps)
}

func (s *shell) cmdMeasure() {
	v, err := s.sess.MeasureVoltage()
	if err != nil {
		s.errorf("measure voltage: %s", err)
		return
	}
	i, err := s.sess.MeasureCurrent()
	if err != nil {
		s.errorf("measure current: %s", err)
		return
	}
	fmt.Fprintf(s.out, "Measured: %.4f V, %.4f A\n", v, i)
}

func (s *shell) cmdList() {
	resources, err := powersupply.ListResources()
	if err != nil {
		s.errorf("list resources: %s", err)
		return
	}
	if len(resources) == 0 {
		fmt.Fprintln(s.out, "No instrument resources found.")
		return
	}
	for _, r := range resources {
		fmt.Fprintf(s.out, " - %s\n", r)
	}
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  v <volts>   set the output voltage (e.g. v 5.0)")
	fmt.Fprintln(s.out, "  c <amps>    set the current limit (e.g. c 1.0)")
	fmt.Fprintln(s.out, "  on | off    switch the output")
	fmt.Fprintln(s.out, "  loc         return the instrument to local control")
	fmt.Fprintln(s.out, "  m           measure voltage and current")
	fmt.Fprintln(s.out, "  l           list available resources")
	fmt.Fprintln(s.out, "  q           quit")
}

func (s *shell) errorf(format string, args ...interface{}) {
	s.errColor.Fprintf(s.out, "Error: "+format+"\n", args...)
}
