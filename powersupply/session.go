package powersupply

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultBaudRate = 9600
	defaultTimeout  = 5 * time.Second
)

// Session wraps one exclusive connection to a power supply. It is created
// with a resource address, opened by Connect, and released by Close. All
// I/O is synchronous and blocking; a Session must not be shared between
// goroutines.
//
// Set and measure operations on a session that never connected do not
// fail: sets are silent no-ops and measures return 0.0. Callers that need
// to distinguish this must check Connect's error instead.
type Session struct {
	address  string
	logger   *zap.SugaredLogger
	open     OpenFunc
	baudRate int
	timeout  time.Duration

	conn     Transport
	reader   *bufio.Reader
	identity string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets a custom logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithBaudRate sets the serial baud rate (default: 9600).
func WithBaudRate(baudRate int) Option {
	return func(s *Session) {
		s.baudRate = baudRate
	}
}

// WithTimeout sets the read timeout applied to queries (default: 5s).
// Zero disables the timeout and blocks until the backend returns.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		s.timeout = timeout
	}
}

// WithOpener replaces the transport opener. Used to talk to instrument
// backends other than the built-in serial/TCP ones, and by tests.
func WithOpener(open OpenFunc) Option {
	return func(s *Session) {
		s.open = open
	}
}

// NewSession creates a session for a resource address. The address is used
// verbatim by Connect; no I/O happens here.
func NewSession(address string, opts ...Option) *Session {
	logger, _ := zap.NewDevelopment()

	s := &Session{
		address:  address,
		logger:   logger.Sugar(),
		baudRate: defaultBaudRate,
		timeout:  defaultTimeout,
	}
	s.open = s.openTransport

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Address returns the resource address the session was created with.
func (s *Session) Address() string {
	return s.address
}

// Identity returns the *IDN? reply captured by Connect, or "" before it.
func (s *Session) Identity() string {
	return s.identity
}

// Connected reports whether the session holds an open transport.
func (s *Session) Connected() bool {
	return s.conn != nil
}

// Connect opens the transport and queries the instrument identification.
// Any failure releases whatever was opened and is returned as *OpenError.
func (s *Session) Connect() error {
	conn, err := s.open(s.address)
	if err != nil {
		s.logger.Errorf("can't open %s: %s", s.address, err)
		return &OpenError{Address: s.address, Err: err}
	}
	s.conn = conn
	s.reader = bufio.NewReader(timeoutReader{conn})

	idn, err := s.Query(cmdIdentify)
	if err != nil {
		s.logger.Errorf("identification query failed on %s: %s", s.address, err)
		conn.Close()
		s.conn = nil
		s.reader = nil
		return &OpenError{Address: s.address, Err: err}
	}
	s.identity = idn
	s.logger.Infof("connected to %s: %s", s.address, idn)
	return nil
}

// Write sends one raw SCPI command, terminated by a newline.
func (s *Session) Write(cmd string) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	s.logger.Debugf("-> %s", cmd)
	if _, err := fmt.Fprintf(s.conn, "%s\n", cmd); err != nil {
		s.logger.Errorf("can't write to %s: %s", s.address, err)
		return err
	}
	return nil
}

// Query sends one raw SCPI command and reads the newline-terminated ASCII
// reply, with trailing CR/LF trimmed.
func (s *Session) Query(cmd string) (string, error) {
	if err := s.Write(cmd); err != nil {
		return "", err
	}
	reply, err := s.reader.ReadString('\n')
	if err != nil && reply == "" {
		return "", errors.Wrapf(err, "no reply to %s", cmd)
	}
	reply = strings.TrimRight(reply, "\r\n")
	s.logger.Debugf("<- %s", reply)
	return reply, nil
}

// SetVoltage sets the output voltage. The value is forwarded verbatim; the
// instrument is the authority on range validity.
func (s *Session) SetVoltage(volts float64) error {
	if s.conn == nil {
		return nil
	}
	return s.Write(setVoltageCmd(volts))
}

// SetCurrent sets the current limit.
func (s *Session) SetCurrent(amps float64) error {
	if s.conn == nil {
		return nil
	}
	return s.Write(setCurrentCmd(amps))
}

// SetOutput switches the output on or off.
func (s *Session) SetOutput(on bool) error {
	if s.conn == nil {
		return nil
	}
	if on {
		return s.Write(cmdOutputOn)
	}
	return s.Write(cmdOutputOff)
}

// SetLocalMode returns the instrument to front-panel control. Not every
// bus/interface combination supports it, so a failure is logged and
// swallowed rather than returned.
func (s *Session) SetLocalMode() {
	if s.conn == nil {
		return
	}
	if err := s.Write(cmdLocal); err != nil {
		s.logger.Warnf("local mode not supported on %s: %s", s.address, err)
	}
}

// MeasureVoltage reads the actual output voltage. An unconnected session
// yields 0.0 with no error.
func (s *Session) MeasureVoltage() (float64, error) {
	return s.measure(cmdMeasureVoltage)
}

// MeasureCurrent reads the actual output current. An unconnected session
// yields 0.0 with no error.
func (s *Session) MeasureCurrent() (float64, error) {
	return s.measure(cmdMeasureCurrent)
}

func (s *Session) measure(cmd string) (float64, error) {
	if s.conn == nil {
		return 0.0, nil
	}
	reply, err := s.Query(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, &ReplyError{Command: cmd, Reply: reply, Err: err}
	}
	return v, nil
}

// Close releases the transport. Safe to call repeatedly and on a session
// that never connected.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.reader = nil
	return err
}
