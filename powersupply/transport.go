package powersupply

import (
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Transport is the byte-level link to one instrument.
type Transport io.ReadWriteCloser

// OpenFunc opens a Transport for a resource address.
type OpenFunc func(address string) (Transport, error)

const defaultSCPIPort = "5025"

// openTransport picks a backend from the address form: TCPIP addresses dial
// a socket, USB addresses are matched against enumerated serial ports, and
// everything else is treated as a serial device path.
func (s *Session) openTransport(address string) (Transport, error) {
	switch {
	case strings.HasPrefix(address, tcpPrefix):
		return s.openTCP(address)
	case strings.HasPrefix(address, usbPrefix):
		return s.openUSB(address)
	case strings.HasPrefix(address, serialPrefix):
		name := strings.TrimPrefix(address, serialPrefix)
		name = strings.TrimSuffix(name, addressSep+instrumentSuffix)
		return s.openSerial(name)
	default:
		return s.openSerial(address)
	}
}

// openUSB resolves a USB-class address to a serial port by vendor ID,
// product ID and, when present, serial number.
func (s *Session) openUSB(address string) (Transport, error) {
	fields := strings.Split(address, addressSep)
	if len(fields) < 3 {
		return nil, errors.Errorf("malformed USB resource address %q", address)
	}
	vid, err := parseID(fields[1])
	if err != nil {
		return nil, err
	}
	pid, err := parseID(fields[2])
	if err != nil {
		return nil, err
	}
	var serialNo string
	if len(fields) > 3 && fields[3] != instrumentSuffix {
		serialNo = fields[3]
	}

	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate serial ports")
	}
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		if id, err := parseID(port.VID); err != nil || id != vid {
			continue
		}
		if id, err := parseID(port.PID); err != nil || id != pid {
			continue
		}
		if serialNo != "" && port.SerialNumber != serialNo {
			continue
		}
		return s.openSerial(port.Name)
	}
	return nil, errors.Errorf("no serial port matches %s", address)
}

// openSerial opens a serial device in the 8N1 framing the supported
// supplies use.
func (s *Session) openSerial(name string) (Transport, error) {
	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		if err := port.SetReadTimeout(s.timeout); err != nil {
			port.Close()
			return nil, err
		}
	}
	return port, nil
}

// openTCP dials a raw-socket SCPI endpoint (TCPIP0::host::port::SOCKET).
// The port field defaults to 5025 when omitted.
func (s *Session) openTCP(address string) (Transport, error) {
	fields := strings.Split(address, addressSep)
	if len(fields) < 2 {
		return nil, errors.Errorf("malformed TCPIP resource address %q", address)
	}
	host := fields[1]
	port := defaultSCPIPort
	if len(fields) > 2 && fields[2] != "SOCKET" && fields[2] != instrumentSuffix {
		port = fields[2]
	}

	dialTimeout := s.timeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), dialTimeout)
	if err != nil {
		return nil, err
	}
	return &tcpTransport{Conn: conn, timeout: s.timeout}, nil
}

// timeoutReader surfaces a transport's zero-byte timeout reads as a
// deadline error. The serial backend reports an expired read timeout as
// (0, nil); left alone, bufio would retry that read 100 times before
// giving up.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}

// tcpTransport applies the session read timeout as a per-read deadline.
type tcpTransport struct {
	net.Conn
	timeout time.Duration
}

func (t *tcpTransport) Read(p []byte) (int, error) {
	if t.timeout > 0 {
		if err := t.Conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return 0, err
		}
	}
	return t.Conn.Read(p)
}
