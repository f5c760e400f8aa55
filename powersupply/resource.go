// Package powersupply controls SCPI bench power supplies over USB-serial
// and LAN resource addresses.
package powersupply

import (
	"fmt"
	"strconv"
	"strings"
)

// Resource address prefixes, following the VISA naming convention.
const (
	usbPrefix    = "USB"
	serialPrefix = "ASRL"
	tcpPrefix    = "TCPIP"

	addressSep       = "::"
	instrumentSuffix = "INSTR"
)

// vendorNames maps USB vendor IDs to instrument maker names.
// Read-only after init; there is deliberately no way to mutate it.
var vendorNames = map[uint16]string{
	0x2EC7: "ITECH",
	0x0957: "Agilent/Keysight",
	0x1AB1: "Rigol",
	0x0699: "Tektronix",
	0x05E6: "Keithley",
	0x0AAD: "Rohde & Schwarz",
	0x067B: "Prolific Technology, Inc",
	0x0403: "FTDI",
	0x10C4: "Silicon Labs",
}

// VendorName returns the display name for a USB vendor ID.
func VendorName(id uint16) (string, bool) {
	name, ok := vendorNames[id]
	return name, ok
}

// Resource is one enumerated instrument address. Address is the canonical
// string accepted by NewSession; Vendor is a display name attached when the
// vendor ID is known, and is never part of the address itself.
type Resource struct {
	Address string
	Vendor  string
}

func (r Resource) String() string {
	if r.Vendor == "" {
		return r.Address
	}
	return fmt.Sprintf("%s (%s)", r.Address, r.Vendor)
}

// FormatAddress normalizes the vendor and product fields of a USB-class
// resource address to 0x-prefixed uppercase hexadecimal. Anything that is
// not a well-formed USB address is returned unchanged, with no partial
// rewriting. The operation is idempotent.
func FormatAddress(addr string) string {
	if !strings.HasPrefix(addr, usbPrefix) {
		return addr
	}
	fields := strings.Split(addr, addressSep)
	if len(fields) < 3 {
		return addr
	}

	vid, err := parseID(fields[1])
	if err != nil {
		return addr
	}
	pid, err := parseID(fields[2])
	if err != nil {
		return addr
	}

	fields[1] = formatIDField(fields[1], vid)
	fields[2] = formatIDField(fields[2], pid)

	return strings.Join(fields, addressSep)
}

// LookupVendor extracts the vendor ID from a USB-class resource address and
// resolves it against the vendor table. ok is false for non-USB addresses
// and unknown vendors.
func LookupVendor(addr string) (string, bool) {
	if !strings.HasPrefix(addr, usbPrefix) {
		return "", false
	}
	fields := strings.Split(addr, addressSep)
	if len(fields) < 3 {
		return "", false
	}
	id, err := parseID(fields[1])
	if err != nil {
		return "", false
	}
	return VendorName(uint16(id))
}

// parseID parses a vendor or product field. USB IDs are conventionally
// written in hexadecimal, with or without a 0x prefix, so the hexadecimal
// reading wins; a plain decimal reading is only a fallback. IDs are 16-bit
// values; anything larger is a parse failure like any other.
func parseID(field string) (uint64, error) {
	digits := field
	if hasHexPrefix(field) {
		digits = field[2:]
	}
	if v, err := strconv.ParseUint(digits, 16, 16); err == nil {
		return v, nil
	}
	if v, err := strconv.ParseUint(field, 10, 16); err == nil {
		return v, nil
	}
	return 0, &ParseError{Value: field}
}

// formatIDField renders an ID as 0xHHHH. A field the user already wrote
// with a 0x prefix keeps its own width and prefix; only the digit case is
// normalized.
func formatIDField(field string, id uint64) string {
	if hasHexPrefix(field) {
		return field[:2] + strings.ToUpper(field[2:])
	}
	return fmt.Sprintf("0x%04X", id)
}

func hasHexPrefix(s string) bool {
	return len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
