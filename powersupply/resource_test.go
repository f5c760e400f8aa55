package powersupply

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "usb with mixed fields",
			in:   "USB0::0x2ec7::6700::SN001::INSTR",
			want: "USB0::0x2EC7::0x6700::SN001::INSTR",
		},
		{
			name: "usb already canonical",
			in:   "USB0::0x2EC7::0x6700::SN001::INSTR",
			want: "USB0::0x2EC7::0x6700::SN001::INSTR",
		},
		{
			name: "usb bare hex fields",
			in:   "USB0::1ab1::04ce::DS1ZA000::INSTR",
			want: "USB0::0x1AB1::0x04CE::DS1ZA000::INSTR",
		},
		{
			name: "prefixed field keeps its own width",
			in:   "USB0::0x1::0x04CE::INSTR",
			want: "USB0::0x1::0x04CE::INSTR",
		},
		{
			name: "gpib passes through",
			in:   "GPIB0::5::INSTR",
			want: "GPIB0::5::INSTR",
		},
		{
			name: "tcpip passes through",
			in:   "TCPIP0::192.168.1.5::5025::SOCKET",
			want: "TCPIP0::192.168.1.5::5025::SOCKET",
		},
		{
			name: "serial path passes through",
			in:   "/dev/ttyUSB0",
			want: "/dev/ttyUSB0",
		},
		{
			name: "too few fields passes through",
			in:   "USB0::0x2ec7",
			want: "USB0::0x2ec7",
		},
		{
			name: "unparseable vendor passes through whole",
			in:   "USB0::zzzz::0x6700::SN001::INSTR",
			want: "USB0::zzzz::0x6700::SN001::INSTR",
		},
		{
			name: "unparseable product passes through whole",
			in:   "USB0::0x2ec7::not-an-id::SN001::INSTR",
			want: "USB0::0x2ec7::not-an-id::SN001::INSTR",
		},
		{
			name: "vendor wider than 16 bits passes through whole",
			in:   "USB0::99999::0x6700::SN001::INSTR",
			want: "USB0::99999::0x6700::SN001::INSTR",
		},
		{
			name: "product wider than 16 bits passes through whole",
			in:   "USB0::0x2ec7::0x10000::SN001::INSTR",
			want: "USB0::0x2ec7::0x10000::SN001::INSTR",
		},
		{
			name: "empty string",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatAddress(tt.in)
			assert.Equal(t, tt.want, got)

			// A second pass must not change anything further.
			assert.Equal(t, got, FormatAddress(got), "formatting is not idempotent")
		})
	}
}

func TestVendorName(t *testing.T) {
	name, ok := VendorName(0x2EC7)
	require.True(t, ok)
	assert.Equal(t, "ITECH", name)

	name, ok = VendorName(0x0957)
	require.True(t, ok)
	assert.Equal(t, "Agilent/Keysight", name)

	_, ok = VendorName(0xBEEF)
	assert.False(t, ok)
}

func TestLookupVendor(t *testing.T) {
	name, ok := LookupVendor("USB0::0x2ec7::6700::SN001::INSTR")
	require.True(t, ok)
	assert.Equal(t, "ITECH", name)

	_, ok = LookupVendor("GPIB0::5::INSTR")
	assert.False(t, ok, "no vendor lookup for non-USB addresses")

	_, ok = LookupVendor("USB0::0x1234::0x5678::SN::INSTR")
	assert.False(t, ok, "unknown vendor yields no name")
}

func TestParseID(t *testing.T) {
	id, err := parseID("0x2ec7")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2EC7), id)

	id, err = parseID("6700")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x6700), id)

	id, err = parseID("FFFF")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFF), id)

	_, err = parseID("SN001")
	require.Error(t, err)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "SN001", perr.Value)

	// IDs are 16-bit; anything wider fails like any other bad field.
	_, err = parseID("0x10000")
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "0x10000", perr.Value)
}

func TestResourceString(t *testing.T) {
	r := Resource{Address: "USB0::0x2EC7::0x6700::SN001::INSTR", Vendor: "ITECH"}
	assert.Equal(t, "USB0::0x2EC7::0x6700::SN001::INSTR (ITECH)", r.String())

	r = Resource{Address: "GPIB0::5::INSTR"}
	assert.Equal(t, "GPIB0::5::INSTR", r.String())
}

func TestNewResource(t *testing.T) {
	usb := &enumerator.PortDetails{
		Name:         "/dev/ttyACM0",
		IsUSB:        true,
		VID:          "2ec7",
		PID:          "6700",
		SerialNumber: "SN001",
	}
	r := newResource(usb)
	assert.Equal(t, "USB0::0x2EC7::0x6700::SN001::INSTR", r.Address)
	assert.Equal(t, "ITECH", r.Vendor)

	plain := &enumerator.PortDetails{Name: "/dev/ttyS0"}
	r = newResource(plain)
	assert.Equal(t, "/dev/ttyS0", r.Address)
	assert.Empty(t, r.Vendor)
}
