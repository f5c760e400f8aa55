package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.org/carrierlabs/go-powersupply/powersupply"
)

// withScriptedSession reroutes session creation to a scripted transport
// for the duration of a test.
func withScriptedSession(t *testing.T, st *scriptedTransport) {
	t.Helper()

	orig := newSession
	newSession = func(address string, logger *zap.SugaredLogger) *powersupply.Session {
		return powersupply.NewSession(address,
			powersupply.WithLogger(logger),
			powersupply.WithOpener(func(string) (powersupply.Transport, error) { return st, nil }),
		)
	}
	t.Cleanup(func() { newSession = orig })
}

func TestOneShotCommandOrder(t *testing.T) {
	st := &scriptedTransport{replies: map[string]string{
		"*IDN?":      "ITECH,IT6722,800001,1.04",
		"MEAS:VOLT?": "1.2001E+01",
		"MEAS:CURR?": "2.0003E+00",
	}}
	withScriptedSession(t, st)

	app := newApp()
	out := &bytes.Buffer{}
	app.Writer = out

	require.NoError(t, app.Run([]string{
		"psuctl",
		"-a", "USB0::0x2EC7::0x6700::SN001::INSTR",
		"-v", "12.0", "-c", "2.0", "-o", "on", "-m",
	}))

	assert.Equal(t, []string{
		"*IDN?",
		"VOLT 12.0",
		"CURR 2.0",
		"OUTP ON",
		"MEAS:VOLT?",
		"MEAS:CURR?",
	}, st.writes)

	assert.Contains(t, out.String(), "Connected: ITECH,IT6722,800001,1.04")
	assert.Contains(t, out.String(), "Measured: 12.0010 V, 2.0003 A")
}

func TestOneShotInvalidOutputState(t *testing.T) {
	st := &scriptedTransport{}
	withScriptedSession(t, st)

	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{
		"psuctl",
		"-a", "USB0::0x2EC7::0x6700::SN001::INSTR",
		"-o", "maybe",
	})
	require.Error(t, err)
	assert.Empty(t, st.writes, "no command may reach the instrument")
}

func TestParseOnOff(t *testing.T) {
	on, err := parseOnOff("on")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = parseOnOff("OFF")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = parseOnOff("maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"maybe"`)
}

func TestRenderResources(t *testing.T) {
	out := &bytes.Buffer{}
	renderResources(out, []powersupply.Resource{
		{Address: "USB0::0x2EC7::0x6700::SN001::INSTR", Vendor: "ITECH"},
		{Address: "/dev/ttyS0"},
	})

	assert.Contains(t, out.String(), "USB0::0x2EC7::0x6700::SN001::INSTR")
	assert.Contains(t, out.String(), "ITECH")
	assert.Contains(t, out.String(), "/dev/ttyS0")
}

func TestAppHelpWithoutOperations(t *testing.T) {
	app := newApp()
	out := &bytes.Buffer{}
	app.Writer = out

	require.NoError(t, app.Run([]string{"psuctl"}))
	assert.Contains(t, out.String(), "Specify at least one operation")
}
