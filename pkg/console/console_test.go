package console

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvistgaard/gripforce/pkg/measure"
)

// fakeSender records every accepted command; accept toggles the queue-full
// path.
type fakeSender struct {
	commands []measure.Command
	accept   bool
}

func (f *fakeSender) TrySend(cmd measure.Command) bool {
	if !f.accept {
		return false
	}
	f.commands = append(f.commands, cmd)
	return true
}

var _ Sender = (*fakeSender)(nil)

type pipe struct {
	io.Reader
	io.Writer
}

// runScript feeds input to a console and returns the accepted commands and
// the console output.
func runScript(t *testing.T, input string, accept bool) (*fakeSender, string) {
	t.Helper()
	sender := &fakeSender{accept: accept}
	var out bytes.Buffer
	c := New(pipe{strings.NewReader(input), &out}, sender)
	c.Run()
	return sender, out.String()
}

func TestConsole_Commands(t *testing.T) {
	sender, out := runScript(t, "tare\ncal 16.1\nsave\nstop\n", true)

	require.Len(t, sender.commands, 4)
	assert.Equal(t, measure.Tare{}, sender.commands[0])
	assert.Equal(t, measure.AddCalibrationPoint{Weight: 16.1}, sender.commands[1])
	assert.Equal(t, measure.SaveCalibration{}, sender.commands[2])
	assert.Equal(t, measure.StopSampling{}, sender.commands[3])
	assert.Equal(t, "ok\nok\nok\nok\n", out)
}

func TestConsole_StartKinds(t *testing.T) {
	sender, out := runScript(t, "start raw\nstart filtered\nstart calibrated\nstart tared\n", true)

	require.Len(t, sender.commands, 4)
	assert.Equal(t, "StartSampling (Raw)", sender.commands[0].String())
	assert.Equal(t, "StartSampling (FilteredRaw)", sender.commands[1].String())
	assert.Equal(t, "StartSampling (Calibrated)", sender.commands[2].String())
	assert.Equal(t, "StartSampling (Tared)", sender.commands[3].String())
	assert.Equal(t, "ok\nok\nok\nok\n", out)
}

func TestConsole_BadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown command", "frobnicate\n"},
		{"unknown sample kind", "start sideways\n"},
		{"missing cal weight", "cal\n"},
		{"non-numeric cal weight", "cal heavy\n"},
		{"missing start kind", "start\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, out := runScript(t, tt.input, true)
			assert.Empty(t, sender.commands)
			assert.NotEmpty(t, out)
			assert.NotContains(t, out, "ok")
		})
	}
}

func TestConsole_BlankLinesIgnored(t *testing.T) {
	sender, out := runScript(t, "\n   \n\ntare\n", true)
	require.Len(t, sender.commands, 1)
	assert.Equal(t, "ok\n", out)
}

func TestConsole_BusyDevice(t *testing.T) {
	sender, out := runScript(t, "tare\n", false)
	assert.Empty(t, sender.commands)
	assert.Contains(t, out, "busy")
}

// calSender adds the calibration accessor to the fake.
type calSender struct {
	fakeSender
	m float32
	b int32
}

func (c *calSender) Calibration() (float32, int32) { return c.m, c.b }

func TestConsole_Show(t *testing.T) {
	sender := &calSender{fakeSender: fakeSender{accept: true}, m: 0.25, b: -100598}
	var out bytes.Buffer
	c := New(pipe{strings.NewReader("show\n"), &out}, sender)
	c.Run()

	assert.Equal(t, "m=0.25 b=-100598\n", out.String())
}

func TestConsole_ShowUnavailable(t *testing.T) {
	_, out := runScript(t, "show\n", true)
	assert.Contains(t, out, "not available")
}

func TestConsole_Help(t *testing.T) {
	_, out := runScript(t, "help\n", true)
	assert.Contains(t, out, "start raw|filtered|calibrated|tared")
	assert.Contains(t, out, "cal <weight>")
}

func TestConsole_SampleOutputFormat(t *testing.T) {
	sender := &fakeSender{accept: true}
	var out bytes.Buffer
	c := New(pipe{strings.NewReader(""), &out}, sender)

	c.printRaw(1500000, 12345) // 1.5ms in nanoseconds
	c.printWeight(2000000, 16.125)

	assert.Equal(t, "1500,12345\n2000,16.1250\n", out.String())
}
