package console

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
	"go.bug.st/serial"

	"github.com/kvistgaard/gripforce/pkg/measure"
)

// DefaultBaudRate is the standard baud rate of the debug UART.
const DefaultBaudRate = 115200

const helpText = `commands:
  start raw|filtered|calibrated|tared  stream samples
  stop                                 stop streaming
  tare                                 zero the scale
  cal <weight>                         record a calibration point at <weight>
  save                                 persist the recorded calibration
  show                                 print the active calibration constants
  help                                 this text
`

// Sender enqueues measurement commands. *measure.Task satisfies it.
type Sender interface {
	TrySend(measure.Command) bool
}

// Console is a line-oriented operator shell over a serial port (or any
// byte stream). Streamed samples and command responses share the writer.
type Console struct {
	rw     io.ReadWriter
	sender Sender

	mu sync.Mutex // guards writes to rw
}

// New returns a console bound to rw. Run starts it.
func New(rw io.ReadWriter, sender Sender) *Console {
	return &Console{rw: rw, sender: sender}
}

// OpenPort opens the named serial port and returns a console on it.
func OpenPort(port string, baudRate int, sender Sender) (*Console, io.Closer, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	conn, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	return New(conn, sender), conn, nil
}

// Run reads and executes commands until the reader is exhausted.
func (c *Console) Run() {
	scanner := bufio.NewScanner(c.rw)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.execute(line)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		log.Printf("console: read failed: %v", err)
	}
}

func (c *Console) execute(line string) {
	args, err := shlex.Split(line)
	if err != nil {
		c.printf("error: %v\n", err)
		return
	}
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "start":
		if len(args) != 2 {
			c.printf("usage: start raw|filtered|calibrated|tared\n")
			return
		}
		cmd, err := c.startCommand(args[1])
		if err != nil {
			c.printf("error: %v\n", err)
			return
		}
		c.send(cmd)

	case "stop":
		c.send(measure.StopSampling{})

	case "tare":
		c.send(measure.Tare{})

	case "cal":
		if len(args) != 2 {
			c.printf("usage: cal <weight>\n")
			return
		}
		weight, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			c.printf("error: invalid weight %q\n", args[1])
			return
		}
		c.send(measure.AddCalibrationPoint{Weight: float32(weight)})

	case "save":
		c.send(measure.SaveCalibration{})

	case "show":
		cal, ok := c.sender.(interface{ Calibration() (float32, int32) })
		if !ok {
			c.printf("error: calibration not available\n")
			return
		}
		m, b := cal.Calibration()
		c.printf("m=%v b=%d\n", m, b)

	case "help":
		c.printf("%s", helpText)

	default:
		c.printf("error: unknown command %q (try help)\n", args[0])
	}
}

func (c *Console) startCommand(kind string) (measure.Command, error) {
	switch kind {
	case "raw":
		return measure.StartRaw(c.printRaw), nil
	case "filtered":
		return measure.StartFilteredRaw(c.printRaw), nil
	case "calibrated":
		return measure.StartCalibrated(c.printWeight), nil
	case "tared":
		return measure.StartTared(c.printWeight), nil
	default:
		return nil, fmt.Errorf("unknown sample kind %q", kind)
	}
}

func (c *Console) send(cmd measure.Command) {
	if !c.sender.TrySend(cmd) {
		c.printf("error: device busy, command dropped\n")
		return
	}
	c.printf("ok\n")
}

func (c *Console) printRaw(elapsed time.Duration, value int32) {
	c.printf("%d,%d\n", elapsed.Microseconds(), value)
}

func (c *Console) printWeight(elapsed time.Duration, value float32) {
	c.printf("%d,%.4f\n", elapsed.Microseconds(), value)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.rw, format, args...); err != nil {
		log.Printf("console: write failed: %v", err)
	}
}
