package kernel

import (
	"bufio"
	"os"

	"github.com/cdave1/nachos/console"
)

// StdioDevice is a console.Device backed by the process's own stdin/stdout,
// standing in for the real asynchronous UART main.go's kbd_init/console
// code drives through hardware interrupts. Completion callbacks fire
// synchronously right after the byte is queued, since there's no real
// asynchrony to wait for here.
type StdioDevice struct {
	in  *bufio.Reader
	out *os.File

	pending byte

	onReadAvail func()
	onWriteDone func()
}

// NewStdioDevice wraps stdin/stdout as a console.Device.
func NewStdioDevice() *StdioDevice {
	d := &StdioDevice{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	go d.pump()
	return d
}

// pump reads stdin one byte at a time, buffering the most recent byte and
// signalling read-availability after each one, the way a real UART raises
// one interrupt per received character.
func (d *StdioDevice) pump() {
	for {
		b, err := d.in.ReadByte()
		if err != nil {
			return
		}
		d.pending = b
		if d.onReadAvail != nil {
			d.onReadAvail()
		}
	}
}

func (d *StdioDevice) PutChar(c byte) {
	d.out.Write([]byte{c})
	if d.onWriteDone != nil {
		d.onWriteDone()
	}
}

func (d *StdioDevice) GetChar() byte {
	return d.pending
}

func (d *StdioDevice) SetReadAvailCallback(f func()) { d.onReadAvail = f }
func (d *StdioDevice) SetWriteDoneCallback(f func()) { d.onWriteDone = f }

var _ console.Device = (*StdioDevice)(nil)
