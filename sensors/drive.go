package sensors

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// twistFrameHeader starts every binary twist frame.
const twistFrameHeader = 0xA5

// Porter is the minimal serial port surface the drive needs.
type Porter interface {
	io.Writer
	io.Closer
}

// EncodeTwistFrame renders a twist as a header byte followed by linear and angular
// velocity as little-endian float32.
func EncodeTwistFrame(twist Twist) []byte {
	frame := make([]byte, 9)
	frame[0] = twistFrameHeader
	binary.LittleEndian.PutUint32(frame[1:5], math.Float32bits(twist.Linear))
	binary.LittleEndian.PutUint32(frame[5:9], math.Float32bits(twist.Angular))
	return frame
}

// SerialDrive writes twist frames to a serial-attached motor controller.
type SerialDrive struct {
	name string
	mu   sync.Mutex
	port Porter
}

// NewSerialDrive opens the serial port at path.
func NewSerialDrive(name, path string, baudRate int) (*SerialDrive, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening drive serial port %s", path)
	}
	return NewSerialDriveFromPort(name, port), nil
}

// NewSerialDriveFromPort wraps an already open port.
func NewSerialDriveFromPort(name string, port Porter) *SerialDrive {
	return &SerialDrive{name: name, port: port}
}

// Name returns the name of the drive.
func (d *SerialDrive) Name() string {
	return d.name
}

// WriteTwist writes a single twist frame.
func (d *SerialDrive) WriteTwist(ctx context.Context, twist Twist) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.port.Write(EncodeTwistFrame(twist)); err != nil {
		return errors.Wrap(err, "error writing twist to serial drive")
	}
	return nil
}

// Close closes the serial port.
func (d *SerialDrive) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port.Close()
}

// UDPDrive sends twist datagrams to a remote drive process.
type UDPDrive struct {
	name string
	conn *net.UDPConn
}

// NewUDPDrive connects to address.
func NewUDPDrive(name, address string) (*UDPDrive, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve drive address %q", address)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial drive address %q", address)
	}
	return &UDPDrive{name: name, conn: conn}, nil
}

// Name returns the name of the drive.
func (d *UDPDrive) Name() string {
	return d.name
}

// WriteTwist sends a single twist datagram.
func (d *UDPDrive) WriteTwist(ctx context.Context, twist Twist) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := EncodeTwistMessage(twist)
	if err != nil {
		return err
	}
	if _, err := d.conn.Write(msg); err != nil {
		return errors.Wrap(err, "error sending twist to drive")
	}
	return nil
}

// Close closes the connection.
func (d *UDPDrive) Close() error {
	return d.conn.Close()
}
