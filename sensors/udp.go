package sensors

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/viam-localnav/obstacles"
)

const (
	// maxDatagramSize holds any UDP payload. An occupancy frame must fit in one
	// datagram, which caps it at a few thousand voxels.
	maxDatagramSize = 65535
	readDeadline    = 100 * time.Millisecond
)

// UDPListener receives datagrams on a local address and hands each one to a handler.
type UDPListener struct {
	name    string
	conn    *net.UDPConn
	handle  func([]byte) error
	logger  logging.Logger
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// ListenUDP binds address and starts receiving in the background. Binding errors are
// returned immediately.
func ListenUDP(
	ctx context.Context,
	name string,
	address string,
	handle func([]byte) error,
	logger logging.Logger,
) (*UDPListener, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve UDP address %q for %s", address, name)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on UDP address %q for %s", address, name)
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	l := &UDPListener{
		name:   name,
		conn:   conn,
		handle: handle,
		logger: logger,
		cancel: cancel,
	}
	logger.Infow("UDP listener started", "sensor", name, "address", conn.LocalAddr().String())

	l.workers.Add(1)
	go func() {
		defer l.workers.Done()
		l.receive(cancelCtx)
	}()
	return l, nil
}

// Addr returns the bound local address.
func (l *UDPListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

func (l *UDPListener) receive(ctx context.Context) {
	buffer := make([]byte, maxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// a short deadline lets the loop notice cancellation
		if err := l.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			l.logger.Warnw("failed to set read deadline", "sensor", l.name, "error", err)
		}
		n, from, err := l.conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			l.logger.Warnw("UDP read error", "sensor", l.name, "error", err)
			continue
		}

		packet := make([]byte, n)
		copy(packet, buffer[:n])
		if err := l.handle(packet); err != nil {
			l.logger.Warnw("dropping datagram", "sensor", l.name, "from", from.String(), "bytes", n, "error", err)
		}
	}
}

// Close stops receiving and releases the socket.
func (l *UDPListener) Close() error {
	l.cancel()
	l.workers.Wait()
	return l.conn.Close()
}

// UDPPoseSource is a TimedPoseSource fed by pose datagrams.
type UDPPoseSource struct {
	name     string
	latest   Latest[TimedPoseReading]
	listener *UDPListener
}

// NewUDPPoseSource listens for pose datagrams on address.
func NewUDPPoseSource(ctx context.Context, name, address string, logger logging.Logger) (*UDPPoseSource, error) {
	src := &UDPPoseSource{name: name}
	l, err := ListenUDP(ctx, name, address, func(data []byte) error {
		reading, err := DecodePoseMessage(data)
		if err != nil {
			return err
		}
		src.latest.Store(reading)
		return nil
	}, logger)
	if err != nil {
		return nil, err
	}
	src.listener = l
	return src, nil
}

// Name returns the name of the source.
func (src *UDPPoseSource) Name() string {
	return src.name
}

// HasData reports whether any pose was received.
func (src *UDPPoseSource) HasData() bool {
	return src.latest.Seen()
}

// LatestPose returns the newest pose if it has not been read yet.
func (src *UDPPoseSource) LatestPose() (TimedPoseReading, bool) {
	return src.latest.Take()
}

// Addr returns the bound local address.
func (src *UDPPoseSource) Addr() net.Addr {
	return src.listener.Addr()
}

// Close stops the listener.
func (src *UDPPoseSource) Close() error {
	return src.listener.Close()
}

// UDPOccupancySource is an OccupancySource fed by occupancy datagrams.
type UDPOccupancySource struct {
	name     string
	latest   Latest[obstacles.Frame]
	listener *UDPListener
}

// NewUDPOccupancySource listens for occupancy datagrams on address.
func NewUDPOccupancySource(ctx context.Context, name, address string, logger logging.Logger) (*UDPOccupancySource, error) {
	src := &UDPOccupancySource{name: name}
	l, err := ListenUDP(ctx, name, address, func(data []byte) error {
		frame, err := DecodeOccupancyMessage(data)
		if err != nil {
			return err
		}
		src.latest.Store(frame)
		return nil
	}, logger)
	if err != nil {
		return nil, err
	}
	src.listener = l
	return src, nil
}

// Name returns the name of the source.
func (src *UDPOccupancySource) Name() string {
	return src.name
}

// HasData reports whether any frame was received.
func (src *UDPOccupancySource) HasData() bool {
	return src.latest.Seen()
}

// LatestOccupancy returns the newest frame if it has not been read yet.
func (src *UDPOccupancySource) LatestOccupancy() (obstacles.Frame, bool) {
	return src.latest.Take()
}

// Addr returns the bound local address.
func (src *UDPOccupancySource) Addr() net.Addr {
	return src.listener.Addr()
}

// Close stops the listener.
func (src *UDPOccupancySource) Close() error {
	return src.listener.Close()
}
