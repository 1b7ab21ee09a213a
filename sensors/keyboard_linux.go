//go:build linux

package sensors

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"golang.org/x/sys/unix"
)

// TerminalKeyboard reads single key presses from a terminal on stdin in cbreak mode.
type TerminalKeyboard struct {
	fd     int
	old    *unix.Termios
	keys   chan rune
	logger logging.Logger
}

// NewTerminalKeyboard switches stdin to cbreak mode and starts reading keys. Close
// restores the previous terminal settings.
func NewTerminalKeyboard(logger logging.Logger) (*TerminalKeyboard, error) {
	fd := int(os.Stdin.Fd())
	old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, errors.Wrap(err, "keyboard: get termios")
	}

	termios := *old
	termios.Lflag &^= unix.ICANON | unix.ECHO
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &termios); err != nil {
		return nil, errors.Wrap(err, "keyboard: set termios")
	}

	k := &TerminalKeyboard{
		fd:     fd,
		old:    old,
		keys:   make(chan rune, 16),
		logger: logger,
	}
	// the reader blocks on stdin for the life of the process
	go k.read(bufio.NewReader(os.Stdin))
	return k, nil
}

func (k *TerminalKeyboard) read(r *bufio.Reader) {
	for {
		c, _, err := r.ReadRune()
		if err != nil {
			k.logger.Debugw("keyboard reader stopped", "error", err)
			return
		}
		select {
		case k.keys <- c:
		default:
			// keys pressed faster than the loop polls are dropped
		}
	}
}

// ReadKey returns a pending key press, if any.
func (k *TerminalKeyboard) ReadKey() (rune, bool) {
	select {
	case c := <-k.keys:
		return c, true
	default:
		return 0, false
	}
}

// Close restores the terminal.
func (k *TerminalKeyboard) Close() error {
	if err := unix.IoctlSetTermios(k.fd, unix.TCSETS, k.old); err != nil {
		return errors.Wrap(err, "keyboard: restore termios")
	}
	return nil
}
