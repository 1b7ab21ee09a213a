//go:build !linux

package sensors

import (
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

// TerminalKeyboard is only available on linux.
type TerminalKeyboard struct{}

// NewTerminalKeyboard always fails on this platform.
func NewTerminalKeyboard(logger logging.Logger) (*TerminalKeyboard, error) {
	return nil, errors.New("keyboard control is only supported on linux")
}

// ReadKey never returns a key.
func (k *TerminalKeyboard) ReadKey() (rune, bool) {
	return 0, false
}

// Close does nothing.
func (k *TerminalKeyboard) Close() error {
	return nil
}
