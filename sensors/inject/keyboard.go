package inject

import (
	s "github.com/viam-modules/viam-localnav/sensors"
)

// Keyboard is an injected Keyboard.
type Keyboard struct {
	s.Keyboard
	ReadKeyFunc func() (rune, bool)
	CloseFunc   func() error
}

// ReadKey calls the injected ReadKey or the real version.
func (k *Keyboard) ReadKey() (rune, bool) {
	if k.ReadKeyFunc == nil {
		return k.Keyboard.ReadKey()
	}
	return k.ReadKeyFunc()
}

// Close calls the injected Close or the real version.
func (k *Keyboard) Close() error {
	if k.CloseFunc == nil {
		return k.Keyboard.Close()
	}
	return k.CloseFunc()
}
