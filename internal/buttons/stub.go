//go:build !linux

package buttons

import "errors"

// RealInput is not available on non-Linux platforms.
type RealInput struct{}

// NewRealInput returns an error on non-Linux platforms.
func NewRealInput(pinDown, pinToggle, pinUp int) (*RealInput, error) {
	return nil, errors.New("buttons: not supported on this platform (requires Linux)")
}

// Poll is not implemented on non-Linux platforms.
func (in *RealInput) Poll() []Edge { return nil }

// Close is not implemented on non-Linux platforms.
func (in *RealInput) Close() error { return nil }
