package jetton

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedKey   = errors.New("unsupported metadata key")
	ErrMalformedContent = errors.New("malformed content")
	ErrInvalidValue     = errors.New("invalid metadata value")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrTransport        = errors.New("chain data provider failure")
	ErrNegativeAmount   = errors.New("amount should not be negative")
	ErrNoTemplate       = errors.New("contract template is not loaded")
)

// UnsupportedKeyError is returned by Encode when metadata has a key
// outside of the known set.
type UnsupportedKeyError struct {
	Key string
}

func (e *UnsupportedKeyError) Error() string {
	return fmt.Sprintf("unsupported metadata key %q", e.Key)
}

func (e *UnsupportedKeyError) Is(target error) bool {
	return target == ErrUnsupportedKey
}

// MalformedContentError is returned by Decode when the cell layout is not
// the one produced by Encode.
type MalformedContentError struct {
	Reason string
	Err    error
}

func (e *MalformedContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed content: %s: %v", e.Reason, e.Err)
	}
	return "malformed content: " + e.Reason
}

func (e *MalformedContentError) Is(target error) bool {
	return target == ErrMalformedContent
}

func (e *MalformedContentError) Unwrap() error {
	return e.Err
}

type ValueError struct {
	Key    string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid value of %q: %s", e.Key, e.Reason)
}

func (e *ValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

type InvalidAddressError struct {
	Address string
	Err     error
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %v", e.Address, e.Err)
}

func (e *InvalidAddressError) Is(target error) bool {
	return target == ErrInvalidAddress
}

func (e *InvalidAddressError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure of the chain data provider,
// retry policy is up to the caller.
type TransportError struct {
	Address string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to check state of %s: %v", e.Address, e.Err)
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
