package address

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigurn/crc16"
)

type AddrType int

const (
	NoneAddress AddrType = 0
	StdAddress  AddrType = 2
)

const (
	tagBounceable    byte = 0x11
	tagNonBounceable byte = 0x51
	tagTestnet       byte = 0x80
)

var ErrInvalidAddress = errors.New("invalid address")

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

type flags struct {
	bounceable bool
	testnet    bool
}

type Address struct {
	flags     flags
	addrType  AddrType
	workchain int32
	bitsLen   uint
	data      []byte
}

// NewAddress creates std address, flags byte is interpreted
// the same way as the first byte of user-friendly form.
func NewAddress(flags byte, workchain byte, data []byte) *Address {
	return &Address{
		flags:     parseFlags(flags),
		addrType:  StdAddress,
		workchain: int32(int8(workchain)),
		bitsLen:   256,
		data:      data,
	}
}

func NewAddressNone() *Address {
	return &Address{
		addrType: NoneAddress,
	}
}

func (a *Address) String() string {
	switch a.addrType {
	case NoneAddress:
		return "NONE"
	case StdAddress:
		var address [36]byte
		copy(address[0:34], a.prepareChecksumData())
		binary.BigEndian.PutUint16(address[34:], a.Checksum())
		return base64.RawURLEncoding.EncodeToString(address[:])
	default:
		return "NOT_SUPPORTED"
	}
}

// StringRaw returns address in wc:hex form.
func (a *Address) StringRaw() string {
	if a.addrType != StdAddress {
		return a.String()
	}
	return fmt.Sprintf("%d:%s", a.workchain, hex.EncodeToString(a.data))
}

func (a *Address) Checksum() uint16 {
	return crc16.Checksum(a.prepareChecksumData(), crcTable)
}

func (a *Address) prepareChecksumData() []byte {
	var data [34]byte
	data[0] = tagBounceable
	if !a.flags.bounceable {
		data[0] = tagNonBounceable
	}
	if a.flags.testnet {
		data[0] |= tagTestnet
	}
	data[1] = byte(a.workchain)
	copy(data[2:34], a.data)
	return data[:]
}

func (a *Address) Dump() string {
	return fmt.Sprintf("human-readable address: %s isBounceable: %t, isTestnetOnly: %t, data.len: %d", a, a.IsBounceable(), a.IsTestnetOnly(), len(a.data))
}

func (a *Address) SetBounce(bouncable bool) {
	a.flags.bounceable = bouncable
}

func (a *Address) IsBounceable() bool {
	return a.flags.bounceable
}

func (a *Address) SetTestnetOnly(testnetOnly bool) {
	a.flags.testnet = testnetOnly
}

func (a *Address) IsTestnetOnly() bool {
	return a.flags.testnet
}

// Bounce returns a copy of address with the bounce flag set to the given value.
func (a *Address) Bounce(bounce bool) *Address {
	cp := a.Copy()
	cp.flags.bounceable = bounce
	return cp
}

// Testnet returns a copy of address with the testnet flag set to the given value.
func (a *Address) Testnet(testnet bool) *Address {
	cp := a.Copy()
	cp.flags.testnet = testnet
	return cp
}

func (a *Address) Copy() *Address {
	return &Address{
		flags:     a.flags,
		addrType:  a.addrType,
		workchain: a.workchain,
		bitsLen:   a.bitsLen,
		data:      append([]byte{}, a.data...),
	}
}

func (a *Address) Workchain() int32 {
	return a.workchain
}

func (a *Address) Data() []byte {
	return a.data
}

func (a *Address) Type() AddrType {
	return a.addrType
}

func (a *Address) BitsLen() uint {
	return a.bitsLen
}

func (a *Address) IsAddrNone() bool {
	return a.addrType == NoneAddress
}

// Equals compares type, workchain and account id, flags are ignored.
func (a *Address) Equals(b *Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.addrType == b.addrType && a.workchain == b.workchain && string(a.data) == string(b.data)
}

func (a *Address) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

func (a *Address) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("failed to unquote address: %w", err)
	}

	if str == "NONE" {
		*a = *NewAddressNone()
		return nil
	}

	addr, err := ParseAddr(str)
	if err != nil {
		addr, err = ParseRawAddr(str)
		if err != nil {
			return err
		}
	}

	*a = *addr
	return nil
}

func MustParseAddr(addr string) *Address {
	a, err := ParseAddr(addr)
	if err != nil {
		panic(err)
	}
	return a
}

func MustParseRawAddr(addr string) *Address {
	a, err := ParseRawAddr(addr)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAddr parses 48 chars user-friendly address, both url-safe and standard base64 are accepted.
func ParseAddr(addr string) (*Address, error) {
	if len(addr) != 48 {
		return nil, fmt.Errorf("%w: incorrect length %d", ErrInvalidAddress, len(addr))
	}

	data, err := base64.URLEncoding.DecodeString(addr)
	if err != nil {
		data, err = base64.StdEncoding.DecodeString(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: not a base64 string", ErrInvalidAddress)
		}
	}

	if len(data) != 36 {
		return nil, fmt.Errorf("%w: incorrect data length %d", ErrInvalidAddress, len(data))
	}

	if tag := data[0] &^ tagTestnet; tag != tagBounceable && tag != tagNonBounceable {
		return nil, fmt.Errorf("%w: unknown tag %x", ErrInvalidAddress, data[0])
	}

	a := NewAddress(data[0], data[1], append([]byte{}, data[2:34]...))

	if a.Checksum() != binary.BigEndian.Uint16(data[34:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	return a, nil
}

// ParseRawAddr parses address in wc:hex form.
func ParseRawAddr(addr string) (*Address, error) {
	idx := strings.IndexByte(addr, ':')
	if idx <= 0 {
		return nil, fmt.Errorf("%w: workchain separator not found", ErrInvalidAddress)
	}

	wc, err := strconv.ParseInt(addr[:idx], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: incorrect workchain: %v", ErrInvalidAddress, err)
	}

	data, err := hex.DecodeString(addr[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: incorrect account id: %v", ErrInvalidAddress, err)
	}

	if len(data) != 32 {
		return nil, fmt.Errorf("%w: account id should be 32 bytes, got %d", ErrInvalidAddress, len(data))
	}

	return NewAddress(0, byte(wc), data), nil
}

func parseFlags(data byte) flags {
	return flags{
		bounceable: !hasBit(data, 6),
		testnet:    hasBit(data, 7),
	}
}
