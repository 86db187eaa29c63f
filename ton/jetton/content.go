package jetton

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/tonkit/jetton-deployer/tlb"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

const (
	OnchainContentPrefix  = 0x00
	OffchainContentPrefix = 0x01
	SnakePrefix           = 0x00

	// MaxValueLen is the number of bytes which fit into a single
	// value cell after the snake prefix.
	MaxValueLen = (1023 - 8) / 8
)

const (
	KeyName        = "name"
	KeyDescription = "description"
	KeyImage       = "image"
	KeySymbol      = "symbol"
)

type valueEncoding int

const (
	encodingUTF8 valueEncoding = iota
	encodingASCII
)

var keyEncodings = map[string]valueEncoding{
	KeyName:        encodingUTF8,
	KeyDescription: encodingUTF8,
	KeyImage:       encodingASCII,
	KeySymbol:      encodingUTF8,
}

// Keys lists metadata keys known to the codec.
var Keys = []string{KeyName, KeyDescription, KeyImage, KeySymbol}

// Metadata maps known keys to values, empty values are treated as absent.
type Metadata map[string]string

type offchainContent struct {
	_   tlb.Magic       `tlb:"#01"`
	URI tlb.StringSnake `tlb:"."`
}

// KeyDigest returns 256-bit dictionary key of the metadata key.
func KeyDigest(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}

// Encode builds on-chain content cell: prefix byte and the dictionary of
// key digests to value cells. Result doesn't depend on the map iteration order.
func Encode(m Metadata) (*cell.Cell, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dict := cell.NewDict(256)
	for _, key := range keys {
		enc, ok := keyEncodings[key]
		if !ok {
			return nil, &UnsupportedKeyError{Key: key}
		}

		value := m[key]
		if value == "" {
			continue
		}

		if err := validateValue(key, enc, []byte(value)); err != nil {
			return nil, err
		}

		if err := setOnchainVal(dict, key, []byte(value)); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", key, err)
		}
	}

	b := cell.BeginCell().MustStoreUInt(OnchainContentPrefix, 8)
	if err := b.StoreDict(dict); err != nil {
		return nil, fmt.Errorf("failed to store dictionary: %w", err)
	}
	return b.EndCell(), nil
}

func MustEncode(m Metadata) *cell.Cell {
	c, err := Encode(m)
	if err != nil {
		panic(err)
	}
	return c
}

// Decode parses on-chain content cell. Entries of unknown keys are ignored,
// absent keys are omitted from the result.
func Decode(c *cell.Cell) (Metadata, error) {
	if c == nil {
		return nil, &MalformedContentError{Reason: "content cell is nil"}
	}

	s := c.BeginParse()

	prefix, err := s.LoadUInt(8)
	if err != nil {
		return nil, &MalformedContentError{Reason: "failed to load prefix", Err: err}
	}

	if prefix != OnchainContentPrefix {
		return nil, &MalformedContentError{Reason: fmt.Sprintf("unexpected content prefix 0x%02x", prefix)}
	}

	dict, err := s.LoadDict(256)
	if err != nil {
		return nil, &MalformedContentError{Reason: "failed to load dictionary", Err: err}
	}

	m := Metadata{}
	for _, key := range Keys {
		data, err := getOnchainVal(dict, key)
		if err != nil {
			return nil, &MalformedContentError{Reason: "entry " + key, Err: err}
		}

		if data == nil {
			continue
		}

		if err = validateValue(key, keyEncodings[key], data); err != nil {
			return nil, &MalformedContentError{Reason: "entry " + key, Err: err}
		}
		m[key] = string(data)
	}

	return m, nil
}

// EncodeOffchain builds content cell which points to the metadata hosted at uri.
func EncodeOffchain(uri string) (*cell.Cell, error) {
	if uri == "" {
		return nil, &ValueError{Key: "uri", Reason: "should not be empty"}
	}

	c, err := tlb.ToCell(offchainContent{URI: tlb.StringSnake{Value: uri}})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize off-chain content: %w", err)
	}
	return c, nil
}

func DecodeOffchain(c *cell.Cell) (string, error) {
	if c == nil {
		return "", &MalformedContentError{Reason: "content cell is nil"}
	}

	var content offchainContent
	if err := tlb.LoadFromCell(&content, c.BeginParse()); err != nil {
		return "", &MalformedContentError{Reason: "not an off-chain content", Err: err}
	}
	return content.URI.Value, nil
}

func validateValue(key string, enc valueEncoding, data []byte) error {
	if len(data) > MaxValueLen {
		return &ValueError{Key: key, Reason: fmt.Sprintf("%d bytes is longer than %d", len(data), MaxValueLen)}
	}

	switch enc {
	case encodingASCII:
		for _, c := range data {
			if c >= utf8.RuneSelf {
				return &ValueError{Key: key, Reason: "only ascii characters are allowed"}
			}
		}
	case encodingUTF8:
		if !utf8.Valid(data) {
			return &ValueError{Key: key, Reason: "not a valid utf8 text"}
		}
	}
	return nil
}

func digestCell(key string) *cell.Cell {
	return cell.BeginCell().MustStoreSlice(KeyDigest(key), 256).EndCell()
}

// getOnchainVal returns nil without error when there is no such key.
func getOnchainVal(dict *cell.Dictionary, key string) ([]byte, error) {
	val := dict.Get(digestCell(key))
	if val == nil {
		return nil, nil
	}

	v, err := val.BeginParse().LoadRef()
	if err != nil {
		return nil, fmt.Errorf("failed to load value ref: %w", err)
	}

	typ, err := v.LoadUInt(8)
	if err != nil {
		return nil, fmt.Errorf("failed to load value prefix: %w", err)
	}

	if typ != SnakePrefix {
		return nil, fmt.Errorf("unexpected value prefix 0x%02x", typ)
	}

	if v.RefsNum() > 0 {
		return nil, errors.New("chunked values are not supported")
	}

	if v.BitsLeft()%8 != 0 {
		return nil, fmt.Errorf("value has %d bits, not whole bytes", v.BitsLeft())
	}

	data, err := v.LoadSlice(v.BitsLeft())
	if err != nil {
		return nil, err
	}
	return data, nil
}

func setOnchainVal(dict *cell.Dictionary, key string, val []byte) error {
	v := cell.BeginCell().MustStoreUInt(SnakePrefix, 8)
	if err := v.StoreSlice(val, uint(len(val))*8); err != nil {
		return err
	}

	return dict.Set(digestCell(key), cell.BeginCell().MustStoreRef(v.EndCell()).EndCell())
}
