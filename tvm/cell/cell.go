package cell

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Cell is an immutable node of a cell tree, hash and depth are computed once on creation.
type Cell struct {
	special bool
	bitsSz  uint
	data    []byte

	refs []*Cell

	depth uint16
	hash  []byte
}

func newCell(special bool, bitsSz uint, data []byte, refs []*Cell) *Cell {
	c := &Cell{
		special: special,
		bitsSz:  bitsSz,
		data:    data,
		refs:    refs,
	}
	c.calculateHashes()
	return c
}

func (c *Cell) BeginParse() *Slice {
	return &Slice{
		bitsSz: c.bitsSz,
		data:   c.data,
		refs:   c.refs,
	}
}

func (c *Cell) ToBuilder() *Builder {
	return &Builder{
		bitsSz: c.bitsSz,
		data:   append([]byte{}, c.data...),
		refs:   append([]*Cell{}, c.refs...),
	}
}

func (c *Cell) BitsSize() uint {
	return c.bitsSz
}

func (c *Cell) RefsNum() uint {
	return uint(len(c.refs))
}

func (c *Cell) IsSpecial() bool {
	return c.special
}

// Hash returns representation hash of the cell.
func (c *Cell) Hash() []byte {
	return append([]byte{}, c.hash...)
}

func (c *Cell) Depth() uint16 {
	return c.depth
}

func (c *Cell) calculateHashes() {
	for _, ref := range c.refs {
		if ref.depth+1 > c.depth {
			c.depth = ref.depth + 1
		}
	}

	h := sha256.New()
	h.Write(c.descriptors())
	h.Write(c.paddedData())
	for _, ref := range c.refs {
		var d [2]byte
		binary.BigEndian.PutUint16(d[:], ref.depth)
		h.Write(d[:])
	}
	for _, ref := range c.refs {
		h.Write(ref.hash)
	}
	c.hash = h.Sum(nil)
}

func (c *Cell) descriptors() []byte {
	d1 := byte(len(c.refs))
	if c.special {
		d1 |= 8
	}
	d2 := byte(c.bitsSz/8) + byte((c.bitsSz+7)/8)
	return []byte{d1, d2}
}

// paddedData returns cell data with completion tag when bits are not byte aligned.
func (c *Cell) paddedData() []byte {
	data := append([]byte{}, c.data...)
	if c.bitsSz%8 != 0 {
		data[len(data)-1] |= 1 << (7 - c.bitsSz%8)
	}
	return data
}

func (c *Cell) Dump() string {
	return c.dump(0, false)
}

func (c *Cell) DumpBits() string {
	return c.dump(0, true)
}

func (c *Cell) dump(deep int, bin bool) string {
	var val string
	if bin {
		for _, n := range c.data {
			val += fmt.Sprintf("%08b", n)
		}
		val = val[:c.bitsSz]
	} else {
		val = strings.ToUpper(hex.EncodeToString(c.data))
	}

	str := strings.Repeat("  ", deep) + fmt.Sprint(c.bitsSz) + "[" + val + "]"
	if len(c.refs) > 0 {
		str += " -> {"
		for i, ref := range c.refs {
			str += "\n" + ref.dump(deep+1, bin)
			if i == len(c.refs)-1 {
				str += "\n"
			} else {
				str += ","
			}
		}
		str += strings.Repeat("  ", deep)
		return str + "}"
	}
	return str
}

// MarshalJSON encodes cell as base64 BOC string.
func (c *Cell) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(base64.StdEncoding.EncodeToString(c.ToBOC()))), nil
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("failed to unquote cell: %w", err)
	}

	boc, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return fmt.Errorf("failed to decode base64 boc: %w", err)
	}

	cl, err := FromBOC(boc)
	if err != nil {
		return err
	}

	*c = *cl
	return nil
}
