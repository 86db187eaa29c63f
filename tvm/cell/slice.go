package cell

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/tonkit/jetton-deployer/address"
)

// Slice is a reader over cell data, loading moves the cursor, preloading doesn't.
type Slice struct {
	bitsSz   uint
	loadedSz uint
	data     []byte

	refs []*Cell
}

func (c *Slice) MustLoadRef() *Slice {
	r, err := c.LoadRef()
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadRef() (*Slice, error) {
	ref, err := c.LoadRefCell()
	if err != nil {
		return nil, err
	}
	return ref.BeginParse(), nil
}

func (c *Slice) MustLoadRefCell() *Cell {
	r, err := c.LoadRefCell()
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadRefCell() (*Cell, error) {
	if len(c.refs) == 0 {
		return nil, ErrNoMoreRefs
	}
	ref := c.refs[0]
	c.refs = c.refs[1:]

	return ref, nil
}

func (c *Slice) PreloadRefCell() (*Cell, error) {
	if len(c.refs) == 0 {
		return nil, ErrNoMoreRefs
	}
	return c.refs[0], nil
}

func (c *Slice) MustLoadMaybeRef() *Slice {
	r, err := c.LoadMaybeRef()
	if err != nil {
		panic(err)
	}
	return r
}

// LoadMaybeRef returns nil slice when the maybe bit is 0.
func (c *Slice) LoadMaybeRef() (*Slice, error) {
	has, err := c.LoadBoolBit()
	if err != nil {
		return nil, err
	}

	if !has {
		return nil, nil
	}

	return c.LoadRef()
}

func (c *Slice) RefsNum() int {
	return len(c.refs)
}

func (c *Slice) MustLoadCoins() uint64 {
	r, err := c.LoadCoins()
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadCoins() (uint64, error) {
	value, err := c.LoadBigCoins()
	if err != nil {
		return 0, err
	}

	if !value.IsUint64() {
		return 0, ErrTooBigValue
	}
	return value.Uint64(), nil
}

func (c *Slice) MustLoadBigCoins() *big.Int {
	r, err := c.LoadBigCoins()
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadBigCoins() (*big.Int, error) {
	return c.LoadVarUInt(16)
}

func (c *Slice) MustLoadUInt(sz uint) uint64 {
	res, err := c.LoadUInt(sz)
	if err != nil {
		panic(err)
	}
	return res
}

func (c *Slice) LoadUInt(sz uint) (uint64, error) {
	if sz > 64 {
		return 0, ErrTooBigSize
	}

	res, err := c.LoadBigUInt(sz)
	if err != nil {
		return 0, err
	}
	return res.Uint64(), nil
}

func (c *Slice) PreloadUInt(sz uint) (uint64, error) {
	if sz > 64 {
		return 0, ErrTooBigSize
	}

	res, err := c.PreloadBigUInt(sz)
	if err != nil {
		return 0, err
	}
	return res.Uint64(), nil
}

func (c *Slice) MustLoadInt(sz uint) int64 {
	res, err := c.LoadInt(sz)
	if err != nil {
		panic(err)
	}
	return res
}

func (c *Slice) LoadInt(sz uint) (int64, error) {
	if sz > 64 {
		return 0, ErrTooBigSize
	}

	res, err := c.LoadBigInt(sz)
	if err != nil {
		return 0, err
	}
	return res.Int64(), nil
}

func (c *Slice) MustLoadBoolBit() bool {
	r, err := c.LoadBoolBit()
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadBoolBit() (bool, error) {
	res, err := c.LoadUInt(1)
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (c *Slice) MustLoadBigUInt(sz uint) *big.Int {
	r, err := c.LoadBigUInt(sz)
	if err != nil {
		panic(err)
	}
	return r
}

func (c *Slice) LoadBigUInt(sz uint) (*big.Int, error) {
	if sz > 256 {
		return nil, ErrTooBigSize
	}
	return c.loadBigNumber(sz, false)
}

func (c *Slice) PreloadBigUInt(sz uint) (*big.Int, error) {
	if sz > 256 {
		return nil, ErrTooBigSize
	}
	return c.loadBigNumber(sz, true)
}

func (c *Slice) loadBigNumber(sz uint, preload bool) (*big.Int, error) {
	b, err := c.loadSlice(sz, preload)
	if err != nil {
		return nil, err
	}

	// bits are aligned to the left, shift them back
	res := new(big.Int).SetBytes(b)
	return res.Rsh(res, uint(len(b)*8)-sz), nil
}

func (c *Slice) LoadBigInt(sz uint) (*big.Int, error) {
	if sz > 257 {
		return nil, ErrTooBigSize
	}

	u, err := c.loadBigNumber(sz, false)
	if err != nil {
		return nil, err
	}

	if sz > 0 && u.Bit(int(sz-1)) == 1 {
		u.Sub(u, new(big.Int).Lsh(big.NewInt(1), sz))
	}
	return u, nil
}

// LoadVarUInt loads VarUInteger sz: length in bytes followed by the value.
func (c *Slice) LoadVarUInt(sz uint) (*big.Int, error) {
	ln, err := c.LoadUInt(uint(bits.Len(sz - 1)))
	if err != nil {
		return nil, err
	}

	value, err := c.LoadBigUInt(uint(ln * 8))
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (c *Slice) MustLoadSlice(sz uint) []byte {
	s, err := c.LoadSlice(sz)
	if err != nil {
		panic(err)
	}
	return s
}

func (c *Slice) LoadSlice(sz uint) ([]byte, error) {
	return c.loadSlice(sz, false)
}

func (c *Slice) PreloadSlice(sz uint) ([]byte, error) {
	return c.loadSlice(sz, true)
}

// loadSlice returns sz bits aligned to the left of the returned bytes, unused tail bits are zero.
func (c *Slice) loadSlice(sz uint, preload bool) ([]byte, error) {
	if c.BitsLeft() < sz {
		return nil, ErrNotEnoughData(int(c.BitsLeft()), int(sz))
	}

	res := make([]byte, (sz+7)/8)
	if c.loadedSz%8 == 0 {
		copy(res, c.data[c.loadedSz/8:])
		if tail := sz % 8; tail > 0 {
			res[len(res)-1] &= 0xFF << (8 - tail)
		}
	} else {
		for i := uint(0); i < sz; i++ {
			pos := c.loadedSz + i
			if c.data[pos/8]&(1<<(7-pos%8)) != 0 {
				res[i/8] |= 1 << (7 - i%8)
			}
		}
	}

	if !preload {
		c.loadedSz += sz
	}

	return res, nil
}

func (c *Slice) LoadStringSnake() (string, error) {
	a, err := c.LoadBinarySnake()
	if err != nil {
		return "", err
	}
	return string(a), nil
}

// LoadBinarySnake loads the rest of the slice and all the chained refs.
func (c *Slice) LoadBinarySnake() ([]byte, error) {
	var data []byte

	ref := c
	for ref != nil {
		if ref.RefsNum() > 1 {
			return nil, fmt.Errorf("more than one ref, it is not snake string")
		}

		if ref.BitsLeft()%8 != 0 {
			return nil, fmt.Errorf("snake chunk has %d bits, not whole bytes", ref.BitsLeft())
		}

		b, err := ref.LoadSlice(ref.BitsLeft())
		if err != nil {
			return nil, err
		}
		data = append(data, b...)

		if ref.RefsNum() == 1 {
			ref = ref.MustLoadRef()
			continue
		}
		ref = nil
	}

	return data, nil
}

func (c *Slice) MustLoadAddr() *address.Address {
	a, err := c.LoadAddr()
	if err != nil {
		panic(err)
	}
	return a
}

// LoadAddr loads addr_none or addr_std without anycast.
func (c *Slice) LoadAddr() (*address.Address, error) {
	typ, err := c.LoadUInt(2)
	if err != nil {
		return nil, err
	}

	switch typ {
	case 0:
		return address.NewAddressNone(), nil
	case 2:
		anycast, err := c.LoadBoolBit()
		if err != nil {
			return nil, fmt.Errorf("failed to load anycast bit: %w", err)
		}

		if anycast {
			return nil, errors.New("anycast addresses are not supported")
		}

		workchain, err := c.LoadUInt(8)
		if err != nil {
			return nil, fmt.Errorf("failed to load workchain: %w", err)
		}

		data, err := c.LoadSlice(256)
		if err != nil {
			return nil, fmt.Errorf("failed to load address data: %w", err)
		}

		return address.NewAddress(0, byte(workchain), data), nil
	}

	return nil, ErrAddressTypeNotSupported
}

func (c *Slice) MustLoadDict(keySz uint) *Dictionary {
	d, err := c.LoadDict(keySz)
	if err != nil {
		panic(err)
	}
	return d
}

// LoadDict loads HashmapE, absent dictionary is returned as empty one.
func (c *Slice) LoadDict(keySz uint) (*Dictionary, error) {
	root, err := c.LoadMaybeRef()
	if err != nil {
		return nil, fmt.Errorf("failed to load ref for dict, err: %w", err)
	}

	if root == nil {
		return NewDict(keySz), nil
	}

	return root.ToDict(keySz)
}

// ToDict parses the slice as a root of Hashmap with keySz bits keys.
func (c *Slice) ToDict(keySz uint) (*Dictionary, error) {
	d := NewDict(keySz)
	if err := d.mapInner(keySz, keySz, c, BeginCell()); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *Slice) BitsLeft() uint {
	return c.bitsSz - c.loadedSz
}

func (c *Slice) RestBits() (uint, []byte, error) {
	left := c.BitsLeft()
	data, err := c.LoadSlice(left)
	return left, data, err
}

func (c *Slice) MustToCell() *Cell {
	cl, err := c.ToCell()
	if err != nil {
		panic(err)
	}
	return cl
}

// ToCell converts not yet loaded bits and refs to a new cell.
func (c *Slice) ToCell() (*Cell, error) {
	cp := c.Copy()

	sz, data, err := cp.RestBits()
	if err != nil {
		return nil, err
	}

	return newCell(false, sz, data, append([]*Cell{}, cp.refs...)), nil
}

func (c *Slice) ToBuilder() *Builder {
	cl := c.MustToCell()
	return cl.ToBuilder()
}

func (c *Slice) Copy() *Slice {
	return &Slice{
		bitsSz:   c.bitsSz,
		loadedSz: c.loadedSz,
		data:     c.data,
		refs:     c.refs,
	}
}
