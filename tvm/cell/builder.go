package cell

import (
	"encoding/binary"
	"math/big"

	"github.com/tonkit/jetton-deployer/address"
)

type Builder struct {
	bitsSz uint
	data   []byte

	refs []*Cell
}

func BeginCell() *Builder {
	return &Builder{}
}

func (b *Builder) MustStoreCoins(value uint64) *Builder {
	err := b.StoreCoins(value)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreCoins(value uint64) error {
	return b.StoreBigCoins(new(big.Int).SetUint64(value))
}

func (b *Builder) MustStoreBigCoins(value *big.Int) *Builder {
	err := b.StoreBigCoins(value)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreBigCoins stores value as VarUInteger 16: 4 bits of length in bytes, then the value itself.
func (b *Builder) StoreBigCoins(value *big.Int) error {
	if value.Sign() < 0 {
		return ErrNegative
	}

	ln := uint((value.BitLen() + 7) >> 3)
	if ln >= 16 {
		return ErrTooBigValue
	}

	if b.bitsSz+4+(ln*8) >= 1024 {
		return ErrNotFit1023
	}

	err := b.StoreUInt(uint64(ln), 4)
	if err != nil {
		return err
	}

	return b.StoreBigUInt(value, ln*8)
}

func (b *Builder) MustStoreUInt(value uint64, sz uint) *Builder {
	err := b.StoreUInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreUInt(value uint64, sz uint) error {
	if sz > 64 {
		return b.StoreBigUInt(new(big.Int).SetUint64(value), sz)
	}

	if sz < 64 && value>>sz != 0 {
		return ErrTooBigValue
	}

	if b.bitsSz+sz >= 1024 {
		return ErrNotFit1023
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value<<(64-sz))

	return b.StoreSlice(buf[:], sz)
}

func (b *Builder) MustStoreInt(value int64, sz uint) *Builder {
	err := b.StoreInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreInt(value int64, sz uint) error {
	return b.StoreBigInt(big.NewInt(value), sz)
}

func (b *Builder) MustStoreBoolBit(value bool) *Builder {
	err := b.StoreBoolBit(value)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBoolBit(value bool) error {
	var i uint64
	if value {
		i = 1
	}
	return b.StoreUInt(i, 1)
}

func (b *Builder) MustStoreBigUInt(value *big.Int, sz uint) *Builder {
	err := b.StoreBigUInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBigUInt(value *big.Int, sz uint) error {
	if value.Sign() < 0 {
		return ErrNegative
	}

	if sz > 256 {
		return ErrTooBigSize
	}

	if value.BitLen() > int(sz) {
		return ErrTooBigValue
	}

	return b.storeBig(value, sz)
}

// storeBig writes non-negative value which is known to fit into sz bits.
func (b *Builder) storeBig(value *big.Int, sz uint) error {
	if sz == 0 {
		return nil
	}

	if b.bitsSz+sz >= 1024 {
		return ErrNotFit1023
	}

	buf := make([]byte, (sz+7)/8)
	// shift to have the value aligned to the left side of the buffer
	new(big.Int).Lsh(value, uint(len(buf)*8)-sz).FillBytes(buf)

	return b.StoreSlice(buf, sz)
}

func (b *Builder) MustStoreBigInt(value *big.Int, sz uint) *Builder {
	err := b.StoreBigInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreBigInt stores value in two's complement form.
func (b *Builder) StoreBigInt(value *big.Int, sz uint) error {
	if sz > 257 {
		return ErrTooBigSize
	}

	if sz == 0 {
		if value.Sign() != 0 {
			return ErrTooBigValue
		}
		return nil
	}

	limit := new(big.Int).Lsh(big.NewInt(1), sz-1)
	if value.Cmp(limit) >= 0 || value.Cmp(new(big.Int).Neg(limit)) < 0 {
		return ErrTooBigValue
	}

	if value.Sign() < 0 {
		value = new(big.Int).Add(value, new(big.Int).Lsh(limit, 1))
	}

	return b.storeBig(value, sz)
}

func (b *Builder) MustStoreAddr(addr *address.Address) *Builder {
	err := b.StoreAddr(addr)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreAddr stores addr_none for nil or none address, addr_std otherwise.
func (b *Builder) StoreAddr(addr *address.Address) error {
	if addr == nil || addr.IsAddrNone() {
		return b.StoreUInt(0, 2)
	}

	if addr.Type() != address.StdAddress {
		return ErrAddressTypeNotSupported
	}

	if addr.Workchain() < -128 || addr.Workchain() > 127 {
		return ErrTooBigValue
	}

	if len(addr.Data()) != 32 {
		return ErrSmallSlice
	}

	if b.bitsSz+267 >= 1024 {
		return ErrNotFit1023
	}

	// addr_std$10, without anycast
	b.MustStoreUInt(0b100, 3)
	b.MustStoreInt(int64(addr.Workchain()), 8)
	return b.StoreSlice(addr.Data(), 256)
}

func (b *Builder) MustStoreDict(dict *Dictionary) *Builder {
	err := b.StoreDict(dict)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreDict stores dictionary as HashmapE, empty or nil dictionary is a single 0 bit.
func (b *Builder) StoreDict(dict *Dictionary) error {
	if dict == nil || dict.IsEmpty() {
		return b.StoreMaybeRef(nil)
	}

	c, err := dict.ToCell()
	if err != nil {
		return err
	}

	return b.StoreMaybeRef(c)
}

func (b *Builder) MustStoreMaybeRef(ref *Cell) *Builder {
	err := b.StoreMaybeRef(ref)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreMaybeRef(ref *Cell) error {
	if ref == nil {
		return b.StoreUInt(0, 1)
	}

	if len(b.refs) >= 4 {
		return ErrTooMuchRefs
	}

	if b.bitsSz+1 >= 1024 {
		return ErrNotFit1023
	}

	b.MustStoreUInt(1, 1)
	return b.StoreRef(ref)
}

func (b *Builder) MustStoreRef(ref *Cell) *Builder {
	err := b.StoreRef(ref)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreRef(ref *Cell) error {
	if len(b.refs) >= 4 {
		return ErrTooMuchRefs
	}

	if ref == nil {
		return ErrRefCannotBeNil
	}

	b.refs = append(b.refs, ref)

	return nil
}

func (b *Builder) MustStoreSlice(bytes []byte, sz uint) *Builder {
	err := b.StoreSlice(bytes, sz)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreSlice appends first sz bits of bytes.
func (b *Builder) StoreSlice(bytes []byte, sz uint) error {
	if sz == 0 {
		return nil
	}

	if uint(len(bytes))*8 < sz {
		return ErrSmallSlice
	}

	if b.bitsSz+sz >= 1024 {
		return ErrNotFit1023
	}

	unusedBits := 8 - (b.bitsSz % 8)

	leftSz := sz
	for i := 0; leftSz > 0; i++ {
		bits := uint(8)
		if leftSz < 8 {
			bits = leftSz
		}
		leftSz -= bits

		// drop bits which are not part of the stored slice
		v := bytes[i] & (0xFF << (8 - bits))

		if unusedBits == 8 {
			b.data = append(b.data, v)
			continue
		}

		b.data[len(b.data)-1] |= v >> (8 - unusedBits)
		if bits > unusedBits {
			b.data = append(b.data, v<<unusedBits)
		}
	}

	b.bitsSz += sz

	return nil
}

func (b *Builder) MustStoreStringSnake(str string) *Builder {
	err := b.StoreStringSnake(str)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) MustStoreBinarySnake(data []byte) *Builder {
	err := b.StoreBinarySnake(data)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreStringSnake(str string) error {
	return b.StoreBinarySnake([]byte(str))
}

// StoreBinarySnake stores data inline as much as fits into the first chunk,
// the rest goes to the chain of refs, 127 bytes per cell.
func (b *Builder) StoreBinarySnake(data []byte) error {
	var f func(space int) (*Builder, error)
	f = func(space int) (*Builder, error) {
		if len(data) < space {
			space = len(data)
		}

		c := BeginCell()
		err := c.StoreSlice(data, uint(space)*8)
		if err != nil {
			return nil, err
		}

		data = data[space:]

		if len(data) > 0 {
			ref, err := f(127)
			if err != nil {
				return nil, err
			}

			err = c.StoreRef(ref.EndCell())
			if err != nil {
				return nil, err
			}
		}

		return c, nil
	}

	snake, err := f(127 - 4)
	if err != nil {
		return err
	}

	return b.StoreBuilder(snake)
}

func (b *Builder) MustStoreBuilder(builder *Builder) *Builder {
	err := b.StoreBuilder(builder)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreBuilder appends bits and refs of another builder.
func (b *Builder) StoreBuilder(builder *Builder) error {
	if len(b.refs)+len(builder.refs) > 4 {
		return ErrTooMuchRefs
	}

	if b.bitsSz+builder.bitsSz >= 1024 {
		return ErrNotFit1023
	}

	b.refs = append(b.refs, builder.refs...)
	b.MustStoreSlice(builder.data, builder.bitsSz)
	return nil
}

func (b *Builder) RefsUsed() int {
	return len(b.refs)
}

func (b *Builder) BitsUsed() uint {
	return b.bitsSz
}

func (b *Builder) BitsLeft() uint {
	return 1023 - b.bitsSz
}

func (b *Builder) RefsLeft() uint {
	return 4 - uint(len(b.refs))
}

func (b *Builder) Copy() *Builder {
	return &Builder{
		bitsSz: b.bitsSz,
		data:   append([]byte{}, b.data...),
		refs:   append([]*Cell{}, b.refs...),
	}
}

// EndCell finalizes builder into immutable cell, builder can still be used after.
func (b *Builder) EndCell() *Cell {
	return newCell(false, b.bitsSz, append([]byte{}, b.data...), append([]*Cell{}, b.refs...))
}
