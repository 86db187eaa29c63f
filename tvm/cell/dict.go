package cell

import (
	"bytes"
	"errors"
	"fmt"
	"math/bits"
	"sort"
)

var ErrIncorrectKeySize = errors.New("incorrect key size")

// Dictionary is HashmapE with fixed size keys. Items are kept ordered by key,
// so serialized form does not depend on the order of insertion.
type Dictionary struct {
	keySz uint
	items []dictItem
}

type dictItem struct {
	key []byte
	kv  *HashmapKV
}

type HashmapKV struct {
	Key   *Cell
	Value *Cell
}

func NewDict(keySz uint) *Dictionary {
	return &Dictionary{
		keySz: keySz,
	}
}

func (d *Dictionary) KeySize() uint {
	return d.keySz
}

func (d *Dictionary) IsEmpty() bool {
	return len(d.items) == 0
}

func (d *Dictionary) Size() int {
	return len(d.items)
}

func (d *Dictionary) keyBytes(key *Cell) ([]byte, error) {
	if key.BitsSize() != d.keySz {
		return nil, fmt.Errorf("%w: expected %d bits, got %d", ErrIncorrectKeySize, d.keySz, key.BitsSize())
	}
	return key.BeginParse().MustLoadSlice(d.keySz), nil
}

// search returns position of the key, or position to insert it if not found.
func (d *Dictionary) search(key []byte) (int, bool) {
	i := sort.Search(len(d.items), func(i int) bool {
		return bytes.Compare(d.items[i].key, key) >= 0
	})
	return i, i < len(d.items) && bytes.Equal(d.items[i].key, key)
}

func (d *Dictionary) MustSet(key, value *Cell) *Dictionary {
	err := d.Set(key, value)
	if err != nil {
		panic(err)
	}
	return d
}

// Set puts value under the key, nil value deletes the key.
func (d *Dictionary) Set(key, value *Cell) error {
	if value == nil {
		return d.Delete(key)
	}

	data, err := d.keyBytes(key)
	if err != nil {
		return err
	}

	kv := &HashmapKV{Key: key, Value: value}

	i, found := d.search(data)
	if found {
		d.items[i].kv = kv
		return nil
	}

	d.items = append(d.items, dictItem{})
	copy(d.items[i+1:], d.items[i:])
	d.items[i] = dictItem{key: data, kv: kv}
	return nil
}

func (d *Dictionary) Delete(key *Cell) error {
	data, err := d.keyBytes(key)
	if err != nil {
		return err
	}

	if i, found := d.search(data); found {
		d.items = append(d.items[:i], d.items[i+1:]...)
	}
	return nil
}

// Get returns value stored under the key, or nil when it is absent.
func (d *Dictionary) Get(key *Cell) *Cell {
	data, err := d.keyBytes(key)
	if err != nil {
		return nil
	}

	i, found := d.search(data)
	if !found {
		return nil
	}
	return d.items[i].kv.Value
}

// All returns items ordered by key.
func (d *Dictionary) All() []*HashmapKV {
	all := make([]*HashmapKV, 0, len(d.items))
	for _, item := range d.items {
		all = append(all, item.kv)
	}
	return all
}

// ToCell serializes dictionary as Hashmap root, nil is returned for the empty one.
func (d *Dictionary) ToCell() (*Cell, error) {
	if d.IsEmpty() {
		return nil, nil
	}

	b, err := d.serialize(d.items, 0)
	if err != nil {
		return nil, err
	}
	return b.EndCell(), nil
}

// serialize builds a node for items which share first offset bits of the key.
func (d *Dictionary) serialize(items []dictItem, offset uint) (*Builder, error) {
	leftSz := d.keySz - offset

	if len(items) == 1 {
		b := BeginCell()
		if err := storeLabel(b, items[0].key, offset, leftSz, leftSz); err != nil {
			return nil, fmt.Errorf("failed to store label: %w", err)
		}

		if err := b.StoreBuilder(items[0].kv.Value.ToBuilder()); err != nil {
			return nil, fmt.Errorf("failed to store value: %w", err)
		}
		return b, nil
	}

	// items are sorted, so the common prefix of all of them is the one of the first and the last
	first, last := items[0].key, items[len(items)-1].key
	prefix := uint(0)
	for getBit(first, offset+prefix) == getBit(last, offset+prefix) {
		prefix++
	}

	b := BeginCell()
	if err := storeLabel(b, first, offset, prefix, leftSz); err != nil {
		return nil, fmt.Errorf("failed to store label: %w", err)
	}

	pos := offset + prefix
	split := sort.Search(len(items), func(i int) bool {
		return getBit(items[i].key, pos)
	})

	for _, branch := range [][]dictItem{items[:split], items[split:]} {
		nb, err := d.serialize(branch, pos+1)
		if err != nil {
			return nil, err
		}

		if err = b.StoreRef(nb.EndCell()); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// storeLabel writes ln bits of key starting from offset, choosing the shortest of
// hml_short, hml_long and hml_same the same way the node does.
func storeLabel(b *Builder, key []byte, offset, ln, maxLen uint) error {
	k := uint(bits.Len(maxLen))

	same := ln > 0
	for i := uint(1); i < ln && same; i++ {
		same = getBit(key, offset+i) == getBit(key, offset)
	}

	if same {
		if ln > 1 && k < 2*ln-1 {
			// hml_same$11 v:Bit n:(#<= m)
			b.MustStoreUInt(0b11, 2)
			b.MustStoreBoolBit(getBit(key, offset))
			return b.StoreUInt(uint64(ln), k)
		}
	}

	if k < ln {
		// hml_long$10 n:(#<= m) s:(n * Bit)
		b.MustStoreUInt(0b10, 2)
		if err := b.StoreUInt(uint64(ln), k); err != nil {
			return err
		}
		return storeKeyBits(b, key, offset, ln)
	}

	// hml_short$0 len:(Unary ~n) s:(n * Bit)
	if b.BitsLeft() < 2+2*ln {
		return ErrNotFit1023
	}

	b.MustStoreUInt(0, 1)
	for i := uint(0); i < ln; i++ {
		b.MustStoreUInt(1, 1)
	}
	b.MustStoreUInt(0, 1)
	return storeKeyBits(b, key, offset, ln)
}

func storeKeyBits(b *Builder, key []byte, offset, ln uint) error {
	for i := uint(0); i < ln; i++ {
		if err := b.StoreBoolBit(getBit(key, offset+i)); err != nil {
			return err
		}
	}
	return nil
}

func getBit(data []byte, pos uint) bool {
	return data[pos/8]&(1<<(7-pos%8)) != 0
}

func (d *Dictionary) mapInner(keySz, leftKeySz uint, loader *Slice, keyPrefix *Builder) error {
	var err error
	var sz uint

	sz, keyPrefix, err = loadLabel(leftKeySz, loader, keyPrefix)
	if err != nil {
		return err
	}

	if sz > leftKeySz {
		return fmt.Errorf("label of %d bits is longer than key left %d", sz, leftKeySz)
	}

	// until key size is not equals we go deeper
	if keyPrefix.BitsUsed() < keySz {
		for bit := uint64(0); bit <= 1; bit++ {
			branch, err := loader.LoadRef()
			if err != nil {
				return fmt.Errorf("failed to load fork branch %d: %w", bit, err)
			}

			err = d.mapInner(keySz, leftKeySz-(1+sz), branch, keyPrefix.Copy().MustStoreUInt(bit, 1))
			if err != nil {
				return err
			}
		}
		return nil
	}

	value, err := loader.ToCell()
	if err != nil {
		return err
	}

	return d.Set(keyPrefix.EndCell(), value)
}

func loadLabel(sz uint, loader *Slice, key *Builder) (uint, *Builder, error) {
	first, err := loader.LoadBoolBit()
	if err != nil {
		return 0, nil, err
	}

	// hml_short$0
	if !first {
		// Unary, while 1, add to ln
		ln := uint(0)
		for {
			bit, err := loader.LoadBoolBit()
			if err != nil {
				return 0, nil, err
			}

			if !bit {
				break
			}
			ln++
		}

		keyBits, err := loader.LoadSlice(ln)
		if err != nil {
			return 0, nil, err
		}

		if err = key.StoreSlice(keyBits, ln); err != nil {
			return 0, nil, err
		}
		return ln, key, nil
	}

	second, err := loader.LoadBoolBit()
	if err != nil {
		return 0, nil, err
	}

	bitsLen := uint(bits.Len(sz))

	// hml_long$10
	if !second {
		ln, err := loader.LoadUInt(bitsLen)
		if err != nil {
			return 0, nil, err
		}

		keyBits, err := loader.LoadSlice(uint(ln))
		if err != nil {
			return 0, nil, err
		}

		if err = key.StoreSlice(keyBits, uint(ln)); err != nil {
			return 0, nil, err
		}
		return uint(ln), key, nil
	}

	// hml_same$11
	bitType, err := loader.LoadBoolBit()
	if err != nil {
		return 0, nil, err
	}

	ln, err := loader.LoadUInt(bitsLen)
	if err != nil {
		return 0, nil, err
	}

	fill := byte(0x00)
	if bitType {
		fill = 0xFF
	}

	if err = key.StoreSlice(bytes.Repeat([]byte{fill}, int(ln+7)/8), uint(ln)); err != nil {
		return 0, nil, err
	}
	return uint(ln), key, nil
}
