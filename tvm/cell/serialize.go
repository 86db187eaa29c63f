package cell

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math/bits"
)

var ErrTooBigValue = errors.New("too big value")
var ErrNegative = errors.New("value should be non negative")
var ErrSmallSlice = errors.New("too small slice for this size")
var ErrTooBigSize = errors.New("too big size")
var ErrTooMuchRefs = errors.New("too much refs")
var ErrNotFit1023 = errors.New("cell data size should fit into 1023 bits")
var ErrNoMoreRefs = errors.New("no more refs exists")
var ErrRefCannotBeNil = errors.New("ref cannot be nil")
var ErrAddressTypeNotSupported = errors.New("address type is not supported")

var bocMagic = []byte{0xb5, 0xee, 0x9c, 0x72}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

func (c *Cell) ToBOC() []byte {
	return c.ToBOCWithFlags(true)
}

// ToBOCWithFlags serializes cell tree as a single root bag of cells, identical cells are stored once.
func (c *Cell) ToBOCWithFlags(withCRC bool) []byte {
	orderCells := flattenIndex(c)

	index := make(map[string]int, len(orderCells))
	for i, cl := range orderCells {
		index[string(cl.hash)] = i
	}

	cellSizeBytes := bytesFor(uint64(len(orderCells)))

	var payload []byte
	for _, cl := range orderCells {
		payload = append(payload, cl.descriptors()...)
		payload = append(payload, cl.paddedData()...)
		for _, ref := range cl.refs {
			payload = append(payload, dynamicIntBytes(uint64(index[string(ref.hash)]), cellSizeBytes)...)
		}
	}

	sizeBytes := bytesFor(uint64(len(payload)))

	// has_idx 1bit, hash_crc32 1bit,  has_cache_bits 1bit, flags 2bit, size_bytes 3 bit
	flags := byte(0b0_0_0_00_000)
	if withCRC {
		flags |= 0b0_1_0_00_000
	}
	flags |= byte(cellSizeBytes)

	data := append([]byte{}, bocMagic...)
	data = append(data, flags, byte(sizeBytes))

	// cells num, roots num, absent num
	data = append(data, dynamicIntBytes(uint64(len(orderCells)), cellSizeBytes)...)
	data = append(data, dynamicIntBytes(1, cellSizeBytes)...)
	data = append(data, dynamicIntBytes(0, cellSizeBytes)...)

	data = append(data, dynamicIntBytes(uint64(len(payload)), sizeBytes)...)

	// root is always the first cell
	data = append(data, dynamicIntBytes(0, cellSizeBytes)...)
	data = append(data, payload...)

	if withCRC {
		data = binary.LittleEndian.AppendUint32(data, crc32.Checksum(data, crcTable))
	}

	return data
}

// flattenIndex orders unique cells so that every cell goes before the cells it refers to.
func flattenIndex(root *Cell) []*Cell {
	visited := map[string]bool{}

	var order []*Cell
	var visit func(c *Cell)
	visit = func(c *Cell) {
		if visited[string(c.hash)] {
			return
		}
		visited[string(c.hash)] = true

		for _, ref := range c.refs {
			visit(ref)
		}
		order = append(order, c)
	}
	visit(root)

	// reversed post order is topological
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func bytesFor(val uint64) int {
	n := (bits.Len64(val) + 7) / 8
	if n == 0 {
		return 1
	}
	return n
}

func dynamicIntBytes(val uint64, sz int) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, val)

	return data[8-sz:]
}
