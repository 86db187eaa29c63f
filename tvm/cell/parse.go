package cell

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math/bits"
)

var ErrInvalidBOC = errors.New("invalid boc")

type rawCell struct {
	special bool
	bitsSz  uint
	data    []byte
	refs    []int
}

func MustFromBOC(data []byte) *Cell {
	c, err := FromBOC(data)
	if err != nil {
		panic(err)
	}
	return c
}

// FromBOC parses bag of cells and returns its first root.
func FromBOC(data []byte) (*Cell, error) {
	cells, err := FromBOCMultiRoot(data)
	if err != nil {
		return nil, err
	}

	return cells[0], nil
}

func FromBOCMultiRoot(data []byte) ([]*Cell, error) {
	r := newReader(data)

	magic, err := r.ReadBytes(4)
	if err != nil || !bytes.Equal(magic, bocMagic) {
		return nil, fmt.Errorf("%w: incorrect magic header", ErrInvalidBOC)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read flags: %v", ErrInvalidBOC, err)
	}

	hasIdx := flags&0b1000_0000 != 0
	hasCRC := flags&0b0100_0000 != 0
	cellNumSizeBytes := int(flags & 0b111)

	dataSizeBytes, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read offset size: %v", ErrInvalidBOC, err)
	}

	if cellNumSizeBytes == 0 || cellNumSizeBytes > 4 || dataSizeBytes == 0 || dataSizeBytes > 8 {
		return nil, fmt.Errorf("%w: incorrect size fields", ErrInvalidBOC)
	}

	var header [3]uint64
	for i := range header {
		header[i], err = r.ReadUInt(cellNumSizeBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read header: %v", ErrInvalidBOC, err)
		}
	}
	cellsNum, rootsNum, absentNum := header[0], header[1], header[2]

	if cellsNum == 0 || cellsNum > uint64(len(data)) {
		return nil, fmt.Errorf("%w: incorrect cells num %d", ErrInvalidBOC, cellsNum)
	}

	if rootsNum == 0 || rootsNum > cellsNum {
		return nil, fmt.Errorf("%w: incorrect roots num %d", ErrInvalidBOC, rootsNum)
	}

	if absentNum != 0 {
		return nil, fmt.Errorf("%w: absent cells are not supported", ErrInvalidBOC)
	}

	dataLen, err := r.ReadUInt(int(dataSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read data size: %v", ErrInvalidBOC, err)
	}

	if hasCRC {
		if len(data) < 4 {
			return nil, fmt.Errorf("%w: no checksum", ErrInvalidBOC)
		}

		crc := crc32.Checksum(data[:len(data)-4], crcTable)
		if binary.LittleEndian.Uint32(data[len(data)-4:]) != crc {
			return nil, fmt.Errorf("%w: checksum not matches", ErrInvalidBOC)
		}
	}

	rootIndexes := make([]uint64, rootsNum)
	for i := range rootIndexes {
		rootIndexes[i], err = r.ReadUInt(cellNumSizeBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read root index: %v", ErrInvalidBOC, err)
		}

		if rootIndexes[i] >= cellsNum {
			return nil, fmt.Errorf("%w: root index %d is out of range", ErrInvalidBOC, rootIndexes[i])
		}
	}

	if hasIdx {
		if _, err = r.ReadBytes(int(cellsNum) * int(dataSizeBytes)); err != nil {
			return nil, fmt.Errorf("%w: failed to skip index: %v", ErrInvalidBOC, err)
		}
	}

	if dataLen > uint64(r.LeftLen()) {
		return nil, fmt.Errorf("%w: failed to read payload, want %d, has %d", ErrInvalidBOC, dataLen, r.LeftLen())
	}
	payload, _ := r.ReadBytes(int(dataLen))

	cells, err := parseCells(int(cellsNum), cellNumSizeBytes, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse payload: %v", ErrInvalidBOC, err)
	}

	roots := make([]*Cell, len(rootIndexes))
	for i, idx := range rootIndexes {
		roots[i] = cells[idx]
	}

	return roots, nil
}

func parseCells(cellsNum, refSzBytes int, data []byte) ([]*Cell, error) {
	r := newReader(data)

	raw := make([]rawCell, cellsNum)
	for i := range raw {
		d1, err := r.ReadByte()
		if err != nil {
			return nil, errors.New("failed to parse cell refs num, corrupted data")
		}

		// d1 = refs num + special * 8 + with hashes * 16 + level * 32
		refsNum := int(d1 & 0b111)
		if refsNum > 4 {
			return nil, fmt.Errorf("cell %d has %d refs", i, refsNum)
		}

		if d1>>5 != 0 {
			return nil, fmt.Errorf("cell %d has non zero level, it is not supported", i)
		}

		if d1&16 != 0 {
			// stored hash and depth of level 0 cell, they are recalculated
			if _, err = r.ReadBytes(32 + 2); err != nil {
				return nil, errors.New("failed to skip cell hashes, corrupted data")
			}
		}

		d2, err := r.ReadByte()
		if err != nil {
			return nil, errors.New("failed to parse cell length, corrupted data")
		}

		payload, err := r.ReadBytes((int(d2) + 1) / 2)
		if err != nil {
			return nil, errors.New("failed to parse cell payload, corrupted data")
		}
		payload = append([]byte{}, payload...)

		bitsSz := uint(len(payload)) * 8
		if d2%2 != 0 {
			// not full byte, remove completion tag
			tz := uint(bits.TrailingZeros8(payload[len(payload)-1]))
			if tz >= 7 {
				return nil, fmt.Errorf("cell %d has incorrect completion tag", i)
			}

			payload[len(payload)-1] &^= 1 << tz
			bitsSz -= tz + 1
		}

		refs := make([]int, refsNum)
		for y := range refs {
			id, err := r.ReadUInt(refSzBytes)
			if err != nil {
				return nil, errors.New("failed to parse cell references, corrupted data")
			}

			if id <= uint64(i) || id >= uint64(cellsNum) {
				return nil, fmt.Errorf("cell %d has incorrect reference to %d", i, id)
			}
			refs[y] = int(id)
		}

		raw[i] = rawCell{
			special: d1&8 != 0,
			bitsSz:  bitsSz,
			data:    payload,
			refs:    refs,
		}
	}

	// references always point forward, so build from the end
	cells := make([]*Cell, cellsNum)
	for i := cellsNum - 1; i >= 0; i-- {
		refs := make([]*Cell, len(raw[i].refs))
		for y, id := range raw[i].refs {
			refs[y] = cells[id]
		}
		cells[i] = newCell(raw[i].special, raw[i].bitsSz, raw[i].data, refs)
	}

	return cells, nil
}
