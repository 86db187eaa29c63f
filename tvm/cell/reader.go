package cell

import (
	"encoding/binary"
	"fmt"
)

type bocReader struct {
	data []byte
}

var ErrNotEnoughData = func(has, need int) error {
	return fmt.Errorf("not enough data in reader, need %d, has %d", need, has)
}

func newReader(data []byte) *bocReader {
	return &bocReader{
		data: data,
	}
}

func (r *bocReader) ReadBytes(num int) ([]byte, error) {
	if num < 0 || len(r.data) < num {
		return nil, ErrNotEnoughData(len(r.data), num)
	}

	ret := r.data[:num]
	r.data = r.data[num:]
	return ret, nil
}

func (r *bocReader) ReadByte() (byte, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUInt reads big endian number of sz bytes.
func (r *bocReader) ReadUInt(sz int) (uint64, error) {
	if sz > 8 {
		return 0, fmt.Errorf("%d bytes number is not supported", sz)
	}

	b, err := r.ReadBytes(sz)
	if err != nil {
		return 0, err
	}

	var tmp [8]byte
	copy(tmp[8-sz:], b)
	return binary.BigEndian.Uint64(tmp[:]), nil
}

func (r *bocReader) LeftLen() int {
	return len(r.data)
}
