package cell

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

const walletV3R2CodeHex = "B5EE9C724101010100710000DEFF0020DD2082014C97BA218201339CBAB19F71B0ED44D0D31FD31F31D70BFFE304E0A4F2608308D71820D31FD31FD31FF82313BBF263ED44D0D31FD31FD3FFD15132BAF2A15144BAF2A204F901541055F910F2A3F8009320D74A96D307D402FB00E8D101A4C8CB1FCB1FCBFFC9ED5410BD6DAD"

func testTree() *Cell {
	leaf := BeginCell().MustStoreUInt(0xABC, 12).EndCell()
	return BeginCell().
		MustStoreUInt(1, 1).
		MustStoreSlice([]byte{11, 22, 33}, 24).
		MustStoreCoins(777).
		MustStoreRef(leaf).
		MustStoreRef(leaf).
		EndCell()
}

func TestToBOC(t *testing.T) {
	tests := []struct {
		name string
		crc  bool
		boc  string
	}{
		{"with crc", true, "b5ee9c7241010201000e00020b858b1090184c01010003abc8d9d01742"},
		{"without crc", false, "b5ee9c7201010201000e00020b858b1090184c01010003abc8"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := testTree()

			boc := c.ToBOCWithFlags(test.crc)
			if hex.EncodeToString(boc) != test.boc {
				t.Fatal("incorrect boc", hex.EncodeToString(boc))
			}

			parsed, err := FromBOC(boc)
			if err != nil {
				t.Fatal(err)
			}

			if !bytes.Equal(parsed.Hash(), c.Hash()) {
				t.Fatal("hash diff after parse")
			}

			if hex.EncodeToString(parsed.Hash()) != "7eda7bfce96858c4223bd8b93e0c69474c9ecff5b9ffcd57d7696dbacb3ec741" {
				t.Fatal("incorrect hash", hex.EncodeToString(parsed.Hash()))
			}
		})
	}
}

func TestToBOC_Empty(t *testing.T) {
	boc := BeginCell().EndCell().ToBOC()
	if hex.EncodeToString(boc) != "b5ee9c724101010100020000004cacb9cd" {
		t.Fatal("incorrect boc", hex.EncodeToString(boc))
	}
}

func TestToBOC_SharedSubtree(t *testing.T) {
	// shared cell is referred from cells on different depths
	x := BeginCell().MustStoreUInt(0x55, 8).EndCell()
	b := BeginCell().MustStoreUInt(2, 8).MustStoreRef(x).EndCell()
	root := BeginCell().MustStoreUInt(1, 8).MustStoreRef(x).MustStoreRef(b).EndCell()

	parsed, err := FromBOC(root.ToBOC())
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(parsed.Hash(), root.Hash()) {
		t.Fatal("hash diff after parse")
	}
}

func TestFromBOC_WalletCode(t *testing.T) {
	boc, _ := hex.DecodeString(walletV3R2CodeHex)

	c, err := FromBOC(boc)
	if err != nil {
		t.Fatal(err)
	}

	if hex.EncodeToString(c.Hash()) != "84dafa449f98a6987789ba232358072bc0f76dc4524002a5d0918b9a75d2d599" {
		t.Fatal("incorrect code hash", hex.EncodeToString(c.Hash()))
	}

	if !bytes.Equal(c.ToBOC(), boc) {
		t.Fatal("boc diff after serialize")
	}
}

func TestFromBOC_Errors(t *testing.T) {
	valid, _ := hex.DecodeString("b5ee9c7241010201000e00020b858b1090184c01010003abc8d9d01742")

	badCRC := append([]byte{}, valid...)
	badCRC[len(badCRC)-1] ^= 1

	badMagic := append([]byte{}, valid...)
	badMagic[0] = 0

	// second cell refers to the first one
	backRef, _ := hex.DecodeString("b5ee9c72010102010005000000010000")

	// level 1 cell
	withLevel, _ := hex.DecodeString("b5ee9c72010101010002002000")

	tests := map[string][]byte{
		"empty":     nil,
		"short":     valid[:8],
		"crc":       badCRC,
		"magic":     badMagic,
		"truncated": valid[:len(valid)-8],
		"back ref":  backRef,
		"level":     withLevel,
	}

	for name, boc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := FromBOC(boc); !errors.Is(err, ErrInvalidBOC) {
				t.Fatal("should be invalid boc", err)
			}
		})
	}
}
