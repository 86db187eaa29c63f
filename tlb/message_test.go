package tlb

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

func TestInternalMessage_ToCell(t *testing.T) {
	src := address.MustParseAddr("EQAOp1zuKuX4zY6L9rEdSLam7J3gogIHhfRu_gH70u2MQnmd")
	dst := address.MustParseAddr("EQA_B407fiLIlE5VYZCaI2rki0in6kLyjdhhwitvZNfpe7eY")
	amount := MustFromTON("0.05")

	intMsg := InternalMessage{
		IHRDisabled: false,
		Bounce:      true,
		Bounced:     false,
		SrcAddr:     src,
		DstAddr:     dst,
		Amount:      amount,
		StateInit: &StateInit{
			Data: cell.BeginCell().EndCell(),
			Code: cell.BeginCell().EndCell(),
		},
		Body: cell.BeginCell().MustStoreUInt(777, 27).EndCell(),
	}

	c, err := intMsg.ToCell()
	if err != nil {
		t.Fatal("to cell err", err)
	}

	var intMsg2 InternalMessage
	err = LoadFromCell(&intMsg2, c.BeginParse())
	if err != nil {
		t.Fatal("from cell err", err)
	}

	if intMsg.SrcAddr.String() != intMsg2.SrcAddr.String() {
		t.Fatal("not eq src")
	}

	if intMsg.DstAddr.String() != intMsg2.DstAddr.String() {
		t.Fatal("not eq dst")
	}

	if intMsg.Amount.Nano().Uint64() != intMsg2.Amount.Nano().Uint64() {
		t.Fatal("not eq ton", intMsg.Amount.Nano(), intMsg2.Amount.Nano())
	}

	if !intMsg2.Bounce || intMsg2.Bounced || intMsg2.IHRDisabled {
		t.Fatal("flags not eq")
	}

	if intMsg2.StateInit == nil || !bytes.Equal(intMsg2.StateInit.Code.Hash(), intMsg.StateInit.Code.Hash()) {
		t.Fatal("state init not eq")
	}

	if !bytes.Equal(intMsg2.Body.Hash(), intMsg.Body.Hash()) {
		t.Fatal("body not eq")
	}

	c2, err := intMsg2.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(c.Hash(), c2.Hash()) {
		t.Fatal("hash not match after load")
	}
}

func TestCornerMessage(t *testing.T) {
	msgBoc, _ := hex.DecodeString("b5ee9c724101020100860001b36800bf4c6bdca25797e55d700c1a5448e2af5d1ac16f9a9628719a4e1eb2b44d85e33fd104a366f6fb17799871f82e00e4f2eb8ae6aaf6d3e0b3fb346cd0208e23725e14094ba15d20071f12260000446ee17a9b0cc8c028d8c001004d8002b374733831aac3455708e8f1d2c7f129540b982d3a5de8325bf781083a8a3d2a04a7f943813277f3ea")

	c, err := cell.FromBOC(msgBoc)
	if err != nil {
		t.Fatal(err)
	}

	var m InternalMessage
	err = LoadFromCell(&m, c.BeginParse())
	if err != nil {
		t.Fatal(err)
	}

	if m.Amount.Nano().Uint64() != 9980893000 {
		t.Fatal("incorrect amount", m.Amount.String())
	}

	if m.StateInit != nil {
		t.Fatal("state init should be empty")
	}

	c2, err := ToCell(&m)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(c.Hash(), c2.Hash()) {
		t.Fatal("hash not match")
	}
}

func TestInternalMessage_BodyAsRef(t *testing.T) {
	dst := address.MustParseAddr("EQA_B407fiLIlE5VYZCaI2rki0in6kLyjdhhwitvZNfpe7eY")
	body := cell.BeginCell().MustStoreSlice(make([]byte, 100), 800).EndCell()

	c, err := (&InternalMessage{DstAddr: dst, Amount: FromNanoTONU(1), Body: body}).ToCell()
	if err != nil {
		t.Fatal(err)
	}

	if c.RefsNum() != 1 {
		t.Fatal("body should be stored as ref")
	}

	var m InternalMessage
	if err = LoadFromCell(&m, c.BeginParse()); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(m.Body.Hash(), body.Hash()) {
		t.Fatal("body not eq")
	}

	if !m.SrcAddr.IsAddrNone() {
		t.Fatal("source should be none")
	}

	if !strings.Contains(m.Dump(), "DstAddr: "+dst.String()) {
		t.Fatal("incorrect dump", m.Dump())
	}
}

func TestInternalMessage_NotInternal(t *testing.T) {
	c := cell.BeginCell().MustStoreUInt(0b10, 2).EndCell()

	var m InternalMessage
	if err := LoadFromCell(&m, c.BeginParse()); err == nil {
		t.Fatal("should be error")
	}
}
