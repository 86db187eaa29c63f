package toncenter

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/tonkit/jetton-deployer/tlb"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

const TonDecimals = 9

type TransactionID struct {
	LT   uint64 `json:"lt,string"`
	Hash []byte `json:"hash"`
}

type NanoCoins struct {
	val *big.Int
}

func (n *NanoCoins) Coins(decimals int) (tlb.Coins, error) {
	if n.val == nil {
		return tlb.FromNano(big.NewInt(0), decimals)
	}
	return tlb.FromNano(n.val, decimals)
}

func (n *NanoCoins) MustCoins(decimals int) tlb.Coins {
	c, err := n.Coins(decimals)
	if err != nil {
		panic(err)
	}
	return c
}

// UnmarshalJSON accepts both string and number forms.
func (n *NanoCoins) UnmarshalJSON(b []byte) error {
	var s json.Number
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	n.val = new(big.Int)
	if _, ok := n.val.SetString(s.String(), 10); !ok {
		return fmt.Errorf("incorrect amount %s", s)
	}
	return nil
}

func (n NanoCoins) MarshalJSON() ([]byte, error) {
	if n.val == nil {
		return json.Marshal("0")
	}
	return json.Marshal(n.val.String())
}

// BOC is a base64 encoded bag of cells, empty string means there is no cell.
type BOC struct {
	Cell *cell.Cell
}

func (b *BOC) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == "" {
		b.Cell = nil
		return nil
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("failed to decode base64 boc: %w", err)
	}

	c, err := cell.FromBOC(raw)
	if err != nil {
		return err
	}
	b.Cell = c
	return nil
}

func (b BOC) MarshalJSON() ([]byte, error) {
	if b.Cell == nil {
		return json.Marshal("")
	}
	return json.Marshal(base64.StdEncoding.EncodeToString(b.Cell.ToBOC()))
}
