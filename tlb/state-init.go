package tlb

import (
	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

type TickTock struct {
	Tick bool `tlb:"bool"`
	Tock bool `tlb:"bool"`
}

type StateInit struct {
	Depth    *uint64          `tlb:"maybe ## 5"`
	TickTock *TickTock        `tlb:"maybe ."`
	Code     *cell.Cell       `tlb:"maybe ^"`
	Data     *cell.Cell       `tlb:"maybe ^"`
	Lib      *cell.Dictionary `tlb:"dict 256"`
}

// CalcAddress returns address of the contract with this state init in the given workchain,
// it panics when Depth does not fit into 5 bits.
func (s StateInit) CalcAddress(workchain int8) *address.Address {
	c, err := ToCell(s)
	if err != nil {
		panic(err)
	}
	return address.NewAddress(0, byte(workchain), c.Hash())
}
