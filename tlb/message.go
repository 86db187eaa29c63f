package tlb

import (
	"errors"
	"fmt"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

// InternalMessage is int_msg_info$0 with optional state init and body.
// Header fields which are set by validators (fees, lt, time) are kept for parsing completeness.
type InternalMessage struct {
	IHRDisabled     bool
	Bounce          bool
	Bounced         bool
	SrcAddr         *address.Address
	DstAddr         *address.Address
	Amount          Coins
	ExtraCurrencies *cell.Dictionary
	IHRFee          Coins
	FwdFee          Coins
	CreatedLT       uint64
	CreatedAt       uint32

	StateInit *StateInit
	Body      *cell.Cell
}

func (m *InternalMessage) ToCell() (*cell.Cell, error) {
	b := cell.BeginCell()
	b.MustStoreUInt(0, 1) // identification of int msg
	b.MustStoreBoolBit(m.IHRDisabled)
	b.MustStoreBoolBit(m.Bounce)
	b.MustStoreBoolBit(m.Bounced)

	if err := b.StoreAddr(m.SrcAddr); err != nil {
		return nil, fmt.Errorf("failed to store source address: %w", err)
	}

	if err := b.StoreAddr(m.DstAddr); err != nil {
		return nil, fmt.Errorf("failed to store destination address: %w", err)
	}

	if err := b.StoreBigCoins(m.Amount.Nano()); err != nil {
		return nil, fmt.Errorf("failed to store amount: %w", err)
	}

	b.MustStoreDict(m.ExtraCurrencies)
	b.MustStoreBigCoins(m.IHRFee.Nano())
	b.MustStoreBigCoins(m.FwdFee.Nano())
	b.MustStoreUInt(m.CreatedLT, 64)
	b.MustStoreUInt(uint64(m.CreatedAt), 32)

	if err := appendInitStateAndBody(b, m.StateInit, m.Body); err != nil {
		return nil, err
	}

	return b.EndCell(), nil
}

// appendInitStateAndBody stores state init and body inline when they fit, as refs otherwise.
func appendInitStateAndBody(b *cell.Builder, stateInit *StateInit, body *cell.Cell) error {
	if b.BitsLeft() < 3 {
		return fmt.Errorf("not enough storage to serialize state init and body")
	}

	var err error
	b.MustStoreBoolBit(stateInit != nil)
	if stateInit != nil {
		stateCell, err := ToCell(stateInit)
		if err != nil {
			return fmt.Errorf("failed to serialize state init: %w", err)
		}

		if int(stateCell.BitsSize()) > int(b.BitsLeft())-2 || int(stateCell.RefsNum()) > int(b.RefsLeft())-1 {
			b.MustStoreBoolBit(true) // state as ref
			err = b.StoreRef(stateCell)
		} else {
			b.MustStoreBoolBit(false) // state as slice
			err = b.StoreBuilder(stateCell.ToBuilder())
		}
		if err != nil {
			return fmt.Errorf("failed to store message state init: %w", err)
		}
	}

	if body == nil {
		b.MustStoreBoolBit(false)
		return nil
	}

	if int(body.BitsSize()) > int(b.BitsLeft())-1 || body.RefsNum() > b.RefsLeft() {
		b.MustStoreBoolBit(true) // body as ref
		err = b.StoreRef(body)
	} else {
		b.MustStoreBoolBit(false) // body as slice
		err = b.StoreBuilder(body.ToBuilder())
	}
	if err != nil {
		return fmt.Errorf("failed to store message body: %w", err)
	}

	return nil
}

func (m *InternalMessage) LoadFromCell(loader *cell.Slice) error {
	isExternal, err := loader.LoadBoolBit()
	if err != nil {
		return fmt.Errorf("failed to load message type: %w", err)
	}

	if isExternal {
		return errors.New("not an internal message")
	}

	var msg InternalMessage
	if msg.IHRDisabled, err = loader.LoadBoolBit(); err != nil {
		return fmt.Errorf("failed to load ihr disabled flag: %w", err)
	}

	if msg.Bounce, err = loader.LoadBoolBit(); err != nil {
		return fmt.Errorf("failed to load bounce flag: %w", err)
	}

	if msg.Bounced, err = loader.LoadBoolBit(); err != nil {
		return fmt.Errorf("failed to load bounced flag: %w", err)
	}

	if msg.SrcAddr, err = loader.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load source address: %w", err)
	}

	if msg.DstAddr, err = loader.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load destination address: %w", err)
	}

	if err = msg.Amount.LoadFromCell(loader); err != nil {
		return fmt.Errorf("failed to load amount: %w", err)
	}

	if msg.ExtraCurrencies, err = loader.LoadDict(32); err != nil {
		return fmt.Errorf("failed to load extra currencies: %w", err)
	}

	for _, c := range []*Coins{&msg.IHRFee, &msg.FwdFee} {
		if err = c.LoadFromCell(loader); err != nil {
			return fmt.Errorf("failed to load fee: %w", err)
		}
	}

	if msg.CreatedLT, err = loader.LoadUInt(64); err != nil {
		return fmt.Errorf("failed to load created lt: %w", err)
	}

	createdAt, err := loader.LoadUInt(32)
	if err != nil {
		return fmt.Errorf("failed to load created at: %w", err)
	}
	msg.CreatedAt = uint32(createdAt)

	hasState, err := loader.LoadBoolBit()
	if err != nil {
		return fmt.Errorf("failed to load state init flag: %w", err)
	}

	if hasState {
		from, err := eitherSlice(loader)
		if err != nil {
			return fmt.Errorf("failed to load state init: %w", err)
		}

		msg.StateInit = &StateInit{}
		if err = LoadFromCell(msg.StateInit, from); err != nil {
			return fmt.Errorf("failed to parse state init: %w", err)
		}
	}

	from, err := eitherSlice(loader)
	if err != nil {
		return fmt.Errorf("failed to load body: %w", err)
	}

	if msg.Body, err = from.ToCell(); err != nil {
		return fmt.Errorf("failed to parse body: %w", err)
	}

	*m = msg
	return nil
}

// eitherSlice reads Either X ^X prefix and returns slice to continue loading from.
func eitherSlice(loader *cell.Slice) (*cell.Slice, error) {
	isRef, err := loader.LoadBoolBit()
	if err != nil {
		return nil, err
	}

	if isRef {
		return loader.LoadRef()
	}
	return loader, nil
}

func (m *InternalMessage) Dump() string {
	body := "<empty>"
	if m.Body != nil {
		body = m.Body.Dump()
	}

	return fmt.Sprintf("Amount %s TON, Created at: %d, Created lt %d\nBounce: %t, Bounced %t, IHRDisabled %t\nSrcAddr: %s\nDstAddr: %s\nStateInit: %t\nPayload: %s",
		m.Amount.String(), m.CreatedAt, m.CreatedLT, m.Bounce, m.Bounced, m.IHRDisabled, m.SrcAddr, m.DstAddr, m.StateInit != nil, body)
}
