package jetton

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tlb"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

// DefaultMintGasAmount is attached to the mint to pay for the owner's wallet deployment.
var DefaultMintGasAmount = tlb.MustFromTON("0.2")

type MintPayload struct {
	_         tlb.Magic               `tlb:"#00000015"`
	QueryID   uint64                  `tlb:"## 64"`
	To        *address.Address        `tlb:"addr"`
	TonAmount tlb.Coins               `tlb:"."`
	MasterMsg InternalTransferPayload `tlb:"^"`
}

type InternalTransferPayload struct {
	_                tlb.Magic        `tlb:"#178d4519"`
	QueryID          uint64           `tlb:"## 64"`
	Amount           tlb.Coins        `tlb:"."`
	From             *address.Address `tlb:"addr"`
	ResponseAddress  *address.Address `tlb:"addr"`
	ForwardTONAmount tlb.Coins        `tlb:"."`
	ForwardPayload   *cell.Cell       `tlb:"either . ^"`
}

type TransferPayload struct {
	_                   tlb.Magic        `tlb:"#0f8a7ea5"`
	QueryID             uint64           `tlb:"## 64"`
	Amount              tlb.Coins        `tlb:"."`
	Destination         *address.Address `tlb:"addr"`
	ResponseDestination *address.Address `tlb:"addr"`
	CustomPayload       *cell.Cell       `tlb:"maybe ^"`
	ForwardTONAmount    tlb.Coins        `tlb:"."`
	ForwardPayload      *cell.Cell       `tlb:"either . ^"`
}

type BurnPayload struct {
	_                   tlb.Magic        `tlb:"#595f07bc"`
	QueryID             uint64           `tlb:"## 64"`
	Amount              tlb.Coins        `tlb:"."`
	ResponseDestination *address.Address `tlb:"addr"`
	CustomPayload       *cell.Cell       `tlb:"maybe ^"`
}

type ChangeAdminPayload struct {
	_        tlb.Magic        `tlb:"#00000003"`
	QueryID  uint64           `tlb:"## 64"`
	NewAdmin *address.Address `tlb:"addr"`
}

type ChangeContentPayload struct {
	_       tlb.Magic  `tlb:"#00000004"`
	QueryID uint64     `tlb:"## 64"`
	Content *cell.Cell `tlb:"^"`
}

// TransferParams describes a transfer sent to the sender's own jetton wallet.
type TransferParams struct {
	QueryID             uint64
	Amount              *big.Int
	Destination         *address.Address
	ResponseDestination *address.Address
	ForwardTONAmount    tlb.Coins
	ForwardPayload      *cell.Cell
}

// BuildMintMessage builds the mint body for the minter with the default gas amount.
func BuildMintMessage(owner *address.Address, amount *big.Int) (*cell.Cell, error) {
	return BuildMintMessageWithGas(owner, amount, DefaultMintGasAmount)
}

func BuildMintMessageWithGas(owner *address.Address, amount *big.Int, gas tlb.Coins) (*cell.Cell, error) {
	if owner == nil {
		return nil, errors.New("owner address is required")
	}

	jettons, err := jettonCoins(amount)
	if err != nil {
		return nil, err
	}

	body, err := tlb.ToCell(MintPayload{
		To:        owner,
		TonAmount: gas,
		MasterMsg: InternalTransferPayload{
			Amount:          jettons,
			From:            address.NewAddressNone(),
			ResponseAddress: address.NewAddressNone(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert MintPayload to cell: %w", err)
	}
	return body, nil
}

func BuildTransferMessage(p TransferParams) (*cell.Cell, error) {
	if p.Destination == nil {
		return nil, errors.New("destination address is required")
	}

	jettons, err := jettonCoins(p.Amount)
	if err != nil {
		return nil, err
	}

	body, err := tlb.ToCell(TransferPayload{
		QueryID:             p.QueryID,
		Amount:              jettons,
		Destination:         p.Destination,
		ResponseDestination: p.ResponseDestination,
		ForwardTONAmount:    p.ForwardTONAmount,
		ForwardPayload:      p.ForwardPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert TransferPayload to cell: %w", err)
	}
	return body, nil
}

func BuildBurnMessage(queryID uint64, amount *big.Int, responseTo *address.Address) (*cell.Cell, error) {
	jettons, err := jettonCoins(amount)
	if err != nil {
		return nil, err
	}

	body, err := tlb.ToCell(BurnPayload{
		QueryID:             queryID,
		Amount:              jettons,
		ResponseDestination: responseTo,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert BurnPayload to cell: %w", err)
	}
	return body, nil
}

func BuildChangeAdminMessage(queryID uint64, newAdmin *address.Address) (*cell.Cell, error) {
	if newAdmin == nil {
		return nil, errors.New("new admin address is required")
	}

	body, err := tlb.ToCell(ChangeAdminPayload{
		QueryID:  queryID,
		NewAdmin: newAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert ChangeAdminPayload to cell: %w", err)
	}
	return body, nil
}

func BuildChangeContentMessage(queryID uint64, content *cell.Cell) (*cell.Cell, error) {
	if content == nil {
		return nil, errors.New("content is required")
	}

	body, err := tlb.ToCell(ChangeContentPayload{
		QueryID: queryID,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert ChangeContentPayload to cell: %w", err)
	}
	return body, nil
}

// RandomQueryID returns random query id, to distinguish bounced and replied messages.
func RandomQueryID() (uint64, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// jettonCoins converts amount in the smallest jetton units, decimals don't
// matter for the serialization so 0 is used.
func jettonCoins(amount *big.Int) (tlb.Coins, error) {
	if amount == nil {
		return tlb.Coins{}, errors.New("amount is required")
	}

	if amount.Sign() < 0 {
		return tlb.Coins{}, ErrNegativeAmount
	}

	c, err := tlb.FromNano(amount, 0)
	if err != nil {
		return tlb.Coins{}, fmt.Errorf("incorrect amount: %w", err)
	}
	return c, nil
}
