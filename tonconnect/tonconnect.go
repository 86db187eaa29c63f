package tonconnect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tlb"
)

// Chain ids as TON Connect names them.
const (
	ChainMainnet = "-239"
	ChainTestnet = "-3"
)

const MethodSendTransaction = "sendTransaction"

var (
	ErrNotConnected = errors.New("wallet is not connected")
	ErrWrongNetwork = errors.New("wrong network")
)

// Account is the wallet account shared on connect.
type Account struct {
	Address *address.Address
	Chain   string
	// PublicKey is the ed25519 key of the wallet, it is needed to verify ton_proof.
	PublicKey []byte
	// WalletStateInit is the BOC of the wallet state init, empty when the wallet did not share it.
	WalletStateInit []byte
}

type Connection struct {
	Account Account
	Proof   *Proof
}

// Wallet is a connected wallet, connection lifecycle is managed outside.
type Wallet interface {
	// Connection returns nil when the wallet is disconnected.
	Connection() *Connection
	Submit(ctx context.Context, req *TransactionRequest) (*TransactionResult, error)
}

type Message struct {
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	StateInit string `json:"stateInit,omitempty"`
	Payload   string `json:"payload,omitempty"`
}

type TransactionRequest struct {
	ValidUntil int64     `json:"validUntil"`
	Network    string    `json:"network,omitempty"`
	From       string    `json:"from,omitempty"`
	Messages   []Message `json:"messages"`
}

// TransactionResult holds the signed external message returned by the wallet.
type TransactionResult struct {
	BOC string `json:"boc"`
}

type RPCRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     string   `json:"id"`
}

var timeNow = time.Now

// NewMessage converts an internal message into the form wallets accept.
func NewMessage(msg *tlb.InternalMessage) (Message, error) {
	if msg == nil || msg.DstAddr == nil || msg.DstAddr.IsAddrNone() {
		return Message{}, errors.New("message has no destination")
	}

	m := Message{
		Address: msg.DstAddr.String(),
		Amount:  msg.Amount.Nano().String(),
	}

	if msg.StateInit != nil {
		si, err := tlb.ToCell(msg.StateInit)
		if err != nil {
			return Message{}, fmt.Errorf("failed to serialize state init: %w", err)
		}
		m.StateInit = base64.StdEncoding.EncodeToString(si.ToBOC())
	}

	if msg.Body != nil {
		m.Payload = base64.StdEncoding.EncodeToString(msg.Body.ToBOC())
	}

	return m, nil
}

// NewDeployRequest wraps the deploy message into a request which is valid for the given duration.
func NewDeployRequest(msg *tlb.InternalMessage, validFor time.Duration) (*TransactionRequest, error) {
	m, err := NewMessage(msg)
	if err != nil {
		return nil, err
	}

	network := ChainMainnet
	if msg.DstAddr.IsTestnetOnly() {
		network = ChainTestnet
	}

	return &TransactionRequest{
		ValidUntil: timeNow().Add(validFor).Unix(),
		Network:    network,
		Messages:   []Message{m},
	}, nil
}

// RPC builds the JSON-RPC envelope of sendTransaction with a fresh request id.
func (r *TransactionRequest) RPC() (*RPCRequest, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	return &RPCRequest{
		Method: MethodSendTransaction,
		Params: []string{string(data)},
		ID:     uuid.NewString(),
	}, nil
}

// Send submits the request on behalf of the connected account.
func Send(ctx context.Context, w Wallet, req *TransactionRequest) (*TransactionResult, error) {
	conn := w.Connection()
	if conn == nil || conn.Account.Address == nil {
		return nil, ErrNotConnected
	}

	r := *req
	r.From = conn.Account.Address.StringRaw()
	if chain := conn.Account.Chain; chain != "" {
		if r.Network != "" && r.Network != chain {
			return nil, fmt.Errorf("%w: request is for %s, wallet is on %s", ErrWrongNetwork, r.Network, chain)
		}
		r.Network = chain
	}

	res, err := w.Submit(ctx, &r)
	if err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}
	return res, nil
}
