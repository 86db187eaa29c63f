package tonconnect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tlb"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

const testMinter = "UQD7s9OgmogiftudppFzXp-IyTHQ57az7Qnn82MjmMfwAeTY"

func testDeployMessage() *tlb.InternalMessage {
	return &tlb.InternalMessage{
		IHRDisabled: true,
		DstAddr:     address.MustParseAddr(testMinter),
		Amount:      tlb.MustFromTON("0.25"),
		StateInit: &tlb.StateInit{
			Code: cell.BeginCell().MustStoreSlice([]byte("minter"), 48).EndCell(),
			Data: cell.BeginCell().MustStoreUInt(0, 4).EndCell(),
		},
		Body: cell.BeginCell().MustStoreUInt(21, 32).MustStoreUInt(0, 64).EndCell(),
	}
}

func decodeBOC(t *testing.T, s string) *cell.Cell {
	data, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)

	c, err := cell.FromBOC(data)
	require.NoError(t, err)
	return c
}

func TestNewDeployRequest(t *testing.T) {
	now := time.Unix(1760000000, 0)
	setNow(t, now)

	msg := testDeployMessage()
	req, err := NewDeployRequest(msg, 5*time.Minute)
	require.NoError(t, err)

	require.Equal(t, now.Add(5*time.Minute).Unix(), req.ValidUntil)
	require.Equal(t, ChainMainnet, req.Network)
	require.Empty(t, req.From)
	require.Len(t, req.Messages, 1)

	m := req.Messages[0]
	require.Equal(t, testMinter, m.Address)
	require.Equal(t, "250000000", m.Amount)

	si, err := tlb.ToCell(msg.StateInit)
	require.NoError(t, err)
	require.Equal(t, si.Hash(), decodeBOC(t, m.StateInit).Hash())
	require.Equal(t, msg.Body.Hash(), decodeBOC(t, m.Payload).Hash())
}

func TestNewDeployRequest_Testnet(t *testing.T) {
	msg := testDeployMessage()
	msg.DstAddr = msg.DstAddr.Testnet(true)

	req, err := NewDeployRequest(msg, time.Minute)
	require.NoError(t, err)
	require.Equal(t, ChainTestnet, req.Network)
}

func TestNewMessage(t *testing.T) {
	msg := testDeployMessage()
	msg.StateInit = nil
	msg.Body = nil

	m, err := NewMessage(msg)
	require.NoError(t, err)
	require.Empty(t, m.StateInit)
	require.Empty(t, m.Payload)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{"address":"`+testMinter+`","amount":"250000000"}`, string(data))

	_, err = NewMessage(nil)
	require.Error(t, err)

	msg.DstAddr = address.NewAddressNone()
	_, err = NewMessage(msg)
	require.Error(t, err)
}

func TestTransactionRequest_RPC(t *testing.T) {
	req, err := NewDeployRequest(testDeployMessage(), time.Minute)
	require.NoError(t, err)

	rpc, err := req.RPC()
	require.NoError(t, err)
	require.Equal(t, MethodSendTransaction, rpc.Method)
	require.Len(t, rpc.Params, 1)

	_, err = uuid.Parse(rpc.ID)
	require.NoError(t, err)

	var got TransactionRequest
	require.NoError(t, json.Unmarshal([]byte(rpc.Params[0]), &got))
	require.Equal(t, *req, got)

	again, err := req.RPC()
	require.NoError(t, err)
	require.NotEqual(t, rpc.ID, again.ID)
}

type fakeWallet struct {
	conn *Connection
	err  error
	got  *TransactionRequest
}

func (w *fakeWallet) Connection() *Connection {
	return w.conn
}

func (w *fakeWallet) Submit(_ context.Context, req *TransactionRequest) (*TransactionResult, error) {
	w.got = req
	if w.err != nil {
		return nil, w.err
	}
	return &TransactionResult{BOC: "te6cc"}, nil
}

func TestSend(t *testing.T) {
	owner := address.MustParseAddr("EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N")

	req, err := NewDeployRequest(testDeployMessage(), time.Minute)
	require.NoError(t, err)

	t.Run("not connected", func(t *testing.T) {
		w := &fakeWallet{}
		_, err := Send(context.Background(), w, req)
		require.ErrorIs(t, err, ErrNotConnected)
		require.Nil(t, w.got)
	})

	t.Run("connected", func(t *testing.T) {
		w := &fakeWallet{conn: &Connection{Account: Account{Address: owner, Chain: ChainMainnet}}}
		res, err := Send(context.Background(), w, req)
		require.NoError(t, err)
		require.Equal(t, "te6cc", res.BOC)
		require.Equal(t, owner.StringRaw(), w.got.From)
		require.Empty(t, req.From, "request of the caller must stay untouched")
	})

	t.Run("wrong network", func(t *testing.T) {
		w := &fakeWallet{conn: &Connection{Account: Account{Address: owner, Chain: ChainTestnet}}}
		_, err := Send(context.Background(), w, req)
		require.ErrorIs(t, err, ErrWrongNetwork)
		require.Nil(t, w.got)
	})

	t.Run("submit failed", func(t *testing.T) {
		rejected := errors.New("user rejected")
		w := &fakeWallet{conn: &Connection{Account: Account{Address: owner}}, err: rejected}
		_, err := Send(context.Background(), w, req)
		require.ErrorIs(t, err, rejected)
	})
}
