package jetton

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tlb"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

const testOwner = "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"

func TestBuildMintMessage(t *testing.T) {
	owner := address.MustParseAddr(testOwner)

	body, err := BuildMintMessage(owner, big.NewInt(1000))
	require.NoError(t, err)

	require.Equal(t, "41597c9355afecb89033653379862810162df21afc3e600d83c92304bb0e593c", hex.EncodeToString(body.Hash()))
	newGoldie(t).Assert(t, "mint", []byte(hex.EncodeToString(body.ToBOC())))

	var mint MintPayload
	require.NoError(t, tlb.LoadFromCell(&mint, body.BeginParse()))
	require.True(t, mint.To.Equals(owner))
	require.Equal(t, "0.2", mint.TonAmount.String())
	require.Zero(t, mint.QueryID)
	require.Equal(t, int64(1000), mint.MasterMsg.Amount.Nano().Int64())
	require.True(t, mint.MasterMsg.From.IsAddrNone())
	require.True(t, mint.MasterMsg.ResponseAddress.IsAddrNone())
	require.True(t, mint.MasterMsg.ForwardTONAmount.IsZero())
	require.Equal(t, uint(0), mint.MasterMsg.ForwardPayload.BitsSize())

	// layout of the nested internal transfer
	s := body.BeginParse()
	require.EqualValues(t, 21, s.MustLoadUInt(32))
	it := s.MustLoadRef()
	require.EqualValues(t, 0x178d4519, it.MustLoadUInt(32))
	require.EqualValues(t, 0, it.MustLoadUInt(64))
	require.EqualValues(t, 1000, it.MustLoadCoins())
	require.True(t, it.MustLoadAddr().IsAddrNone())
	require.True(t, it.MustLoadAddr().IsAddrNone())
	require.EqualValues(t, 0, it.MustLoadCoins())
	require.False(t, it.MustLoadBoolBit())
	require.Zero(t, it.BitsLeft())
}

func TestBuildMintMessage_Deterministic(t *testing.T) {
	owner := address.MustParseAddr(testOwner)

	a, err := BuildMintMessage(owner, big.NewInt(777))
	require.NoError(t, err)
	b, err := BuildMintMessage(owner, big.NewInt(777))
	require.NoError(t, err)
	require.Equal(t, a.Hash(), b.Hash())

	c, err := BuildMintMessageWithGas(owner, big.NewInt(777), tlb.MustFromTON("0.05"))
	require.NoError(t, err)
	require.NotEqual(t, a.Hash(), c.Hash())
}

func TestBuildMintMessage_Errors(t *testing.T) {
	owner := address.MustParseAddr(testOwner)

	_, err := BuildMintMessage(owner, big.NewInt(-1))
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = BuildMintMessage(owner, nil)
	require.Error(t, err)

	_, err = BuildMintMessage(nil, big.NewInt(1))
	require.Error(t, err)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 120)
	_, err = BuildMintMessage(owner, tooBig)
	require.ErrorIs(t, err, tlb.ErrInvalidCoins)
}

func TestBuildTransferMessage(t *testing.T) {
	owner := address.MustParseAddr(testOwner)

	body, err := BuildTransferMessage(TransferParams{
		QueryID:             7,
		Amount:              big.NewInt(5),
		Destination:         owner,
		ResponseDestination: owner,
		ForwardTONAmount:    tlb.FromNanoTONU(1),
	})
	require.NoError(t, err)
	require.Equal(t, "a49efc8c64a7d0e769d3dd9b309e956af66dd6d029498dc05daeeac328642d66", hex.EncodeToString(body.Hash()))

	comment := cell.BeginCell().MustStoreUInt(0, 32).MustStoreStringSnake("hello").EndCell()
	body, err = BuildTransferMessage(TransferParams{
		Amount:         big.NewInt(5),
		Destination:    owner,
		ForwardPayload: comment,
	})
	require.NoError(t, err)

	var tr TransferPayload
	require.NoError(t, tlb.LoadFromCell(&tr, body.BeginParse()))
	require.Equal(t, comment.Hash(), tr.ForwardPayload.Hash())
	require.True(t, tr.ResponseDestination.IsAddrNone())
	require.Nil(t, tr.CustomPayload)

	_, err = BuildTransferMessage(TransferParams{Amount: big.NewInt(-5), Destination: owner})
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = BuildTransferMessage(TransferParams{Amount: big.NewInt(5)})
	require.Error(t, err)
}

func TestBuildBurnMessage(t *testing.T) {
	owner := address.MustParseAddr(testOwner)

	body, err := BuildBurnMessage(7, big.NewInt(5), owner)
	require.NoError(t, err)
	require.Equal(t, "152e51d96a2d7b9235a27d7c2761b099d8a3b79db107b588b8f3013379a12c1a", hex.EncodeToString(body.Hash()))

	_, err = BuildBurnMessage(7, big.NewInt(-5), owner)
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestBuildAdminMessages(t *testing.T) {
	owner := address.MustParseAddr(testOwner)

	body, err := BuildChangeAdminMessage(11, owner)
	require.NoError(t, err)

	s := body.BeginParse()
	require.EqualValues(t, 3, s.MustLoadUInt(32))
	require.EqualValues(t, 11, s.MustLoadUInt(64))
	require.True(t, s.MustLoadAddr().Equals(owner))

	content := MustEncode(Metadata{KeyName: "New"})
	body, err = BuildChangeContentMessage(12, content)
	require.NoError(t, err)

	var x ChangeContentPayload
	require.NoError(t, tlb.LoadFromCell(&x, body.BeginParse()))
	require.EqualValues(t, 12, x.QueryID)
	require.Equal(t, content.Hash(), x.Content.Hash())

	_, err = BuildChangeAdminMessage(1, nil)
	require.Error(t, err)

	_, err = BuildChangeContentMessage(1, nil)
	require.Error(t, err)
}

func TestRandomQueryID(t *testing.T) {
	a, err := RandomQueryID()
	require.NoError(t, err)
	b, err := RandomQueryID()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
