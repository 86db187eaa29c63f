package jetton

import (
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tlb"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

func testTemplate() *Template {
	return &Template{
		MinterCode: cell.BeginCell().MustStoreSlice([]byte("minter"), 48).EndCell(),
		WalletCode: cell.BeginCell().MustStoreSlice([]byte("wallet"), 48).EndCell(),
	}
}

var testMetadata = Metadata{KeyName: "Test", KeySymbol: "TST"}

func TestBuildInitData(t *testing.T) {
	tpl := testTemplate()

	data, err := BuildInitData(testOwner, testMetadata, tpl)
	require.NoError(t, err)
	require.Equal(t, "d9c963898c9091ef661f8ef65451babad50801511444610924986a08ed76ca77", hex.EncodeToString(data.Hash()))

	var md MinterData
	require.NoError(t, tlb.LoadFromCell(&md, data.BeginParse()))
	require.True(t, md.TotalSupply.IsZero())
	require.True(t, md.Admin.Equals(address.MustParseAddr(testOwner)))
	require.Equal(t, tpl.WalletCode.Hash(), md.WalletCode.Hash())

	m, err := Decode(md.Content)
	require.NoError(t, err)
	require.Equal(t, testMetadata, m)
}

func TestBuildInitData_Errors(t *testing.T) {
	tpl := testTemplate()

	for _, owner := range []string{"", "EQA...", "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2M", "0:zz"} {
		_, err := BuildInitData(owner, testMetadata, tpl)
		require.ErrorIs(t, err, ErrInvalidAddress, owner)
		require.ErrorIs(t, err, address.ErrInvalidAddress, owner)

		var addrErr *InvalidAddressError
		require.ErrorAs(t, err, &addrErr)
		require.Equal(t, owner, addrErr.Address)
	}

	_, err := BuildInitData(testOwner, Metadata{"foo": "bar"}, tpl)
	require.ErrorIs(t, err, ErrUnsupportedKey)

	_, err = BuildInitData(testOwner, testMetadata, nil)
	require.ErrorIs(t, err, ErrNoTemplate)

	_, err = NewDeployParams(testOwner, testMetadata, &Template{WalletCode: tpl.WalletCode})
	require.ErrorIs(t, err, ErrNoTemplate)
}

func TestParseOwner(t *testing.T) {
	a, err := ParseOwner(testOwner)
	require.NoError(t, err)

	b, err := ParseOwner("0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8")
	require.NoError(t, err)
	require.True(t, a.Equals(b))
}

func TestDeriveAddress(t *testing.T) {
	tpl := testTemplate()

	data, err := BuildInitData(testOwner, testMetadata, tpl)
	require.NoError(t, err)

	addr := DeriveAddress(tpl.MinterCode, data)
	require.Equal(t, "EQD7s9OgmogiftudppFzXp-IyTHQ57az7Qnn82MjmMfwAbkd", addr.String())
	require.Equal(t, addr.String(), DeriveAddress(tpl.MinterCode, data).String())

	parsed, err := address.ParseAddr(addr.String())
	require.NoError(t, err)
	require.True(t, parsed.Equals(addr))

	master := DeriveAddressIn(-1, tpl.MinterCode, data)
	require.EqualValues(t, -1, master.Workchain())
	require.Equal(t, addr.Data(), master.Data())
}

func TestDeriveAddress_WalletV3(t *testing.T) {
	// v3r2 wallet of a known key, address as shown by wallet apps
	code, err := hex.DecodeString("B5EE9C724101010100710000DEFF0020DD2082014C97BA218201339CBAB19F71B0ED44D0D31FD31F31D70BFFE304E0A4F2608308D71820D31FD31FD31FF82313BBF263ED44D0D31FD31FD3FFD15132BAF2A15144BAF2A204F901541055F910F2A3F8009320D74A96D307D402FB00E8D101A4C8CB1FCB1FCBFFC9ED5410BD6DAD")
	require.NoError(t, err)

	pub, err := hex.DecodeString("dcc39550bb494f4b493e7efe1aa18ea31470f33a2553c568cb74a17ed56790c1")
	require.NoError(t, err)

	data := cell.BeginCell().
		MustStoreUInt(0, 32).
		MustStoreUInt(698983191, 32).
		MustStoreSlice(pub, 256).
		EndCell()

	addr := DeriveAddress(cell.MustFromBOC(code), data)
	require.Equal(t, "EQCvoBT5Keb46oUhI_DpX0WXFDdX9ZyxXBfX3FC9cZa90nQP", addr.String())
}

func TestDeriveAddress_DependsOnOwner(t *testing.T) {
	tpl := testTemplate()

	a, err := BuildInitData(testOwner, testMetadata, tpl)
	require.NoError(t, err)

	b, err := BuildInitData("EQA_B407fiLIlE5VYZCaI2rki0in6kLyjdhhwitvZNfpe7eY", testMetadata, tpl)
	require.NoError(t, err)

	require.NotEqual(t, DeriveAddress(tpl.MinterCode, a).String(), DeriveAddress(tpl.MinterCode, b).String())

	c, err := BuildInitData(testOwner, Metadata{KeyName: "Other"}, tpl)
	require.NoError(t, err)
	require.NotEqual(t, DeriveAddress(tpl.MinterCode, a).String(), DeriveAddress(tpl.MinterCode, c).String())
}

func TestDeployParams(t *testing.T) {
	tpl := testTemplate()

	p, err := NewDeployParams(testOwner, testMetadata, tpl)
	require.NoError(t, err)

	require.Equal(t, "EQD7s9OgmogiftudppFzXp-IyTHQ57az7Qnn82MjmMfwAbkd", p.Address().String())
	require.Equal(t, tpl.MinterCode.Hash(), p.Code().Hash())
	require.Equal(t, "d9c963898c9091ef661f8ef65451babad50801511444610924986a08ed76ca77", hex.EncodeToString(p.InitData().Hash()))

	owner := p.Owner()
	owner.SetBounce(false)
	require.True(t, p.Owner().IsBounceable())

	si := p.StateInit()
	require.Equal(t, p.Address().String(), si.CalcAddress(0).String())
}

func TestBuildDeployMessage(t *testing.T) {
	p, err := NewDeployParams(testOwner, testMetadata, testTemplate())
	require.NoError(t, err)

	msg, err := BuildDeployMessage(p, big.NewInt(1000))
	require.NoError(t, err)

	require.Equal(t, "UQD7s9OgmogiftudppFzXp-IyTHQ57az7Qnn82MjmMfwAeTY", msg.DstAddr.String())
	require.False(t, msg.Bounce)
	require.Equal(t, "0.25", msg.Amount.String())
	require.Equal(t, "41597c9355afecb89033653379862810162df21afc3e600d83c92304bb0e593c", hex.EncodeToString(msg.Body.Hash()))
	require.Equal(t, p.Code().Hash(), msg.StateInit.Code.Hash())
	require.Equal(t, p.InitData().Hash(), msg.StateInit.Data.Hash())

	c, err := msg.ToCell()
	require.NoError(t, err)

	var parsed tlb.InternalMessage
	require.NoError(t, parsed.LoadFromCell(c.BeginParse()))
	require.True(t, parsed.DstAddr.Equals(p.Address()))
	require.NotNil(t, parsed.StateInit)
	require.Equal(t, p.Address().String(), parsed.StateInit.CalcAddress(0).String())

	msg, err = BuildDeployMessage(p, big.NewInt(1000),
		WithDeployAmount(tlb.MustFromTON("1")),
		WithMintGasAmount(tlb.MustFromTON("0.1")),
	)
	require.NoError(t, err)
	require.Equal(t, "1", msg.Amount.String())

	var mint MintPayload
	require.NoError(t, tlb.LoadFromCell(&mint, msg.Body.BeginParse()))
	require.Equal(t, "0.1", mint.TonAmount.String())

	_, err = BuildDeployMessage(p, big.NewInt(-1))
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestWalletAddress(t *testing.T) {
	tpl := testTemplate()
	minter := address.MustParseAddr("EQD7s9OgmogiftudppFzXp-IyTHQ57az7Qnn82MjmMfwAbkd")

	addr, err := WalletAddress(minter, address.MustParseAddr(testOwner), tpl.WalletCode)
	require.NoError(t, err)
	require.Equal(t, "EQDy30AaqrOhyFZo_HS_KuLZEPM-gTP1P9qAzV12sytzKArw", addr.String())

	_, err = WalletAddress(nil, address.MustParseAddr(testOwner), tpl.WalletCode)
	require.Error(t, err)
}

func TestNewOffchainDeployParams(t *testing.T) {
	tpl := testTemplate()

	p, err := NewOffchainDeployParams(testOwner, "https://example.com/jetton.json", tpl)
	require.NoError(t, err)

	var md MinterData
	require.NoError(t, tlb.LoadFromCell(&md, p.InitData().BeginParse()))

	uri, err := DecodeOffchain(md.Content)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/jetton.json", uri)

	_, err = NewOffchainDeployParams(testOwner, "", tpl)
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadTemplate(t *testing.T) {
	tpl := testTemplate()
	minterBOC := tpl.MinterCode.ToBOC()
	walletBOC := tpl.WalletCode.ToBOCWithFlags(false)

	forms := map[string][2][]byte{
		"raw":    {minterBOC, walletBOC},
		"hex":    {[]byte(hex.EncodeToString(minterBOC)), []byte(hex.EncodeToString(walletBOC) + "\n")},
		"base64": {[]byte(base64.StdEncoding.EncodeToString(minterBOC)), []byte(base64.StdEncoding.EncodeToString(walletBOC))},
	}

	for name, f := range forms {
		t.Run(name, func(t *testing.T) {
			loaded, err := LoadTemplate(f[0], f[1])
			require.NoError(t, err)
			require.Equal(t, tpl.MinterCode.Hash(), loaded.MinterCode.Hash())
			require.Equal(t, tpl.WalletCode.Hash(), loaded.WalletCode.Hash())
		})
	}

	_, err := LoadTemplate([]byte("not a boc"), walletBOC)
	require.Error(t, err)

	_, err = LoadTemplate(minterBOC, []byte("b5ee9c72"))
	require.Error(t, err)
}

func TestLoadTemplateFiles(t *testing.T) {
	tpl := testTemplate()
	dir := t.TempDir()

	minterPath := filepath.Join(dir, "minter.boc")
	walletPath := filepath.Join(dir, "wallet.hex")
	require.NoError(t, os.WriteFile(minterPath, tpl.MinterCode.ToBOC(), 0o600))
	require.NoError(t, os.WriteFile(walletPath, []byte(hex.EncodeToString(tpl.WalletCode.ToBOC())), 0o600))

	loaded, err := LoadTemplateFiles(minterPath, walletPath)
	require.NoError(t, err)
	require.Equal(t, tpl.WalletCode.Hash(), loaded.WalletCode.Hash())

	_, err = LoadTemplateFiles(filepath.Join(dir, "missing.boc"), walletPath)
	require.Error(t, err)
}
