package jetton

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tlb"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

// DefaultDeployAmount is attached to the deploy message, it covers the mint gas and storage.
var DefaultDeployAmount = tlb.MustFromTON("0.25")

// Template is the compiled code of the minter and of the jetton wallet it deploys.
type Template struct {
	MinterCode *cell.Cell
	WalletCode *cell.Cell
}

// MinterData is the initial storage of the minter contract.
type MinterData struct {
	TotalSupply tlb.Coins        `tlb:"."`
	Admin       *address.Address `tlb:"addr"`
	Content     *cell.Cell       `tlb:"^"`
	WalletCode  *cell.Cell       `tlb:"^"`
}

// WalletData is the initial storage of the standard jetton wallet.
type WalletData struct {
	Balance    tlb.Coins        `tlb:"."`
	Owner      *address.Address `tlb:"addr"`
	Master     *address.Address `tlb:"addr"`
	WalletCode *cell.Cell       `tlb:"^"`
}

// DeployParams is everything needed to deploy the minter, it is not changed after creation.
type DeployParams struct {
	owner    *address.Address
	initData *cell.Cell
	code     *cell.Cell
}

type deployConfig struct {
	amount  tlb.Coins
	mintGas tlb.Coins
}

type DeployOption func(*deployConfig)

// WithDeployAmount sets TON amount attached to the deploy message.
func WithDeployAmount(amount tlb.Coins) DeployOption {
	return func(c *deployConfig) {
		c.amount = amount
	}
}

// WithMintGasAmount sets TON amount the minter forwards with the internal transfer.
func WithMintGasAmount(amount tlb.Coins) DeployOption {
	return func(c *deployConfig) {
		c.mintGas = amount
	}
}

// LoadTemplate parses minter and wallet code, each one can be raw, hex or base64 encoded BOC.
func LoadTemplate(minterBOC, walletBOC []byte) (*Template, error) {
	minter, err := decodeBOC(minterBOC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse minter code: %w", err)
	}

	wallet, err := decodeBOC(walletBOC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet code: %w", err)
	}

	return &Template{
		MinterCode: minter,
		WalletCode: wallet,
	}, nil
}

func LoadTemplateFiles(minterPath, walletPath string) (*Template, error) {
	minter, err := os.ReadFile(minterPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read minter code: %w", err)
	}

	wallet, err := os.ReadFile(walletPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet code: %w", err)
	}

	return LoadTemplate(minter, wallet)
}

func decodeBOC(data []byte) (*cell.Cell, error) {
	if c, err := cell.FromBOC(data); err == nil {
		return c, nil
	}

	str := strings.TrimSpace(string(data))
	raw, err := hex.DecodeString(str)
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(str)
		if err != nil {
			return nil, errors.New("data is not a boc in raw, hex or base64 form")
		}
	}

	return cell.FromBOC(raw)
}

// ParseOwner parses user-friendly or raw address.
func ParseOwner(owner string) (*address.Address, error) {
	addr, err := address.ParseAddr(owner)
	if err != nil && strings.Contains(owner, ":") {
		addr, err = address.ParseRawAddr(owner)
	}

	if err != nil {
		return nil, &InvalidAddressError{Address: owner, Err: err}
	}
	return addr, nil
}

// BuildInitData builds the minter storage: zero supply, owner as admin,
// content and the wallet code.
func BuildInitData(owner string, metadata Metadata, tpl *Template) (*cell.Cell, error) {
	if tpl == nil || tpl.WalletCode == nil {
		return nil, ErrNoTemplate
	}

	addr, err := ParseOwner(owner)
	if err != nil {
		return nil, err
	}

	content, err := Encode(metadata)
	if err != nil {
		return nil, err
	}

	return buildInitData(addr, content, tpl.WalletCode)
}

func buildInitData(owner *address.Address, content, walletCode *cell.Cell) (*cell.Cell, error) {
	data, err := tlb.ToCell(MinterData{
		TotalSupply: tlb.ZeroCoins,
		Admin:       owner,
		Content:     content,
		WalletCode:  walletCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert MinterData to cell: %w", err)
	}
	return data, nil
}

func NewDeployParams(owner string, metadata Metadata, tpl *Template) (*DeployParams, error) {
	if tpl == nil || tpl.MinterCode == nil || tpl.WalletCode == nil {
		return nil, ErrNoTemplate
	}

	addr, err := ParseOwner(owner)
	if err != nil {
		return nil, err
	}

	content, err := Encode(metadata)
	if err != nil {
		return nil, err
	}

	data, err := buildInitData(addr, content, tpl.WalletCode)
	if err != nil {
		return nil, err
	}

	return &DeployParams{
		owner:    addr,
		initData: data,
		code:     tpl.MinterCode,
	}, nil
}

// NewOffchainDeployParams is like NewDeployParams, but metadata is hosted at uri.
func NewOffchainDeployParams(owner, uri string, tpl *Template) (*DeployParams, error) {
	if tpl == nil || tpl.MinterCode == nil || tpl.WalletCode == nil {
		return nil, ErrNoTemplate
	}

	addr, err := ParseOwner(owner)
	if err != nil {
		return nil, err
	}

	content, err := EncodeOffchain(uri)
	if err != nil {
		return nil, err
	}

	data, err := buildInitData(addr, content, tpl.WalletCode)
	if err != nil {
		return nil, err
	}

	return &DeployParams{
		owner:    addr,
		initData: data,
		code:     tpl.MinterCode,
	}, nil
}

func (p *DeployParams) Owner() *address.Address {
	return p.owner.Copy()
}

func (p *DeployParams) InitData() *cell.Cell {
	return p.initData
}

func (p *DeployParams) Code() *cell.Cell {
	return p.code
}

func (p *DeployParams) StateInit() *tlb.StateInit {
	return &tlb.StateInit{
		Code: p.code,
		Data: p.initData,
	}
}

// Address is the minter address in the basechain.
func (p *DeployParams) Address() *address.Address {
	return DeriveAddress(p.code, p.initData)
}

// DeriveAddress computes the basechain address the contract gets when deployed with code and data.
func DeriveAddress(code, initData *cell.Cell) *address.Address {
	return DeriveAddressIn(0, code, initData)
}

// DeriveAddressIn is DeriveAddress for any workchain, ids of std addresses are 8 bit.
func DeriveAddressIn(workchain int8, code, initData *cell.Cell) *address.Address {
	return tlb.StateInit{
		Code: code,
		Data: initData,
	}.CalcAddress(workchain)
}

// BuildDeployMessage builds the internal message the owner's wallet should send:
// minter state init and the mint of amount jettons to the owner.
func BuildDeployMessage(p *DeployParams, amount *big.Int, opts ...DeployOption) (*tlb.InternalMessage, error) {
	cfg := deployConfig{
		amount:  DefaultDeployAmount,
		mintGas: DefaultMintGasAmount,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	body, err := BuildMintMessageWithGas(p.owner, amount, cfg.mintGas)
	if err != nil {
		return nil, fmt.Errorf("failed to build mint message: %w", err)
	}

	return &tlb.InternalMessage{
		IHRDisabled: true,
		Bounce:      false,
		DstAddr:     p.Address().Bounce(false),
		Amount:      cfg.amount,
		StateInit:   p.StateInit(),
		Body:        body,
	}, nil
}

// WalletAddress computes the jetton wallet address of owner offline,
// wallet code should be the one the minter was deployed with.
func WalletAddress(minter, owner *address.Address, walletCode *cell.Cell) (*address.Address, error) {
	if minter == nil || owner == nil || walletCode == nil {
		return nil, errors.New("minter, owner and wallet code are required")
	}

	data, err := tlb.ToCell(WalletData{
		Balance:    tlb.ZeroCoins,
		Owner:      owner,
		Master:     minter,
		WalletCode: walletCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert WalletData to cell: %w", err)
	}

	return tlb.StateInit{
		Code: walletCode,
		Data: data,
	}.CalcAddress(int8(minter.Workchain())), nil
}
