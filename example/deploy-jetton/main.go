package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/tonkit/jetton-deployer/config"
	"github.com/tonkit/jetton-deployer/tlb"
	"github.com/tonkit/jetton-deployer/ton/jetton"
	"github.com/tonkit/jetton-deployer/tonconnect"
)

// stdoutWallet prints requests instead of passing them to a TON Connect bridge,
// paste the printed message into any wallet which supports sendTransaction.
type stdoutWallet struct {
	conn *tonconnect.Connection
}

func (w *stdoutWallet) Connection() *tonconnect.Connection {
	return w.conn
}

func (w *stdoutWallet) Submit(_ context.Context, req *tonconnect.TransactionRequest) (*tonconnect.TransactionResult, error) {
	rpc, err := req.RPC()
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err = enc.Encode(rpc); err != nil {
		return nil, err
	}
	return &tonconnect.TransactionResult{}, nil
}

func main() {
	cfg, err := config.Load("deployer.yaml")
	if err != nil {
		log.Fatalln("load config err:", err.Error())
		return
	}

	tpl, err := jetton.LoadTemplateFiles(cfg.Template.Minter, cfg.Template.Wallet)
	if err != nil {
		log.Fatalln("load template err:", err.Error())
		return
	}

	// address of the connected wallet, it becomes the admin of the minter
	owner := "0QAcsLrH81e_Wh3nrH7Td3rqptMsWNZ5zueGz7I7qtA1qDE_"

	params, err := jetton.NewDeployParams(owner, jetton.Metadata{
		jetton.KeyName:        "Example Jetton",
		jetton.KeySymbol:      "EXJ",
		jetton.KeyDescription: "Jetton deployed by the example",
		jetton.KeyImage:       "https://example.com/jetton.png",
	}, tpl)
	if err != nil {
		log.Fatalln("deploy params err:", err.Error())
		return
	}

	minter := params.Address()
	log.Println("minter address:", minter.String())

	api := cfg.ToncenterClient()
	checker := jetton.NewStatusChecker(api)

	deployed, err := checker.IsDeployed(context.Background(), minter)
	if err != nil {
		log.Fatalln("status check err:", err.Error())
		return
	}

	if deployed {
		log.Println("jetton is already deployed")
		return
	}

	deployAmount, err := cfg.DeployAmount()
	if err != nil {
		log.Fatalln(err)
	}

	mintGas, err := cfg.MintGasAmount()
	if err != nil {
		log.Fatalln(err)
	}

	// 1 000 000 jettons with 9 decimals
	supply := tlb.MustFromDecimal("1000000", 9)

	msg, err := jetton.BuildDeployMessage(params, supply.Nano(),
		jetton.WithDeployAmount(deployAmount),
		jetton.WithMintGasAmount(mintGas),
	)
	if err != nil {
		log.Fatalln("build deploy message err:", err.Error())
		return
	}
	msg.DstAddr = msg.DstAddr.Testnet(cfg.IsTestnet())

	req, err := tonconnect.NewDeployRequest(msg, cfg.Deploy.ValidFor)
	if err != nil {
		log.Fatalln("build request err:", err.Error())
		return
	}

	w := &stdoutWallet{
		conn: &tonconnect.Connection{
			Account: tonconnect.Account{
				Address: params.Owner(),
			},
		},
	}

	if _, err = tonconnect.Send(context.Background(), w, req); err != nil {
		log.Fatalln("send err:", err.Error())
		return
	}

	log.Println("waiting for deployment...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Deploy.ValidFor+time.Minute)
	defer cancel()

	if err = checker.WaitDeployed(ctx, minter, cfg.Deploy.PollInterval); err != nil {
		log.Fatalln("wait err:", err.Error())
		return
	}

	walletAddr, err := jetton.WalletAddress(minter, params.Owner(), tpl.WalletCode)
	if err != nil {
		log.Fatalln(err)
	}

	log.Println("jetton deployed, owner's jetton wallet:", walletAddr.Testnet(cfg.IsTestnet()).String())
}
