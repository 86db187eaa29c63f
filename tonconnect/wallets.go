package tonconnect

import (
	"fmt"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"

	"github.com/tonkit/jetton-deployer/tvm/cell"
)

type walletVersion int

const (
	walletV3R1 walletVersion = iota + 1
	walletV3R2
	walletV4R2
)

// code hashes of wallets which keep the key in their data,
// others are resolved with get_public_key of the deployed contract.
var walletVersionByCodeHash = map[string]walletVersion{
	"b61041a58a7980b946e8fb9e198e3c904d24799ffa36574ea4251c41a566f581": walletV3R1,
	"84dafa449f98a6987789ba232358072bc0f76dc4524002a5d0918b9a75d2d599": walletV3R2,
	"feb5ff6820e2ff0d9483e7e0d62c817d846789fb4ae580c878866d959dabd5c0": walletV4R2,
}

func parsePubKeyFromData(ver walletVersion, data *cell.Cell) (ed25519.PublicKey, error) {
	switch ver {
	case walletV3R1, walletV3R2, walletV4R2:
		s := data.BeginParse()
		// seqno and subwallet id
		if _, err := s.LoadSlice(64); err != nil {
			return nil, err
		}

		key, err := s.LoadSlice(256)
		if err != nil {
			return nil, err
		}
		return key, nil
	}
	return nil, fmt.Errorf("unsupported wallet version %d", ver)
}
