package toncenter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

const (
	StateActive        = "active"
	StateUninitialized = "uninitialized"
	StateFrozen        = "frozen"
	StateNonexist      = "nonexist"
)

type V2 struct {
	client *Client
}

func (c *Client) V2() *V2 {
	return &V2{client: c}
}

func (v *V2) apiBase() string {
	return strings.TrimRight(v.client.baseURL, "/") + "/api/v2"
}

type AddressInformationV2Result struct {
	Balance           NanoCoins      `json:"balance"`
	Code              BOC            `json:"code"`
	Data              BOC            `json:"data"`
	LastTransactionID *TransactionID `json:"last_transaction_id"`
	State             string         `json:"state"` // "active", "uninitialized", "frozen"
}

// GetAddressInformation /getAddressInformation
func (v *V2) GetAddressInformation(ctx context.Context, addr *address.Address) (*AddressInformationV2Result, error) {
	q := url.Values{"address": []string{addr.String()}}
	return V2GetCall[AddressInformationV2Result](ctx, v, "getAddressInformation", q)
}

// GetAddressBalance /getAddressBalance
func (v *V2) GetAddressBalance(ctx context.Context, addr *address.Address) (*NanoCoins, error) {
	q := url.Values{"address": []string{addr.String()}}
	return V2GetCall[NanoCoins](ctx, v, "getAddressBalance", q)
}

// GetAddressState /getAddressState
func (v *V2) GetAddressState(ctx context.Context, addr *address.Address) (string, error) {
	q := url.Values{"address": []string{addr.String()}}
	res, err := V2GetCall[string](ctx, v, "getAddressState", q)
	if err != nil {
		return "", err
	}

	return *res, nil
}

// SendBoc /sendBoc, data is serialized external message.
func (v *V2) SendBoc(ctx context.Context, data []byte) error {
	_, err := V2PostCall[any](ctx, v, "sendBoc", map[string][]byte{
		"boc": data,
	})
	return err
}

type RunGetMethodV2Result struct {
	GasUsed           uint64
	Stack             []any
	ExitCode          int
	LastTransactionID *TransactionID
}

// RunGetMethod /runGetMethod, stack elements could be *cell.Cell and *big.Int,
// only numbers are supported in the result stack.
func (v *V2) RunGetMethod(ctx context.Context, addr *address.Address, method string, stack ...any) (*RunGetMethodV2Result, error) {
	type runGetMethodRequest struct {
		Address string     `json:"address"`
		Method  string     `json:"method"`
		Stack   [][]string `json:"stack"`
	}

	type runGetMethodResult struct {
		GasUsed           uint64         `json:"gas_used"`
		Stack             [][]any        `json:"stack"`
		ExitCode          int            `json:"exit_code"`
		LastTransactionID *TransactionID `json:"last_transaction_id"`
	}

	var stk = [][]string{}
	for _, a := range stack {
		switch val := a.(type) {
		case *cell.Cell:
			stk = append(stk, []string{"tvm.Cell", base64.StdEncoding.EncodeToString(val.ToBOC())})
		case *big.Int:
			if val == nil {
				return nil, fmt.Errorf("nil big.Int")
			}
			stk = append(stk, []string{"num", "0x" + val.Text(16)})
		default:
			return nil, fmt.Errorf("unsupported stack element type %T", a)
		}
	}

	res, err := V2PostCall[runGetMethodResult](ctx, v, "runGetMethod", runGetMethodRequest{
		Address: addr.String(),
		Method:  method,
		Stack:   stk,
	})
	if err != nil {
		return nil, err
	}

	parsed, err := parseStackV2(res.Stack)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stack: %w", err)
	}

	return &RunGetMethodV2Result{
		GasUsed:           res.GasUsed,
		Stack:             parsed,
		ExitCode:          res.ExitCode,
		LastTransactionID: res.LastTransactionID,
	}, nil
}

func parseStackV2(stack [][]any) ([]any, error) {
	var stk []any
	for _, a := range stack {
		if len(a) != 2 {
			return nil, fmt.Errorf("incorrect stack element")
		}

		name, ok := a[0].(string)
		if !ok {
			return nil, fmt.Errorf("incorrect stack element name type")
		}

		val, ok := a[1].(string)
		if !ok || name != "num" {
			return nil, fmt.Errorf("result stack type '%s' is not supported", name)
		}

		neg := strings.HasPrefix(val, "-")
		val = strings.TrimPrefix(val, "-")
		if !strings.HasPrefix(val, "0x") {
			return nil, fmt.Errorf("invalid number format")
		}

		res, ok := new(big.Int).SetString(val[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid number format")
		}
		if neg {
			res.Neg(res)
		}
		stk = append(stk, res)
	}
	return stk, nil
}

func V2PostCall[T any](ctx context.Context, v *V2, method string, req any) (*T, error) {
	return doPOST[T](ctx, v.client, v.apiBase()+"/"+method, req)
}

func V2GetCall[T any](ctx context.Context, v *V2, method string, query url.Values) (*T, error) {
	return doGET[T](ctx, v.client, v.apiBase()+"/"+method, query)
}

// IsContractDeployed reports whether account is active and holds code.
// Accounts which are not found are reported as not deployed.
func (c *Client) IsContractDeployed(ctx context.Context, addr *address.Address) (bool, error) {
	info, err := c.V2().GetAddressInformation(ctx, addr)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return false, nil
		}
		return false, fmt.Errorf("failed to get address information: %w", err)
	}

	return info.State == StateActive && info.Code.Cell != nil, nil
}

// GetPublicKey calls get_public_key of the wallet contract.
func (c *Client) GetPublicKey(ctx context.Context, addr *address.Address) ([]byte, error) {
	res, err := c.V2().RunGetMethod(ctx, addr, "get_public_key")
	if err != nil {
		return nil, fmt.Errorf("failed to run get_public_key method: %w", err)
	}

	if res.ExitCode != 0 {
		return nil, fmt.Errorf("get_public_key exit code %d", res.ExitCode)
	}

	if len(res.Stack) == 0 {
		return nil, errors.New("get_public_key returned empty stack")
	}

	key := res.Stack[0].(*big.Int)
	if key.Sign() < 0 || key.BitLen() > 256 {
		return nil, errors.New("get_public_key returned invalid key")
	}
	return key.FillBytes(make([]byte, 32)), nil
}
