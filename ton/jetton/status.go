package jetton

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tonkit/jetton-deployer/address"
)

// ChainDataProvider reads account state from the chain, toncenter.Client implements it.
type ChainDataProvider interface {
	IsContractDeployed(ctx context.Context, addr *address.Address) (bool, error)
}

type StatusChecker struct {
	provider ChainDataProvider
}

func NewStatusChecker(provider ChainDataProvider) *StatusChecker {
	return &StatusChecker{
		provider: provider,
	}
}

// IsDeployed reports whether the account holds contract code. Provider failures
// are returned as *TransportError and never retried here.
func (c *StatusChecker) IsDeployed(ctx context.Context, addr *address.Address) (bool, error) {
	if addr == nil {
		return false, errors.New("address is required")
	}

	ok, err := c.provider.IsContractDeployed(ctx, addr)
	if err != nil {
		return false, &TransportError{Address: addr.String(), Err: err}
	}
	return ok, nil
}

// WaitDeployed polls the account every interval until it has code or ctx is done.
func (c *StatusChecker) WaitDeployed(ctx context.Context, addr *address.Address, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval should be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := c.IsDeployed(ctx, addr)
		if err != nil {
			return err
		}

		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
