package tlb

import (
	"fmt"

	"github.com/tonkit/jetton-deployer/tvm/cell"
)

// StringSnake is a text stored in snake format: bytes of the cell followed by the chain of refs.
type StringSnake struct {
	Value string
}

func (s *StringSnake) LoadFromCell(loader *cell.Slice) error {
	str, err := loader.LoadStringSnake()
	if err != nil {
		return fmt.Errorf("failed to load snake string: %w", err)
	}

	s.Value = str
	return nil
}

// ToCell has non-pointer receiver, so the value can be used as a struct field directly.
func (s StringSnake) ToCell() (*cell.Cell, error) {
	c := cell.BeginCell()
	if err := c.StoreStringSnake(s.Value); err != nil {
		return nil, err
	}
	return c.EndCell(), nil
}
