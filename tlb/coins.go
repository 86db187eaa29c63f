package tlb

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/tonkit/jetton-deployer/tvm/cell"
)

var ErrInvalidCoins = errors.New("invalid coins value")

// Coins is a non-negative amount in the smallest units with a number of decimals for display.
type Coins struct {
	decimals int
	val      *big.Int
}

var ZeroCoins = MustFromTON("0")

func (g Coins) String() string {
	if g.val == nil {
		return "0"
	}

	a := g.val.String()
	if a == "0" {
		return a
	}

	splitter := len(a) - g.decimals
	if splitter <= 0 {
		a = "0." + strings.Repeat("0", g.decimals-len(a)) + a
	} else {
		a = a[:splitter] + "." + a[splitter:]
	}

	// cut last zeroes
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] == '.' {
			a = a[:i]
			break
		}
		if a[i] != '0' {
			a = a[:i+1]
			break
		}
	}

	return a
}

// Nano returns amount in the smallest units.
func (g Coins) Nano() *big.Int {
	if g.val == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(g.val)
}

func (g Coins) Decimals() int {
	return g.decimals
}

func (g Coins) IsZero() bool {
	return g.val == nil || g.val.Sign() == 0
}

func MustFromDecimal(val string, decimals int) Coins {
	v, err := FromDecimal(val, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

func MustFromTON(val string) Coins {
	v, err := FromTON(val)
	if err != nil {
		panic(err)
	}
	return v
}

func MustFromNano(val *big.Int, decimals int) Coins {
	v, err := FromNano(val, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

func FromNano(val *big.Int, decimals int) (Coins, error) {
	if decimals < 0 || decimals >= 128 {
		return Coins{}, fmt.Errorf("%w: invalid decimals %d", ErrInvalidCoins, decimals)
	}

	if err := checkCoins(val); err != nil {
		return Coins{}, err
	}

	return Coins{
		decimals: decimals,
		val:      new(big.Int).Set(val),
	}, nil
}

func FromNanoTONU(val uint64) Coins {
	return Coins{
		decimals: 9,
		val:      new(big.Int).SetUint64(val),
	}
}

func FromTON(val string) (Coins, error) {
	return FromDecimal(val, 9)
}

// FromDecimal parses decimal string like "12.5" with up to decimals digits after the point.
func FromDecimal(val string, decimals int) (Coins, error) {
	if decimals < 0 || decimals >= 128 {
		return Coins{}, fmt.Errorf("%w: invalid decimals %d", ErrInvalidCoins, decimals)
	}

	hiStr, loStr, hasPoint := strings.Cut(val, ".")
	if !isDigits(hiStr) || (hasPoint && !isDigits(loStr)) {
		return Coins{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidCoins, val)
	}

	if len(loStr) > decimals {
		return Coins{}, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidCoins, val, decimals)
	}

	// pad fraction to the decimals and parse everything as a single integer
	num, _ := new(big.Int).SetString(hiStr+loStr+strings.Repeat("0", decimals-len(loStr)), 10)

	if err := checkCoins(num); err != nil {
		return Coins{}, err
	}

	return Coins{
		decimals: decimals,
		val:      num,
	}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func checkCoins(val *big.Int) error {
	if val == nil {
		return fmt.Errorf("%w: nil amount", ErrInvalidCoins)
	}

	if val.Sign() < 0 {
		return fmt.Errorf("%w: negative amount", ErrInvalidCoins)
	}

	if uint((val.BitLen()+7)>>3) >= 16 {
		return fmt.Errorf("%w: too big number for coins", ErrInvalidCoins)
	}
	return nil
}

func (g *Coins) LoadFromCell(loader *cell.Slice) error {
	coins, err := loader.LoadBigCoins()
	if err != nil {
		return err
	}
	g.decimals = 9
	g.val = coins
	return nil
}

func (g Coins) ToCell() (*cell.Cell, error) {
	b := cell.BeginCell()
	if err := b.StoreBigCoins(g.Nano()); err != nil {
		return nil, err
	}
	return b.EndCell(), nil
}

func (g Coins) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", g.Nano().String())), nil
}
