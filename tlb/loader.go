package tlb

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

type Magic struct{}

type manualLoader interface {
	LoadFromCell(loader *cell.Slice) error
}

type manualStore interface {
	ToCell() (*cell.Cell, error)
}

var (
	cellType   = reflect.TypeOf(&cell.Cell{})
	bigIntType = reflect.TypeOf(&big.Int{})
)

type fieldTag struct {
	maybe  bool
	ref    bool
	either bool
	kind   string
	size   uint
	magic  string
}

// parseTag parses struct field tag, incorrect tags are a developer's mistake, so we panic.
func parseTag(tag string) fieldTag {
	var t fieldTag

	settings := strings.Fields(tag)
	if len(settings) > 0 && settings[0] == "maybe" {
		t.maybe = true
		settings = settings[1:]
	}

	if len(settings) > 0 && settings[0] == "either" {
		if len(settings) != 3 || settings[1] != "." || settings[2] != "^" {
			panic("only 'either . ^' is supported, tag " + tag)
		}
		t.either = true
		return t
	}

	if len(settings) > 0 && settings[0] == "^" {
		t.ref = true
		settings = settings[1:]
	}

	if len(settings) == 0 || settings[0] == "." {
		return t
	}

	switch kind := settings[0]; {
	case kind == "##" || kind == "bits" || kind == "dict":
		if len(settings) != 2 {
			panic("size is required for tag " + tag)
		}

		sz, err := strconv.ParseUint(settings[1], 10, 16)
		if err != nil {
			panic("corrupted size in tag " + tag)
		}
		t.kind, t.size = kind, uint(sz)
	case kind == "addr" || kind == "bool":
		t.kind = kind
	case strings.HasPrefix(kind, "#") || strings.HasPrefix(kind, "$"):
		t.kind, t.magic = "magic", kind
	default:
		panic("unknown tag " + tag)
	}

	return t
}

// ToCell serializes struct according to tlb field tags:
// ## N - integer with N bits, *big.Int for sizes above 64
// ^ - serializes field into a ref
// . - serializes inner struct inline, *cell.Cell is stored as is
// dict N - HashmapE with key size N
// bits N - N bits from []byte
// bool - 1 bit boolean
// addr - address
// maybe - 1 bit flag, then the value if it is not nil, combined with others
// either . ^ - 1 bit flag, then the value inline if it fits, otherwise in a ref
// Magic fields write its prefix from the tag, in [#]HEX or [$]BIN format:
// _ Magic `tlb:"#deadbeef"`
func ToCell(v any) (*cell.Cell, error) {
	if st, ok := v.(manualStore); ok {
		c, err := st.ToCell()
		if err != nil {
			return nil, fmt.Errorf("failed to store to cell for %T using manual storer, err: %w", v, err)
		}
		return c, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, errors.New("v should not be nil")
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("v should be a struct, got %s", rv.Kind())
	}

	root := cell.BeginCell()
	for i := 0; i < rv.NumField(); i++ {
		structField := rv.Type().Field(i)
		tag := strings.TrimSpace(structField.Tag.Get("tlb"))
		if tag == "" || tag == "-" {
			continue
		}
		t := parseTag(tag)

		fieldVal := rv.Field(i)
		if t.maybe {
			if !canBeNil(fieldVal.Kind()) {
				panic("maybe can only be applied to pointer, field " + structField.Name)
			}

			if fieldVal.IsNil() {
				if err := root.StoreBoolBit(false); err != nil {
					return nil, fmt.Errorf("failed to store maybe bit for %s: %w", structField.Name, err)
				}
				continue
			}

			if err := root.StoreBoolBit(true); err != nil {
				return nil, fmt.Errorf("failed to store maybe bit for %s: %w", structField.Name, err)
			}
		}

		if t.either {
			c, err := valueToCell(fieldVal)
			if err != nil {
				return nil, fmt.Errorf("failed to serialize field %s: %w", structField.Name, err)
			}

			if root.BitsLeft() > c.BitsSize() && root.RefsLeft() >= c.RefsNum() {
				root.MustStoreBoolBit(false)
				err = root.StoreBuilder(c.ToBuilder())
			} else {
				root.MustStoreBoolBit(true)
				err = root.StoreRef(c)
			}

			if err != nil {
				return nil, fmt.Errorf("failed to store either field %s: %w", structField.Name, err)
			}
			continue
		}

		if t.ref && fieldVal.Type() == cellType && t.kind == "" {
			if err := root.StoreRef(fieldVal.Interface().(*cell.Cell)); err != nil {
				return nil, fmt.Errorf("failed to store ref for %s: %w", structField.Name, err)
			}
			continue
		}

		builder := root
		if t.ref {
			builder = cell.BeginCell()
		}

		if err := storeField(builder, fieldVal, t); err != nil {
			return nil, fmt.Errorf("failed to store field %s: %w", structField.Name, err)
		}

		if t.ref {
			if err := root.StoreRef(builder.EndCell()); err != nil {
				return nil, fmt.Errorf("failed to store ref for %s: %w", structField.Name, err)
			}
		}
	}

	return root.EndCell(), nil
}

func valueToCell(val reflect.Value) (*cell.Cell, error) {
	if val.Type() == cellType {
		c := val.Interface().(*cell.Cell)
		if c == nil {
			return cell.BeginCell().EndCell(), nil
		}
		return c, nil
	}
	return ToCell(val.Interface())
}

func storeField(b *cell.Builder, val reflect.Value, t fieldTag) error {
	switch t.kind {
	case "magic":
		magic, sz := parseMagic(t.magic)
		return b.StoreUInt(magic, sz)
	case "##":
		if val.Type() == bigIntType {
			return b.StoreBigInt(val.Interface().(*big.Int), t.size)
		}

		if val.Kind() == reflect.Pointer {
			val = val.Elem()
		}

		switch val.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return b.StoreInt(val.Int(), t.size)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return b.StoreUInt(val.Uint(), t.size)
		}
		panic("unexpected field type for tag ## - " + val.Type().String())
	case "addr":
		return b.StoreAddr(val.Interface().(*address.Address))
	case "bool":
		return b.StoreBoolBit(val.Bool())
	case "bits":
		return b.StoreSlice(val.Bytes(), t.size)
	case "dict":
		return b.StoreDict(val.Interface().(*cell.Dictionary))
	}

	if val.Type() == cellType {
		c := val.Interface().(*cell.Cell)
		if c == nil {
			return nil
		}
		return b.StoreBuilder(c.ToBuilder())
	}

	c, err := ToCell(val.Interface())
	if err != nil {
		return err
	}
	return b.StoreBuilder(c.ToBuilder())
}

// LoadFromCell parses cell into struct according to tlb field tags, see ToCell for the tags.
// Magic fields are checked and loading fails on mismatch.
func LoadFromCell(v any, loader *cell.Slice) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("v should be a pointer and not nil")
	}

	if ld, ok := v.(manualLoader); ok {
		if err := ld.LoadFromCell(loader); err != nil {
			return fmt.Errorf("failed to load from cell for %T using manual loader, err: %w", v, err)
		}
		return nil
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("v should point to a struct, got %s", rv.Kind())
	}

	for i := 0; i < rv.NumField(); i++ {
		structField := rv.Type().Field(i)
		tag := strings.TrimSpace(structField.Tag.Get("tlb"))
		if tag == "" || tag == "-" {
			continue
		}
		t := parseTag(tag)

		if t.maybe {
			has, err := loader.LoadBoolBit()
			if err != nil {
				return fmt.Errorf("failed to load maybe for %s, err: %w", structField.Name, err)
			}

			if !has {
				continue
			}
		}

		if t.either {
			isRef, err := loader.LoadBoolBit()
			if err != nil {
				return fmt.Errorf("failed to load either bit for %s, err: %w", structField.Name, err)
			}

			if isRef {
				t.ref = true
			}
		}

		ld := loader
		if t.ref {
			ref, err := loader.LoadRefCell()
			if err != nil {
				return fmt.Errorf("failed to load ref for %s, err: %w", structField.Name, err)
			}

			if structField.Type == cellType && t.kind == "" {
				rv.Field(i).Set(reflect.ValueOf(ref))
				continue
			}
			ld = ref.BeginParse()
		}

		val, err := loadField(ld, structField.Type, t)
		if err != nil {
			return fmt.Errorf("failed to load field %s of %s, err: %w", structField.Name, rv.Type().Name(), err)
		}

		if val.IsValid() {
			rv.Field(i).Set(val)
		}
	}

	return nil
}

func loadField(loader *cell.Slice, typ reflect.Type, t fieldTag) (reflect.Value, error) {
	switch t.kind {
	case "magic":
		magic, sz := parseMagic(t.magic)
		ldMagic, err := loader.LoadUInt(sz)
		if err != nil {
			return reflect.Value{}, err
		}

		if ldMagic != magic {
			return reflect.Value{}, fmt.Errorf("magic is not correct, want %s, got %x", t.magic, ldMagic)
		}
		return reflect.Value{}, nil
	case "##":
		if typ == bigIntType {
			x, err := loader.LoadBigInt(t.size)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(x), nil
		}

		base := typ
		if base.Kind() == reflect.Pointer {
			base = base.Elem()
		}

		var x reflect.Value
		switch base.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := loader.LoadInt(t.size)
			if err != nil {
				return reflect.Value{}, err
			}
			x = reflect.ValueOf(n).Convert(base)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n, err := loader.LoadUInt(t.size)
			if err != nil {
				return reflect.Value{}, err
			}
			x = reflect.ValueOf(n).Convert(base)
		default:
			panic("unexpected field type for tag ## - " + typ.String())
		}

		if typ.Kind() == reflect.Pointer {
			ptr := reflect.New(base)
			ptr.Elem().Set(x)
			return ptr, nil
		}
		return x, nil
	case "addr":
		x, err := loader.LoadAddr()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(x), nil
	case "bool":
		x, err := loader.LoadBoolBit()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(x), nil
	case "bits":
		x, err := loader.LoadSlice(t.size)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(x), nil
	case "dict":
		x, err := loader.LoadDict(t.size)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(x), nil
	}

	if typ == cellType {
		c, err := loader.ToCell()
		if err != nil {
			return reflect.Value{}, fmt.Errorf("failed to convert slice to cell: %w", err)
		}
		return reflect.ValueOf(c), nil
	}

	base := typ
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	nVal := reflect.New(base)
	if err := LoadFromCell(nVal.Interface(), loader); err != nil {
		return reflect.Value{}, err
	}

	if typ.Kind() != reflect.Pointer {
		nVal = nVal.Elem()
	}
	return nVal, nil
}

func parseMagic(tag string) (uint64, uint) {
	var sz uint
	var base int
	switch tag[0] {
	case '#':
		base, sz = 16, uint(len(tag)-1)*4
	case '$':
		base, sz = 2, uint(len(tag)-1)
	}

	if sz > 64 {
		panic("too big magic value in tag " + tag)
	}

	magic, err := strconv.ParseUint(tag[1:], base, 64)
	if err != nil {
		panic("corrupted magic value in tag " + tag)
	}
	return magic, sz
}

func canBeNil(k reflect.Kind) bool {
	return k == reflect.Pointer || k == reflect.Interface || k == reflect.Slice
}
