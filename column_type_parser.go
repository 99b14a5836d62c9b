package rowbinary

import (
	"fmt"
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/alecthomas/participle/v2/lexer/stateful"
	"strconv"
	"strings"
)

var (
	typeLexer = stateful.MustSimple([]stateful.Rule{
		{`Ident`, "[a-zA-Z_][a-zA-Z_0-9]*|`[^`]*`", nil},
		{`Number`, `[-+]?\d*\.?\d+([eE][-+]?\d+)?`, nil},
		{`String`, `'(\\.|[^'])*'|"(\\.|[^"])*"`, nil},
		{`Punct`, `[(),=]`, nil},
		{`Whitespace`, `\s+`, nil},
	})
	typeParser = participle.MustBuild(&typeAST{},
		participle.Lexer(typeLexer),
		participle.Elide("Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
)

// typeAST is a type expression such as `Map(String, Array(Nullable(Decimal(10, 2))))`. Inside a Tuple an
// element may be named, `Tuple(id UInt64, name String)`: Name then holds the element name and Inner
// the element type.
type typeAST struct {
	Pos lexer.Position

	Name   string       `@Ident`
	Params []*typeParam `( "(" ( @@ ( "," @@ )* )? ")" )?`
	Inner  *typeAST     `@@?`
}

type typeParam struct {
	Enum   *enumValueAST `  @@`
	String *string       `| @String`
	Number *string       `| @Number`
	Type   *typeAST      `| @@`
}

type enumValueAST struct {
	Name  string `@String "="`
	Value string `@Number`
}

// ParseColumnType parses a ClickHouse type expression. Besides all the types ColumnType models it
// accepts LowCardinality(T) and SimpleAggregateFunction(f, T), which have the wire format of T.
func ParseColumnType(name string, typeString string) (*ColumnType, error) {
	ast := &typeAST{}
	if err := typeParser.ParseString("", typeString, ast); err != nil {
		return nil, fmt.Errorf("invalid column type '%s': %w", typeString, err)
	}
	col, err := ast.toColumnType(name)
	if err != nil {
		return nil, fmt.Errorf("invalid column type '%s': %w", typeString, err)
	}
	return col, nil
}

func (t *typeAST) toColumnType(name string) (*ColumnType, error) {
	if t.Inner != nil {
		return nil, participle.Errorf(t.Pos, "unexpected element name %s", t.Name)
	}
	dt, opts, err := t.resolve()
	if err != nil {
		return nil, err
	}
	col, err := NewColumnType(name, dt, opts...)
	if err != nil {
		return nil, participle.Errorf(t.Pos, "%s", err)
	}
	return col, nil
}

func (t *typeAST) resolve() (DataType, []ColumnTypeOption, error) {
	switch t.Name {
	case "Nullable":
		inner, err := t.singleType()
		if err != nil {
			return 0, nil, err
		}
		dt, opts, err := inner.resolve()
		return dt, append(opts, Nullable()), err
	case "LowCardinality":
		inner, err := t.singleType()
		if err != nil {
			return 0, nil, err
		}
		return inner.resolve()
	case "SimpleAggregateFunction":
		if len(t.Params) != 2 || t.Params[1].Type == nil {
			return 0, nil, participle.Errorf(t.Pos, "expected SimpleAggregateFunction(function, type)")
		}
		return t.Params[1].Type.resolve()
	}
	dt, ok := LookupDataType(t.Name)
	if !ok {
		dt, ok = lookupDataTypeFold(t.Name)
	}
	if !ok {
		return 0, nil, participle.Errorf(t.Pos, "unknown type %s", t.Name)
	}
	var opts []ColumnTypeOption
	switch dt {
	case DecimalType:
		nums, err := t.numbers(1, 2)
		if err != nil {
			return 0, nil, err
		}
		opts = append(opts, WithPrecision(nums[0]))
		if len(nums) == 2 {
			opts = append(opts, WithScale(nums[1]))
		}
	case Decimal32Type, Decimal64Type, Decimal128Type, Decimal256Type:
		nums, err := t.numbers(1, 1)
		if err != nil {
			return 0, nil, err
		}
		opts = append(opts, WithScale(nums[0]))
	case FixedStringType:
		nums, err := t.numbers(1, 1)
		if err != nil {
			return 0, nil, err
		}
		opts = append(opts, WithPrecision(nums[0]))
	case DateTimeType:
		if len(t.Params) > 1 || len(t.Params) == 1 && t.Params[0].String == nil {
			return 0, nil, participle.Errorf(t.Pos, "expected DateTime(['zone'])")
		}
		if len(t.Params) == 1 {
			opts = append(opts, WithTimeZoneName(*t.Params[0].String))
		}
	case DateTime64Type:
		if len(t.Params) < 1 || len(t.Params) > 2 || t.Params[0].Number == nil ||
			len(t.Params) == 2 && t.Params[1].String == nil {
			return 0, nil, participle.Errorf(t.Pos, "expected DateTime64(scale[, 'zone'])")
		}
		scale, err := t.number(t.Params[0])
		if err != nil {
			return 0, nil, err
		}
		opts = append(opts, WithScale(scale))
		if len(t.Params) == 2 {
			opts = append(opts, WithTimeZoneName(*t.Params[1].String))
		}
	case Enum8Type, Enum16Type:
		values := make(map[string]int, len(t.Params))
		for _, p := range t.Params {
			if p.Enum == nil {
				return 0, nil, participle.Errorf(t.Pos, "expected %s('name' = value, ...)", dt)
			}
			v, err := strconv.Atoi(p.Enum.Value)
			if err != nil {
				return 0, nil, participle.Errorf(t.Pos, "invalid enum value %s", p.Enum.Value)
			}
			values[p.Enum.Name] = v
		}
		opts = append(opts, WithEnumValues(values))
	case ArrayType:
		inner, err := t.singleType()
		if err != nil {
			return 0, nil, err
		}
		elem, err := inner.toColumnType("")
		if err != nil {
			return 0, nil, err
		}
		opts = append(opts, WithElement(elem))
	case TupleType:
		elems := make([]*ColumnType, len(t.Params))
		for i, p := range t.Params {
			if p.Type == nil {
				return 0, nil, participle.Errorf(t.Pos, "expected Tuple(type, ...)")
			}
			elemType, elemName := p.Type, ""
			if p.Type.Inner != nil {
				elemType, elemName = p.Type.Inner, strings.Trim(p.Type.Name, "`")
			}
			elem, err := elemType.toColumnType(elemName)
			if err != nil {
				return 0, nil, err
			}
			elems[i] = elem
		}
		opts = append(opts, WithElements(elems...))
	case MapType:
		if len(t.Params) != 2 || t.Params[0].Type == nil || t.Params[1].Type == nil {
			return 0, nil, participle.Errorf(t.Pos, "expected Map(key, value)")
		}
		key, err := t.Params[0].Type.toColumnType("")
		if err != nil {
			return 0, nil, err
		}
		value, err := t.Params[1].Type.toColumnType("")
		if err != nil {
			return 0, nil, err
		}
		opts = append(opts, WithKeyValue(key, value))
	case AggregateFunctionType:
		if len(t.Params) != 2 || t.Params[0].Type == nil || t.Params[1].Type == nil {
			return 0, nil, participle.Errorf(t.Pos, "expected AggregateFunction(function, type)")
		}
		fn, ok := LookupAggregateFunction(t.Params[0].Type.Name)
		if !ok {
			fn = UnknownFunction
		}
		arg, err := t.Params[1].Type.toColumnType("")
		if err != nil {
			return 0, nil, err
		}
		opts = append(opts, WithAggregateFunction(fn, arg))
	default:
		if len(t.Params) != 0 {
			return 0, nil, participle.Errorf(t.Pos, "%s takes no parameters", dt)
		}
	}
	return dt, opts, nil
}

func (t *typeAST) singleType() (*typeAST, error) {
	if len(t.Params) != 1 || t.Params[0].Type == nil {
		return nil, participle.Errorf(t.Pos, "expected %s(type)", t.Name)
	}
	return t.Params[0].Type, nil
}

func (t *typeAST) numbers(lo int, hi int) ([]int, error) {
	if len(t.Params) < lo || len(t.Params) > hi {
		return nil, participle.Errorf(t.Pos, "%s expects %d to %d numeric parameters", t.Name, lo, hi)
	}
	ret := make([]int, len(t.Params))
	for i, p := range t.Params {
		n, err := t.number(p)
		if err != nil {
			return nil, err
		}
		ret[i] = n
	}
	return ret, nil
}

func (t *typeAST) number(p *typeParam) (int, error) {
	if p.Number == nil {
		return 0, participle.Errorf(t.Pos, "%s expects numeric parameters", t.Name)
	}
	n, err := strconv.Atoi(*p.Number)
	if err != nil {
		return 0, participle.Errorf(t.Pos, "invalid number %s", *p.Number)
	}
	return n, nil
}

func lookupDataTypeFold(name string) (DataType, bool) {
	for typeName, dt := range dataTypesByName {
		if strings.EqualFold(typeName, name) {
			return dt, true
		}
	}
	return 0, false
}
