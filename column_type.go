package rowbinary

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	maxDecimalPrecision    = 76
	maxDateTime64Scale     = 9
	defaultDateTime64Scale = 3
)

var defaultDecimalPrecisions = map[DataType]int{
	Decimal32Type:  9,
	Decimal64Type:  18,
	Decimal128Type: 38,
	Decimal256Type: 76,
}

// ColumnType describes the wire type of one column. It is immutable once constructed and safe to share
// between goroutines.
type ColumnType struct {
	name       string
	dataType   DataType
	nullable   bool
	precision  int
	scale      int
	timeZone   *time.Location
	nested     []*ColumnType
	aggFunc    AggregateFunction
	enumNames  map[string]int16
	enumValues map[int16]string

	decodeOnce sync.Once
	decode     decodeFunc
}

// ColumnTypeOption configures a column type under construction.
type ColumnTypeOption func(col *ColumnType) error

// NewColumnType creates a validated column type.
func NewColumnType(name string, dt DataType, opts ...ColumnTypeOption) (*ColumnType, error) {
	if dt < Int8Type || dt > AggregateFunctionType {
		return nil, fmt.Errorf("invalid data type: %d", dt)
	}
	col := &ColumnType{
		name:     name,
		dataType: dt,
		scale:    -1,
	}
	for _, opt := range opts {
		if err := opt(col); err != nil {
			return nil, err
		}
	}
	if err := col.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s column '%s': %w", col.dataType, col.name, err)
	}
	return col, nil
}

// MustColumnType is like NewColumnType but panics on error. It is intended for static column declarations.
func MustColumnType(name string, dt DataType, opts ...ColumnTypeOption) *ColumnType {
	col, err := NewColumnType(name, dt, opts...)
	if err != nil {
		panic(err)
	}
	return col
}

// Nullable marks the column as nullable.
func Nullable() ColumnTypeOption {
	return func(col *ColumnType) error {
		col.nullable = true
		return nil
	}
}

// WithPrecision sets the decimal precision or the FixedString width.
func WithPrecision(precision int) ColumnTypeOption {
	return func(col *ColumnType) error {
		if precision <= 0 {
			return fmt.Errorf("invalid precision: %d", precision)
		}
		col.precision = precision
		return nil
	}
}

// WithScale sets the decimal scale or the fractional second digits of DateTime64.
func WithScale(scale int) ColumnTypeOption {
	return func(col *ColumnType) error {
		if scale < 0 {
			return fmt.Errorf("invalid scale: %d", scale)
		}
		col.scale = scale
		return nil
	}
}

// WithTimeZone sets the zone temporal values are converted into. UTC is used when it is not set.
func WithTimeZone(loc *time.Location) ColumnTypeOption {
	return func(col *ColumnType) error {
		if loc == nil {
			return errors.New("nil time zone")
		}
		col.timeZone = loc
		return nil
	}
}

// WithTimeZoneName loads the zone by its IANA name, see WithTimeZone.
func WithTimeZoneName(zone string) ColumnTypeOption {
	return func(col *ColumnType) error {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return err
		}
		col.timeZone = loc
		return nil
	}
}

// WithElement sets the element type of an Array column.
func WithElement(elem *ColumnType) ColumnTypeOption {
	return WithElements(elem)
}

// WithElements sets the nested types of a Tuple column.
func WithElements(elems ...*ColumnType) ColumnTypeOption {
	return func(col *ColumnType) error {
		for _, elem := range elems {
			if elem == nil {
				return errors.New("nil nested type")
			}
		}
		col.nested = elems
		return nil
	}
}

// WithKeyValue sets key and value types of a Map column.
func WithKeyValue(key *ColumnType, value *ColumnType) ColumnTypeOption {
	return WithElements(key, value)
}

// WithAggregateFunction sets the function and argument type of an AggregateFunction column.
func WithAggregateFunction(fn AggregateFunction, arg *ColumnType) ColumnTypeOption {
	return func(col *ColumnType) error {
		if arg == nil {
			return errors.New("nil aggregate function argument")
		}
		col.aggFunc = fn
		col.nested = []*ColumnType{arg}
		return nil
	}
}

// WithEnumValues sets the name to value dictionary of an Enum8 or Enum16 column.
func WithEnumValues(values map[string]int) ColumnTypeOption {
	return func(col *ColumnType) error {
		col.enumNames = make(map[string]int16, len(values))
		col.enumValues = make(map[int16]string, len(values))
		for name, value := range values {
			if value < math.MinInt16 || value > math.MaxInt16 {
				return fmt.Errorf("enum value %s = %d is out of range", name, value)
			}
			if prev, ok := col.enumValues[int16(value)]; ok {
				return fmt.Errorf("enum value %d is used by both %s and %s", value, prev, name)
			}
			col.enumNames[name] = int16(value)
			col.enumValues[int16(value)] = name
		}
		return nil
	}
}

func (col *ColumnType) validate() error {
	switch dt := col.dataType; {
	case dt == DecimalType:
		if col.precision < 1 || col.precision > maxDecimalPrecision {
			return fmt.Errorf("decimal precision must be in [1, %d], got %d", maxDecimalPrecision, col.precision)
		}
		return col.validateDecimalScale()
	case dt.IsDecimal():
		maxPrecision := defaultDecimalPrecisions[dt]
		if col.precision == 0 {
			col.precision = maxPrecision
		}
		if col.precision > maxPrecision {
			return fmt.Errorf("precision %d does not fit into %s", col.precision, dt)
		}
		return col.validateDecimalScale()
	case dt == FixedStringType:
		if col.precision < 1 {
			return errors.New("fixed string length must be positive")
		}
	case dt == DateTime64Type:
		if col.scale < 0 {
			col.scale = defaultDateTime64Scale
		}
		if col.scale > maxDateTime64Scale {
			return fmt.Errorf("scale must be in [0, %d], got %d", maxDateTime64Scale, col.scale)
		}
	case dt == Enum8Type:
		for name, v := range col.enumNames {
			if v < math.MinInt8 || v > math.MaxInt8 {
				return fmt.Errorf("enum value %s = %d does not fit into Enum8", name, v)
			}
		}
	case dt == ArrayType:
		if len(col.nested) != 1 {
			return fmt.Errorf("array requires exactly one element type, got %d", len(col.nested))
		}
	case dt == TupleType:
		if len(col.nested) == 0 {
			return errors.New("tuple requires at least one element type")
		}
	case dt == MapType:
		if len(col.nested) != 2 {
			return fmt.Errorf("map requires key and value types, got %d", len(col.nested))
		}
		if key := col.nested[0]; key.dataType.IsComposite() || key.nullable {
			return fmt.Errorf("map key cannot be %s", key)
		}
	case dt == AggregateFunctionType:
		if len(col.nested) != 1 {
			return errors.New("aggregate function requires an argument type")
		}
	}
	if col.scale < 0 {
		col.scale = 0
	}
	if col.nullable && col.dataType.IsComposite() {
		return fmt.Errorf("%s cannot be nullable", col.dataType)
	}
	return nil
}

func (col *ColumnType) validateDecimalScale() error {
	if col.scale < 0 {
		col.scale = 0
	}
	if col.scale > col.precision {
		return fmt.Errorf("scale %d exceeds precision %d", col.scale, col.precision)
	}
	return nil
}

// Name returns the column name.
func (col *ColumnType) Name() string {
	return col.name
}

func (col *ColumnType) DataType() DataType {
	return col.dataType
}

func (col *ColumnType) IsNullable() bool {
	return col.nullable
}

func (col *ColumnType) Precision() int {
	return col.precision
}

func (col *ColumnType) Scale() int {
	return col.scale
}

// TimeZone returns the declared zone, or nil if none was declared.
func (col *ColumnType) TimeZone() *time.Location {
	return col.timeZone
}

func (col *ColumnType) location() *time.Location {
	if col.timeZone == nil {
		return time.UTC
	}
	return col.timeZone
}

// Nested returns the nested types: the element of an Array, the elements of a Tuple, key and value
// of a Map, the argument of an AggregateFunction.
func (col *ColumnType) Nested() []*ColumnType {
	return col.nested
}

func (col *ColumnType) AggregateFunction() AggregateFunction {
	return col.aggFunc
}

// EnumValue resolves an enum name.
func (col *ColumnType) EnumValue(name string) (int16, bool) {
	v, ok := col.enumNames[name]
	return v, ok
}

// EnumName resolves an enum value.
func (col *ColumnType) EnumName(value int16) (string, bool) {
	name, ok := col.enumValues[value]
	return name, ok
}

// decimalType returns the storage type of a decimal column.
func (col *ColumnType) decimalType() DataType {
	if col.dataType != DecimalType {
		return col.dataType
	}
	switch {
	case col.precision <= 9:
		return Decimal32Type
	case col.precision <= 18:
		return Decimal64Type
	case col.precision <= 38:
		return Decimal128Type
	default:
		return Decimal256Type
	}
}

func (col *ColumnType) decoder() decodeFunc {
	col.decodeOnce.Do(func() {
		col.decode = compileDecoder(col)
	})
	return col.decode
}

// String renders the type in ClickHouse notation.
func (col *ColumnType) String() string {
	var sb strings.Builder
	col.writeType(&sb)
	return sb.String()
}

func (col *ColumnType) writeType(sb *strings.Builder) {
	if col.nullable {
		sb.WriteString("Nullable(")
		defer sb.WriteString(")")
	}
	sb.WriteString(col.dataType.String())
	switch col.dataType {
	case DecimalType:
		fmt.Fprintf(sb, "(%d, %d)", col.precision, col.scale)
	case Decimal32Type, Decimal64Type, Decimal128Type, Decimal256Type:
		fmt.Fprintf(sb, "(%d)", col.scale)
	case FixedStringType:
		fmt.Fprintf(sb, "(%d)", col.precision)
	case DateTimeType:
		if col.timeZone != nil {
			fmt.Fprintf(sb, "('%s')", col.timeZone)
		}
	case DateTime64Type:
		if col.timeZone != nil {
			fmt.Fprintf(sb, "(%d, '%s')", col.scale, col.timeZone)
		} else {
			fmt.Fprintf(sb, "(%d)", col.scale)
		}
	case Enum8Type, Enum16Type:
		values := make([]int, 0, len(col.enumValues))
		for v := range col.enumValues {
			values = append(values, int(v))
		}
		sort.Ints(values)
		sb.WriteString("(")
		for i, v := range values {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "'%s' = %s", col.enumValues[int16(v)], strconv.Itoa(v))
		}
		sb.WriteString(")")
	case AggregateFunctionType:
		fmt.Fprintf(sb, "(%s, ", col.aggFunc)
		col.nested[0].writeType(sb)
		sb.WriteString(")")
	case ArrayType, TupleType, MapType:
		sb.WriteString("(")
		for i, nested := range col.nested {
			if i > 0 {
				sb.WriteString(", ")
			}
			nested.writeType(sb)
		}
		sb.WriteString(")")
	}
}

// renamed returns a copy of col with another name.
func (col *ColumnType) renamed(name string) *ColumnType {
	return &ColumnType{
		name:       name,
		dataType:   col.dataType,
		nullable:   col.nullable,
		precision:  col.precision,
		scale:      col.scale,
		timeZone:   col.timeZone,
		nested:     col.nested,
		aggFunc:    col.aggFunc,
		enumNames:  col.enumNames,
		enumValues: col.enumValues,
	}
}
