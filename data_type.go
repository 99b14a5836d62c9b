package rowbinary

//go:generate go run golang.org/x/tools/cmd/stringer -type=DataType,AggregateFunction,SetterRoute -linecomment -output=data_type_string.go

// DataType is the discriminant of a column wire type.
type DataType int8

const (
	Int8Type              DataType = iota // Int8
	Int16Type                             // Int16
	Int32Type                             // Int32
	Int64Type                             // Int64
	Int128Type                            // Int128
	Int256Type                            // Int256
	UInt8Type                             // UInt8
	UInt16Type                            // UInt16
	UInt32Type                            // UInt32
	UInt64Type                            // UInt64
	UInt128Type                           // UInt128
	UInt256Type                           // UInt256
	Float32Type                           // Float32
	Float64Type                           // Float64
	DecimalType                           // Decimal
	Decimal32Type                         // Decimal32
	Decimal64Type                         // Decimal64
	Decimal128Type                        // Decimal128
	Decimal256Type                        // Decimal256
	BoolType                              // Bool
	StringType                            // String
	FixedStringType                       // FixedString
	DateType                              // Date
	Date32Type                            // Date32
	DateTimeType                          // DateTime
	DateTime64Type                        // DateTime64
	UUIDType                              // UUID
	IPv4Type                              // IPv4
	IPv6Type                              // IPv6
	Enum8Type                             // Enum8
	Enum16Type                            // Enum16
	JSONType                              // JSON
	ArrayType                             // Array
	TupleType                             // Tuple
	MapType                               // Map
	AggregateFunctionType                 // AggregateFunction
)

// IsComposite returns true for types that nest other column types.
func (dt DataType) IsComposite() bool {
	switch dt {
	case ArrayType, TupleType, MapType, AggregateFunctionType:
		return true
	default:
		return false
	}
}

// IsDecimal returns true for all decimal widths.
func (dt DataType) IsDecimal() bool {
	return dt >= DecimalType && dt <= Decimal256Type
}

// IsTemporal returns true for date and date-time types.
func (dt DataType) IsTemporal() bool {
	return dt >= DateType && dt <= DateTime64Type
}

// valueSize returns the fixed wire size in bytes, or 0 if the size depends on the value or the type parameters.
func (dt DataType) valueSize() int {
	switch dt {
	case Int8Type, UInt8Type, BoolType, Enum8Type:
		return byteBytes
	case Int16Type, UInt16Type, DateType, Enum16Type:
		return shortBytes
	case Int32Type, UInt32Type, Float32Type, Date32Type, DateTimeType, IPv4Type, Decimal32Type:
		return intBytes
	case Int64Type, UInt64Type, Float64Type, DateTime64Type, Decimal64Type:
		return longBytes
	case Int128Type, UInt128Type, UUIDType, IPv6Type, Decimal128Type:
		return int128Bytes
	case Int256Type, UInt256Type, Decimal256Type:
		return int256Bytes
	default:
		return 0
	}
}

var dataTypesByName = map[string]DataType{
	"Int8":              Int8Type,
	"TINYINT":           Int8Type,
	"Int16":             Int16Type,
	"SMALLINT":          Int16Type,
	"Int32":             Int32Type,
	"INT":               Int32Type,
	"Int64":             Int64Type,
	"BIGINT":            Int64Type,
	"Int128":            Int128Type,
	"Int256":            Int256Type,
	"UInt8":             UInt8Type,
	"UInt16":            UInt16Type,
	"UInt32":            UInt32Type,
	"UInt64":            UInt64Type,
	"UInt128":           UInt128Type,
	"UInt256":           UInt256Type,
	"Float32":           Float32Type,
	"FLOAT":             Float32Type,
	"Float64":           Float64Type,
	"DOUBLE":            Float64Type,
	"Decimal":           DecimalType,
	"Decimal32":         Decimal32Type,
	"Decimal64":         Decimal64Type,
	"Decimal128":        Decimal128Type,
	"Decimal256":        Decimal256Type,
	"Bool":              BoolType,
	"Boolean":           BoolType,
	"String":            StringType,
	"FixedString":       FixedStringType,
	"Date":              DateType,
	"Date32":            Date32Type,
	"DateTime":          DateTimeType,
	"DateTime32":        DateTimeType,
	"DateTime64":        DateTime64Type,
	"UUID":              UUIDType,
	"IPv4":              IPv4Type,
	"IPv6":              IPv6Type,
	"Enum8":             Enum8Type,
	"Enum16":            Enum16Type,
	"JSON":              JSONType,
	"Array":             ArrayType,
	"Tuple":             TupleType,
	"Map":               MapType,
	"AggregateFunction": AggregateFunctionType,
}

// LookupDataType resolves a ClickHouse type name (without parameters) to its DataType.
func LookupDataType(name string) (DataType, bool) {
	dt, ok := dataTypesByName[name]
	return dt, ok
}

// AggregateFunction identifies the function whose state an AggregateFunction column carries.
type AggregateFunction int8

const (
	UnknownFunction     AggregateFunction = iota // unknown
	GroupBitmapFunction                          // groupBitmap
	SumFunction                                  // sum
	UniqFunction                                 // uniq
	AnyFunction                                  // any
	MinFunction                                  // min
	MaxFunction                                  // max
)

var aggregateFunctionsByName = map[string]AggregateFunction{
	"groupBitmap": GroupBitmapFunction,
	"sum":         SumFunction,
	"uniq":        UniqFunction,
	"any":         AnyFunction,
	"min":         MinFunction,
	"max":         MaxFunction,
}

// LookupAggregateFunction resolves a ClickHouse aggregate function name.
func LookupAggregateFunction(name string) (AggregateFunction, bool) {
	fn, ok := aggregateFunctionsByName[name]
	return fn, ok
}

// SetterRoute is the decode strategy frozen into a SpecializedSetter.
type SetterRoute int8

const (
	// DirectPrimitiveRoute reads a fixed-width value and stores it into a primitive field.
	DirectPrimitiveRoute SetterRoute = iota // direct
	// WideUnsignedRoute reads a 64+-bit unsigned value as *big.Int and narrows it with the big.Int accessors.
	WideUnsignedRoute                       // wide-unsigned
	// GenericRoute decodes a boxed value and assigns it through a precompiled adapter.
	GenericRoute                            // generic
)
