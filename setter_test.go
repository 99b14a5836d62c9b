package rowbinary

import (
	"cloud.google.com/go/civil"
	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"io"
	"math"
	"math/big"
	"net"
	"net/netip"
	"reflect"
	"testing"
	"time"
)

type Embedded struct {
	E int16
}

type setterTarget struct {
	Embedded
	I8     int8
	I16    int16
	I32    int32
	I64    int64
	I      int
	U8     uint8
	U16    uint16
	U32    uint32
	U64    uint64
	F32    float32
	F64    float64
	B      bool
	S      string
	Bytes  []byte
	P32    *int32
	D      apd.Decimal
	DP     *apd.Decimal
	SD     decimal.Decimal
	T      time.Time
	CD     civil.Date
	CDT    civil.DateTime
	ID     uuid.UUID
	Raw    [16]byte
	IP     net.IP
	Addr   netip.Addr
	Enum   string
	Arr    []int64
	I32s   []int32
	F64s   []float64
	Blob   []byte
	Tup    [2]interface{}
	M      map[string]*int64
	Big    *big.Int
	BigVal big.Int
	Any    interface{}
	BM     *Bitmap
	hidden int32
}

var setterTargetType = reflect.TypeOf(setterTarget{})

func requireFieldValue(t *testing.T, expected interface{}, actual interface{}) {
	switch exp := expected.(type) {
	case decimal.Decimal:
		require.IsType(t, exp, actual)
		require.True(t, exp.Equal(actual.(decimal.Decimal)), "expected %s, got %s", exp, actual)
	case apd.Decimal:
		require.IsType(t, exp, actual)
		act := actual.(apd.Decimal)
		require.Zero(t, exp.Cmp(&act), "expected %s, got %s", &exp, &act)
	case big.Int:
		require.IsType(t, exp, actual)
		act := actual.(big.Int)
		require.Zero(t, exp.Cmp(&act), "expected %s, got %s", &exp, &act)
	default:
		requireSameValue(t, expected, actual)
	}
}

func TestSetterRoutes(t *testing.T) {
	one := int64(1)
	int32Col := MustColumnType("c", Int32Type)
	fixtures := []struct {
		name     string
		field    string
		col      *ColumnType
		value    interface{}
		route    SetterRoute
		expected interface{}
	}{
		{"Int8 to int8", "I8", MustColumnType("c", Int8Type), -5, DirectPrimitiveRoute, int8(-5)},
		{"Int8 to int64", "I64", MustColumnType("c", Int8Type), -5, DirectPrimitiveRoute, int64(-5)},
		{"UInt32 to int64", "I64", MustColumnType("c", UInt32Type), uint32(math.MaxUint32), DirectPrimitiveRoute, int64(math.MaxUint32)},
		{"UInt16 to float32", "F32", MustColumnType("c", UInt16Type), 65535, DirectPrimitiveRoute, float32(65535)},
		{"Int32 to float64", "F64", int32Col, math.MinInt32, DirectPrimitiveRoute, float64(math.MinInt32)},
		{"Float32 to float64", "F64", MustColumnType("c", Float32Type), float32(1.5), DirectPrimitiveRoute, 1.5},
		{"UInt64 to uint64", "U64", MustColumnType("c", UInt64Type), uint64(math.MaxUint64), DirectPrimitiveRoute, uint64(math.MaxUint64)},
		{"Int16 to embedded", "E", MustColumnType("c", Int16Type), -300, DirectPrimitiveRoute, int16(-300)},
		{"Bool", "B", MustColumnType("c", BoolType), true, DirectPrimitiveRoute, true},
		{"Enum8 to int8", "I8", MustColumnType("c", Enum8Type), 3, DirectPrimitiveRoute, int8(3)},
		{"nullable Int32 to int32", "I32", MustColumnType("c", Int32Type, Nullable()), 9, DirectPrimitiveRoute, int32(9)},
		{"UInt64 to int64", "I64", MustColumnType("c", UInt64Type), uint64(1 << 62), WideUnsignedRoute, int64(1 << 62)},
		{"UInt128 to uint64", "U64", MustColumnType("c", UInt128Type), uint64(math.MaxUint64), WideUnsignedRoute, uint64(math.MaxUint64)},
		{"UInt256 to int64", "I64", MustColumnType("c", UInt256Type), 12, WideUnsignedRoute, int64(12)},
		{"nullable Int32 to pointer", "P32", MustColumnType("c", Int32Type, Nullable()), 7, GenericRoute, func() *int32 { v := int32(7); return &v }()},
		{"nullable Int32 null to pointer", "P32", MustColumnType("c", Int32Type, Nullable()), nil, GenericRoute, (*int32)(nil)},
		{"String", "S", MustColumnType("c", StringType), "text", GenericRoute, "text"},
		{"String to bytes", "Bytes", MustColumnType("c", StringType), "raw", GenericRoute, []byte("raw")},
		{"FixedString", "S", MustColumnType("c", FixedStringType, WithPrecision(2)), "ab", GenericRoute, "ab"},
		{
			"Decimal to apd value",
			"D",
			MustColumnType("c", DecimalType, WithPrecision(10), WithScale(2)),
			"12.34",
			GenericRoute,
			*apd.New(1234, -2),
		},
		{
			"Decimal to apd pointer",
			"DP",
			MustColumnType("c", Decimal128Type, WithScale(3)),
			"-0.5",
			GenericRoute,
			apd.New(-500, -3),
		},
		{
			"Decimal to shopspring",
			"SD",
			MustColumnType("c", Decimal64Type, WithScale(2)),
			"12.34",
			GenericRoute,
			decimal.RequireFromString("12.34"),
		},
		{
			"Decimal to float64",
			"F64",
			MustColumnType("c", Decimal32Type, WithScale(2)),
			"-12.34",
			GenericRoute,
			-12.34,
		},
		{
			"DateTime64 to time",
			"T",
			MustColumnType("c", DateTime64Type),
			time.Unix(1, 500_000_000),
			GenericRoute,
			time.Unix(1, 500_000_000),
		},
		{
			"DateTime64 to civil",
			"CDT",
			MustColumnType("c", DateTime64Type),
			time.Unix(1, 500_000_000),
			GenericRoute,
			civil.DateTime{
				Date: civil.Date{Year: 1970, Month: time.January, Day: 1},
				Time: civil.Time{Second: 1, Nanosecond: 500_000_000},
			},
		},
		{
			"Date to civil",
			"CD",
			MustColumnType("c", DateType),
			civil.Date{Year: 2024, Month: time.February, Day: 29},
			GenericRoute,
			civil.Date{Year: 2024, Month: time.February, Day: 29},
		},
		{
			"UUID",
			"ID",
			MustColumnType("c", UUIDType),
			"00112233-4455-6677-8899-aabbccddeeff",
			GenericRoute,
			uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff"),
		},
		{
			"UUID to array",
			"Raw",
			MustColumnType("c", UUIDType),
			"00112233-4455-6677-8899-aabbccddeeff",
			GenericRoute,
			[16]byte(uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")),
		},
		{"IPv4 to net.IP", "IP", MustColumnType("c", IPv4Type), "1.2.3.4", GenericRoute, net.IPv4(1, 2, 3, 4).To4()},
		{"IPv6 to netip", "Addr", MustColumnType("c", IPv6Type), "::1", GenericRoute, netip.MustParseAddr("::1")},
		{
			"Enum8 to name",
			"Enum",
			MustColumnType("c", Enum8Type, WithEnumValues(map[string]int{"a": 1, "b": 2})),
			"b",
			GenericRoute,
			"b",
		},
		{
			"Array to typed slice",
			"Arr",
			MustColumnType("c", ArrayType, WithElement(int32Col)),
			[]int32{3, -1},
			GenericRoute,
			[]int64{3, -1},
		},
		{
			"Array to slice of the element type",
			"I32s",
			MustColumnType("c", ArrayType, WithElement(int32Col)),
			[]int32{3, -1, math.MaxInt32},
			GenericRoute,
			[]int32{3, -1, math.MaxInt32},
		},
		{
			"Array of Float64",
			"F64s",
			MustColumnType("c", ArrayType, WithElement(MustColumnType("", Float64Type))),
			[]float64{1.5, math.Inf(-1), math.SmallestNonzeroFloat64},
			GenericRoute,
			[]float64{1.5, math.Inf(-1), math.SmallestNonzeroFloat64},
		},
		{
			"Empty array of Float64",
			"F64s",
			MustColumnType("c", ArrayType, WithElement(MustColumnType("", Float64Type))),
			[]float64{},
			GenericRoute,
			[]float64{},
		},
		{
			"Array of UInt8 to bytes",
			"Blob",
			MustColumnType("c", ArrayType, WithElement(MustColumnType("", UInt8Type))),
			[]byte{0, 7, 255},
			GenericRoute,
			[]byte{0, 7, 255},
		},
		{
			"Tuple to array",
			"Tup",
			MustColumnType("c", TupleType, WithElements(MustColumnType("", Int8Type), MustColumnType("", StringType))),
			[]interface{}{1, "x"},
			GenericRoute,
			[2]interface{}{int8(1), "x"},
		},
		{
			"Map to typed map",
			"M",
			MustColumnType("c", MapType, WithKeyValue(MustColumnType("", StringType), MustColumnType("", Int64Type, Nullable()))),
			NewMap(KeyValue{Key: "a", Value: 1}, KeyValue{Key: "b", Value: nil}),
			GenericRoute,
			map[string]*int64{"a": &one, "b": nil},
		},
		{"Int128 to big.Int pointer", "Big", MustColumnType("c", Int128Type), minInt128, GenericRoute, minInt128},
		{"Int256 to big.Int", "BigVal", MustColumnType("c", Int256Type), maxInt256, GenericRoute, *maxInt256},
		{"Int128 to int64", "I64", MustColumnType("c", Int128Type), -77, GenericRoute, int64(-77)},
		{"Int32 to interface", "Any", int32Col, 5, GenericRoute, int32(5)},
		{
			"groupBitmap",
			"BM",
			MustColumnType("c", AggregateFunctionType, WithAggregateFunction(GroupBitmapFunction, MustColumnType("", UInt8Type))),
			mustBitmap(t, UInt8Type, 1, 2),
			GenericRoute,
			mustBitmap(t, UInt8Type, 1, 2),
		},
	}
	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			out := NewBinaryOutputStream(0)
			require.NoError(t, defaultSerializer.serializeColumn(out, fixture.value, fixture.col))

			setter, err := CompileSetter(setterTargetType, fixture.field, fixture.col)
			require.NoError(t, err)
			require.Equal(t, fixture.route, setter.Route())
			require.Equal(t, fixture.field, setter.Field())
			require.Same(t, fixture.col, setter.Column())

			var obj setterTarget
			in := NewBinaryInputStreamFromBytes(out.Data())
			require.NoError(t, setter.SetValue(&obj, in))
			require.Equal(t, len(out.Data()), in.Position())
			actual := reflect.ValueOf(obj).FieldByName(fixture.field).Interface()
			requireFieldValue(t, fixture.expected, actual)

			field, _ := setterTargetType.FieldByName(fixture.field)
			offset, ok := fieldOffset(setterTargetType, field.Index)
			require.True(t, ok)
			generic, err := compileSetter(setterTargetType, field.Name, field.Type, offset, fixture.col, withGenericRoute())
			require.NoError(t, err)
			require.Equal(t, GenericRoute, generic.Route())

			var genericObj setterTarget
			require.NoError(t, generic.SetValue(&genericObj, NewBinaryInputStreamFromBytes(out.Data())))
			require.Equal(t, obj, genericObj)
		})
	}
}

func TestSetterNullClearsField(t *testing.T) {
	fixtures := []struct {
		name  string
		field string
		col   *ColumnType
	}{
		{"direct", "I32", MustColumnType("c", Int32Type, Nullable())},
		{"wide", "I64", MustColumnType("c", UInt64Type, Nullable())},
		{"generic", "S", MustColumnType("c", StringType, Nullable())},
		{"generic pointer", "P32", MustColumnType("c", Int32Type, Nullable())},
	}
	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			v := int32(1)
			obj := setterTarget{I32: 5, I64: 6, S: "s", P32: &v}
			setter, err := CompileSetter(setterTargetType, fixture.field, fixture.col)
			require.NoError(t, err)
			require.NoError(t, setter.SetValue(&obj, NewBinaryInputStreamFromBytes([]byte{1})))
			require.True(t, reflect.ValueOf(obj).FieldByName(fixture.field).IsZero())
		})
	}
}

func TestSetterValueOutOfRange(t *testing.T) {
	fixtures := []struct {
		name    string
		field   string
		col     *ColumnType
		wireCol *ColumnType
		value   interface{}
	}{
		{"UInt64 into int64", "I64", MustColumnType("c", UInt64Type), MustColumnType("c", UInt64Type), uint64(math.MaxUint64)},
		{"UInt128 into uint64", "U64", MustColumnType("c", UInt128Type), MustColumnType("c", UInt128Type), maxUInt128},
		{"Int128 into int64", "I64", MustColumnType("c", Int128Type), MustColumnType("c", Int128Type), maxInt128},
		{
			"unknown enum value",
			"Enum",
			MustColumnType("c", Enum8Type, WithEnumValues(map[string]int{"a": 1})),
			MustColumnType("c", Int8Type),
			5,
		},
	}
	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			out := NewBinaryOutputStream(0)
			require.NoError(t, defaultSerializer.Serialize(out, fixture.value, fixture.wireCol))
			setter, err := CompileSetter(setterTargetType, fixture.field, fixture.col)
			require.NoError(t, err)

			var obj setterTarget
			err = setter.SetValue(&obj, NewBinaryInputStreamFromBytes(out.Data()))
			var mismatchErr *ValueTypeMismatchError
			require.ErrorAs(t, err, &mismatchErr)
		})
	}
}

func TestSetterMappingErrors(t *testing.T) {
	fixtures := []struct {
		name  string
		owner reflect.Type
		field string
		col   *ColumnType
	}{
		{"array into int32", setterTargetType, "I32", MustColumnType("c", ArrayType, WithElement(MustColumnType("", Int32Type)))},
		{"map into slice", setterTargetType, "Arr", MustColumnType("c", MapType, WithKeyValue(MustColumnType("", StringType), MustColumnType("", Int64Type)))},
		{"Int64 into int32", setterTargetType, "I32", MustColumnType("c", Int64Type)},
		{"UInt32 into int32", setterTargetType, "I32", MustColumnType("c", UInt32Type)},
		{"Float64 into float32", setterTargetType, "F32", MustColumnType("c", Float64Type)},
		{"Int64 into float64", setterTargetType, "F64", MustColumnType("c", Int64Type)},
		{"String into int64", setterTargetType, "I64", MustColumnType("c", StringType)},
		{"Int128 into int32", setterTargetType, "I32", MustColumnType("c", Int128Type)},
		{"UInt64 into float64", setterTargetType, "F64", MustColumnType("c", UInt64Type)},
		{"Bool into int8", setterTargetType, "I8", MustColumnType("c", BoolType)},
		{"IPv4 into string", setterTargetType, "S", MustColumnType("c", IPv4Type)},
		{
			"wide tuple into array",
			setterTargetType,
			"Tup",
			MustColumnType("c", TupleType, WithElements(
				MustColumnType("", Int8Type), MustColumnType("", Int8Type), MustColumnType("", Int8Type))),
		},
		{
			"unsupported aggregate function",
			setterTargetType,
			"Any",
			MustColumnType("c", AggregateFunctionType, WithAggregateFunction(UniqFunction, MustColumnType("", UInt64Type))),
		},
		{"missing field", setterTargetType, "Missing", MustColumnType("c", Int8Type)},
		{"unexported field", setterTargetType, "hidden", MustColumnType("c", Int32Type)},
		{"not a struct", reflect.TypeOf(0), "I8", MustColumnType("c", Int8Type)},
	}
	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			setter, err := CompileSetter(fixture.owner, fixture.field, fixture.col)
			require.Nil(t, setter)
			var mappingErr *MappingError
			require.ErrorAs(t, err, &mappingErr)
			require.Equal(t, "c", mappingErr.Column)
		})
	}
}

func TestSetValueChecksTarget(t *testing.T) {
	setter, err := CompileSetter(setterTargetType, "I8", MustColumnType("c", Int8Type))
	require.NoError(t, err)
	in := NewBinaryInputStreamFromBytes([]byte{1})
	require.Error(t, setter.SetValue(setterTarget{}, in))
	require.Error(t, setter.SetValue(&struct{ I8 int8 }{}, in))
	require.Error(t, setter.SetValue((*setterTarget)(nil), in))
	require.Zero(t, in.Position())
}

func TestPrimitiveArraySetter(t *testing.T) {
	int32Array := MustColumnType("c", ArrayType, WithElement(MustColumnType("", Int32Type)))
	typed, _ := setterTargetType.FieldByName("I32s")
	wider, _ := setterTargetType.FieldByName("Arr")
	fixtures := []struct {
		name  string
		col   *ColumnType
		field reflect.StructField
		bulk  bool
	}{
		{"same element type", int32Array, typed, true},
		{"wider element type", int32Array, wider, false},
		{"nullable elements", MustColumnType("c", ArrayType, WithElement(MustColumnType("", Int32Type, Nullable()))), typed, false},
		{"String elements", MustColumnType("c", ArrayType, WithElement(MustColumnType("", StringType))), typed, false},
		{"not an array", MustColumnType("c", Int32Type), typed, false},
	}
	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			set := compilePrimitiveArray(fixture.col, fixture.field.Type, fixture.field.Offset)
			require.Equal(t, fixture.bulk, set != nil)
		})
	}

	values := make([]int32, 3*readChunkSize)
	for i := range values {
		values[i] = int32(i * 7)
	}
	out := NewBinaryOutputStream(0)
	require.NoError(t, defaultSerializer.Serialize(out, values, int32Array))

	setter, err := CompileSetter(setterTargetType, "I32s", int32Array)
	require.NoError(t, err)
	var obj setterTarget
	require.NoError(t, setter.SetValue(&obj, NewBinaryInputStreamFromBytes(out.Data())))
	require.Equal(t, values, obj.I32s)

	boxed, err := NewBinaryInputStreamFromBytes(out.Data()).ReadValue(int32Array)
	require.NoError(t, err)
	require.Len(t, boxed, len(values))
	require.Equal(t, int32(7), boxed.([]interface{})[1])

	_, err = NewBinaryInputStreamFromBytes(out.Data()[:100]).ReadValue(int32Array)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
