package rowbinary

import (
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestColumnTypeDefaults(t *testing.T) {
	dt64 := MustColumnType("ts", DateTime64Type)
	require.Equal(t, 3, dt64.Scale())
	require.Nil(t, dt64.TimeZone())
	require.Equal(t, time.UTC, dt64.location())

	d64 := MustColumnType("amount", Decimal64Type, WithScale(4))
	require.Equal(t, 18, d64.Precision())
	require.Equal(t, Decimal64Type, d64.decimalType())

	fixtures := []struct {
		precision int
		storage   DataType
	}{
		{1, Decimal32Type},
		{9, Decimal32Type},
		{10, Decimal64Type},
		{18, Decimal64Type},
		{19, Decimal128Type},
		{38, Decimal128Type},
		{39, Decimal256Type},
		{76, Decimal256Type},
	}
	for _, fixture := range fixtures {
		col := MustColumnType("d", DecimalType, WithPrecision(fixture.precision))
		require.Equal(t, fixture.storage, col.decimalType(), "precision %d", fixture.precision)
		require.Zero(t, col.Scale())
	}
}

func TestColumnTypeValidation(t *testing.T) {
	fixtures := []struct {
		name string
		dt   DataType
		opts []ColumnTypeOption
	}{
		{"decimal without precision", DecimalType, nil},
		{"decimal precision too large", DecimalType, []ColumnTypeOption{WithPrecision(77)}},
		{"decimal scale above precision", DecimalType, []ColumnTypeOption{WithPrecision(5), WithScale(6)}},
		{"decimal32 precision too large", Decimal32Type, []ColumnTypeOption{WithPrecision(10)}},
		{"negative scale", Decimal64Type, []ColumnTypeOption{WithScale(-1)}},
		{"fixed string without length", FixedStringType, nil},
		{"datetime64 scale too large", DateTime64Type, []ColumnTypeOption{WithScale(10)}},
		{"array without element", ArrayType, nil},
		{"tuple without elements", TupleType, nil},
		{"map without value", MapType, []ColumnTypeOption{WithElements(MustColumnType("", StringType))}},
		{
			"map with nullable key",
			MapType,
			[]ColumnTypeOption{WithKeyValue(MustColumnType("", StringType, Nullable()), MustColumnType("", StringType))},
		},
		{
			"map with array key",
			MapType,
			[]ColumnTypeOption{WithKeyValue(
				MustColumnType("", ArrayType, WithElement(MustColumnType("", UInt8Type))),
				MustColumnType("", StringType),
			)},
		},
		{"nullable array", ArrayType, []ColumnTypeOption{WithElement(MustColumnType("", UInt8Type)), Nullable()}},
		{"nil element", ArrayType, []ColumnTypeOption{WithElement(nil)}},
		{"enum8 out of range", Enum8Type, []ColumnTypeOption{WithEnumValues(map[string]int{"a": 200})}},
		{"enum16 out of range", Enum16Type, []ColumnTypeOption{WithEnumValues(map[string]int{"a": 1 << 16})}},
		{"duplicate enum value", Enum8Type, []ColumnTypeOption{WithEnumValues(map[string]int{"a": 1, "b": 1})}},
		{"aggregate function without argument", AggregateFunctionType, nil},
		{"unknown time zone", DateTimeType, []ColumnTypeOption{WithTimeZoneName("Nowhere/Nothing")}},
		{"invalid data type", DataType(100), nil},
	}
	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			col, err := NewColumnType("c", fixture.dt, fixture.opts...)
			require.Error(t, err)
			require.Nil(t, col)
		})
	}

	require.Panics(t, func() {
		MustColumnType("c", FixedStringType)
	})
}

func TestColumnTypeString(t *testing.T) {
	fixtures := []struct {
		col      *ColumnType
		expected string
	}{
		{MustColumnType("", UInt64Type), "UInt64"},
		{MustColumnType("", StringType, Nullable()), "Nullable(String)"},
		{MustColumnType("", DecimalType, WithPrecision(10), WithScale(2)), "Decimal(10, 2)"},
		{MustColumnType("", Decimal128Type, WithScale(5)), "Decimal128(5)"},
		{MustColumnType("", FixedStringType, WithPrecision(16)), "FixedString(16)"},
		{MustColumnType("", DateTimeType, WithTimeZone(time.UTC)), "DateTime('UTC')"},
		{MustColumnType("", DateTime64Type, WithScale(6)), "DateTime64(6)"},
		{MustColumnType("", DateTime64Type, WithTimeZone(time.UTC)), "DateTime64(3, 'UTC')"},
		{
			MustColumnType("", Enum8Type, WithEnumValues(map[string]int{"b": 2, "a": -1})),
			"Enum8('a' = -1, 'b' = 2)",
		},
		{
			MustColumnType("", ArrayType, WithElement(MustColumnType("", Int32Type, Nullable()))),
			"Array(Nullable(Int32))",
		},
		{
			MustColumnType("", MapType, WithKeyValue(
				MustColumnType("", StringType),
				MustColumnType("", TupleType, WithElements(MustColumnType("", UInt8Type), MustColumnType("", IPv6Type))),
			)),
			"Map(String, Tuple(UInt8, IPv6))",
		},
		{
			MustColumnType("", AggregateFunctionType, WithAggregateFunction(GroupBitmapFunction, MustColumnType("", UInt32Type))),
			"AggregateFunction(groupBitmap, UInt32)",
		},
	}
	for _, fixture := range fixtures {
		t.Run(fixture.expected, func(t *testing.T) {
			require.Equal(t, fixture.expected, fixture.col.String())
		})
	}
}

func TestColumnTypeEnum(t *testing.T) {
	col := MustColumnType("state", Enum16Type, WithEnumValues(map[string]int{"on": 1, "off": -300}))
	v, ok := col.EnumValue("off")
	require.True(t, ok)
	require.Equal(t, int16(-300), v)
	_, ok = col.EnumValue("unknown")
	require.False(t, ok)

	name, ok := col.EnumName(1)
	require.True(t, ok)
	require.Equal(t, "on", name)
	_, ok = col.EnumName(2)
	require.False(t, ok)
}

func TestColumnTypeRenamed(t *testing.T) {
	col := MustColumnType("a", DateTime64Type, WithScale(6), Nullable())
	renamed := col.renamed("b")
	require.Equal(t, "b", renamed.Name())
	require.Equal(t, "a", col.Name())
	require.Equal(t, col.String(), renamed.String())
	require.True(t, renamed.IsNullable())
	require.Equal(t, 6, renamed.Scale())
}

func TestDataTypeNames(t *testing.T) {
	fixtures := []struct {
		name     string
		expected DataType
	}{
		{"Int8", Int8Type},
		{"BIGINT", Int64Type},
		{"Boolean", BoolType},
		{"DateTime32", DateTimeType},
		{"AggregateFunction", AggregateFunctionType},
	}
	for _, fixture := range fixtures {
		dt, ok := LookupDataType(fixture.name)
		require.True(t, ok, fixture.name)
		require.Equal(t, fixture.expected, dt)
	}
	_, ok := LookupDataType("Nothing")
	require.False(t, ok)

	require.Equal(t, "UInt256", UInt256Type.String())
	require.True(t, MapType.IsComposite())
	require.False(t, StringType.IsComposite())
	require.True(t, Decimal256Type.IsDecimal())
	require.True(t, Date32Type.IsTemporal())
	require.False(t, UUIDType.IsTemporal())
	require.Equal(t, "wide-unsigned", WideUnsignedRoute.String())

	fn, ok := LookupAggregateFunction("groupBitmap")
	require.True(t, ok)
	require.Equal(t, GroupBitmapFunction, fn)
}
