package rowbinary

import (
	"cloud.google.com/go/civil"
	"encoding/binary"
	"encoding/json"
	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"io"
	"math"
	"math/big"
	"net"
	"net/netip"
	"reflect"
	"sync"
	"time"
)

var (
	epochDate = civil.Date{Year: 1970, Month: time.January, Day: 1}

	minInt128  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxInt128  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt256  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
	maxInt256  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	maxUInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxUInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	pow10 = [...]int64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000, 1_000_000_000}

	defaultSerializer = &Serializer{cfg: &configuration{padFixedStrings: true}}

	outputStreamPool = sync.Pool{
		New: func() interface{} {
			return NewBinaryOutputStream(256)
		},
	}
)

// Serializer encodes values into the RowBinary wire format. It holds no per-call state and is safe for
// concurrent use.
type Serializer struct {
	cfg *configuration
}

// NewSerializer creates a serializer. See [WithFixedStringPadding].
func NewSerializer(opts ...Option) (*Serializer, error) {
	cfg, err := newConfiguration(opts...)
	if err != nil {
		return nil, err
	}
	return &Serializer{cfg: cfg}, nil
}

// SerializeData encodes one value with the default serializer and writes it to w.
func SerializeData(w io.Writer, value interface{}, col *ColumnType) error {
	return defaultSerializer.SerializeData(w, value, col)
}

// WriteVarInt writes value to w in VarInt encoding. Values above MaxVarInt are rejected.
func WriteVarInt(w io.Writer, value uint64) error {
	if value > MaxVarInt {
		return mismatch(value, "VarInt", "value exceeds %d", uint64(MaxVarInt))
	}
	var buf [MaxVarIntBytes]byte
	out := &binaryOutputStreamImpl{buffer: buf[:]}
	out.WriteVarInt(value)
	if _, err := w.Write(out.Data()); err != nil {
		return &StreamError{Op: "write varint", err: err}
	}
	return nil
}

// SerializeData encodes one value and writes it to w with a single write. Nothing is written if the
// value cannot be encoded.
func (s *Serializer) SerializeData(w io.Writer, value interface{}, col *ColumnType) error {
	out := outputStreamPool.Get().(BinaryOutputStream)
	defer func() {
		out.Reset()
		outputStreamPool.Put(out)
	}()
	if err := s.Serialize(out, value, col); err != nil {
		return err
	}
	if _, err := w.Write(out.Data()); err != nil {
		return &StreamError{Op: "write", err: err}
	}
	return nil
}

// Serialize encodes one value into out. The nullability of col itself is not encoded: the null flag
// of a top-level value belongs to the row layer. On error out may hold a partially written value.
func (s *Serializer) Serialize(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	target := col.dataType.String()
	switch col.dataType {
	case Int8Type:
		v, err := convertToNumber[int8](value, target)
		if err != nil {
			return err
		}
		out.WriteInt8(v)
	case Int16Type:
		v, err := convertToNumber[int16](value, target)
		if err != nil {
			return err
		}
		out.WriteInt16(v)
	case Int32Type:
		v, err := convertToNumber[int32](value, target)
		if err != nil {
			return err
		}
		out.WriteInt32(v)
	case Int64Type:
		v, err := convertToNumber[int64](value, target)
		if err != nil {
			return err
		}
		out.WriteInt64(v)
	case UInt8Type:
		v, err := convertToNumber[uint8](value, target)
		if err != nil {
			return err
		}
		out.WriteUInt8(v)
	case UInt16Type:
		v, err := convertToNumber[uint16](value, target)
		if err != nil {
			return err
		}
		out.WriteUInt16(v)
	case UInt32Type:
		v, err := convertToNumber[uint32](value, target)
		if err != nil {
			return err
		}
		out.WriteUInt32(v)
	case UInt64Type:
		v, err := convertToNumber[uint64](value, target)
		if err != nil {
			return err
		}
		out.WriteUInt64(v)
	case Int128Type, Int256Type, UInt128Type, UInt256Type:
		return writeWideInteger(out, value, col)
	case Float32Type:
		v, ok := value.(float32)
		if !ok {
			return mismatch(value, target, "float32 expected")
		}
		out.WriteFloat32(v)
	case Float64Type:
		v, ok := value.(float64)
		if !ok {
			return mismatch(value, target, "float64 expected")
		}
		out.WriteFloat64(v)
	case DecimalType, Decimal32Type, Decimal64Type, Decimal128Type, Decimal256Type:
		return writeDecimal(out, value, col)
	case BoolType:
		v, err := ToBool(value)
		if err != nil {
			return err
		}
		out.WriteBool(v)
	case StringType:
		v, err := ToString(value)
		if err != nil {
			return err
		}
		out.WriteString(v)
	case FixedStringType:
		return s.writeFixedString(out, value, col)
	case DateType, Date32Type, DateTimeType, DateTime64Type:
		return writeTemporal(out, value, col)
	case UUIDType:
		v, err := toUUID(value)
		if err != nil {
			return err
		}
		writeUuid(out, &v)
	case IPv4Type:
		v, err := toAddr(value, target)
		if err != nil {
			return err
		}
		if !v.Is4() {
			return mismatch(value, target, "not an IPv4 address")
		}
		a4 := v.As4()
		out.WriteUInt32(binary.BigEndian.Uint32(a4[:]))
	case IPv6Type:
		v, err := toAddr(value, target)
		if err != nil {
			return err
		}
		a16 := v.As16()
		out.WriteBytes(a16[:])
	case Enum8Type, Enum16Type:
		return writeEnum(out, value, col)
	case JSONType:
		switch v := value.(type) {
		case string:
			out.WriteString(v)
		case []byte:
			out.WriteString(bytesToString(v))
		case json.RawMessage:
			out.WriteString(bytesToString(v))
		default:
			return unsupported(col, "only serialized JSON text is supported")
		}
	case ArrayType:
		return s.writeArray(out, value, col)
	case TupleType:
		return s.writeTuple(out, value, col)
	case MapType:
		return s.writeMap(out, value, col)
	case AggregateFunctionType:
		return writeAggregateState(out, value, col)
	default:
		return unsupported(col, "")
	}
	return nil
}

// serializeColumn encodes a top-level column value, preceded by the null flag for nullable columns.
func (s *Serializer) serializeColumn(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	if col.nullable {
		if isNull(value) {
			out.WriteUInt8(1)
			return nil
		}
		out.WriteUInt8(0)
	}
	return s.Serialize(out, deref(value), col)
}

// writeElement encodes an element of a composite value, preceded by the null flag when the element
// type is nullable.
func (s *Serializer) writeElement(out BinaryOutputStream, value interface{}, elem *ColumnType) error {
	null := isNull(value)
	if elem.nullable {
		if null {
			out.WriteUInt8(1)
			return nil
		}
		out.WriteUInt8(0)
	} else if null {
		return mismatch(value, elem.String(), "null value for a non-nullable element")
	}
	return s.Serialize(out, deref(value), elem)
}

func (s *Serializer) writeArray(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	elem := col.nested[0]
	if !elem.nullable && writePrimitiveArray(out, value, elem.dataType) {
		return nil
	}
	rv := reflect.ValueOf(value)
	if kind := rv.Kind(); kind != reflect.Slice && kind != reflect.Array {
		return mismatch(value, col.String(), "slice or array expected")
	}
	length := rv.Len()
	out.WriteVarInt(uint64(length))
	for i := 0; i < length; i++ {
		if err := s.writeElement(out, rv.Index(i).Interface(), elem); err != nil {
			return err
		}
	}
	return nil
}

// writePrimitiveArray writes slices of fixed-width numbers in bulk.
func writePrimitiveArray(out BinaryOutputStream, value interface{}, elemType DataType) bool {
	switch v := value.(type) {
	case []int8:
		if elemType != Int8Type {
			return false
		}
		out.WriteVarInt(uint64(len(v)))
		out.WriteInt8Slice(v)
	case []uint8:
		if elemType != UInt8Type {
			return false
		}
		out.WriteVarInt(uint64(len(v)))
		out.WriteBytes(v)
	case []int16:
		if elemType != Int16Type {
			return false
		}
		out.WriteVarInt(uint64(len(v)))
		out.WriteInt16Slice(v)
	case []uint16:
		if elemType != UInt16Type {
			return false
		}
		out.WriteVarInt(uint64(len(v)))
		out.WriteUInt16Slice(v)
	case []int32:
		if elemType != Int32Type {
			return false
		}
		out.WriteVarInt(uint64(len(v)))
		out.WriteInt32Slice(v)
	case []uint32:
		if elemType != UInt32Type {
			return false
		}
		out.WriteVarInt(uint64(len(v)))
		out.WriteUInt32Slice(v)
	case []int64:
		if elemType != Int64Type {
			return false
		}
		out.WriteVarInt(uint64(len(v)))
		out.WriteInt64Slice(v)
	case []uint64:
		if elemType != UInt64Type {
			return false
		}
		out.WriteVarInt(uint64(len(v)))
		out.WriteUInt64Slice(v)
	case []float32:
		if elemType != Float32Type {
			return false
		}
		out.WriteVarInt(uint64(len(v)))
		out.WriteFloat32Slice(v)
	case []float64:
		if elemType != Float64Type {
			return false
		}
		out.WriteVarInt(uint64(len(v)))
		out.WriteFloat64Slice(v)
	default:
		return false
	}
	return true
}

func (s *Serializer) writeTuple(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	rv := reflect.ValueOf(value)
	if kind := rv.Kind(); kind != reflect.Slice && kind != reflect.Array {
		return mismatch(value, col.String(), "ordered sequence expected")
	}
	if rv.Len() != len(col.nested) {
		return mismatch(value, col.String(), "tuple has %d elements, got %d", len(col.nested), rv.Len())
	}
	for i, elem := range col.nested {
		if err := s.writeElement(out, rv.Index(i).Interface(), elem); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) writeMap(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	keyCol, valueCol := col.nested[0], col.nested[1]
	if keyCol.dataType.IsComposite() {
		return unsupported(keyCol, "map key must be a primitive type")
	}
	entries, ok := mapEntries(value)
	if !ok {
		return mismatch(value, col.String(), "map expected")
	}
	out.WriteVarInt(uint64(len(entries)))
	for _, entry := range entries {
		if isNull(entry.Key) {
			return mismatch(entry.Key, keyCol.String(), "null map key")
		}
		if err := s.Serialize(out, entry.Key, keyCol); err != nil {
			return err
		}
		if err := s.writeElement(out, entry.Value, valueCol); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) writeFixedString(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	default:
		str, err := ToString(value)
		if err != nil {
			return err
		}
		data = []byte(str)
	}
	if len(data) > col.precision {
		return mismatch(value, col.String(), "value of %d bytes is longer than %d", len(data), col.precision)
	}
	if len(data) < col.precision && !s.cfg.padFixedStrings {
		return mismatch(value, col.String(), "value of %d bytes is shorter than %d", len(data), col.precision)
	}
	out.WriteBytes(data)
	if pad := col.precision - len(data); pad > 0 {
		out.WriteBytes(make([]byte, pad))
	}
	return nil
}

func writeWideInteger(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	v, err := ToBigInt(value)
	if err != nil {
		return err
	}
	var min, max *big.Int
	size := col.dataType.valueSize()
	switch col.dataType {
	case Int128Type:
		min, max = minInt128, maxInt128
	case Int256Type:
		min, max = minInt256, maxInt256
	case UInt128Type:
		min, max = big.NewInt(0), maxUInt128
	default:
		min, max = big.NewInt(0), maxUInt256
	}
	if v.Cmp(min) < 0 || v.Cmp(max) > 0 {
		return mismatch(value, col.dataType.String(), "value out of range")
	}
	out.WriteBigInteger(v, size)
	return nil
}

// writeDecimal scales the value to the column scale and writes the unscaled integer. Values that lose
// digits at that scale, or need more digits than the precision, are rejected.
func writeDecimal(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	d, err := ToDecimal(value)
	if err != nil {
		return err
	}
	var scaled apd.Decimal
	ctx := apd.BaseContext.WithPrecision(uint32(col.precision))
	cond, err := ctx.Quantize(&scaled, d, -int32(col.scale))
	if err != nil || cond.InvalidOperation() || scaled.Form != apd.Finite {
		return mismatch(value, col.String(), "value does not fit into precision %d", col.precision)
	}
	if cond.Inexact() {
		return mismatch(value, col.String(), "value cannot be represented with scale %d", col.scale)
	}
	switch col.decimalType() {
	case Decimal32Type:
		v := scaled.Coeff.Int64()
		if scaled.Negative {
			v = -v
		}
		out.WriteInt32(int32(v))
	case Decimal64Type:
		v := scaled.Coeff.Int64()
		if scaled.Negative {
			v = -v
		}
		out.WriteInt64(v)
	default:
		v := scaled.Coeff.MathBigInt()
		if scaled.Negative {
			v.Neg(v)
		}
		out.WriteBigInteger(v, col.decimalType().valueSize())
	}
	return nil
}

func toTime(value interface{}, col *ColumnType) (time.Time, error) {
	loc := col.location()
	switch v := value.(type) {
	case time.Time:
		return v.In(loc), nil
	case *time.Time:
		if v != nil {
			return v.In(loc), nil
		}
	case civil.Date:
		return v.In(loc), nil
	case civil.DateTime:
		return v.In(loc), nil
	}
	return time.Time{}, mismatch(value, col.String(), "time.Time, civil.Date or civil.DateTime expected")
}

func writeTemporal(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	if col.dataType == DateTimeType {
		if _, isTime := value.(time.Time); !isTime {
			if secs, err := ToInt64(value); err == nil {
				if secs < 0 || secs > math.MaxUint32 {
					return mismatch(value, col.String(), "value out of range")
				}
				out.WriteUInt32(uint32(secs))
				return nil
			}
		}
	}
	t, err := toTime(value, col)
	if err != nil {
		return err
	}
	switch col.dataType {
	case DateType:
		days := civil.DateOf(t).DaysSince(epochDate)
		if days < 0 || days > math.MaxUint16 {
			return mismatch(value, col.String(), "date out of range")
		}
		out.WriteUInt16(uint16(days))
	case Date32Type:
		days := civil.DateOf(t).DaysSince(epochDate)
		if days < math.MinInt32 || days > math.MaxInt32 {
			return mismatch(value, col.String(), "date out of range")
		}
		out.WriteInt32(int32(days))
	case DateTimeType:
		secs := t.Unix()
		if secs < 0 || secs > math.MaxUint32 {
			return mismatch(value, col.String(), "value out of range")
		}
		out.WriteUInt32(uint32(secs))
	default:
		ts, ok := dateTime64Ticks(t, col.scale)
		if !ok {
			return mismatch(value, col.String(), "value out of range")
		}
		out.WriteInt64(ts)
	}
	return nil
}

// dateTime64Ticks returns seconds * 10^scale + nanoseconds / 10^(9 - scale).
func dateTime64Ticks(t time.Time, scale int) (int64, bool) {
	secs := t.Unix()
	mul := pow10[scale]
	if secs > math.MaxInt64/mul || secs < math.MinInt64/mul {
		return 0, false
	}
	ts := secs * mul
	frac := int64(t.Nanosecond()) / pow10[maxDateTime64Scale-scale]
	if ts > math.MaxInt64-frac {
		return 0, false
	}
	return ts + frac, true
}

func toUUID(value interface{}) (uuid.UUID, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case *uuid.UUID:
		if v != nil {
			return *v, nil
		}
	case [16]byte:
		return v, nil
	case []byte:
		ret, err := uuid.FromBytes(v)
		if err != nil {
			return uuid.Nil, mismatch(value, UUIDType.String(), "%s", err)
		}
		return ret, nil
	case string:
		ret, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, mismatch(value, UUIDType.String(), "%s", err)
		}
		return ret, nil
	}
	return uuid.Nil, mismatch(value, UUIDType.String(), "uuid expected")
}

func writeUuid(out BinaryOutputStream, val *uuid.UUID) {
	out.WriteUInt64(binary.BigEndian.Uint64(val[:8]))
	out.WriteUInt64(binary.BigEndian.Uint64(val[8:]))
}

func toAddr(value interface{}, target string) (netip.Addr, error) {
	switch v := value.(type) {
	case netip.Addr:
		if v.IsValid() {
			return v.Unmap(), nil
		}
	case net.IP:
		if ret, ok := netip.AddrFromSlice(v); ok {
			return ret.Unmap(), nil
		}
	case string:
		ret, err := netip.ParseAddr(v)
		if err != nil {
			return netip.Addr{}, mismatch(value, target, "%s", err)
		}
		return ret.Unmap(), nil
	}
	return netip.Addr{}, mismatch(value, target, "ip address expected")
}

func writeEnum(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	target := col.String()
	var v int16
	if name, ok := value.(string); ok && len(col.enumNames) > 0 {
		if v, ok = col.EnumValue(name); !ok {
			return mismatch(value, target, "unknown enum name")
		}
	} else {
		var err error
		if v, err = convertToNumber[int16](value, target); err != nil {
			return err
		}
		if len(col.enumValues) > 0 {
			if _, ok := col.EnumName(v); !ok {
				return mismatch(value, target, "unknown enum value")
			}
		}
	}
	if col.dataType == Enum8Type {
		if v < math.MinInt8 || v > math.MaxInt8 {
			return mismatch(value, target, "value out of range")
		}
		out.WriteInt8(int8(v))
	} else {
		out.WriteInt16(v)
	}
	return nil
}

func writeAggregateState(out BinaryOutputStream, value interface{}, col *ColumnType) error {
	if col.aggFunc != GroupBitmapFunction {
		return unsupported(col, "")
	}
	bm, ok := value.(*Bitmap)
	if !ok || bm == nil {
		return mismatch(value, col.String(), "*Bitmap expected")
	}
	if bm.elemType != col.nested[0].dataType {
		return mismatch(value, col.String(), "bitmap of %s", bm.elemType)
	}
	return bm.write(out)
}

// deref unwraps a non-nil pointer so that optional fields encode like their values.
func deref(value interface{}) interface{} {
	if _, ok := value.(*Bitmap); ok {
		return value
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return value
}

func isNull(value interface{}) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
