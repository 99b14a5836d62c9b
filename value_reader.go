package rowbinary

import (
	"encoding/binary"
	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"net/netip"
	"reflect"
	"time"
	"unsafe"
)

// decodeFunc reads one value of a fixed column type. Decoders are compiled once per ColumnType, so the
// type dispatch happens at compile time and not per value.
type decodeFunc func(in BinaryInputStream) (interface{}, error)

func compileDecoder(col *ColumnType) decodeFunc {
	switch col.dataType {
	case Int8Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadInt8())
		}
	case Int16Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadInt16())
		}
	case Int32Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadInt32())
		}
	case Int64Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadInt64())
		}
	case UInt8Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadUInt8())
		}
	case UInt16Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadUInt16())
		}
	case UInt32Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadUInt32())
		}
	case UInt64Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadUInt64())
		}
	case Int128Type, Int256Type, UInt128Type, UInt256Type:
		size := col.dataType.valueSize()
		signed := col.dataType == Int128Type || col.dataType == Int256Type
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadBigInteger(size, signed))
		}
	case Float32Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadFloat32())
		}
	case Float64Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadFloat64())
		}
	case DecimalType, Decimal32Type, Decimal64Type, Decimal128Type, Decimal256Type:
		return decimalDecoder(col)
	case BoolType:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadBool())
		}
	case StringType, JSONType:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadString())
		}
	case FixedStringType:
		size := col.precision
		return func(in BinaryInputStream) (interface{}, error) {
			buf, err := in.ReadBytes(size)
			if err != nil {
				return nil, err
			}
			return bytesToString(buf), nil
		}
	case DateType, Date32Type, DateTimeType, DateTime64Type:
		return temporalDecoder(col)
	case UUIDType:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(readUuid(in))
		}
	case IPv4Type:
		return func(in BinaryInputStream) (interface{}, error) {
			v, err := in.ReadUInt32()
			if err != nil {
				return nil, err
			}
			var a4 [4]byte
			binary.BigEndian.PutUint32(a4[:], v)
			return netip.AddrFrom4(a4), nil
		}
	case IPv6Type:
		return func(in BinaryInputStream) (interface{}, error) {
			buf, err := in.ReadBytes(int128Bytes)
			if err != nil {
				return nil, err
			}
			return netip.AddrFrom16([16]byte(buf)), nil
		}
	case Enum8Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadInt8())
		}
	case Enum16Type:
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(in.ReadInt16())
		}
	case ArrayType:
		return arrayDecoder(col)
	case TupleType:
		return tupleDecoder(col)
	case MapType:
		return mapDecoder(col)
	case AggregateFunctionType:
		if col.aggFunc != GroupBitmapFunction {
			break
		}
		elemType := col.nested[0].dataType
		return func(in BinaryInputStream) (interface{}, error) {
			return boxed(ReadBitmap(in, elemType))
		}
	}
	err := unsupported(col, "")
	return func(BinaryInputStream) (interface{}, error) {
		return nil, err
	}
}

func boxed[T any](v T, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// elementDecoder decodes a nested element, reading the null flag first when the element is nullable.
func elementDecoder(elem *ColumnType) decodeFunc {
	decode := elem.decoder()
	if !elem.nullable {
		return decode
	}
	return nullableDecoder(decode)
}

func nullableDecoder(decode decodeFunc) decodeFunc {
	return func(in BinaryInputStream) (interface{}, error) {
		null, err := in.ReadUInt8()
		if err != nil {
			return nil, err
		}
		if null != 0 {
			return nil, nil
		}
		return decode(in)
	}
}

func decimalDecoder(col *ColumnType) decodeFunc {
	exp := -int32(col.scale)
	switch storage := col.decimalType(); storage {
	case Decimal32Type:
		return func(in BinaryInputStream) (interface{}, error) {
			v, err := in.ReadInt32()
			if err != nil {
				return nil, err
			}
			return apd.New(int64(v), exp), nil
		}
	case Decimal64Type:
		return func(in BinaryInputStream) (interface{}, error) {
			v, err := in.ReadInt64()
			if err != nil {
				return nil, err
			}
			return apd.New(v, exp), nil
		}
	default:
		size := storage.valueSize()
		return func(in BinaryInputStream) (interface{}, error) {
			v, err := in.ReadBigInteger(size, true)
			if err != nil {
				return nil, err
			}
			return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(v), exp), nil
		}
	}
}

func temporalDecoder(col *ColumnType) decodeFunc {
	loc := col.location()
	switch col.dataType {
	case DateType:
		return func(in BinaryInputStream) (interface{}, error) {
			days, err := in.ReadUInt16()
			if err != nil {
				return nil, err
			}
			return epochDate.AddDays(int(days)).In(loc), nil
		}
	case Date32Type:
		return func(in BinaryInputStream) (interface{}, error) {
			days, err := in.ReadInt32()
			if err != nil {
				return nil, err
			}
			return epochDate.AddDays(int(days)).In(loc), nil
		}
	case DateTimeType:
		return func(in BinaryInputStream) (interface{}, error) {
			secs, err := in.ReadUInt32()
			if err != nil {
				return nil, err
			}
			return time.Unix(int64(secs), 0).In(loc), nil
		}
	default:
		scale := col.scale
		return func(in BinaryInputStream) (interface{}, error) {
			ts, err := in.ReadInt64()
			if err != nil {
				return nil, err
			}
			return dateTime64Time(ts, scale).In(loc), nil
		}
	}
}

// dateTime64Time is the inverse of dateTime64Ticks. Negative ticks are floored so that the
// fractional part stays non-negative.
func dateTime64Time(ts int64, scale int) time.Time {
	mul := pow10[scale]
	secs, frac := ts/mul, ts%mul
	if frac < 0 {
		secs--
		frac += mul
	}
	return time.Unix(secs, frac*pow10[maxDateTime64Scale-scale])
}

func readUuid(in BinaryInputStream) (uuid.UUID, error) {
	var ret uuid.UUID
	hi, err := in.ReadUInt64()
	if err != nil {
		return uuid.Nil, err
	}
	lo, err := in.ReadUInt64()
	if err != nil {
		return uuid.Nil, err
	}
	binary.BigEndian.PutUint64(ret[:8], hi)
	binary.BigEndian.PutUint64(ret[8:], lo)
	return ret, nil
}

// bulkArray reads all elements of an array of fixed-width values with one read.
type bulkArray struct {
	elemType reflect.Type
	boxed    func(in BinaryInputStream, length int) ([]interface{}, error)
	store    func(dst unsafe.Pointer, in BinaryInputStream, length int) error
}

func newBulkArray[T primitives](read func(BinaryInputStream, int) ([]T, error)) *bulkArray {
	return &bulkArray{
		elemType: reflect.TypeOf(*new(T)),
		boxed: func(in BinaryInputStream, length int) ([]interface{}, error) {
			values, err := read(in, length)
			if err != nil {
				return nil, err
			}
			ret := make([]interface{}, len(values))
			for i, v := range values {
				ret[i] = v
			}
			return ret, nil
		},
		store: func(dst unsafe.Pointer, in BinaryInputStream, length int) error {
			values, err := read(in, length)
			if err != nil {
				return err
			}
			*(*[]T)(dst) = values
			return nil
		},
	}
}

// bulkArrayOf returns nil for element types that are read one value at a time.
func bulkArrayOf(elem *ColumnType) *bulkArray {
	if elem.nullable {
		return nil
	}
	switch elem.dataType {
	case Int8Type:
		return newBulkArray(BinaryInputStream.ReadInt8Slice)
	case UInt8Type:
		return newBulkArray(BinaryInputStream.ReadBytes)
	case Int16Type:
		return newBulkArray(BinaryInputStream.ReadInt16Slice)
	case UInt16Type:
		return newBulkArray(BinaryInputStream.ReadUInt16Slice)
	case Int32Type:
		return newBulkArray(BinaryInputStream.ReadInt32Slice)
	case UInt32Type:
		return newBulkArray(BinaryInputStream.ReadUInt32Slice)
	case Int64Type:
		return newBulkArray(BinaryInputStream.ReadInt64Slice)
	case UInt64Type:
		return newBulkArray(BinaryInputStream.ReadUInt64Slice)
	case Float32Type:
		return newBulkArray(BinaryInputStream.ReadFloat32Slice)
	case Float64Type:
		return newBulkArray(BinaryInputStream.ReadFloat64Slice)
	}
	return nil
}

func arrayDecoder(col *ColumnType) decodeFunc {
	if bulk := bulkArrayOf(col.nested[0]); bulk != nil {
		return func(in BinaryInputStream) (interface{}, error) {
			length, err := readLength(in, "read array")
			if err != nil {
				return nil, err
			}
			values, err := bulk.boxed(in, length)
			if err != nil {
				return nil, err
			}
			return values, nil
		}
	}
	decode := elementDecoder(col.nested[0])
	return func(in BinaryInputStream) (interface{}, error) {
		length, err := readLength(in, "read array")
		if err != nil {
			return nil, err
		}
		ret := make([]interface{}, 0, min(length, 1024))
		for i := 0; i < length; i++ {
			v, err := decode(in)
			if err != nil {
				return nil, err
			}
			ret = append(ret, v)
		}
		return ret, nil
	}
}

func tupleDecoder(col *ColumnType) decodeFunc {
	decoders := make([]decodeFunc, len(col.nested))
	for i, elem := range col.nested {
		decoders[i] = elementDecoder(elem)
	}
	return func(in BinaryInputStream) (interface{}, error) {
		ret := make([]interface{}, len(decoders))
		for i, decode := range decoders {
			v, err := decode(in)
			if err != nil {
				return nil, err
			}
			ret[i] = v
		}
		return ret, nil
	}
}

func mapDecoder(col *ColumnType) decodeFunc {
	decodeKey := col.nested[0].decoder()
	decodeValue := elementDecoder(col.nested[1])
	return func(in BinaryInputStream) (interface{}, error) {
		length, err := readLength(in, "read map")
		if err != nil {
			return nil, err
		}
		entries := make([]KeyValue, 0, min(length, 1024))
		for i := 0; i < length; i++ {
			key, err := decodeKey(in)
			if err != nil {
				return nil, err
			}
			value, err := decodeValue(in)
			if err != nil {
				return nil, err
			}
			entries = append(entries, KeyValue{Key: key, Value: value})
		}
		return NewMap(entries...), nil
	}
}
