package rowbinary

import (
	"cloud.google.com/go/civil"
	"fmt"
	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"math/big"
	"math/bits"
	"net"
	"net/netip"
	"reflect"
	"time"
	"unsafe"
)

// setFunc decodes one value and stores it into the struct p points to.
type setFunc func(p unsafe.Pointer, in BinaryInputStream) error

// assignFunc stores an already decoded value into dst.
type assignFunc func(dst reflect.Value, v interface{}) error

var (
	interfaceType  = reflect.TypeOf((*interface{})(nil)).Elem()
	bigIntPtrType  = reflect.TypeOf((*big.Int)(nil))
	decimalPtrType = reflect.TypeOf((*apd.Decimal)(nil))
	timeType       = reflect.TypeOf(time.Time{})
	uuidType       = reflect.TypeOf(uuid.UUID{})
	addrType       = reflect.TypeOf(netip.Addr{})
	netIPType      = reflect.TypeOf(net.IP{})
	civilDateType  = reflect.TypeOf(civil.Date{})
	civilDTType    = reflect.TypeOf(civil.DateTime{})
	shopspringType = reflect.TypeOf(decimal.Decimal{})
	sliceType      = reflect.TypeOf([]interface{}{})
	mapType        = reflect.TypeOf(Map{})
	bitmapPtrType  = reflect.TypeOf((*Bitmap)(nil))
)

// SpecializedSetter decodes one value of a fixed column type and stores it into a fixed field of a
// fixed struct type. The decode strategy is chosen once, when the setter is compiled. A setter holds
// no per-call state: it may be used concurrently as long as each call targets a distinct object.
type SpecializedSetter struct {
	owner  reflect.Type
	field  string
	column *ColumnType
	route  SetterRoute
	set    setFunc
}

type setterOptions struct {
	forceGeneric bool
}

type setterOption func(opts *setterOptions)

// withGenericRoute disables the specialized routes.
func withGenericRoute() setterOption {
	return func(opts *setterOptions) {
		opts.forceGeneric = true
	}
}

// CompileSetter compiles a setter for the named field of owner, which must be a struct type. A
// *MappingError is returned if values of col can never be stored into the field.
func CompileSetter(owner reflect.Type, fieldName string, col *ColumnType) (*SpecializedSetter, error) {
	if owner == nil || owner.Kind() != reflect.Struct {
		return nil, &MappingError{Owner: owner, Field: fieldName, Column: col.Name(), Reason: "struct type expected"}
	}
	field, ok := owner.FieldByName(fieldName)
	if !ok || !field.IsExported() {
		return nil, &MappingError{Owner: owner, Field: fieldName, Column: col.Name(), Reason: "no such exported field"}
	}
	offset, ok := fieldOffset(owner, field.Index)
	if !ok {
		return nil, &MappingError{Owner: owner, Field: fieldName, Column: col.Name(), Reason: "field is promoted through a pointer"}
	}
	return compileSetter(owner, field.Name, field.Type, offset, col)
}

func compileSetter(owner reflect.Type, name string, fieldType reflect.Type, offset uintptr,
	col *ColumnType, opts ...setterOption) (*SpecializedSetter, error) {
	var options setterOptions
	for _, opt := range opts {
		opt(&options)
	}
	ret := &SpecializedSetter{
		owner:  owner,
		field:  name,
		column: col,
	}
	if !options.forceGeneric {
		if set := compileDirect(col, fieldType, offset); set != nil {
			ret.route, ret.set = DirectPrimitiveRoute, set
			return ret, nil
		}
		if set := compileWideUnsigned(col, fieldType, offset); set != nil {
			ret.route, ret.set = WideUnsignedRoute, set
			return ret, nil
		}
	}
	assign, err := compileAdapter(col, fieldType)
	if err != nil {
		return nil, &MappingError{Owner: owner, Field: name, Column: col.Name(), Reason: err.Error()}
	}
	decode := col.decoder()
	if col.nullable {
		decode = nullableDecoder(decode)
	}
	ret.route = GenericRoute
	if !options.forceGeneric {
		if set := compilePrimitiveArray(col, fieldType, offset); set != nil {
			ret.set = set
			return ret, nil
		}
	}
	ret.set = func(p unsafe.Pointer, in BinaryInputStream) error {
		v, err := decode(in)
		if err != nil {
			return err
		}
		return assign(reflect.NewAt(fieldType, unsafe.Add(p, offset)).Elem(), v)
	}
	return ret, nil
}

// compilePrimitiveArray stores arrays of fixed-width elements into slices of the element type itself,
// skipping the boxed elements of the generic decode.
func compilePrimitiveArray(col *ColumnType, fieldType reflect.Type, offset uintptr) setFunc {
	if col.dataType != ArrayType || fieldType.Kind() != reflect.Slice {
		return nil
	}
	bulk := bulkArrayOf(col.nested[0])
	if bulk == nil || fieldType.Elem() != bulk.elemType {
		return nil
	}
	set := func(p unsafe.Pointer, in BinaryInputStream) error {
		length, err := readLength(in, "read array")
		if err != nil {
			return err
		}
		return bulk.store(unsafe.Add(p, offset), in, length)
	}
	if col.nullable {
		return nullableSetter(set, fieldType, offset)
	}
	return set
}

// Route returns the strategy chosen at compile time.
func (s *SpecializedSetter) Route() SetterRoute {
	return s.route
}

func (s *SpecializedSetter) Column() *ColumnType {
	return s.column
}

func (s *SpecializedSetter) Field() string {
	return s.field
}

// SetValue decodes one value from in and stores it into obj, which must be a non-nil pointer to the
// owner struct.
func (s *SpecializedSetter) SetValue(obj interface{}, in BinaryInputStream) error {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.Type().Elem() != s.owner || rv.IsNil() {
		return fmt.Errorf("setter of %s.%s cannot be applied to %T", s.owner, s.field, obj)
	}
	return s.set(rv.UnsafePointer(), in)
}

func fieldOffset(owner reflect.Type, index []int) (uintptr, bool) {
	var offset uintptr
	t := owner
	for i, idx := range index {
		f := t.Field(idx)
		offset += f.Offset
		if i < len(index)-1 {
			if f.Type.Kind() != reflect.Struct {
				return 0, false
			}
			t = f.Type
		}
	}
	return offset, true
}

// primitiveBits returns the width of a numeric field kind and whether it is signed, unsigned or float.
func primitiveBits(kind reflect.Kind) (int, numberKind, bool) {
	switch kind {
	case reflect.Int8:
		return 8, signedKind, true
	case reflect.Int16:
		return 16, signedKind, true
	case reflect.Int32:
		return 32, signedKind, true
	case reflect.Int64:
		return 64, signedKind, true
	case reflect.Int:
		return bits.UintSize, signedKind, true
	case reflect.Uint8:
		return 8, unsignedKind, true
	case reflect.Uint16:
		return 16, unsignedKind, true
	case reflect.Uint32:
		return 32, unsignedKind, true
	case reflect.Uint64:
		return 64, unsignedKind, true
	case reflect.Uint:
		return bits.UintSize, unsignedKind, true
	case reflect.Float32:
		return 32, floatKind, true
	case reflect.Float64:
		return 64, floatKind, true
	}
	return 0, 0, false
}

// columnBits returns the width of a column type that has a fixed-width primitive read.
func columnBits(dt DataType) (int, numberKind, bool) {
	switch dt {
	case Int8Type, Enum8Type:
		return 8, signedKind, true
	case Int16Type, Enum16Type:
		return 16, signedKind, true
	case Int32Type:
		return 32, signedKind, true
	case Int64Type:
		return 64, signedKind, true
	case UInt8Type:
		return 8, unsignedKind, true
	case UInt16Type:
		return 16, unsignedKind, true
	case UInt32Type:
		return 32, unsignedKind, true
	case UInt64Type:
		return 64, unsignedKind, true
	case Float32Type:
		return 32, floatKind, true
	case Float64Type:
		return 64, floatKind, true
	}
	return 0, 0, false
}

// losslessWidening reports whether every value of the column type is exactly representable in a
// field of the given kind.
func losslessWidening(dt DataType, kind reflect.Kind) bool {
	srcBits, srcKind, ok := columnBits(dt)
	if !ok {
		return false
	}
	dstBits, dstKind, ok := primitiveBits(kind)
	if !ok {
		return false
	}
	switch {
	case srcKind == floatKind:
		return dstKind == floatKind && dstBits >= srcBits
	case dstKind == floatKind:
		mantissa := 24
		if dstBits == 64 {
			mantissa = 53
		}
		return srcBits < mantissa
	case srcKind == dstKind:
		return dstBits >= srcBits
	case srcKind == unsignedKind:
		return dstBits > srcBits
	default:
		return false
	}
}

func compileDirect(col *ColumnType, fieldType reflect.Type, offset uintptr) setFunc {
	kind := fieldType.Kind()
	var set setFunc
	switch {
	case col.dataType == BoolType && kind == reflect.Bool:
		set = func(p unsafe.Pointer, in BinaryInputStream) error {
			v, err := in.ReadBool()
			if err != nil {
				return err
			}
			*(*bool)(unsafe.Add(p, offset)) = v
			return nil
		}
	case !losslessWidening(col.dataType, kind):
		return nil
	default:
		switch col.dataType {
		case Int8Type, Enum8Type:
			set = directForKind(kind, offset, BinaryInputStream.ReadInt8)
		case Int16Type, Enum16Type:
			set = directForKind(kind, offset, BinaryInputStream.ReadInt16)
		case Int32Type:
			set = directForKind(kind, offset, BinaryInputStream.ReadInt32)
		case Int64Type:
			set = directForKind(kind, offset, BinaryInputStream.ReadInt64)
		case UInt8Type:
			set = directForKind(kind, offset, BinaryInputStream.ReadUInt8)
		case UInt16Type:
			set = directForKind(kind, offset, BinaryInputStream.ReadUInt16)
		case UInt32Type:
			set = directForKind(kind, offset, BinaryInputStream.ReadUInt32)
		case UInt64Type:
			set = directForKind(kind, offset, BinaryInputStream.ReadUInt64)
		case Float32Type:
			set = directForKind(kind, offset, BinaryInputStream.ReadFloat32)
		case Float64Type:
			set = directForKind(kind, offset, BinaryInputStream.ReadFloat64)
		}
	}
	if set == nil || !col.nullable {
		return set
	}
	return nullableSetter(set, fieldType, offset)
}

func directSetter[S, T number](offset uintptr, read func(BinaryInputStream) (S, error)) setFunc {
	return func(p unsafe.Pointer, in BinaryInputStream) error {
		v, err := read(in)
		if err != nil {
			return err
		}
		*(*T)(unsafe.Add(p, offset)) = T(v)
		return nil
	}
}

func directForKind[S number](kind reflect.Kind, offset uintptr, read func(BinaryInputStream) (S, error)) setFunc {
	switch kind {
	case reflect.Int8:
		return directSetter[S, int8](offset, read)
	case reflect.Int16:
		return directSetter[S, int16](offset, read)
	case reflect.Int32:
		return directSetter[S, int32](offset, read)
	case reflect.Int64:
		return directSetter[S, int64](offset, read)
	case reflect.Int:
		return directSetter[S, int](offset, read)
	case reflect.Uint8:
		return directSetter[S, uint8](offset, read)
	case reflect.Uint16:
		return directSetter[S, uint16](offset, read)
	case reflect.Uint32:
		return directSetter[S, uint32](offset, read)
	case reflect.Uint64:
		return directSetter[S, uint64](offset, read)
	case reflect.Uint:
		return directSetter[S, uint](offset, read)
	case reflect.Float32:
		return directSetter[S, float32](offset, read)
	case reflect.Float64:
		return directSetter[S, float64](offset, read)
	}
	return nil
}

// nullableSetter reads the null flag of a nullable column. Null clears the field.
func nullableSetter(set setFunc, fieldType reflect.Type, offset uintptr) setFunc {
	return func(p unsafe.Pointer, in BinaryInputStream) error {
		null, err := in.ReadUInt8()
		if err != nil {
			return err
		}
		if null != 0 {
			reflect.NewAt(fieldType, unsafe.Add(p, offset)).Elem().SetZero()
			return nil
		}
		return set(p, in)
	}
}

// compileWideUnsigned handles unsigned columns of 64 bits and more stored into 64-bit integer fields
// that cannot hold them directly. Values are read as big integers and narrowed with a range check.
func compileWideUnsigned(col *ColumnType, fieldType reflect.Type, offset uintptr) setFunc {
	var read func(in BinaryInputStream, b *big.Int) error
	switch col.dataType {
	case UInt64Type:
		read = func(in BinaryInputStream, b *big.Int) error {
			v, err := in.ReadUInt64()
			b.SetUint64(v)
			return err
		}
	case UInt128Type, UInt256Type:
		size := col.dataType.valueSize()
		read = func(in BinaryInputStream, b *big.Int) error {
			v, err := in.ReadBigInteger(size, false)
			if err != nil {
				return err
			}
			b.Set(v)
			return nil
		}
	default:
		return nil
	}
	var store func(dst unsafe.Pointer, b *big.Int) bool
	switch kind := fieldType.Kind(); {
	case kind == reflect.Int64 || kind == reflect.Int && bits.UintSize == 64:
		store = func(dst unsafe.Pointer, b *big.Int) bool {
			if !b.IsInt64() {
				return false
			}
			*(*int64)(dst) = b.Int64()
			return true
		}
	case (kind == reflect.Uint64 || kind == reflect.Uint && bits.UintSize == 64) && col.dataType != UInt64Type:
		store = func(dst unsafe.Pointer, b *big.Int) bool {
			if !b.IsUint64() {
				return false
			}
			*(*uint64)(dst) = b.Uint64()
			return true
		}
	default:
		return nil
	}
	target := fieldType.String()
	set := func(p unsafe.Pointer, in BinaryInputStream) error {
		var b big.Int
		if err := read(in, &b); err != nil {
			return err
		}
		if !store(unsafe.Add(p, offset), &b) {
			return mismatch(&b, target, "value out of range")
		}
		return nil
	}
	if col.nullable {
		return nullableSetter(set, fieldType, offset)
	}
	return set
}

// canonicalType returns the Go type values of col decode into.
func canonicalType(col *ColumnType) reflect.Type {
	switch col.dataType {
	case Int8Type, Enum8Type:
		return reflect.TypeOf(int8(0))
	case Int16Type, Enum16Type:
		return reflect.TypeOf(int16(0))
	case Int32Type:
		return reflect.TypeOf(int32(0))
	case Int64Type:
		return reflect.TypeOf(int64(0))
	case UInt8Type:
		return reflect.TypeOf(uint8(0))
	case UInt16Type:
		return reflect.TypeOf(uint16(0))
	case UInt32Type:
		return reflect.TypeOf(uint32(0))
	case UInt64Type:
		return reflect.TypeOf(uint64(0))
	case Int128Type, Int256Type, UInt128Type, UInt256Type:
		return bigIntPtrType
	case Float32Type:
		return reflect.TypeOf(float32(0))
	case Float64Type:
		return reflect.TypeOf(float64(0))
	case DecimalType, Decimal32Type, Decimal64Type, Decimal128Type, Decimal256Type:
		return decimalPtrType
	case BoolType:
		return reflect.TypeOf(false)
	case StringType, FixedStringType, JSONType:
		return reflect.TypeOf("")
	case DateType, Date32Type, DateTimeType, DateTime64Type:
		return timeType
	case UUIDType:
		return uuidType
	case IPv4Type, IPv6Type:
		return addrType
	case ArrayType, TupleType:
		return sliceType
	case MapType:
		return mapType
	default:
		return bitmapPtrType
	}
}

// compileAdapter builds the assignment of decoded values of col into values of fieldType.
func compileAdapter(col *ColumnType, fieldType reflect.Type) (assignFunc, error) {
	if col.dataType == AggregateFunctionType && col.aggFunc != GroupBitmapFunction {
		return nil, unsupported(col, "")
	}
	src := canonicalType(col)
	if fieldType.Kind() == reflect.Interface {
		if !src.Implements(fieldType) {
			return nil, fmt.Errorf("%s does not implement %s", src, fieldType)
		}
		return func(dst reflect.Value, v interface{}) error {
			if v == nil {
				dst.SetZero()
			} else {
				dst.Set(reflect.ValueOf(v))
			}
			return nil
		}, nil
	}
	if fieldType.Kind() == reflect.Pointer && !src.AssignableTo(fieldType) {
		elemType := fieldType.Elem()
		assign, err := compileValueAdapter(col, src, elemType)
		if err != nil {
			return nil, err
		}
		return func(dst reflect.Value, v interface{}) error {
			if v == nil {
				dst.SetZero()
				return nil
			}
			p := reflect.New(elemType)
			if err := assign(p.Elem(), v); err != nil {
				return err
			}
			dst.Set(p)
			return nil
		}, nil
	}
	assign, err := compileValueAdapter(col, src, fieldType)
	if err != nil {
		return nil, err
	}
	return func(dst reflect.Value, v interface{}) error {
		if v == nil {
			dst.SetZero()
			return nil
		}
		return assign(dst, v)
	}, nil
}

func compileValueAdapter(col *ColumnType, src reflect.Type, dstType reflect.Type) (assignFunc, error) {
	if dstType.Kind() == reflect.Interface {
		return compileAdapter(col, dstType)
	}
	switch col.dataType {
	case ArrayType:
		return compileSequenceAdapter([]*ColumnType{col.nested[0]}, true, dstType)
	case TupleType:
		return compileSequenceAdapter(col.nested, false, dstType)
	case MapType:
		if dstType.Kind() == reflect.Map {
			return compileMapAdapter(col, dstType)
		}
	case Enum8Type, Enum16Type:
		if dstType.Kind() == reflect.String && len(col.enumValues) > 0 {
			return func(dst reflect.Value, v interface{}) error {
				n, _ := ToInt64(v)
				name, ok := col.EnumName(int16(n))
				if !ok {
					return mismatch(v, col.String(), "unknown enum value")
				}
				dst.SetString(name)
				return nil
			}, nil
		}
	case DecimalType, Decimal32Type, Decimal64Type, Decimal128Type, Decimal256Type:
		switch {
		case dstType == decimalPtrType.Elem():
			return func(dst reflect.Value, v interface{}) error {
				dst.Set(reflect.ValueOf(*v.(*apd.Decimal)))
				return nil
			}, nil
		case dstType == shopspringType:
			return func(dst reflect.Value, v interface{}) error {
				d := v.(*apd.Decimal)
				coeff := d.Coeff.MathBigInt()
				if d.Negative {
					coeff.Neg(coeff)
				}
				dst.Set(reflect.ValueOf(decimal.NewFromBigInt(coeff, d.Exponent)))
				return nil
			}, nil
		case dstType.Kind() == reflect.Float64:
			return func(dst reflect.Value, v interface{}) error {
				f, err := v.(*apd.Decimal).Float64()
				if err != nil {
					return mismatch(v, dstType.String(), "%s", err)
				}
				dst.SetFloat(f)
				return nil
			}, nil
		}
	case DateType, Date32Type:
		if dstType == civilDateType {
			return func(dst reflect.Value, v interface{}) error {
				dst.Set(reflect.ValueOf(civil.DateOf(v.(time.Time))))
				return nil
			}, nil
		}
	case DateTimeType, DateTime64Type:
		if dstType == civilDTType {
			return func(dst reflect.Value, v interface{}) error {
				dst.Set(reflect.ValueOf(civil.DateTimeOf(v.(time.Time))))
				return nil
			}, nil
		}
	case IPv4Type, IPv6Type:
		if dstType == netIPType {
			return func(dst reflect.Value, v interface{}) error {
				dst.Set(reflect.ValueOf(net.IP(v.(netip.Addr).AsSlice())))
				return nil
			}, nil
		}
	}
	switch {
	case src.AssignableTo(dstType):
		return func(dst reflect.Value, v interface{}) error {
			dst.Set(reflect.ValueOf(v))
			return nil
		}, nil
	case src == bigIntPtrType && dstType == bigIntPtrType.Elem():
		return func(dst reflect.Value, v interface{}) error {
			dst.Set(reflect.ValueOf(*v.(*big.Int)))
			return nil
		}, nil
	case src == bigIntPtrType || col.dataType == UInt64Type:
		return compileIntegerNarrowing(dstType)
	}
	srcBits, _, srcNumeric := primitiveBits(src.Kind())
	_, _, dstNumeric := primitiveBits(dstType.Kind())
	switch {
	case srcNumeric && dstNumeric && srcBits > 0:
		if !losslessWidening(col.dataType, dstType.Kind()) {
			return nil, fmt.Errorf("%s does not fit into %s", col, dstType)
		}
	case src.Kind() == reflect.String && dstType.Kind() == reflect.Slice && dstType.Elem().Kind() == reflect.Uint8:
	case src.Kind() == dstType.Kind() && src.ConvertibleTo(dstType) && !dstNumeric:
	default:
		return nil, fmt.Errorf("%s cannot be stored into %s", col, dstType)
	}
	return func(dst reflect.Value, v interface{}) error {
		dst.Set(reflect.ValueOf(v).Convert(dstType))
		return nil
	}, nil
}

// compileIntegerNarrowing stores big integers and UInt64 values into 64-bit integer fields, failing on
// values out of range.
func compileIntegerNarrowing(dstType reflect.Type) (assignFunc, error) {
	dstBits, kind, ok := primitiveBits(dstType.Kind())
	if !ok || kind == floatKind || dstBits < 64 {
		return nil, fmt.Errorf("wide integer cannot be stored into %s", dstType)
	}
	if kind == signedKind {
		return func(dst reflect.Value, v interface{}) error {
			n, err := ToInt64(v)
			if err != nil {
				return err
			}
			dst.SetInt(n)
			return nil
		}, nil
	}
	return func(dst reflect.Value, v interface{}) error {
		n, err := ToUint64(v)
		if err != nil {
			return err
		}
		dst.SetUint(n)
		return nil
	}, nil
}

// compileSequenceAdapter converts decoded Array and Tuple values into typed slices and arrays. Array
// elements share one type, Tuple elements are adapted positionally.
func compileSequenceAdapter(elems []*ColumnType, homogeneous bool, dstType reflect.Type) (assignFunc, error) {
	kind := dstType.Kind()
	if kind != reflect.Slice && kind != reflect.Array {
		return nil, fmt.Errorf("composite value cannot be stored into %s", dstType)
	}
	if !homogeneous && kind == reflect.Array && dstType.Len() != len(elems) {
		return nil, fmt.Errorf("tuple of %d elements cannot be stored into %s", len(elems), dstType)
	}
	adapters := make([]assignFunc, len(elems))
	for i, elem := range elems {
		assign, err := compileAdapter(elem, dstType.Elem())
		if err != nil {
			return nil, err
		}
		adapters[i] = assign
	}
	return func(dst reflect.Value, v interface{}) error {
		values := v.([]interface{})
		seq := dst
		if kind == reflect.Slice {
			seq = reflect.MakeSlice(dstType, len(values), len(values))
		} else if len(values) > dst.Len() {
			return mismatch(v, dstType.String(), "%d elements do not fit", len(values))
		} else {
			dst.SetZero()
		}
		for i, elem := range values {
			assign := adapters[0]
			if !homogeneous {
				assign = adapters[i]
			}
			if err := assign(seq.Index(i), elem); err != nil {
				return err
			}
		}
		if kind == reflect.Slice {
			dst.Set(seq)
		}
		return nil
	}, nil
}

func compileMapAdapter(col *ColumnType, dstType reflect.Type) (assignFunc, error) {
	keyAssign, err := compileAdapter(col.nested[0], dstType.Key())
	if err != nil {
		return nil, err
	}
	valueAssign, err := compileAdapter(col.nested[1], dstType.Elem())
	if err != nil {
		return nil, err
	}
	return func(dst reflect.Value, v interface{}) error {
		entries := v.(Map).Entries()
		ret := reflect.MakeMapWithSize(dstType, len(entries))
		key := reflect.New(dstType.Key()).Elem()
		value := reflect.New(dstType.Elem()).Elem()
		for _, entry := range entries {
			if err := keyAssign(key, entry.Key); err != nil {
				return err
			}
			if err := valueAssign(value, entry.Value); err != nil {
				return err
			}
			ret.SetMapIndex(key, value)
		}
		dst.Set(ret)
		return nil
	}, nil
}
