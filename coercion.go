package rowbinary

import (
	"encoding/json"
	"fmt"
	"github.com/cockroachdb/apd/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/constraints"
	"math"
	"math/big"
	"reflect"
	"strconv"
)

type numberKind int

const (
	signedKind numberKind = iota
	unsignedKind
	floatKind
)

const twoTo64 = 1 << 64

type number interface {
	constraints.Integer | constraints.Float
}

func kindOf[T number]() numberKind {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return floatKind
	case int, int8, int16, int32, int64:
		return signedKind
	default:
		return unsignedKind
	}
}

// ToInt64 converts numeric, boolean, textual and decimal values to int64. Values that do not fit fail.
func ToInt64(value interface{}) (int64, error) {
	return convertToNumber[int64](value, "int64")
}

// ToUint64 converts numeric, boolean, textual and decimal values to uint64. Negative values fail.
func ToUint64(value interface{}) (uint64, error) {
	return convertToNumber[uint64](value, "uint64")
}

// ToFloat64 converts numeric, boolean, textual and decimal values to float64.
func ToFloat64(value interface{}) (float64, error) {
	return convertToNumber[float64](value, "float64")
}

// convertToNumber converts value to T, failing instead of wrapping when the value is out of range.
// Floats are truncated toward zero when T is an integer.
func convertToNumber[T number](value interface{}, target string) (T, error) {
	switch v := value.(type) {
	case int:
		return fromInt64[T](value, int64(v), target)
	case int8:
		return fromInt64[T](value, int64(v), target)
	case int16:
		return fromInt64[T](value, int64(v), target)
	case int32:
		return fromInt64[T](value, int64(v), target)
	case int64:
		return fromInt64[T](value, v, target)
	case uint:
		return fromUint64[T](value, uint64(v), target)
	case uint8:
		return fromUint64[T](value, uint64(v), target)
	case uint16:
		return fromUint64[T](value, uint64(v), target)
	case uint32:
		return fromUint64[T](value, uint64(v), target)
	case uint64:
		return fromUint64[T](value, v, target)
	case float32:
		return fromFloat64[T](value, float64(v), target)
	case float64:
		return fromFloat64[T](value, v, target)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseNumber[T](value, v, target)
	case json.Number:
		return parseNumber[T](value, string(v), target)
	case *big.Int:
		if v == nil {
			return 0, mismatch(value, target, "nil value")
		}
		return fromBigInt[T](value, v, target)
	case big.Int:
		return fromBigInt[T](value, &v, target)
	case *apd.Decimal:
		if v == nil {
			return 0, mismatch(value, target, "nil value")
		}
		return fromDecimal[T](value, v, target)
	case apd.Decimal:
		return fromDecimal[T](value, &v, target)
	case decimal.Decimal:
		return fromDecimal[T](value, fromShopspring(v), target)
	case nil:
		return 0, mismatch(value, target, "nil value")
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fromInt64[T](value, rv.Int(), target)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fromUint64[T](value, rv.Uint(), target)
	case reflect.Float32, reflect.Float64:
		return fromFloat64[T](value, rv.Float(), target)
	case reflect.String:
		return parseNumber[T](value, rv.String(), target)
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return 0, mismatch(value, target, "nil value")
		}
		return convertToNumber[T](rv.Elem().Interface(), target)
	}
	return 0, mismatch(value, target, "not a number")
}

func fromInt64[T number](orig interface{}, v int64, target string) (T, error) {
	ret := T(v)
	if kindOf[T]() == floatKind {
		return ret, nil
	}
	if int64(ret) != v || (v < 0) != (ret < 0) {
		return 0, mismatch(orig, target, "value out of range")
	}
	return ret, nil
}

func fromUint64[T number](orig interface{}, v uint64, target string) (T, error) {
	ret := T(v)
	if kindOf[T]() == floatKind {
		return ret, nil
	}
	if uint64(ret) != v || ret < 0 {
		return 0, mismatch(orig, target, "value out of range")
	}
	return ret, nil
}

func fromFloat64[T number](orig interface{}, v float64, target string) (T, error) {
	if kindOf[T]() == floatKind {
		ret := T(v)
		if !math.IsInf(v, 0) && math.IsInf(float64(ret), 0) {
			return 0, mismatch(orig, target, "value out of range")
		}
		return ret, nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, mismatch(orig, target, "not a finite number")
	}
	truncated := math.Trunc(v)
	if truncated >= 0 {
		if truncated >= twoTo64 {
			return 0, mismatch(orig, target, "value out of range")
		}
		return fromUint64[T](orig, uint64(truncated), target)
	}
	if truncated < math.MinInt64 {
		return 0, mismatch(orig, target, "value out of range")
	}
	return fromInt64[T](orig, int64(truncated), target)
}

func fromBigInt[T number](orig interface{}, v *big.Int, target string) (T, error) {
	switch {
	case v.IsInt64():
		return fromInt64[T](orig, v.Int64(), target)
	case v.IsUint64():
		return fromUint64[T](orig, v.Uint64(), target)
	case kindOf[T]() == floatKind:
		f, _ := new(big.Float).SetInt(v).Float64()
		return fromFloat64[T](orig, f, target)
	default:
		return 0, mismatch(orig, target, "value out of range")
	}
}

func fromDecimal[T number](orig interface{}, v *apd.Decimal, target string) (T, error) {
	if v.Form != apd.Finite {
		return 0, mismatch(orig, target, "not a finite number")
	}
	if kindOf[T]() == floatKind {
		f, err := v.Float64()
		if err != nil {
			return 0, mismatch(orig, target, "%s", err)
		}
		return fromFloat64[T](orig, f, target)
	}
	integral, err := decimalToBigInt(v)
	if err != nil {
		return 0, mismatch(orig, target, "%s", err)
	}
	return fromBigInt[T](orig, integral, target)
}

func parseNumber[T number](orig interface{}, s string, target string) (T, error) {
	switch kindOf[T]() {
	case signedKind:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, mismatch(orig, target, "%s", err)
		}
		return fromInt64[T](orig, v, target)
	case unsignedKind:
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, mismatch(orig, target, "%s", err)
		}
		return fromUint64[T](orig, v, target)
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, mismatch(orig, target, "%s", err)
		}
		return fromFloat64[T](orig, v, target)
	}
}

// ToBigInt converts integers, integral decimals, floats (truncated toward zero) and decimal strings to *big.Int.
func ToBigInt(value interface{}) (*big.Int, error) {
	const target = "big.Int"
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, mismatch(value, target, "nil value")
		}
		return v, nil
	case big.Int:
		return &v, nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case float32:
		return floatToBigInt(value, float64(v), target)
	case float64:
		return floatToBigInt(value, v, target)
	case string:
		ret, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, mismatch(value, target, "invalid integer literal")
		}
		return ret, nil
	case *apd.Decimal, apd.Decimal, decimal.Decimal:
		d, err := ToDecimal(value)
		if err != nil {
			return nil, err
		}
		ret, err := decimalToBigInt(d)
		if err != nil {
			return nil, mismatch(value, target, "%s", err)
		}
		return ret, nil
	case nil:
		return nil, mismatch(value, target, "nil value")
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(rv.Uint()), nil
	case reflect.Bool:
		if rv.Bool() {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case reflect.String:
		return ToBigInt(rv.String())
	case reflect.Pointer:
		if !rv.IsNil() {
			return ToBigInt(rv.Elem().Interface())
		}
		return nil, mismatch(value, target, "nil value")
	}
	return nil, mismatch(value, target, "not an integer")
}

func floatToBigInt(orig interface{}, v float64, target string) (*big.Int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, mismatch(orig, target, "not a finite number")
	}
	ret, _ := big.NewFloat(v).Int(nil)
	return ret, nil
}

// ToDecimal converts decimals, integers, floats (shortest representation) and decimal strings to *apd.Decimal.
func ToDecimal(value interface{}) (*apd.Decimal, error) {
	const target = "apd.Decimal"
	var ret *apd.Decimal
	switch v := value.(type) {
	case *apd.Decimal:
		if v == nil {
			return nil, mismatch(value, target, "nil value")
		}
		ret = v
	case apd.Decimal:
		ret = &v
	case decimal.Decimal:
		ret = fromShopspring(v)
	case *decimal.Decimal:
		if v == nil {
			return nil, mismatch(value, target, "nil value")
		}
		ret = fromShopspring(*v)
	case *big.Int:
		if v == nil {
			return nil, mismatch(value, target, "nil value")
		}
		ret = apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(v), 0)
	case big.Int:
		ret = apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(&v), 0)
	case float32:
		return floatToDecimal(value, float64(v), target)
	case float64:
		return floatToDecimal(value, v, target)
	case string:
		d, _, err := apd.NewFromString(v)
		if err != nil {
			return nil, mismatch(value, target, "%s", err)
		}
		ret = d
	case nil:
		return nil, mismatch(value, target, "nil value")
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			ret = apd.New(rv.Int(), 0)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			ret = apd.NewWithBigInt(new(apd.BigInt).SetUint64(rv.Uint()), 0)
		case reflect.String:
			return ToDecimal(rv.String())
		case reflect.Pointer:
			if rv.IsNil() {
				return nil, mismatch(value, target, "nil value")
			}
			return ToDecimal(rv.Elem().Interface())
		default:
			return nil, mismatch(value, target, "not a decimal")
		}
	}
	if ret.Form != apd.Finite {
		return nil, mismatch(value, target, "not a finite number")
	}
	return ret, nil
}

func floatToDecimal(orig interface{}, v float64, target string) (*apd.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, mismatch(orig, target, "not a finite number")
	}
	ret, err := new(apd.Decimal).SetFloat64(v)
	if err != nil {
		return nil, mismatch(orig, target, "%s", err)
	}
	return ret, nil
}

func fromShopspring(v decimal.Decimal) *apd.Decimal {
	return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(v.Coefficient()), v.Exponent())
}

// decimalToBigInt returns the integral value of d, failing if d has a non-zero fraction.
func decimalToBigInt(d *apd.Decimal) (*big.Int, error) {
	var integ, frac apd.Decimal
	d.Modf(&integ, &frac)
	if !frac.IsZero() {
		return nil, fmt.Errorf("%s has a fractional part", d)
	}
	ret := integ.Coeff.MathBigInt()
	if integ.Exponent > 0 {
		ret.Mul(ret, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(integ.Exponent)), nil))
	}
	if integ.Negative {
		ret.Neg(ret)
	}
	return ret, nil
}

// ToBool converts booleans, integers (non-zero is true) and strconv.ParseBool literals.
func ToBool(value interface{}) (bool, error) {
	const target = "bool"
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		ret, err := strconv.ParseBool(v)
		if err != nil {
			return false, mismatch(value, target, "%s", err)
		}
		return ret, nil
	case nil:
		return false, mismatch(value, target, "nil value")
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0, nil
	case reflect.String:
		return ToBool(rv.String())
	case reflect.Pointer:
		if !rv.IsNil() {
			return ToBool(rv.Elem().Interface())
		}
	}
	return false, mismatch(value, target, "not a boolean")
}

// ToString converts strings, byte slices, fmt.Stringer, numbers and booleans to a string.
func ToString(value interface{}) (string, error) {
	const target = "string"
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.RawMessage:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "", mismatch(value, target, "nil value")
		}
		return v.String(), nil
	case nil:
		return "", mismatch(value, target, "nil value")
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes()), nil
		}
	case reflect.Pointer:
		if !rv.IsNil() {
			return ToString(rv.Elem().Interface())
		}
	}
	return "", mismatch(value, target, "not a string")
}
