package rowbinary

import (
	"fmt"
	"reflect"
)

// UnsupportedTypeError is returned when a column type, or the aggregate function of an
// AggregateFunction column, has no encode or decode routine.
type UnsupportedTypeError struct {
	Type     DataType
	Function AggregateFunction
	Reason   string
}

// ValueTypeMismatchError is returned when a value cannot be coerced to the target type.
type ValueTypeMismatchError struct {
	Value  interface{}
	Target string
	Reason string
}

// StreamError wraps a failure of the underlying byte source or sink.
type StreamError struct {
	Op  string
	err error
}

// MappingError is returned when a column can never be assigned into a struct field. It is raised
// once, while a mapping is compiled, and never per row.
type MappingError struct {
	Owner  reflect.Type
	Field  string
	Column string
	Reason string
}

func (err *UnsupportedTypeError) Error() string {
	var msg string
	if err.Type == AggregateFunctionType {
		msg = fmt.Sprintf("unsupported aggregate function %s", err.Function)
	} else {
		msg = fmt.Sprintf("unsupported type %s", err.Type)
	}
	if len(err.Reason) != 0 {
		msg = fmt.Sprintf("%s: %s", msg, err.Reason)
	}
	return msg
}

func (err *ValueTypeMismatchError) Error() string {
	msg := fmt.Sprintf("cannot convert %T(%v) to %s", err.Value, err.Value, err.Target)
	if len(err.Reason) != 0 {
		msg = fmt.Sprintf("%s: %s", msg, err.Reason)
	}
	return msg
}

func (err *StreamError) Error() string {
	if err.err == nil {
		return err.Op
	}
	return fmt.Sprintf("%s: %s", err.Op, err.err)
}

func (err *StreamError) Unwrap() error {
	return err.err
}

func (err *MappingError) Error() string {
	owner := "<nil>"
	if err.Owner != nil {
		owner = err.Owner.String()
	}
	return fmt.Sprintf("cannot map column '%s' to %s.%s: %s", err.Column, owner, err.Field, err.Reason)
}

func mismatch(value interface{}, target string, format string, args ...interface{}) error {
	return &ValueTypeMismatchError{
		Value:  value,
		Target: target,
		Reason: fmt.Sprintf(format, args...),
	}
}

func unsupported(col *ColumnType, reason string) error {
	return &UnsupportedTypeError{
		Type:     col.dataType,
		Function: col.aggFunc,
		Reason:   reason,
	}
}
