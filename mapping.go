package rowbinary

import (
	"fmt"
	"github.com/source-c/go-rowbinary/internal/bitset"
	"github.com/source-c/go-rowbinary/metrics"
	"math"
	"reflect"
	"strings"
	"sync"
	"unsafe"
)

// setterCache holds compiled setters of all mappings of the process.
var setterCache sync.Map

type setterKey struct {
	owner  reflect.Type
	field  string
	column string
	typ    string
	zone   string
}

type boundField struct {
	name      string
	fieldType reflect.Type
	offset    uintptr
}

// Mapping binds the fields of struct type T to an ordered list of columns. Fields are matched by
// the mapping tag (`ch:"name"`), or by field name when the tag is absent. `ch:"-"` excludes a field.
// Columns with no bound field are decoded and discarded.
type Mapping[T any] struct {
	owner      reflect.Type
	columns    []*ColumnType
	fields     []*boundField
	steps      []setFunc
	setters    []*SpecializedSetter
	serializer *Serializer
}

// NewMapping compiles the setters of T for columns. A *MappingError is returned when a field can never
// hold the values of its column, or when two fields claim the same column.
func NewMapping[T any](columns []*ColumnType, opts ...Option) (*Mapping[T], error) {
	cfg, err := newConfiguration(opts...)
	if err != nil {
		return nil, err
	}
	return newMapping[T](columns, cfg)
}

func newMapping[T any](columns []*ColumnType, cfg *configuration, opts ...setterOption) (*Mapping[T], error) {
	owner := reflect.TypeOf((*T)(nil)).Elem()
	if owner.Kind() != reflect.Struct {
		return nil, &MappingError{Owner: owner, Reason: "struct type expected"}
	}
	m := &Mapping[T]{
		owner:      owner,
		columns:    columns,
		fields:     make([]*boundField, len(columns)),
		steps:      make([]setFunc, len(columns)),
		setters:    make([]*SpecializedSetter, len(columns)),
		serializer: &Serializer{cfg: cfg},
	}
	byName := make(map[string]int, len(columns))
	for i, col := range columns {
		byName[col.Name()] = i
	}
	log := cfg.logger.Named("mapping")
	compiled := cfg.counter(settersCompiledMetric, "Number of compiled column setters")
	generic := cfg.counter(settersGenericMetric, "Number of compiled column setters using the generic route")
	bound := bitset.New(uint(len(columns)))
	for _, f := range reflect.VisibleFields(owner) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get(cfg.mappingTag), ",")
		if name == "-" {
			continue
		}
		if len(name) == 0 {
			name = f.Name
		}
		idx, ok := lookupColumn(byName, columns, name)
		if !ok {
			log.Debugf("field %s.%s has no column '%s'", owner, f.Name, name)
			continue
		}
		col := columns[idx]
		if bound.TestAndSet(uint(idx)) {
			return nil, &MappingError{Owner: owner, Field: f.Name, Column: col.Name(), Reason: "column is bound to more than one field"}
		}
		offset, ok := fieldOffset(owner, f.Index)
		if !ok {
			return nil, &MappingError{Owner: owner, Field: f.Name, Column: col.Name(), Reason: "field is promoted through a pointer"}
		}
		setter, err := cachedSetter(owner, f, offset, col, compiled, generic, opts...)
		if err != nil {
			return nil, err
		}
		log.Debugf("column '%s' %s -> %s.%s: %s route", col.Name(), col, owner, f.Name, setter.Route())
		m.fields[idx] = &boundField{name: f.Name, fieldType: f.Type, offset: offset}
		m.setters[idx] = setter
		m.steps[idx] = setter.set
	}
	for i := bound.NextClear(0); i < uint(len(columns)); i = bound.NextClear(i + 1) {
		col := columns[i]
		log.Debugf("column '%s' is not bound to a field of %s and will be skipped", col.Name(), owner)
		m.steps[i] = skipColumn(col)
	}
	log.Debugf("%s: %d of %d columns bound", owner, bound.Count(), len(columns))
	return m, nil
}

func lookupColumn(byName map[string]int, columns []*ColumnType, name string) (int, bool) {
	if idx, ok := byName[name]; ok {
		return idx, true
	}
	for i, col := range columns {
		if strings.EqualFold(col.Name(), name) {
			return i, true
		}
	}
	return 0, false
}

func cachedSetter(owner reflect.Type, f reflect.StructField, offset uintptr, col *ColumnType,
	compiled metrics.Counter, generic metrics.Counter, opts ...setterOption) (*SpecializedSetter, error) {
	key := setterKey{owner: owner, field: f.Name, column: col.Name(), typ: col.String(), zone: col.location().String()}
	if len(opts) == 0 {
		if cached, ok := setterCache.Load(key); ok {
			return cached.(*SpecializedSetter), nil
		}
	}
	setter, err := compileSetter(owner, f.Name, f.Type, offset, col, opts...)
	if err != nil {
		return nil, err
	}
	compiled.Inc()
	if setter.Route() == GenericRoute {
		generic.Inc()
	}
	if len(opts) == 0 {
		actual, _ := setterCache.LoadOrStore(key, setter)
		setter = actual.(*SpecializedSetter)
	}
	return setter, nil
}

func skipColumn(col *ColumnType) setFunc {
	decode := col.decoder()
	if col.nullable {
		decode = nullableDecoder(decode)
	}
	return func(_ unsafe.Pointer, in BinaryInputStream) error {
		_, err := decode(in)
		return err
	}
}

func (m *Mapping[T]) Columns() []*ColumnType {
	return m.columns
}

// Setters returns the compiled setters by column position, nil for skipped columns.
func (m *Mapping[T]) Setters() []*SpecializedSetter {
	return m.setters
}

// Decode reads one row into dst.
func (m *Mapping[T]) Decode(in BinaryInputStream, dst *T) error {
	if dst == nil {
		return fmt.Errorf("nil destination of %s", m.owner)
	}
	p := unsafe.Pointer(dst)
	for i, step := range m.steps {
		if err := step(p, in); err != nil {
			return fmt.Errorf("failed to read column '%s': %w", m.columns[i].Name(), err)
		}
	}
	return nil
}

// Encode writes the bound fields of src as one row. Nothing is left in out if a value cannot be encoded.
func (m *Mapping[T]) Encode(out BinaryOutputStream, src *T) error {
	if src == nil {
		return fmt.Errorf("nil source of %s", m.owner)
	}
	pos := out.Position()
	p := unsafe.Pointer(src)
	for i, col := range m.columns {
		f := m.fields[i]
		if f == nil {
			out.SetPosition(pos)
			return &MappingError{Owner: m.owner, Column: col.Name(), Reason: "column is not bound to a field"}
		}
		value, err := fieldValue(col, reflect.NewAt(f.fieldType, unsafe.Add(p, f.offset)).Elem())
		if err == nil {
			err = m.serializer.serializeColumn(out, value, col)
		}
		if err != nil {
			out.SetPosition(pos)
			return fmt.Errorf("failed to write column '%s' from %s.%s: %w", col.Name(), m.owner, f.name, err)
		}
	}
	return nil
}

// fieldValue returns a field as serializer input. Float fields take the width of their column:
// widened, or narrowed only when the value survives the conversion.
func fieldValue(col *ColumnType, v reflect.Value) (interface{}, error) {
	if col.dataType != Float32Type && col.dataType != Float64Type {
		return v.Interface(), nil
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if kind := v.Kind(); kind != reflect.Float32 && kind != reflect.Float64 {
		return v.Interface(), nil
	}
	f := v.Float()
	if col.dataType == Float64Type {
		return f, nil
	}
	narrowed := float32(f)
	if float64(narrowed) != f && !math.IsNaN(f) {
		return nil, mismatch(v.Interface(), col.String(), "value does not fit into float32 exactly")
	}
	return narrowed, nil
}
