package rowbinary

import (
	"fmt"
	"reflect"
)

// KeyValue is one entry of a Map value.
type KeyValue struct {
	Key   interface{}
	Value interface{}
}

// Map is an ordered sequence of key-value pairs. Map columns decode into it, so that the entry order
// of the wire is preserved; it is also accepted when encoding.
type Map struct {
	entries []KeyValue
}

func NewMap(entries ...KeyValue) Map {
	return Map{entries: entries}
}

// ToOrderedMap converts a Go map into a Map. The entry order follows Go map iteration order.
func ToOrderedMap[K comparable, V any](m map[K]V) Map {
	entries := make([]KeyValue, 0, len(m))
	for k, v := range m {
		entries = append(entries, KeyValue{Key: k, Value: v})
	}
	return NewMap(entries...)
}

func (m Map) Entries() []KeyValue {
	return m.entries
}

func (m Map) Size() int {
	return len(m.entries)
}

// Get returns the value of the first entry with the given key.
func (m Map) Get(key interface{}) (interface{}, bool) {
	for _, entry := range m.entries {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return nil, false
}

// ToMap converts a Map to a typed Go map. Nil values are stored as the zero value of V.
func ToMap[K comparable, V any](m Map) (map[K]V, error) {
	ret := make(map[K]V, len(m.entries))
	for _, entry := range m.entries {
		var key K
		var val V
		var ok bool
		if key, ok = entry.Key.(K); !ok {
			return nil, fmt.Errorf("invalid key type: %T", entry.Key)
		}
		if entry.Value != nil {
			if val, ok = entry.Value.(V); !ok {
				return nil, fmt.Errorf("invalid value type: %T", entry.Value)
			}
		}
		ret[key] = val
	}
	return ret, nil
}

// mapEntries flattens a Go map, a Map or a []KeyValue into key-value pairs.
func mapEntries(value interface{}) ([]KeyValue, bool) {
	switch v := value.(type) {
	case Map:
		return v.entries, true
	case *Map:
		if v == nil {
			return nil, false
		}
		return v.entries, true
	case []KeyValue:
		return v, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	entries := make([]KeyValue, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, KeyValue{Key: iter.Key().Interface(), Value: iter.Value().Interface()})
	}
	return entries, true
}
