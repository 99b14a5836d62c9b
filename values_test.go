package rowbinary

import (
	"github.com/stretchr/testify/require"
	"testing"
)

func TestMap(t *testing.T) {
	m := NewMap(KeyValue{Key: "a", Value: int64(1)}, KeyValue{Key: "b", Value: nil}, KeyValue{Key: "a", Value: int64(3)})
	require.Equal(t, 3, m.Size())

	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, int64(1), v)
	v, ok = m.Get("b")
	require.True(t, ok)
	require.Nil(t, v)
	_, ok = m.Get("c")
	require.False(t, ok)

	typed, err := ToMap[string, int64](m)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"a": 3, "b": 0}, typed)

	_, err = ToMap[int, int64](m)
	require.Error(t, err)
	_, err = ToMap[string, string](m)
	require.Error(t, err)
}

func TestMapEntries(t *testing.T) {
	ordered := ToOrderedMap(map[string]int{"x": 1})
	require.Equal(t, []KeyValue{{Key: "x", Value: 1}}, ordered.Entries())

	fixtures := []struct {
		name  string
		value interface{}
		size  int
		ok    bool
	}{
		{"Map", NewMap(KeyValue{Key: 1, Value: 2}), 1, true},
		{"*Map", &ordered, 1, true},
		{"[]KeyValue", []KeyValue{{Key: 1}, {Key: 2}}, 2, true},
		{"go map", map[uint8]string{1: "a", 2: "b"}, 2, true},
		{"empty go map", map[string]int{}, 0, true},
		{"slice", []int{1}, 0, false},
		{"nil", nil, 0, false},
	}
	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			entries, ok := mapEntries(fixture.value)
			require.Equal(t, fixture.ok, ok)
			require.Len(t, entries, fixture.size)
		})
	}
}

func TestDecodedMapKeepsOrder(t *testing.T) {
	col := MustColumnType("m", MapType, WithKeyValue(MustColumnType("", UInt16Type), MustColumnType("", StringType)))
	value := NewMap(
		KeyValue{Key: uint16(9), Value: "nine"},
		KeyValue{Key: uint16(1), Value: "one"},
		KeyValue{Key: uint16(5), Value: "five"},
	)
	data := serialize(t, value, col)
	decoded, err := NewBinaryInputStreamFromBytes(data).ReadValue(col)
	require.NoError(t, err)
	require.Equal(t, value, decoded)
}
