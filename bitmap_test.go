package rowbinary

import (
	"github.com/stretchr/testify/require"
	"testing"
)

func TestBitmapRoundTrip(t *testing.T) {
	large := make([]uint64, 0, 1000)
	for i := uint64(0); i < 1000; i++ {
		large = append(large, i*3)
	}
	fixtures := []struct {
		name     string
		elemType DataType
		values   []uint64
	}{
		{"empty", UInt32Type, nil},
		{"small UInt8", UInt8Type, []uint64{0, 255, 7}},
		{"small Int16", Int16Type, []uint64{0xFFFF, 1}},
		{"small UInt64", UInt64Type, []uint64{1 << 40, 3}},
		{"large UInt32", UInt32Type, large},
		{"large Int64", Int64Type, append([]uint64{1 << 63}, large...)},
	}
	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			bm := mustBitmap(t, fixture.elemType, fixture.values...)
			require.Equal(t, uint64(len(fixture.values)), bm.Cardinality())
			for _, v := range fixture.values {
				require.True(t, bm.Contains(v))
			}

			col := MustColumnType("c", AggregateFunctionType,
				WithAggregateFunction(GroupBitmapFunction, MustColumnType("", fixture.elemType)))
			data := serialize(t, bm, col)
			expected, err := bm.Bytes()
			require.NoError(t, err)
			require.Equal(t, expected, data)
			if len(fixture.values) <= bitmapSmallSetLimit {
				require.Equal(t, byte(0), data[0])
				require.Len(t, data, 2+len(fixture.values)*fixture.elemType.valueSize())
			} else {
				require.Equal(t, byte(1), data[0])
			}

			decoded, err := NewBinaryInputStreamFromBytes(data).ReadValue(col)
			require.NoError(t, err)
			require.IsType(t, &Bitmap{}, decoded)
			require.Equal(t, fixture.elemType, decoded.(*Bitmap).ElementType())
			require.Equal(t, bm.Values(), decoded.(*Bitmap).Values())
		})
	}
}

func TestBitmapErrors(t *testing.T) {
	_, err := NewBitmap(StringType)
	require.Error(t, err)

	bm := mustBitmap(t, UInt8Type)
	require.Error(t, bm.Add(256))
	require.False(t, bm.Contains(256))

	_, err = ReadBitmap(NewBinaryInputStreamFromBytes([]byte{2}), UInt8Type)
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)

	_, err = ReadBitmap(NewBinaryInputStreamFromBytes([]byte{1, 3, 1, 2, 3}), UInt32Type)
	require.ErrorAs(t, err, &streamErr)

	_, err = ReadBitmap(NewBinaryInputStreamFromBytes([]byte{0, 2, 1}), UInt8Type)
	require.Error(t, err)
}
