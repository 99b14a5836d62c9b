package rowbinary

import (
	"bytes"
	testing2 "github.com/source-c/go-rowbinary/internal/testing"
	"github.com/stretchr/testify/suite"
	"strings"
	"testing"
)

const randomRows = 256

type randomRoundTripSuite struct {
	testing2.RandomizedSuite
}

func TestRandomRoundTrip(t *testing.T) {
	suite.Run(t, new(randomRoundTripSuite))
}

func (s *randomRoundTripSuite) TestRows() {
	rnd := s.Rand
	columns := []*ColumnType{
		MustColumnType("i8", Int8Type),
		MustColumnType("u16", UInt16Type),
		MustColumnType("i64", Int64Type),
		MustColumnType("u32", UInt32Type, Nullable()),
		MustColumnType("f64", Float64Type),
		MustColumnType("s", StringType),
		MustColumnType("fs", FixedStringType, WithPrecision(8)),
		MustColumnType("arr", ArrayType, WithElement(MustColumnType("", Int32Type))),
	}
	i8 := testing2.RandomIntegers[int8](rnd, randomRows)
	u16 := testing2.RandomIntegers[uint16](rnd, randomRows)
	i64 := testing2.RandomIntegers[int64](rnd, randomRows)
	u32 := testing2.RandomNullable(rnd, testing2.RandomIntegers[uint32](rnd, randomRows), 0.3)

	var buf bytes.Buffer
	w, err := NewRowWriter(&buf, columns, WithNamesHeader())
	s.Require().NoError(err)
	expected := make([][]interface{}, randomRows)
	for i := 0; i < randomRows; i++ {
		f := rnd.NormFloat64()
		str := testing2.MakeRandomString(rnd, rnd.Intn(40))
		fs := testing2.MakeRandomString(rnd, rnd.Intn(9))
		arr := testing2.RandomIntegers[int32](rnd, rnd.Intn(5))
		s.Require().NoError(w.WriteRow(i8[i], u16[i], i64[i], u32[i], f, str, fs, arr))

		elems := make([]interface{}, len(arr))
		for j, v := range arr {
			elems[j] = v
		}
		padded := fs + strings.Repeat("\x00", 8-len(fs))
		expected[i] = []interface{}{i8[i], u16[i], i64[i], u32[i], f, str, padded, elems}
	}
	s.Require().NoError(w.Flush())

	rr, err := NewRowReader(&buf, columns, WithNamesHeader(), WithBufferSize(64))
	s.Require().NoError(err)
	actual := make([][]interface{}, 0, randomRows)
	for rr.HasNext() {
		row, err := rr.Next()
		s.Require().NoError(err)
		actual = append(actual, row)
	}
	s.Require().NoError(rr.Err())
	s.Require().Equal(expected, actual)
}

func (s *randomRoundTripSuite) TestStructs() {
	rnd := s.Rand
	points := make([]point, randomRows)
	for i := range points {
		points[i] = point{
			X:     rnd.Int31() - rnd.Int31(),
			Label: testing2.MakeRandomString(rnd, rnd.Intn(16)),
		}
		if rnd.Intn(2) == 0 {
			w := rnd.Float32()
			points[i].Weight = &w
		}
	}

	var buf bytes.Buffer
	sw, err := NewStructWriter[point](&buf, pointColumns, WithNamesAndTypesHeader())
	s.Require().NoError(err)
	for i := range points {
		s.Require().NoError(sw.Write(&points[i]))
	}
	s.Require().NoError(sw.Flush())

	sr, err := NewStructReader[point](&buf, nil, WithNamesAndTypesHeader())
	s.Require().NoError(err)
	decoded := make([]point, 0, randomRows)
	for sr.HasNext() {
		var p point
		s.Require().NoError(sr.Next(&p))
		decoded = append(decoded, p)
	}
	s.Require().NoError(sr.Err())
	s.Require().Equal(points, decoded)
}

func (s *randomRoundTripSuite) TestLargeValues() {
	columns := []*ColumnType{MustColumnType("payload", StringType)}
	payloads := [][]byte{
		testing2.MakeByteArrayPayload(flushThreshold + 17),
		testing2.MakeByteArrayPayload(s.Rand.Intn(1 << 16)),
	}
	var buf bytes.Buffer
	w, err := NewRowWriter(&buf, columns)
	s.Require().NoError(err)
	s.Require().NoError(w.WriteRow(payloads[0]))
	s.Require().NotZero(buf.Len())
	s.Require().NoError(w.WriteRow(payloads[1]))
	s.Require().NoError(w.Flush())

	rr, err := NewRowReader(&buf, columns)
	s.Require().NoError(err)
	for _, payload := range payloads {
		row, err := rr.Next()
		s.Require().NoError(err)
		s.Require().Equal(string(payload), row[0])
	}
	s.Require().False(rr.HasNext())
}
