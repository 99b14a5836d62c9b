package benchmarks

import (
	"bytes"
	"fmt"
	rowbinary "github.com/source-c/go-rowbinary"
	testing2 "github.com/source-c/go-rowbinary/internal/testing"
	"io"
	"math/rand"
	"testing"
)

type trade struct {
	ID     uint64  `ch:"id"`
	Price  float64 `ch:"price"`
	Qty    int32   `ch:"qty"`
	Side   int8    `ch:"side"`
	Symbol string  `ch:"symbol"`
	Venue  *string `ch:"venue"`
}

var tradeColumns = []*rowbinary.ColumnType{
	rowbinary.MustColumnType("id", rowbinary.UInt64Type),
	rowbinary.MustColumnType("price", rowbinary.Float64Type),
	rowbinary.MustColumnType("qty", rowbinary.Int32Type),
	rowbinary.MustColumnType("side", rowbinary.Int8Type),
	rowbinary.MustColumnType("symbol", rowbinary.StringType),
	rowbinary.MustColumnType("venue", rowbinary.StringType, rowbinary.Nullable()),
}

func makeTrades(rows int) []trade {
	rnd := rand.New(rand.NewSource(1))
	ids := testing2.RandomIntegers[uint64](rnd, rows)
	venues := []string{"XNYS", "XNAS", "BATS"}
	ret := make([]trade, rows)
	for i := range ret {
		ret[i] = trade{
			ID:     ids[i],
			Price:  rnd.Float64() * 1000,
			Qty:    rnd.Int31n(10000),
			Side:   int8(rnd.Intn(2)),
			Symbol: testing2.MakeRandomString(rnd, 4),
		}
		if v := rnd.Intn(4); v < len(venues) {
			ret[i].Venue = &venues[v]
		}
	}
	return ret
}

func generateTrades(rows int) ([]byte, error) {
	var buf bytes.Buffer
	sw, err := rowbinary.NewStructWriter[trade](&buf, tradeColumns, rowbinary.WithNamesHeader())
	if err != nil {
		return nil, err
	}
	trades := makeTrades(rows)
	for i := range trades {
		if err = sw.Write(&trades[i]); err != nil {
			return nil, err
		}
	}
	if err = sw.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Benchmark_Read(b *testing.B) {
	b.Run("boxed rows", func(b *testing.B) {
		StreamBenchmarker(b, generateTrades, func(data []byte) error {
			rr, err := rowbinary.NewRowReader(bytes.NewReader(data), tradeColumns, rowbinary.WithNamesHeader())
			if err != nil {
				return err
			}
			for rr.HasNext() {
				if _, err = rr.Next(); err != nil {
					return err
				}
			}
			return rr.Err()
		})
	})
	b.Run("structs", func(b *testing.B) {
		StreamBenchmarker(b, generateTrades, func(data []byte) error {
			sr, err := rowbinary.NewStructReader[trade](bytes.NewReader(data), tradeColumns, rowbinary.WithNamesHeader())
			if err != nil {
				return err
			}
			var t trade
			for sr.HasNext() {
				if err = sr.Next(&t); err != nil {
					return err
				}
			}
			return sr.Err()
		})
	})
}

func Benchmark_Write(b *testing.B) {
	for _, rows := range []int{100, 10000} {
		trades := makeTrades(rows)
		b.Run(fmt.Sprintf("structs %d", rows), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				sw, err := rowbinary.NewStructWriter[trade](io.Discard, tradeColumns)
				if err != nil {
					b.Fatal(err)
				}
				for j := range trades {
					if err = sw.Write(&trades[j]); err != nil {
						b.Fatal(err)
					}
				}
				if err = sw.Flush(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
