// Package rowbinary encodes and decodes the ClickHouse RowBinary format.
//
// # Column types
//
// Every value is encoded against a [ColumnType]. Column types are built with [NewColumnType] or
// parsed from ClickHouse notation with [ParseColumnType]:
//
//	id := rowbinary.MustColumnType("id", rowbinary.UInt64Type)
//	price, err := rowbinary.ParseColumnType("price", "Nullable(Decimal(10, 2))")
//	if err != nil {
//		return err
//	}
//
// Column types are immutable and may be shared between goroutines.
//
// # Encoding values
//
// [SerializeData] writes one value. Integers, decimals, booleans and strings are coerced from any
// compatible Go representation; values that do not fit into the column type fail with
// [ValueTypeMismatchError] instead of being truncated:
//
//	var buf bytes.Buffer
//	err := rowbinary.SerializeData(&buf, "12.34", price)
//
// Rows are written with [RowWriter] or, for structs, [StructWriter]:
//
//	w, err := rowbinary.NewRowWriter(conn, []*rowbinary.ColumnType{id, price}, rowbinary.WithNamesHeader())
//	if err != nil {
//		return err
//	}
//	if err = w.WriteRow(uint64(1), nil); err != nil {
//		return err
//	}
//	err = w.Flush()
//
// # Decoding rows
//
// [RowReader] returns rows of boxed values. [StructReader] stores rows into structs through a
// [Mapping]: fields are bound to columns by the `ch` tag, and for each field a [SpecializedSetter]
// is compiled once. Integer, float and boolean columns stored into matching or wider fields read the
// wire value straight into the field; other pairs decode a boxed value and convert it with an adapter
// chosen at compile time. Pairs that can never be assigned fail with [MappingError] when the mapping
// is created.
//
//	type Order struct {
//		ID    uint64       `ch:"id"`
//		Price *apd.Decimal `ch:"price"`
//	}
//
//	r, err := rowbinary.NewStructReader[Order](conn, []*rowbinary.ColumnType{id, price}, rowbinary.WithNamesHeader())
//	if err != nil {
//		return err
//	}
//	for r.HasNext() {
//		var order Order
//		if err = r.Next(&order); err != nil {
//			return err
//		}
//	}
//
// # Logging and metrics
//
// Compiled setters and read headers are logged at debug level through [WithLoggingSink]. Counters of
// compiled setters and processed rows are created through [WithMetrics], see package metrics/prometheus.
package rowbinary
