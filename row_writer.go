package rowbinary

import (
	"fmt"
	"github.com/source-c/go-rowbinary/logger"
	"github.com/source-c/go-rowbinary/metrics"
	"io"
)

const flushThreshold = 1024 * 1024

// RowWriter assembles rows in a buffer and hands them to the underlying writer on Flush, or when the
// buffer grows past a threshold. A row that fails to encode leaves nothing in the buffer.
type RowWriter struct {
	w             io.Writer
	out           BinaryOutputStream
	columns       []*ColumnType
	serializer    *Serializer
	cfg           *configuration
	log           logger.Logger
	headerWritten bool
	rowsWritten   metrics.Counter
	bytesWritten  metrics.Counter
}

// NewRowWriter creates a writer of rows of the given columns. With [WithNamesHeader] or
// [WithNamesAndTypesHeader] the header precedes the first row.
func NewRowWriter(w io.Writer, columns []*ColumnType, opts ...Option) (*RowWriter, error) {
	cfg, err := newConfiguration(opts...)
	if err != nil {
		return nil, err
	}
	return &RowWriter{
		w:            w,
		out:          NewBinaryOutputStream(4096),
		columns:      columns,
		serializer:   &Serializer{cfg: cfg},
		cfg:          cfg,
		log:          cfg.logger.Named("writer"),
		rowsWritten:  cfg.counter(rowsWrittenMetric, "Number of rows written"),
		bytesWritten: cfg.counter(bytesWrittenMetric, "Number of bytes handed to the underlying writer"),
	}, nil
}

func (rw *RowWriter) Columns() []*ColumnType {
	return rw.columns
}

// WriteHeader writes the column count and names, followed by the type names for the
// RowBinaryWithNamesAndTypes variant. It does nothing when no header is configured or the header
// was already written.
func (rw *RowWriter) WriteHeader() error {
	if !rw.cfg.namesHeader || rw.headerWritten {
		return nil
	}
	rw.out.WriteVarInt(uint64(len(rw.columns)))
	for _, col := range rw.columns {
		rw.out.WriteString(col.Name())
	}
	if rw.cfg.typesHeader {
		for _, col := range rw.columns {
			rw.out.WriteString(col.String())
		}
	}
	rw.headerWritten = true
	rw.log.Debugf("header written: %d columns, types %t", len(rw.columns), rw.cfg.typesHeader)
	return nil
}

// WriteRow encodes one value per column.
func (rw *RowWriter) WriteRow(values ...interface{}) error {
	if len(values) != len(rw.columns) {
		return fmt.Errorf("row has %d values, %d columns expected", len(values), len(rw.columns))
	}
	return rw.writeRow(func(out BinaryOutputStream) error {
		for i, col := range rw.columns {
			if err := rw.serializer.serializeColumn(out, values[i], col); err != nil {
				return fmt.Errorf("failed to write column '%s': %w", col.Name(), err)
			}
		}
		return nil
	})
}

func (rw *RowWriter) writeRow(encode func(out BinaryOutputStream) error) error {
	if err := rw.WriteHeader(); err != nil {
		return err
	}
	pos := rw.out.Position()
	if err := encode(rw.out); err != nil {
		rw.out.SetPosition(pos)
		return err
	}
	rw.rowsWritten.Inc()
	if rw.out.Position() >= flushThreshold {
		return rw.Flush()
	}
	return nil
}

// Flush writes the buffered rows to the underlying writer.
func (rw *RowWriter) Flush() error {
	if rw.out.Position() == 0 {
		return nil
	}
	n, err := rw.w.Write(rw.out.Data())
	rw.out.Reset()
	rw.bytesWritten.Add(float64(n))
	if err != nil {
		return &StreamError{Op: "flush", err: err}
	}
	rw.log.Tracef("flushed %d bytes", n)
	return nil
}

// StructWriter writes values of struct type T as rows through a [Mapping].
type StructWriter[T any] struct {
	rw      *RowWriter
	mapping *Mapping[T]
}

func NewStructWriter[T any](w io.Writer, columns []*ColumnType, opts ...Option) (*StructWriter[T], error) {
	rw, err := NewRowWriter(w, columns, opts...)
	if err != nil {
		return nil, err
	}
	mapping, err := newMapping[T](columns, rw.cfg)
	if err != nil {
		return nil, err
	}
	return &StructWriter[T]{rw: rw, mapping: mapping}, nil
}

func (sw *StructWriter[T]) Write(v *T) error {
	return sw.rw.writeRow(func(out BinaryOutputStream) error {
		return sw.mapping.Encode(out, v)
	})
}

func (sw *StructWriter[T]) WriteHeader() error {
	return sw.rw.WriteHeader()
}

func (sw *StructWriter[T]) Flush() error {
	return sw.rw.Flush()
}
