package rowbinary

import (
	"errors"
	"fmt"
	"github.com/source-c/go-rowbinary/logger"
	"github.com/source-c/go-rowbinary/metrics"
	"io"
)

// rowSource reads the optional stream header and delimits rows.
type rowSource struct {
	in        BinaryInputStream
	columns   []*ColumnType
	names     []string
	cfg       *configuration
	log       logger.Logger
	rowsRead  metrics.Counter
	bytesRead metrics.Counter
	rows      int
	empty     bool
}

func openRowSource(r io.Reader, columns []*ColumnType, cfg *configuration) (*rowSource, error) {
	src := &rowSource{
		in:        NewBinaryInputStream(r, cfg.bufferSize),
		columns:   columns,
		cfg:       cfg,
		log:       cfg.logger.Named("reader"),
		rowsRead:  cfg.counter(rowsReadMetric, "Number of rows read"),
		bytesRead: cfg.counter(bytesReadMetric, "Number of row bytes read"),
	}
	if !cfg.namesHeader {
		src.empty = len(columns) == 0
		src.names = columnNames(columns)
		return src, nil
	}
	if err := src.readHeader(); err != nil {
		return nil, err
	}
	return src, nil
}

func (src *rowSource) readHeader() error {
	count, err := readLength(src.in, "read header")
	if err != nil {
		if errors.Is(err, io.EOF) {
			src.log.Debugf("empty stream, no header")
			src.empty = true
			src.columns = nil
			src.names = []string{}
			return nil
		}
		return fmt.Errorf("failed to read header: %w", err)
	}
	names := make([]string, 0, min(count, 1024))
	for i := 0; i < count; i++ {
		name, err := src.in.ReadString()
		if err != nil {
			return fmt.Errorf("failed to read header: %w", err)
		}
		names = append(names, name)
	}
	src.names = names
	if src.cfg.typesHeader {
		columns := make([]*ColumnType, len(names))
		for i, name := range names {
			typeName, err := src.in.ReadString()
			if err != nil {
				return fmt.Errorf("failed to read header: %w", err)
			}
			if columns[i], err = ParseColumnType(name, typeName); err != nil {
				return fmt.Errorf("failed to read header: %w", err)
			}
		}
		src.columns = columns
	} else {
		columns, err := bindHeaderNames(names, src.columns)
		if err != nil {
			return err
		}
		src.columns = columns
	}
	if len(src.columns) == 0 {
		src.empty = true
	}
	src.log.Debugf("header columns: %v", names)
	return nil
}

// bindHeaderNames orders columns by the header names. Columns are matched by name when all names are
// known, by position otherwise.
func bindHeaderNames(names []string, columns []*ColumnType) ([]*ColumnType, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("header has %d columns, %d column types given", len(names), len(columns))
	}
	byName := make(map[string]*ColumnType, len(columns))
	for _, col := range columns {
		byName[col.Name()] = col
	}
	ret := make([]*ColumnType, len(names))
	for i, name := range names {
		if col, ok := byName[name]; ok {
			ret[i] = col
			continue
		}
		for j, col := range columns {
			ret[j] = col.renamed(names[j])
		}
		return ret, nil
	}
	return ret, nil
}

// readRow reads one row with read. It returns false if the stream ended cleanly before the row.
func (src *rowSource) readRow(read func() error) (bool, error) {
	if src.empty {
		return false, nil
	}
	start := src.in.Position()
	if err := read(); err != nil {
		src.empty = true
		if errors.Is(err, io.EOF) {
			if n := src.in.Position() - start; n > 0 {
				return false, fmt.Errorf("row cut short after %d bytes (%s): %w", n, err, io.ErrUnexpectedEOF)
			}
			return false, nil
		}
		return false, err
	}
	size := src.in.Position() - start
	src.rows++
	src.rowsRead.Inc()
	src.bytesRead.Add(float64(size))
	if src.log.Enabled(logger.TraceLevel) {
		src.log.Tracef("row %d: %d bytes", src.rows, size)
	}
	return true, nil
}

func columnNames(columns []*ColumnType) []string {
	ret := make([]string, len(columns))
	for i, col := range columns {
		ret[i] = col.Name()
	}
	return ret
}

// RowReader reads rows of boxed values. The first row is read eagerly, so HasNext answers whether the
// stream holds data before Next is called.
type RowReader struct {
	src      *rowSource
	decoders []decodeFunc
	row      []interface{}
	next     []interface{}
	hasNext  bool
	err      error
}

// NewRowReader creates a reader of rows of the given columns. With [WithNamesHeader] the header is
// read first; with [WithNamesAndTypesHeader] columns may be nil. An empty stream yields no columns
// and no rows.
func NewRowReader(r io.Reader, columns []*ColumnType, opts ...Option) (*RowReader, error) {
	cfg, err := newConfiguration(opts...)
	if err != nil {
		return nil, err
	}
	src, err := openRowSource(r, columns, cfg)
	if err != nil {
		return nil, err
	}
	rr := &RowReader{
		src:      src,
		decoders: make([]decodeFunc, len(src.columns)),
	}
	for i, col := range src.columns {
		rr.decoders[i] = col.decoder()
		if col.nullable {
			rr.decoders[i] = nullableDecoder(rr.decoders[i])
		}
	}
	if err = rr.prefetch(); err != nil {
		return nil, err
	}
	return rr, nil
}

func (rr *RowReader) prefetch() error {
	row := make([]interface{}, len(rr.decoders))
	var err error
	rr.hasNext, err = rr.src.readRow(func() error {
		for i, decode := range rr.decoders {
			v, err := decode(rr.src.in)
			if err != nil {
				return fmt.Errorf("failed to read column '%s': %w", rr.src.columns[i].Name(), err)
			}
			row[i] = v
		}
		return nil
	})
	rr.next = row
	return err
}

// Columns returns the column names, empty if the stream carried no header and no columns were given,
// or if the stream was empty.
func (rr *RowReader) Columns() []string {
	return rr.src.names
}

// ColumnTypes returns the column types rows are decoded with.
func (rr *RowReader) ColumnTypes() []*ColumnType {
	return rr.src.columns
}

func (rr *RowReader) HasNext() bool {
	return rr.hasNext
}

// Next returns the next row. At the end of the stream it returns io.EOF, or the error that ended it.
func (rr *RowReader) Next() ([]interface{}, error) {
	if !rr.hasNext {
		if rr.err != nil {
			return nil, rr.err
		}
		return nil, io.EOF
	}
	rr.row = rr.next
	rr.err = rr.prefetch()
	if rr.err != nil {
		rr.hasNext = false
	}
	return rr.row, nil
}

// Err returns the error that ended the stream, if any.
func (rr *RowReader) Err() error {
	return rr.err
}

// StructReader reads rows into values of struct type T through a [Mapping].
type StructReader[T any] struct {
	src     *rowSource
	mapping *Mapping[T]
	next    T
	hasNext bool
	err     error
}

// NewStructReader creates a reader of rows of the given columns into T. Header handling is the same as
// for [NewRowReader].
func NewStructReader[T any](r io.Reader, columns []*ColumnType, opts ...Option) (*StructReader[T], error) {
	cfg, err := newConfiguration(opts...)
	if err != nil {
		return nil, err
	}
	src, err := openRowSource(r, columns, cfg)
	if err != nil {
		return nil, err
	}
	mapping, err := newMapping[T](src.columns, cfg)
	if err != nil {
		return nil, err
	}
	sr := &StructReader[T]{
		src:     src,
		mapping: mapping,
	}
	if err = sr.prefetch(); err != nil {
		return nil, err
	}
	return sr, nil
}

func (sr *StructReader[T]) prefetch() error {
	var zero T
	sr.next = zero
	var err error
	sr.hasNext, err = sr.src.readRow(func() error {
		return sr.mapping.Decode(sr.src.in, &sr.next)
	})
	return err
}

func (sr *StructReader[T]) Columns() []string {
	return sr.src.names
}

func (sr *StructReader[T]) Mapping() *Mapping[T] {
	return sr.mapping
}

func (sr *StructReader[T]) HasNext() bool {
	return sr.hasNext
}

// Next stores the next row into dst. At the end of the stream it returns io.EOF, or the error that
// ended it.
func (sr *StructReader[T]) Next(dst *T) error {
	if !sr.hasNext {
		if sr.err != nil {
			return sr.err
		}
		return io.EOF
	}
	*dst = sr.next
	sr.err = sr.prefetch()
	if sr.err != nil {
		sr.hasNext = false
	}
	return nil
}

func (sr *StructReader[T]) Err() error {
	return sr.err
}
