package rowbinary

import (
	"errors"
	"fmt"
	"github.com/source-c/go-rowbinary/logger"
	"github.com/source-c/go-rowbinary/metrics"
)

const defaultMappingTag = "ch"

const (
	settersCompiledMetric = "rowbinary_setters_compiled_total"
	settersGenericMetric  = "rowbinary_setters_generic_total"
	rowsReadMetric        = "rowbinary_rows_read_total"
	rowsWrittenMetric     = "rowbinary_rows_written_total"
	bytesReadMetric       = "rowbinary_bytes_read_total"
	bytesWrittenMetric    = "rowbinary_bytes_written_total"
)

type configuration struct {
	padFixedStrings bool
	namesHeader     bool
	typesHeader     bool
	bufferSize      int
	mappingTag      string
	logger          *logger.Logger
	metrics         metrics.Factory
}

// Option configures serializers, row readers, row writers and mappings. Each component ignores
// the options that do not concern it.
type Option func(cfg *configuration) error

func newConfiguration(opts ...Option) (*configuration, error) {
	cfg := &configuration{
		padFixedStrings: true,
		bufferSize:      defaultReaderBufferSize,
		mappingTag:      defaultMappingTag,
		logger:          &logger.Logger{Sink: logger.NewNoopSink()},
		metrics:         metrics.NewNoopFactory(),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// WithFixedStringPadding returns [Option] that sets whether values shorter than a FixedString column are
// padded with zero bytes. When disabled, short values are rejected. It is enabled by default.
func WithFixedStringPadding(pad bool) Option {
	return func(cfg *configuration) error {
		cfg.padFixedStrings = pad
		return nil
	}
}

// WithNamesHeader returns [Option] that makes readers expect, and writers emit, a leading column count
// and column names (the RowBinaryWithNames variant).
func WithNamesHeader() Option {
	return func(cfg *configuration) error {
		cfg.namesHeader = true
		return nil
	}
}

// WithNamesAndTypesHeader returns [Option] that makes readers expect, and writers emit, column types
// after the column names (the RowBinaryWithNamesAndTypes variant). Readers then need no column types
// up front.
func WithNamesAndTypesHeader() Option {
	return func(cfg *configuration) error {
		cfg.namesHeader = true
		cfg.typesHeader = true
		return nil
	}
}

// WithBufferSize returns [Option] that sets the read buffer size.
func WithBufferSize(size int) Option {
	return func(cfg *configuration) error {
		if size <= 0 {
			return fmt.Errorf("invalid buffer size: %d", size)
		}
		cfg.bufferSize = size
		return nil
	}
}

// WithMappingTag returns [Option] that sets the struct tag holding column names, "ch" by default.
func WithMappingTag(tag string) Option {
	return func(cfg *configuration) error {
		if len(tag) == 0 {
			return errors.New("empty mapping tag")
		}
		cfg.mappingTag = tag
		return nil
	}
}

// WithLoggingSink returns [Option] that configures logging by setting logger sink.
// See also [logger]
func WithLoggingSink(sink logger.Sink) Option {
	return func(cfg *configuration) error {
		if sink == nil {
			return nil
		}
		cfg.logger = &logger.Logger{Sink: sink}
		return nil
	}
}

// WithMetrics returns [Option] that sets the factory of the counters for compiled setters and processed rows.
func WithMetrics(factory metrics.Factory) Option {
	return func(cfg *configuration) error {
		if factory == nil {
			return errors.New("nil metrics factory")
		}
		cfg.metrics = factory
		return nil
	}
}

func (cfg *configuration) counter(name string, description string) metrics.Counter {
	counter, err := cfg.metrics.CreateCounter(name, description)
	if err != nil {
		cfg.logger.Warnf("failed to create counter %s: %s", name, err)
		counter, _ = metrics.NewNoopFactory().CreateCounter(name, description)
	}
	return counter
}
