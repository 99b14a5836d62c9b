package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"github.com/alecthomas/kong"
	konghcl "github.com/alecthomas/kong-hcl/v2"
	"github.com/cockroachdb/apd/v3"
	"github.com/dustin/go-humanize"
	rowbinary "github.com/source-c/go-rowbinary"
	"github.com/source-c/go-rowbinary/logger"
	"github.com/source-c/go-rowbinary/metrics/prometheus"
	"io"
	"log"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"
)

const nullText = `\N`

type arguments struct {
	Config      kong.ConfigFlag `help:"Path to an HCL config file" type:"existingfile"`
	Types       string          `help:"Comma separated column types, e.g. 'UInt64,Nullable(String)'. Not needed with --header=types"`
	Names       string          `help:"Comma separated column names, c1..cN by default"`
	Header      string          `help:"Stream header: none, names or types" enum:"none,names,types" default:"none"`
	Input       string          `help:"Input file, stdin by default" type:"existingfile"`
	Limit       int             `help:"Maximum number of rows to print, 0 for all" default:"0"`
	LogLevel    string          `help:"Log level: trace, debug, info, warn, error or off" default:"warn"`
	MetricsAddr string          `help:"Address to expose prometheus metrics on while dumping"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	cfg := arguments{}
	parser, err := kong.New(&cfg,
		kong.Name("rbdump"),
		kong.Description("Prints a ClickHouse RowBinary stream as tab separated rows."),
		kong.Configuration(konghcl.Loader),
		kong.Writers(stdout, stderr))
	if err != nil {
		return err
	}
	if _, err = parser.Parse(args); err != nil {
		return err
	}

	opts, err := cfg.options(stderr)
	if err != nil {
		return err
	}
	columns, err := cfg.columns()
	if err != nil {
		return err
	}

	if len(cfg.MetricsAddr) > 0 {
		factory := prometheus.NewFactory(nil)
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: factory.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(stderr, "metrics server failed: %s\n", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		opts = append(opts, rowbinary.WithMetrics(factory))
	}

	input := stdin
	if len(cfg.Input) > 0 {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		input = f
	}
	counter := &countingReader{r: input}

	rr, err := rowbinary.NewRowReader(counter, columns, opts...)
	if err != nil {
		return err
	}
	out := bufio.NewWriter(stdout)
	if len(rr.Columns()) > 0 {
		fmt.Fprintln(out, strings.Join(rr.Columns(), "\t"))
	}
	rows := 0
	for rr.HasNext() && (cfg.Limit <= 0 || rows < cfg.Limit) {
		row, err := rr.Next()
		if err != nil {
			return err
		}
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(out, strings.Join(cells, "\t"))
		rows++
	}
	if err = out.Flush(); err != nil {
		return err
	}
	if err = rr.Err(); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "%d rows, %s read\n", rows, humanize.Bytes(uint64(counter.n)))
	return nil
}

func (cfg *arguments) options(stderr io.Writer) ([]rowbinary.Option, error) {
	lvl, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	sink, err := logger.NewWriterSink(stderr, "rbdump ", lvl)
	if err != nil {
		return nil, err
	}
	opts := []rowbinary.Option{rowbinary.WithLoggingSink(sink)}
	switch cfg.Header {
	case "names":
		opts = append(opts, rowbinary.WithNamesHeader())
	case "types":
		opts = append(opts, rowbinary.WithNamesAndTypesHeader())
	case "none":
	default:
		return nil, fmt.Errorf("unknown header kind: %s", cfg.Header)
	}
	return opts, nil
}

func (cfg *arguments) columns() ([]*rowbinary.ColumnType, error) {
	types := splitTopLevel(cfg.Types)
	if len(types) == 0 {
		if cfg.Header == "types" {
			return nil, nil
		}
		return nil, errors.New("--types is required unless --header=types")
	}
	names := splitTopLevel(cfg.Names)
	if len(names) > 0 && len(names) != len(types) {
		return nil, fmt.Errorf("%d names given for %d types", len(names), len(types))
	}
	columns := make([]*rowbinary.ColumnType, len(types))
	for i, typ := range types {
		name := fmt.Sprintf("c%d", i+1)
		if len(names) > 0 {
			name = names[i]
		}
		col, err := rowbinary.ParseColumnType(name, typ)
		if err != nil {
			return nil, err
		}
		columns[i] = col
	}
	return columns, nil
}

// splitTopLevel splits s at commas outside parentheses and quotes.
func splitTopLevel(s string) []string {
	var ret []string
	depth, start := 0, 0
	quoted := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && quoted:
			i++
		case c == '\'':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			ret = appendTrimmed(ret, s[start:i])
			start = i + 1
		}
	}
	return appendTrimmed(ret, s[start:])
}

func appendTrimmed(parts []string, part string) []string {
	if part = strings.TrimSpace(part); len(part) > 0 {
		parts = append(parts, part)
	}
	return parts
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return nullText
	case string:
		return escape(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case *big.Int:
		return val.String()
	case *apd.Decimal:
		return val.Text('f')
	case []interface{}:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case rowbinary.Map:
		parts := make([]string, 0, val.Size())
		for _, e := range val.Entries() {
			parts = append(parts, formatValue(e.Key)+":"+formatValue(e.Value))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case *rowbinary.Bitmap:
		values := val.Values()
		parts := make([]string, len(values))
		for i, elem := range values {
			parts[i] = fmt.Sprint(elem)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return fmt.Sprint(v)
}

func escape(s string) string {
	return strings.NewReplacer("\\", "\\\\", "\t", "\\t", "\n", "\\n").Replace(s)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
