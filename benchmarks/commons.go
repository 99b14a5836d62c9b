package benchmarks

import (
	"os"
	"strconv"
	"strings"
	"testing"
)

const (
	EnvWarmupCount   = "WARMUPS"
	EnvBenchRows     = "BENCH_ROWS"
	defaultWarmupCnt = 3
	defaultRows      = 10000
)

// StreamBenchmarker generates a stream once, runs f over it for the configured number of warmups and
// then once per benchmark iteration.
func StreamBenchmarker(b *testing.B, generate func(rows int) ([]byte, error), f func(data []byte) error) {
	data, err := generate(benchRows())
	if err != nil {
		b.Fatalf("failed to generate stream: %s", err)
	}
	warmups := warmupCount()
	if warmups > 0 {
		b.Logf("Warmups: %d", warmups)
	}
	for i := 0; i < warmups; i++ {
		if err = f(data); err != nil {
			b.Fatalf("warmup failed: %s", err)
		}
	}
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err = f(data); err != nil {
			b.Fatal(err)
		}
	}
}

func warmupCount() int {
	return envInt(EnvWarmupCount, defaultWarmupCnt)
}

func benchRows() int {
	return envInt(EnvBenchRows, defaultRows)
}

func envInt(name string, def int) int {
	if s := getEnv(name); len(s) > 0 {
		if i, err := strconv.ParseInt(s, 10, 32); err != nil {
			panic(err)
		} else {
			return int(i)
		}
	}
	return def
}

func getEnv(name string) string {
	if s := os.Getenv(name); len(s) > 0 {
		s = strings.TrimSpace(s)
		return s
	}
	return ""
}
