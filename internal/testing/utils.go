package testing

import (
	"golang.org/x/exp/constraints"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"
)

// RandomSeed names the environment variable that fixes the seed of randomized tests.
const RandomSeed = "RANDOM_SEED"

func seed() int64 {
	if s := strings.TrimSpace(os.Getenv(RandomSeed)); s != "" {
		if i, err := strconv.ParseInt(s, 10, 64); err != nil {
			panic(err)
		} else {
			return i
		}
	}
	return time.Now().UnixNano()
}

func MakeByteArrayPayload(size int) []byte {
	payload := make([]byte, size)
	for i := 0; i < len(payload); i++ {
		payload[i] = byte(i)
	}
	return payload
}

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func MakeRandomString(rnd *rand.Rand, n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rnd.Intn(len(letterRunes))]
	}
	return string(b)
}

// RandomIntegers returns n values spread over the whole range of T.
func RandomIntegers[T constraints.Integer](rnd *rand.Rand, n int) []T {
	ret := make([]T, n)
	for i := range ret {
		ret[i] = T(rnd.Uint64())
	}
	return ret
}

// RandomNullable boxes values, replacing about nullRatio of them with nil.
func RandomNullable[T any](rnd *rand.Rand, values []T, nullRatio float64) []interface{} {
	ret := make([]interface{}, len(values))
	for i, v := range values {
		if rnd.Float64() >= nullRatio {
			ret[i] = v
		}
	}
	return ret
}
