package testing

import (
	"github.com/stretchr/testify/require"
	"math/rand"
	"testing"
)

func TestGenerators(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	require.Len(t, MakeRandomString(rnd, 12), 12)
	require.Equal(t, []byte{0, 1, 2}, MakeByteArrayPayload(3))
	require.Len(t, RandomIntegers[int16](rnd, 7), 7)

	values := RandomNullable(rnd, []int{1, 2, 3}, 0)
	require.Equal(t, []interface{}{1, 2, 3}, values)
	require.Equal(t, []interface{}{nil, nil}, RandomNullable(rnd, []int{1, 2}, 1))
}

func TestSeedFromEnvironment(t *testing.T) {
	t.Setenv(RandomSeed, "42")
	require.Equal(t, int64(42), seed())

	t.Setenv(RandomSeed, "nope")
	require.Panics(t, func() {
		seed()
	})
}
