package testing

import (
	"github.com/stretchr/testify/suite"
	"math/rand"
)

// RandomizedSuite seeds a fresh random source for every test and reports the seed of failed ones,
// so that a failure can be replayed with RANDOM_SEED.
type RandomizedSuite struct {
	suite.Suite
	Rand *rand.Rand
	seed int64
}

func (s *RandomizedSuite) SetupTest() {
	s.seed = seed()
	s.Rand = rand.New(rand.NewSource(s.seed))
}

func (s *RandomizedSuite) TearDownTest() {
	if s.T().Failed() {
		s.T().Logf("%s=%d", RandomSeed, s.seed)
	}
}

func (s *RandomizedSuite) Seed() int64 {
	return s.seed
}
