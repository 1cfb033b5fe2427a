package codec

import (
	"crypto/rand"
	"math/big"
)

// DefaultCodeLength is the default length for generated short codes.
// At 62^7 combinations a 7-character code is effectively collision-free
// for any practical namespace.
const DefaultCodeLength = 7

// Generator produces candidate short codes.
type Generator interface {
	// Generate returns a new candidate short code.
	Generate() (string, error)
}

// RandomGenerator draws fixed-length codes uniformly from the alphabet
// using crypto/rand, so codes are not guessable or enumerable.
type RandomGenerator struct {
	length int
}

// NewRandomGenerator creates a RandomGenerator producing codes of the given
// length. A negative length falls back to DefaultCodeLength; zero is allowed
// and yields empty codes.
func NewRandomGenerator(length int) *RandomGenerator {
	if length < 0 {
		length = DefaultCodeLength
	}
	return &RandomGenerator{length: length}
}

// NewDefaultGenerator creates a RandomGenerator with the default code length.
func NewDefaultGenerator() *RandomGenerator {
	return NewRandomGenerator(DefaultCodeLength)
}

// Generate returns a random code of the configured length. Each symbol is
// drawn independently and uniformly from the alphabet.
func (g *RandomGenerator) Generate() (string, error) {
	result := make([]byte, g.length)
	max := big.NewInt(int64(len(Alphabet)))

	for i := 0; i < g.length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = Alphabet[n.Int64()]
	}

	return string(result), nil
}

// Length returns the configured code length.
func (g *RandomGenerator) Length() int {
	return g.length
}
