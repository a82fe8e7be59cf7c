package crypto

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// secretAlphabet leaves out letters and digits that are easy to confuse
// when a secret is read out over the phone (0/O, 1/I/L, 5/S, 8/B, 2/Z).
const secretAlphabet = "ACDEFGHJKMNPQRTUVWXY34679"

// DefaultSecretLength is the length of generated key-exchange secrets
const DefaultSecretLength = 14

var ErrInvalidSecretLength = errors.New("secret length must be positive")

// NewSecret returns a random key-exchange secret of n characters. Both sides
// of a key exchange must type the same secret, so the alphabet avoids
// ambiguous characters.
func NewSecret(n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidSecretLength
	}

	max := big.NewInt(int64(len(secretAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = secretAlphabet[idx.Int64()]
	}

	return string(out), nil
}
