package cryptoprim

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// MaxLength is the most bytes one PRG or PRF call returns.
const MaxLength = 1 << 20

// ErrLength is returned for a negative length or one above MaxLength.
var ErrLength = errors.New("length out of range")

func checkLength(n int) error {
	if n < 0 || n > MaxLength {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrLength, n, MaxLength)
	}
	return nil
}

// GeneratorSet holds one pseudo-random stream per seed.
//
// Reading twice with the same seed continues the same stream, so a block
// that draws 8 bytes and then 8 more sees 16 consecutive keystream bytes.
// A set belongs to a single run and is reset between runs.
type GeneratorSet struct {
	streams map[string]*chacha20.Cipher
}

// NewGeneratorSet creates an empty set.
func NewGeneratorSet() *GeneratorSet {
	return &GeneratorSet{streams: make(map[string]*chacha20.Cipher)}
}

// Read returns the next n bytes of the stream for seed.
func (g *GeneratorSet) Read(seed []byte, n int) ([]byte, error) {
	if err := checkLength(n); err != nil {
		return nil, fmt.Errorf("prg: %w", err)
	}
	key := hex.EncodeToString(seed)
	s, ok := g.streams[key]
	if !ok {
		var err error
		s, err = newStream(seed)
		if err != nil {
			return nil, err
		}
		g.streams[key] = s
	}
	return keystream(s, n), nil
}

// Reset discards every stream.
func (g *GeneratorSet) Reset() {
	clear(g.streams)
}

// Len returns the number of live streams.
func (g *GeneratorSet) Len() int {
	return len(g.streams)
}

// Expand returns the first n bytes of a fresh stream for seed.
// It never touches any GeneratorSet.
func Expand(seed []byte, n int) ([]byte, error) {
	if err := checkLength(n); err != nil {
		return nil, fmt.Errorf("prg: %w", err)
	}
	return expand(seed, n)
}

func expand(seed []byte, n int) ([]byte, error) {
	s, err := newStream(seed)
	if err != nil {
		return nil, err
	}
	return keystream(s, n), nil
}

// newStream keys ChaCha20 with the SHA-256 digest of the seed and an
// all-zero nonce.
func newStream(seed []byte) (*chacha20.Cipher, error) {
	key := sha256.Sum256(seed)
	nonce := make([]byte, chacha20.NonceSize)
	s, err := chacha20.NewUnauthenticatedCipher(key[:], nonce)
	if err != nil {
		return nil, fmt.Errorf("prg: %w", err)
	}
	return s, nil
}

func keystream(s *chacha20.Cipher, n int) []byte {
	out := make([]byte, n)
	s.XORKeyStream(out, out)
	return out
}
