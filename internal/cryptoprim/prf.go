package cryptoprim

import (
	"fmt"
	"math/big"
)

// FeistelRounds is the number of rounds used by PRP.
const FeistelRounds = 3

// PRF evaluates the GGM pseudo-random function keyed by seed on x and
// returns n bytes.
//
// Starting from the seed, each bit of x (most significant first) expands
// the current state to 2n bytes and keeps the low half for a 0 bit or the
// high half for a 1 bit. An empty x yields the first n bytes of the seed's
// stream.
func PRF(seed, x []byte, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("prf: output length must be positive, got %d", n)
	}
	if err := checkLength(n); err != nil {
		return nil, fmt.Errorf("prf: %w", err)
	}
	if len(x) == 0 {
		return Expand(seed, n)
	}
	state := seed
	for _, b := range x {
		for bit := 7; bit >= 0; bit-- {
			out, err := expand(state, 2*n)
			if err != nil {
				return nil, err
			}
			if b>>uint(bit)&1 == 0 {
				state = out[:n]
			} else {
				state = out[n:]
			}
		}
	}
	return state, nil
}

// PRP is a length-preserving pseudo-random permutation of m keyed by
// seed: a 3-round Feistel network over the two bit-halves of m with PRF
// as the round function. An odd-length m splits at its middle nibble.
func PRP(seed, m []byte) ([]byte, error) {
	return feistel(seed, m, false)
}

// PRPInverse undoes PRP for the same seed.
func PRPInverse(seed, c []byte) ([]byte, error) {
	return feistel(seed, c, true)
}

func feistel(seed, in []byte, inverse bool) ([]byte, error) {
	if len(in) == 0 {
		return []byte{}, nil
	}
	halfBits := uint(len(in) * 4)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), halfBits), big.NewInt(1))

	v := new(big.Int).SetBytes(in)
	left := new(big.Int).Rsh(v, halfBits)
	right := new(big.Int).And(v, mask)

	round := func(r int, half *big.Int) (*big.Int, error) {
		f, err := roundFunc(seed, r, half, halfBits)
		if err != nil {
			return nil, err
		}
		return f.And(f, mask), nil
	}

	if !inverse {
		for r := 0; r < FeistelRounds; r++ {
			f, err := round(r, right)
			if err != nil {
				return nil, err
			}
			left, right = right, f.Xor(f, left)
		}
	} else {
		for r := FeistelRounds - 1; r >= 0; r-- {
			f, err := round(r, left)
			if err != nil {
				return nil, err
			}
			left, right = f.Xor(f, right), left
		}
	}

	out := new(big.Int).Lsh(left, halfBits)
	out.Or(out, right)
	return out.FillBytes(make([]byte, len(in))), nil
}

// roundFunc computes PRF(seed||r, half) sized to cover halfBits.
func roundFunc(seed []byte, r int, half *big.Int, halfBits uint) (*big.Int, error) {
	width := int((halfBits + 7) / 8)
	key := append(append([]byte{}, seed...), byte(r))
	out, err := PRF(key, half.FillBytes(make([]byte, width)), width)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}
