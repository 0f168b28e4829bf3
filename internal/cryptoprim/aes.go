package cryptoprim

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/roach88/cipherflow/internal/ir"
)

// ErrBlockAlignment is returned when a ciphertext is not a whole number of
// AES blocks.
var ErrBlockAlignment = errors.New("ciphertext is not a multiple of the block size")

// Report receives non-fatal diagnostics. A nil Report discards them.
type Report func(msg string)

func (r Report) warn(format string, args ...any) {
	if r != nil {
		r("[WARNING] " + fmt.Sprintf(format, args...))
	}
}

// ECBEncrypt encrypts pt block by block with no chaining.
func ECBEncrypt(key, pt []byte, report Report) ([]byte, error) {
	block, err := newCipher(key, report)
	if err != nil {
		return nil, err
	}
	pt = padBlocks(pt, "plaintext", report)
	out := make([]byte, len(pt))
	for i := 0; i < len(pt); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], pt[i:i+aes.BlockSize])
	}
	return out, nil
}

// ECBDecrypt reverses ECBEncrypt.
func ECBDecrypt(key, ct []byte, report Report) ([]byte, error) {
	block, err := newCipher(key, report)
	if err != nil {
		return nil, err
	}
	if len(ct)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("aes ecb: %w (%d bytes)", ErrBlockAlignment, len(ct))
	}
	out := make([]byte, len(ct))
	for i := 0; i < len(ct); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], ct[i:i+aes.BlockSize])
	}
	return out, nil
}

// CBCEncrypt encrypts pt in cipher block chaining mode.
func CBCEncrypt(key, iv, pt []byte, report Report) ([]byte, error) {
	block, err := newCipher(key, report)
	if err != nil {
		return nil, err
	}
	iv, err = prepareIV(iv, report)
	if err != nil {
		return nil, err
	}
	pt = padBlocks(pt, "plaintext", report)
	out := make([]byte, len(pt))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, pt)
	return out, nil
}

// CBCDecrypt reverses CBCEncrypt.
func CBCDecrypt(key, iv, ct []byte, report Report) ([]byte, error) {
	block, err := newCipher(key, report)
	if err != nil {
		return nil, err
	}
	iv, err = prepareIV(iv, report)
	if err != nil {
		return nil, err
	}
	if len(ct)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("aes cbc: %w (%d bytes)", ErrBlockAlignment, len(ct))
	}
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)
	return out, nil
}

// CTR applies the counter-mode keystream to data. It is its own inverse.
func CTR(key, iv, data []byte, report Report) ([]byte, error) {
	block, err := newCipher(key, report)
	if err != nil {
		return nil, err
	}
	iv, err = prepareIV(iv, report)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return out, nil
}

// newCipher zero-pads short keys up to the next AES key size.
func newCipher(key []byte, report Report) (cipher.Block, error) {
	size := 0
	for _, s := range []int{16, 24, 32} {
		if len(key) <= s {
			size = s
			break
		}
	}
	if size == 0 {
		return nil, fmt.Errorf("aes: key of %d bytes exceeds 32", len(key))
	}
	if len(key) != size {
		report.warn("key of %d bytes zero-padded to %d", len(key), size)
		key = ir.ZeroPad(key, size)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	return block, nil
}

func prepareIV(iv []byte, report Report) ([]byte, error) {
	if len(iv) > aes.BlockSize {
		return nil, fmt.Errorf("aes: iv of %d bytes exceeds %d", len(iv), aes.BlockSize)
	}
	if len(iv) < aes.BlockSize {
		report.warn("iv of %d bytes zero-padded to %d", len(iv), aes.BlockSize)
		iv = ir.ZeroPad(iv, aes.BlockSize)
	}
	return iv, nil
}

func padBlocks(b []byte, what string, report Report) []byte {
	rem := len(b) % aes.BlockSize
	if rem == 0 && len(b) > 0 {
		return b
	}
	size := len(b) + aes.BlockSize - rem
	report.warn("%s of %d bytes zero-padded to %d", what, len(b), size)
	return ir.ZeroPad(b, size)
}
