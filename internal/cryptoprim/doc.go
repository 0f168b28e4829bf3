// Package cryptoprim implements the deterministic primitives that
// built-in blocks compute with.
//
// PRG streams come from ChaCha20 keyed by the SHA-256 digest of the seed.
// Identical seeds read from the same GeneratorSet continue one stream;
// the set is owned by the run that uses it. PRF is the GGM construction
// over that generator and PRP a 3-round Feistel network over PRF.
//
// Bitwise operators align their operands on the last byte. The AES
// wrappers zero-pad short keys, IVs and plaintexts and report a warning
// instead of failing.
package cryptoprim
