// Package ir provides the value and declaration types shared by every
// cipherflow package.
//
// This package contains type definitions and conversions only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is a closed sum: Number, Text or Bytes, nil meaning "no value"
//   - NO float types anywhere - numbers are int64
//   - Numbers expand to 4 big-endian bytes; bytes read back sign-extended
//   - Text is Latin-1, one byte per character, NFC normalised first
package ir
