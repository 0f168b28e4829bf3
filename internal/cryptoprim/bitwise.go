package cryptoprim

// XOR combines a and b byte-wise with their last bytes aligned.
// The shorter operand reads as zero where it has no byte.
func XOR(a, b []byte) []byte {
	return combine(a, b, func(x, y byte) byte { return x ^ y })
}

// OR is the right-aligned byte-wise or.
func OR(a, b []byte) []byte {
	return combine(a, b, func(x, y byte) byte { return x | y })
}

// AND is the right-aligned byte-wise and.
func AND(a, b []byte) []byte {
	return combine(a, b, func(x, y byte) byte { return x & y })
}

// NOT complements every byte of a.
func NOT(a []byte) []byte {
	out := make([]byte, len(a))
	for i, x := range a {
		out[i] = ^x
	}
	return out
}

func combine(a, b []byte, op func(x, y byte) byte) []byte {
	n := max(len(a), len(b))
	out := make([]byte, n)
	for i := 1; i <= n; i++ {
		var x, y byte
		if i <= len(a) {
			x = a[len(a)-i]
		}
		if i <= len(b) {
			y = b[len(b)-i]
		}
		out[n-i] = op(x, y)
	}
	return out
}
