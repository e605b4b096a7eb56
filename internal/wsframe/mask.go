package wsframe

// RepeatedXor masks or unmasks a byte sequence against a cycling key of
// arbitrary length — 4 bytes for hybi-latest's per-frame masking key, the
// full 20-byte SHA1 digest for hybi-06's connection-scoped derived key. It
// preserves cycle position across successive calls so that a long payload
// delivered as several reads produces byte-identical output to a single
// call over the whole payload.
type RepeatedXor struct {
	key []byte
	pos int
}

// NewRepeatedXor builds a masker over key, starting at cycle position 0.
func NewRepeatedXor(key []byte) *RepeatedXor {
	return &RepeatedXor{key: key}
}

// NewRepeatedXor4 is a convenience constructor for the fixed 4-byte
// per-frame masking key used by hybi-latest.
func NewRepeatedXor4(key [4]byte) *RepeatedXor {
	return &RepeatedXor{key: key[:]}
}

// Mask XORs data in place and advances the cycle position.
func (m *RepeatedXor) Mask(data []byte) {
	n := len(m.key)
	for i := range data {
		data[i] ^= m.key[m.pos]
		m.pos = (m.pos + 1) % n
	}
}

// Reset returns the masker to cycle position 0 with a new key, for reuse
// across frames that each carry their own masking key.
func (m *RepeatedXor) Reset(key []byte) {
	m.key = key
	m.pos = 0
}
