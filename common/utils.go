package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Bitset is a growable set of small non-negative integers.
type Bitset []uint64

// NewBitset returns a bitset able to hold n bits without growing.
func NewBitset(n int) Bitset {
	return make(Bitset, (n+63)/64)
}

// Set adds i to the set.
func (b *Bitset) Set(i int) {
	w := i / 64
	for w >= len(*b) {
		*b = append(*b, 0)
	}
	(*b)[w] |= 1 << uint(i%64)
}

// Has reports whether i is in the set.
func (b Bitset) Has(i int) bool {
	w := i / 64
	if w >= len(b) {
		return false
	}
	return b[w]&(1<<uint(i%64)) != 0
}

// Clear removes every element, keeping the capacity.
func (b Bitset) Clear() {
	for i := range b {
		b[i] = 0
	}
}
