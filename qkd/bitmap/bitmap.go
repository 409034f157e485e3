// Package bitmap provides packed bit strings for comparing the raw keys held
// by the two ends of a key exchange.
package bitmap

import (
	"fmt"
	"math/bits"
	"strings"
)

const wordSize = 64

// A Bits is a growable, packed string of bits. Bits past Len in the last word
// are always zero. The zero value is an empty string ready for use.
type Bits struct {
	words []uint64
	n     int
}

// Parse converts a string of '1's and '0's to a Bits. Spaces are ignored.
func Parse(s string) (Bits, error) {
	var b Bits
	for _, c := range s {
		switch c {
		case '1':
			b.Push(true)
		case '0':
			b.Push(false)
		case ' ':
		default:
			return Bits{}, fmt.Errorf("invalid bit string %q", s)
		}
	}
	return b, nil
}

// Len returns the number of bits in b.
func (b Bits) Len() int {
	return b.n
}

// At reports whether the i-th bit of b is set. Bits past the end read as unset.
func (b Bits) At(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.words[i/wordSize]&(1<<(i%wordSize)) != 0
}

// Push appends one bit to b.
func (b *Bits) Push(bit bool) {
	if b.n%wordSize == 0 {
		b.words = append(b.words, 0)
	}
	if bit {
		b.words[b.n/wordSize] |= 1 << (b.n % wordSize)
	}
	b.n++
}

// Filter returns the bits of b at the positions set in mask, in order.
func (b Bits) Filter(mask Bits) Bits {
	var r Bits
	for i := 0; i < b.n; i++ {
		if mask.At(i) {
			r.Push(b.At(i))
		}
	}
	return r
}

// Head returns a copy of the first n bits of b. It fails if b holds fewer than
// n bits.
func (b Bits) Head(n int) (Bits, error) {
	if n < 0 || n > b.n {
		return Bits{}, fmt.Errorf("taking %d leading bits of %d", n, b.n)
	}
	r := Bits{words: make([]uint64, (n+wordSize-1)/wordSize), n: n}
	copy(r.words, b.words)
	if off := n % wordSize; off != 0 {
		r.words[len(r.words)-1] &= 1<<off - 1
	}
	return r, nil
}

// Ones returns the number of set bits in b.
func (b Bits) Ones() int {
	var sum int
	for _, w := range b.words {
		sum += bits.OnesCount64(w)
	}
	return sum
}

// Distance returns the number of positions at which a and b differ. The
// shorter operand is treated as padded with zeros.
func Distance(a, b Bits) int {
	if len(a.words) > len(b.words) {
		a, b = b, a
	}
	var d int
	for i, w := range a.words {
		d += bits.OnesCount64(w ^ b.words[i])
	}
	for _, w := range b.words[len(a.words):] {
		d += bits.OnesCount64(w)
	}
	return d
}

func (b Bits) String() string {
	var sb strings.Builder
	for i := 0; i < b.n; i++ {
		if b.At(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
