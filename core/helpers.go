package brc

import (
	"encoding/binary"
	"math/bits"
)

const (
	lowBits  uint64 = 0x0101010101010101
	highBits uint64 = 0x8080808080808080
	hashSeed uint64 = 5381 // djb2
)

var patternNl = compilePattern('\n')
var patternSemi = compilePattern(';')

// https://richardstartin.github.io/posts/finding-bytes
func compilePattern(byteToFind byte) uint64 {
	return lowBits * uint64(byteToFind)
}

// firstInstance returns the lane of the first byte of a little endian word
// equal to the pattern byte, or 8 if there is none.
// Borrows can only flag lanes above a real match, so the lowest flagged lane is exact.
func firstInstance(word, pattern uint64) int {
	input := word ^ pattern
	tmp := (input - lowBits) & ^input & highBits
	return bits.TrailingZeros64(tmp) >> 3
}

// findIndexOf returns the index of the first byte of haystack matching pattern, -1 if absent.
func findIndexOf(haystack []byte, pattern uint64) int {
	var i int
	hLen := len(haystack)
	for ; i+8 <= hLen; i += 8 {
		if index := firstInstance(binary.LittleEndian.Uint64(haystack[i:]), pattern); index != 8 {
			return i + index
		}
	}
	needle := byte(pattern)
	for ; i < hLen; i++ {
		if haystack[i] == needle {
			return i
		}
	}
	return -1
}

// hashKey is the djb2 hash the cursor computes incrementally.
func hashKey(key []byte) uint64 {
	hash := hashSeed
	for _, b := range key {
		hash = hash*33 + uint64(b)
	}
	return hash
}

// scanKey copies the station name at the start of record into the cursor and
// feeds the rolling hash while searching for the ';' separator, visiting each
// name byte once. It returns the offset of the separator.
func scanKey(record []byte, c *Cursor) (int, error) {
	limit := min(len(record), MAX_KEY_SIZE+1) // name + ';'
	var i int
	for ; i+8 <= limit; i += 8 {
		word := binary.LittleEndian.Uint64(record[i:])
		semi := firstInstance(word, patternSemi)
		if nl := firstInstance(word, patternNl); nl < semi {
			return 0, malformed("newline before ';' at +%d", i+nl)
		}
		c.absorbKey(record[i : i+semi])
		if semi != 8 {
			return c.closeKey(i + semi)
		}
	}
	for ; i < limit; i++ {
		switch record[i] {
		case ';':
			return c.closeKey(i)
		case '\n':
			return 0, malformed("newline before ';' at +%d", i)
		}
		if i == MAX_KEY_SIZE {
			return 0, ErrKeyTooLong
		}
		c.absorbKey(record[i : i+1])
	}
	return 0, malformed("truncated record, missing ';' before end of file")
}
