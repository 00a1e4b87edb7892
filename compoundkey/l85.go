// Package compoundkey encodes the ordered attribute-value tuples a
// CompoundIndex keys records by.
//
// Each attribute value's bytes are encoded with a lexicographically
// sortable base85 variant, then wrapped in a 4-byte big-endian length
// prefix before concatenation (compoundkey.go). Framing on length
// rather than a separator byte keeps the encoding unambiguous even
// when an attribute value's own bytes happen to contain whatever
// separator a string-based scheme would have chosen.
package compoundkey

import (
	"errors"
	"fmt"
)

// alphabet is an 85-character set chosen so that byte-order and
// character-order coincide, which is what makes the encoding
// lexicographically sortable.
const alphabet = "!$%&()+,-./" +
	"0123456789:;<=>@" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ[]_`" +
	"abcdefghijklmnopqrstuvwxyz{}"

var (
	decodeTable [256]byte

	// ErrInvalidCharacter indicates a byte outside the L85 alphabet.
	ErrInvalidCharacter = errors.New("compoundkey: invalid L85 character")
)

func init() {
	for i, c := range alphabet {
		decodeTable[byte(c)] = byte(i + 1)
	}
}

// encodeL85 encodes src to a lexicographically-sortable base85 string.
func encodeL85(src []byte) string {
	if len(src) == 0 {
		return ""
	}

	result := make([]byte, 0, len(src)*5/4+5)

	for i := 0; i+4 <= len(src); i += 4 {
		v := uint32(src[i])<<24 | uint32(src[i+1])<<16 |
			uint32(src[i+2])<<8 | uint32(src[i+3])
		var chars [5]byte
		for j := 4; j >= 0; j-- {
			chars[j] = alphabet[v%85]
			v /= 85
		}
		result = append(result, chars[:]...)
	}

	remainder := len(src) % 4
	if remainder > 0 {
		var padded [4]byte
		copy(padded[:], src[len(src)-remainder:])
		v := uint32(padded[0])<<24 | uint32(padded[1])<<16 |
			uint32(padded[2])<<8 | uint32(padded[3])
		var chars [5]byte
		for j := 4; j >= 0; j-- {
			chars[j] = alphabet[v%85]
			v /= 85
		}
		result = append(result, chars[:remainder+1]...)
	}

	return string(result)
}

// decodeL85 is the inverse of encodeL85.
func decodeL85(src string) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}
	for i, c := range src {
		if c >= 256 || decodeTable[byte(c)] == 0 {
			return nil, fmt.Errorf("%w at position %d: %c", ErrInvalidCharacter, i, c)
		}
	}

	result := make([]byte, 0, len(src)*4/5+4)

	for i := 0; i+5 <= len(src); i += 5 {
		v := uint32(0)
		for j := 0; j < 5; j++ {
			v = v*85 + uint32(decodeTable[src[i+j]]-1)
		}
		result = append(result, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}

	remainder := len(src) % 5
	if remainder > 0 {
		numBytes := remainder - 1
		if numBytes <= 0 {
			return nil, errors.New("compoundkey: invalid L85 encoding: incomplete group")
		}
		padded := src[len(src)-remainder:]
		for len(padded) < 5 {
			padded += string(alphabet[0])
		}
		v := uint32(0)
		for j := 0; j < 5; j++ {
			v = v*85 + uint32(decodeTable[padded[j]]-1)
		}
		var bytes [4]byte
		bytes[0], bytes[1], bytes[2], bytes[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
		result = append(result, bytes[:numBytes]...)
	}

	return result, nil
}
