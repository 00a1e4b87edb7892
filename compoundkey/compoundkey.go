package compoundkey

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/wbrown/kvqueryengine/value"
)

// tagAbsent marks an attribute position whose value was missing, so a
// compound key never confuses "absent" with an empty or null value.
const (
	tagAbsent byte = 0
	tagNull   byte = 1
	tagValue  byte = 2
)

// Encode builds the ordered composite key for a CompoundIndex from a
// per-attribute value list. present[i] is false where attribute i
// extracted to "absent" for this record — Encode still returns a
// deterministic key, but CompoundIndex.Add must skip indexing the
// record entirely when any attribute is absent.
func Encode(values []value.Value, present []bool) string {
	out := make([]byte, 0, 32*len(values))
	for i, v := range values {
		var frame []byte
		switch {
		case !present[i]:
			frame = []byte{tagAbsent}
		case value.IsNull(v) || v == nil:
			frame = []byte{tagNull}
		default:
			enc := encodeL85(encodeBytes(v))
			frame = append([]byte{tagValue}, []byte(enc)...)
		}
		var lenPrefix [4]byte
		binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(frame)))
		out = append(out, lenPrefix[:]...)
		out = append(out, frame...)
	}
	return string(out)
}

// encodeBytes renders a value.Value to bytes in a type-tagged form so
// that decode (used only for debugging/round-trip tests) is unambiguous.
func encodeBytes(v value.Value) []byte {
	switch t := v.(type) {
	case string:
		return append([]byte{'s'}, []byte(t)...)
	case bool:
		if t {
			return []byte{'b', 1}
		}
		return []byte{'b', 0}
	case int64:
		return append([]byte{'i'}, []byte(strconv.FormatInt(t, 10))...)
	case int:
		return append([]byte{'i'}, []byte(strconv.Itoa(t))...)
	case float64:
		return append([]byte{'f'}, []byte(strconv.FormatFloat(t, 'g', -1, 64))...)
	default:
		return append([]byte{'x'}, []byte(fmt.Sprintf("%v", t))...)
	}
}

// Frames splits an encoded compound key back into its per-attribute
// length-prefixed frames, for debugging/CLI explain output.
func Frames(encoded string) ([]string, error) {
	data := []byte(encoded)
	var frames []string
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, fmt.Errorf("compoundkey: truncated length prefix")
		}
		n := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < n {
			return nil, fmt.Errorf("compoundkey: truncated frame")
		}
		frames = append(frames, string(data[:n]))
		data = data[n:]
	}
	return frames, nil
}
