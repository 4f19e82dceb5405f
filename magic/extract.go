package magic

import "unicode/utf16"

// This file implements §4.5's Value Extractors: small bounds-checked reads
// shared by the numeric, pstring, and UTF-16 criteria in criterion.go.
// The string criterion uses only readWidth; search/regex criteria read the
// buffer directly and do not use these helpers, per §4.5's "no-op
// extractor" note.

// readWidth returns buf[offset:offset+width], or ok=false if that range
// falls outside buf.
func readWidth(buf []byte, offset int64, width int) ([]byte, bool) {
	if offset < 0 || width < 0 {
		return nil, false
	}
	end := offset + int64(width)
	if end > int64(len(buf)) {
		return nil, false
	}
	return buf[offset:end], true
}

// extractInt reads a signed integer of the given width under order,
// applying the ID3 7-bit mask first when id3 is set.
func extractInt(buf []byte, offset int64, width int, order Order, id3 bool) (int64, bool) {
	b, ok := readWidth(buf, offset, width)
	if !ok {
		return 0, false
	}
	return decodeInt(b, order, id3), true
}

// extractUint is extractInt's unsigned counterpart, used by the unsigned
// relational and bitwise numeric operators.
func extractUint(buf []byte, offset int64, width int, order Order, id3 bool) (uint64, bool) {
	b, ok := readWidth(buf, offset, width)
	if !ok {
		return 0, false
	}
	return decodeUint(b, order, id3), true
}

func extractFloat32(buf []byte, offset int64, order Order) (float32, bool) {
	b, ok := readWidth(buf, offset, 4)
	if !ok {
		return 0, false
	}
	return decodeFloat32(b, order), true
}

func extractFloat64(buf []byte, offset int64, order Order) (float64, bool) {
	b, ok := readWidth(buf, offset, 8)
	if !ok {
		return 0, false
	}
	return decodeFloat64(b, order), true
}

// extractPascalString reads a length-prefixed string: lenWidth bytes (1, 2,
// or 4) of length prefix under order, followed by that many payload bytes.
// It returns the payload and the total number of bytes consumed (prefix +
// payload), for child offset resolution.
func extractPascalString(buf []byte, offset int64, lenWidth int, order Order) (payload []byte, consumed int64, ok bool) {
	n, ok := extractUint(buf, offset, lenWidth, order, false)
	if !ok {
		return nil, 0, false
	}
	start := offset + int64(lenWidth)
	data, ok := readWidth(buf, start, int(n))
	if !ok {
		return nil, 0, false
	}
	return data, int64(lenWidth) + int64(n), true
}

// extractUTF16 decodes numChars code units (each 2 bytes, under order) into
// a string, returning the number of bytes consumed.
func extractUTF16(buf []byte, offset int64, numChars int, order Order) (string, int64, bool) {
	width := numChars * 2
	b, ok := readWidth(buf, offset, width)
	if !ok {
		return "", 0, false
	}
	units := make([]uint16, numChars)
	for i := 0; i < numChars; i++ {
		units[i] = uint16(decodeUint(b[i*2:i*2+2], order, false))
	}
	runes := utf16.Decode(units)
	return string(runes), int64(width), true
}
