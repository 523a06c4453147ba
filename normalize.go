package stringdict

import (
	"unicode/utf8"

	"github.com/fraugster/stringdict/dictschema"
)

// appendNormalized applies the length rules of the column type to v and
// appends the stored form to dst. Lengths of char and varchar columns count
// UTF-8 characters; char values are padded with spaces after truncation.
func appendNormalized(dst []byte, col *dictschema.Column, v []byte) []byte {
	if col == nil {
		return append(dst, v...)
	}

	switch col.Kind {
	case dictschema.Varchar:
		return append(dst, v[:charPrefix(v, col.MaxLength)]...)
	case dictschema.Char:
		n := charPrefix(v, col.MaxLength)
		dst = append(dst, v[:n]...)
		for chars := utf8.RuneCount(v[:n]); chars < col.MaxLength; chars++ {
			dst = append(dst, ' ')
		}
		return dst
	default:
		return append(dst, v...)
	}
}

// charPrefix returns the byte length of the first max characters of v.
func charPrefix(v []byte, max int) int {
	pos := 0
	for chars := 0; chars < max && pos < len(v); chars++ {
		_, size := utf8.DecodeRune(v[pos:])
		pos += size
	}
	return pos
}
