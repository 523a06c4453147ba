// Package format contains the persisted metadata structures of a stringdict
// file. All of them are serialized with the thrift compact protocol.
package format

import "fmt"

// CompressionCodec is the block compression used for every stream of a file.
type CompressionCodec int32

const (
	CompressionCodec_UNCOMPRESSED CompressionCodec = 0
	CompressionCodec_SNAPPY       CompressionCodec = 1
	CompressionCodec_GZIP         CompressionCodec = 2
	CompressionCodec_ZSTD         CompressionCodec = 3
)

func (p CompressionCodec) String() string {
	switch p {
	case CompressionCodec_UNCOMPRESSED:
		return "UNCOMPRESSED"
	case CompressionCodec_SNAPPY:
		return "SNAPPY"
	case CompressionCodec_GZIP:
		return "GZIP"
	case CompressionCodec_ZSTD:
		return "ZSTD"
	}
	return "<UNSET>"
}

// CompressionCodecFromString is the inverse of CompressionCodec.String.
func CompressionCodecFromString(s string) (CompressionCodec, error) {
	switch s {
	case "UNCOMPRESSED":
		return CompressionCodec_UNCOMPRESSED, nil
	case "SNAPPY":
		return CompressionCodec_SNAPPY, nil
	case "GZIP":
		return CompressionCodec_GZIP, nil
	case "ZSTD":
		return CompressionCodec_ZSTD, nil
	}
	return CompressionCodec(0), fmt.Errorf("not a valid CompressionCodec string: %q", s)
}

// ColumnEncoding records how the values of one unit were written.
type ColumnEncoding int32

const (
	ColumnEncoding_DIRECT     ColumnEncoding = 0
	ColumnEncoding_DICTIONARY ColumnEncoding = 1
)

func (p ColumnEncoding) String() string {
	switch p {
	case ColumnEncoding_DIRECT:
		return "DIRECT"
	case ColumnEncoding_DICTIONARY:
		return "DICTIONARY"
	}
	return "<UNSET>"
}

// StreamKind identifies a sub-stream of a unit.
type StreamKind int32

const (
	// StreamKind_PRESENT is a one bit per row presence bitmap. It is only
	// written for units that contain nulls.
	StreamKind_PRESENT StreamKind = 0
	// StreamKind_DATA holds the ranks of a dictionary unit, or the raw
	// concatenated bytes of a direct unit.
	StreamKind_DATA StreamKind = 1
	// StreamKind_LENGTH holds the per row value lengths of a direct unit.
	StreamKind_LENGTH StreamKind = 2
	// StreamKind_DICTIONARY_DATA is the sorted dictionary blob.
	StreamKind_DICTIONARY_DATA StreamKind = 3
	// StreamKind_DICTIONARY_OFFSETS is the count+1 prefix sum offset table.
	StreamKind_DICTIONARY_OFFSETS StreamKind = 4
)

func (p StreamKind) String() string {
	switch p {
	case StreamKind_PRESENT:
		return "PRESENT"
	case StreamKind_DATA:
		return "DATA"
	case StreamKind_LENGTH:
		return "LENGTH"
	case StreamKind_DICTIONARY_DATA:
		return "DICTIONARY_DATA"
	case StreamKind_DICTIONARY_OFFSETS:
		return "DICTIONARY_OFFSETS"
	}
	return "<UNSET>"
}
