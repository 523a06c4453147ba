package format

import (
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// KeyValue is a free form metadata entry stored in the footer.
type KeyValue struct {
	Key   string
	Value string
}

func (p *KeyValue) Write(ctx context.Context, oprot thrift.TProtocol) error {
	w := newFieldWriter(ctx, oprot, "KeyValue")
	w.str("key", 1, p.Key)
	w.str("value", 2, p.Value)
	return w.end()
}

func (p *KeyValue) Read(ctx context.Context, iprot thrift.TProtocol) error {
	return readStruct(ctx, iprot, func(id int16, typ thrift.TType) (handled bool, err error) {
		switch {
		case id == 1 && typ == thrift.STRING:
			p.Key, err = iprot.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			p.Value, err = iprot.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// ColumnInformation describes one character column of the file.
type ColumnInformation struct {
	Name string
	// Type is the type string of the column, e.g. "varchar(2)".
	Type string
}

func (p *ColumnInformation) Write(ctx context.Context, oprot thrift.TProtocol) error {
	w := newFieldWriter(ctx, oprot, "ColumnInformation")
	w.str("name", 1, p.Name)
	w.str("type", 2, p.Type)
	return w.end()
}

func (p *ColumnInformation) Read(ctx context.Context, iprot thrift.TProtocol) error {
	return readStruct(ctx, iprot, func(id int16, typ thrift.TType) (handled bool, err error) {
		switch {
		case id == 1 && typ == thrift.STRING:
			p.Name, err = iprot.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			p.Type, err = iprot.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// StreamInformation locates one compressed stream block inside the file.
type StreamInformation struct {
	Kind StreamKind
	// Offset is the absolute file position of the stored block.
	Offset int64
	// Length is the stored (compressed) size of the block.
	Length             int64
	UncompressedLength int64
	// Checksum is the xxhash64 of the stored bytes.
	Checksum int64
}

func (p *StreamInformation) Write(ctx context.Context, oprot thrift.TProtocol) error {
	w := newFieldWriter(ctx, oprot, "StreamInformation")
	w.i32("kind", 1, int32(p.Kind))
	w.i64("offset", 2, p.Offset)
	w.i64("length", 3, p.Length)
	w.i64("uncompressed_length", 4, p.UncompressedLength)
	w.i64("checksum", 5, p.Checksum)
	return w.end()
}

func (p *StreamInformation) Read(ctx context.Context, iprot thrift.TProtocol) error {
	return readStruct(ctx, iprot, func(id int16, typ thrift.TType) (handled bool, err error) {
		switch {
		case id == 1 && typ == thrift.I32:
			var v int32
			v, err = iprot.ReadI32(ctx)
			p.Kind = StreamKind(v)
		case id == 2 && typ == thrift.I64:
			p.Offset, err = iprot.ReadI64(ctx)
		case id == 3 && typ == thrift.I64:
			p.Length, err = iprot.ReadI64(ctx)
		case id == 4 && typ == thrift.I64:
			p.UncompressedLength, err = iprot.ReadI64(ctx)
		case id == 5 && typ == thrift.I64:
			p.Checksum, err = iprot.ReadI64(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// UnitInformation is the persisted decision for one unit (row group or
// stripe) of one column.
type UnitInformation struct {
	Column int32
	// FirstRow is relative to the start of the stripe.
	FirstRow       int64
	NumRows        int64
	Encoding       ColumnEncoding
	DictionarySize int32
	NullCount      int64
	Streams        []*StreamInformation
}

func (p *UnitInformation) Write(ctx context.Context, oprot thrift.TProtocol) error {
	w := newFieldWriter(ctx, oprot, "UnitInformation")
	w.i32("column", 1, p.Column)
	w.i64("first_row", 2, p.FirstRow)
	w.i64("num_rows", 3, p.NumRows)
	w.i32("encoding", 4, int32(p.Encoding))
	w.i32("dictionary_size", 5, p.DictionarySize)
	w.i64("null_count", 6, p.NullCount)
	w.list("streams", 7, len(p.Streams), func(i int) thrift.TStruct { return p.Streams[i] })
	return w.end()
}

func (p *UnitInformation) Read(ctx context.Context, iprot thrift.TProtocol) error {
	return readStruct(ctx, iprot, func(id int16, typ thrift.TType) (handled bool, err error) {
		switch {
		case id == 1 && typ == thrift.I32:
			p.Column, err = iprot.ReadI32(ctx)
		case id == 2 && typ == thrift.I64:
			p.FirstRow, err = iprot.ReadI64(ctx)
		case id == 3 && typ == thrift.I64:
			p.NumRows, err = iprot.ReadI64(ctx)
		case id == 4 && typ == thrift.I32:
			var v int32
			v, err = iprot.ReadI32(ctx)
			p.Encoding = ColumnEncoding(v)
		case id == 5 && typ == thrift.I32:
			p.DictionarySize, err = iprot.ReadI32(ctx)
		case id == 6 && typ == thrift.I64:
			p.NullCount, err = iprot.ReadI64(ctx)
		case id == 7 && typ == thrift.LIST:
			p.Streams, err = readList[StreamInformation](ctx, iprot)
		default:
			return false, nil
		}
		return true, err
	})
}

// Stream returns the stream of the given kind, or nil.
func (p *UnitInformation) Stream(kind StreamKind) *StreamInformation {
	for _, s := range p.Streams {
		if s.Kind == kind {
			return s
		}
	}
	return nil
}

func (p *UnitInformation) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("UnitInformation(column=%d first_row=%d num_rows=%d encoding=%s dictionary_size=%d null_count=%d streams=%d)",
		p.Column, p.FirstRow, p.NumRows, p.Encoding, p.DictionarySize, p.NullCount, len(p.Streams))
}

// StripeInformation describes one stripe and all units written into it.
type StripeInformation struct {
	Offset   int64
	Length   int64
	FirstRow int64
	NumRows  int64
	Units    []*UnitInformation
}

func (p *StripeInformation) Write(ctx context.Context, oprot thrift.TProtocol) error {
	w := newFieldWriter(ctx, oprot, "StripeInformation")
	w.i64("offset", 1, p.Offset)
	w.i64("length", 2, p.Length)
	w.i64("first_row", 3, p.FirstRow)
	w.i64("num_rows", 4, p.NumRows)
	w.list("units", 5, len(p.Units), func(i int) thrift.TStruct { return p.Units[i] })
	return w.end()
}

func (p *StripeInformation) Read(ctx context.Context, iprot thrift.TProtocol) error {
	return readStruct(ctx, iprot, func(id int16, typ thrift.TType) (handled bool, err error) {
		switch {
		case id == 1 && typ == thrift.I64:
			p.Offset, err = iprot.ReadI64(ctx)
		case id == 2 && typ == thrift.I64:
			p.Length, err = iprot.ReadI64(ctx)
		case id == 3 && typ == thrift.I64:
			p.FirstRow, err = iprot.ReadI64(ctx)
		case id == 4 && typ == thrift.I64:
			p.NumRows, err = iprot.ReadI64(ctx)
		case id == 5 && typ == thrift.LIST:
			p.Units, err = readList[UnitInformation](ctx, iprot)
		default:
			return false, nil
		}
		return true, err
	})
}

// FileFooter is the root metadata structure at the end of the file.
type FileFooter struct {
	Version          int32
	CreatedBy        string
	Columns          []*ColumnInformation
	NumRows          int64
	RowIndexStride   int64
	Compression      CompressionCodec
	Stripes          []*StripeInformation
	KeyValueMetadata []*KeyValue
}

func (p *FileFooter) Write(ctx context.Context, oprot thrift.TProtocol) error {
	w := newFieldWriter(ctx, oprot, "FileFooter")
	w.i32("version", 1, p.Version)
	w.str("created_by", 2, p.CreatedBy)
	w.list("columns", 3, len(p.Columns), func(i int) thrift.TStruct { return p.Columns[i] })
	w.i64("num_rows", 4, p.NumRows)
	w.i64("row_index_stride", 5, p.RowIndexStride)
	w.i32("compression", 6, int32(p.Compression))
	w.list("stripes", 7, len(p.Stripes), func(i int) thrift.TStruct { return p.Stripes[i] })
	w.list("key_value_metadata", 8, len(p.KeyValueMetadata), func(i int) thrift.TStruct { return p.KeyValueMetadata[i] })
	return w.end()
}

func (p *FileFooter) Read(ctx context.Context, iprot thrift.TProtocol) error {
	return readStruct(ctx, iprot, func(id int16, typ thrift.TType) (handled bool, err error) {
		switch {
		case id == 1 && typ == thrift.I32:
			p.Version, err = iprot.ReadI32(ctx)
		case id == 2 && typ == thrift.STRING:
			p.CreatedBy, err = iprot.ReadString(ctx)
		case id == 3 && typ == thrift.LIST:
			p.Columns, err = readList[ColumnInformation](ctx, iprot)
		case id == 4 && typ == thrift.I64:
			p.NumRows, err = iprot.ReadI64(ctx)
		case id == 5 && typ == thrift.I64:
			p.RowIndexStride, err = iprot.ReadI64(ctx)
		case id == 6 && typ == thrift.I32:
			var v int32
			v, err = iprot.ReadI32(ctx)
			p.Compression = CompressionCodec(v)
		case id == 7 && typ == thrift.LIST:
			p.Stripes, err = readList[StripeInformation](ctx, iprot)
		case id == 8 && typ == thrift.LIST:
			p.KeyValueMetadata, err = readList[KeyValue](ctx, iprot)
		default:
			return false, nil
		}
		return true, err
	})
}
