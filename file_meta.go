package stringdict

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/pkg/errors"

	"github.com/fraugster/stringdict/format"
)

var magic = []byte{'S', 'D', 'C', '1'}

// fileVersion is the footer version written by this package.
const fileVersion = 1

// ReadFileFooter reads and returns the footer of a file. You can use this
// function to inspect the stripe and unit layout without reading any rows.
func ReadFileFooter(r io.ReadSeeker, extraValidation bool) (*format.FileFooter, error) {
	return ReadFileFooterWithContext(context.Background(), r, extraValidation)
}

// ReadFileFooterWithContext is ReadFileFooter with a context passed to the
// thrift decoder.
func ReadFileFooterWithContext(ctx context.Context, r io.ReadSeeker, extraValidation bool) (*format.FileFooter, error) {
	if extraValidation {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "seek for the file magic header failed")
		}

		buf := make([]byte, len(magic))
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrap(err, "read the file magic header failed")
		}
		if !bytes.Equal(buf, magic) {
			return nil, errors.New("invalid file header")
		}
	}

	size, err := r.Seek(-8, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "seek for the footer len failed")
	}
	var fl int32
	if err := binary.Read(r, binary.LittleEndian, &fl); err != nil {
		return nil, errors.Wrap(err, "read the footer len failed")
	}
	tail := make([]byte, len(magic))
	if _, err := io.ReadFull(r, tail); err != nil {
		return nil, errors.Wrap(err, "read the file magic footer failed")
	}
	if !bytes.Equal(tail, magic) {
		return nil, errors.New("invalid file footer")
	}
	if fl <= 0 || int64(fl) > size-int64(len(magic)) {
		return nil, errors.Errorf("invalid footer len %d", fl)
	}

	if _, err := r.Seek(-8-int64(fl), io.SeekEnd); err != nil {
		return nil, errors.Wrap(err, "seek file footer failed")
	}
	footer := &format.FileFooter{}
	if err := readThrift(ctx, footer, io.LimitReader(r, int64(fl))); err != nil {
		return nil, errors.Wrap(err, "read file footer failed")
	}

	if extraValidation {
		if err := validateFooter(footer, size-int64(fl)); err != nil {
			return nil, err
		}
	}

	return footer, nil
}

// validateFooter checks that the stripe directory is consistent and that
// every stream lies between the header magic and the footer.
func validateFooter(footer *format.FileFooter, footerPos int64) error {
	var rows int64
	for i, s := range footer.Stripes {
		if s.FirstRow != rows {
			return errors.Errorf("stripe %d starts at row %d, expected %d", i, s.FirstRow, rows)
		}
		rows += s.NumRows
		for _, u := range s.Units {
			if u.Column < 0 || int(u.Column) >= len(footer.Columns) {
				return errors.Errorf("stripe %d: unit %s refers to unknown column", i, u)
			}
			if u.NullCount < 0 || u.NullCount > u.NumRows {
				return errors.Errorf("stripe %d: unit %s has an invalid null count", i, u)
			}
			for _, st := range u.Streams {
				if st.Offset < int64(len(magic)) || st.Length < 0 || st.Offset+st.Length > footerPos {
					return errors.Errorf("stripe %d: %s stream of unit %s is out of bounds", i, st.Kind, u)
				}
			}
		}
	}
	if rows != footer.NumRows {
		return errors.Errorf("stripes hold %d rows, footer says %d", rows, footer.NumRows)
	}
	return nil
}

func writeThrift(ctx context.Context, s thrift.TStruct, w io.Writer) error {
	transport := thrift.NewStreamTransportW(w)
	proto := thrift.NewTCompactProtocolConf(transport, &thrift.TConfiguration{})
	if err := s.Write(ctx, proto); err != nil {
		return err
	}
	return proto.Flush(ctx)
}

func readThrift(ctx context.Context, s thrift.TStruct, r io.Reader) error {
	transport := thrift.NewStreamTransportR(r)
	proto := thrift.NewTCompactProtocolConf(transport, &thrift.TConfiguration{})
	return s.Read(ctx, proto)
}
