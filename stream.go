package stringdict

import (
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/fraugster/stringdict/format"
)

// storedStream is a stream block ready to be appended to a file.
type storedStream struct {
	kind             format.StreamKind
	data             []byte
	uncompressedSize int
	checksum         uint64
}

func compressStream(bc BlockCompressor, s EncodedStream) (*storedStream, error) {
	data, err := bc.CompressBlock(s.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "compressing %s stream failed", s.Kind)
	}
	return &storedStream{
		kind:             s.Kind,
		data:             data,
		uncompressedSize: len(s.Data),
		checksum:         xxhash.Sum64(data),
	}, nil
}

// readStream reads the block described by info, verifies its checksum and
// returns the decompressed payload.
func readStream(r io.ReadSeeker, info *format.StreamInformation, bc BlockCompressor) ([]byte, error) {
	if info.Length < 0 || info.UncompressedLength < 0 {
		return nil, errors.Errorf("%s stream: invalid length", info.Kind)
	}
	if _, err := r.Seek(info.Offset, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "seek to %s stream failed", info.Kind)
	}

	buf := make([]byte, info.Length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrapf(err, "reading %s stream failed", info.Kind)
	}
	if sum := xxhash.Sum64(buf); int64(sum) != info.Checksum {
		return nil, errors.Errorf("%s stream at offset %d: checksum mismatch", info.Kind, info.Offset)
	}

	data, err := bc.DecompressBlock(buf, int(info.UncompressedLength))
	if err != nil {
		return nil, errors.Wrapf(err, "decompressing %s stream failed", info.Kind)
	}
	return data, nil
}
