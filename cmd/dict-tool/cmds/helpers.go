package cmds

import (
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/fraugster/stringdict"
	"github.com/fraugster/stringdict/format"
)

// humanToByte parses sizes like "64MiB", "100 KB" or "1000".
func humanToByte(in string) (int64, error) {
	b, err := humanize.ParseBytes(strings.TrimSpace(in))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", in)
	}
	if b > math.MaxInt64 {
		return 0, errors.Errorf("size %q is too large", in)
	}
	return int64(b), nil
}

// openFile opens a file for reading. The returned function closes it.
func openFile(path string, opts ...stringdict.FileReaderOption) (*stringdict.FileReader, func() error, error) {
	fl, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "can not open the file")
	}

	reader, err := stringdict.NewFileReader(fl, append([]stringdict.FileReaderOption{stringdict.WithReaderLogger(logger)}, opts...)...)
	if err != nil {
		fl.Close()
		return nil, nil, errors.Wrap(err, "failed to read the file footer")
	}
	return reader, fl.Close, nil
}

func parseCompression(in string) (format.CompressionCodec, error) {
	switch strings.ToUpper(in) {
	case "NONE", "UNCOMPRESSED":
		return format.CompressionCodec_UNCOMPRESSED, nil
	case "SNAPPY":
		return format.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return format.CompressionCodec_GZIP, nil
	case "ZSTD":
		return format.CompressionCodec_ZSTD, nil
	}
	return 0, errors.Errorf("invalid compression codec %q", in)
}
