package stringdict

import (
	"bytes"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/fraugster/stringdict/format"
)

var (
	compressors    = make(map[format.CompressionCodec]BlockCompressor)
	compressorLock sync.RWMutex
)

type (
	// BlockCompressor compresses and decompresses whole streams. Implementations
	// must be safe for concurrent use.
	BlockCompressor interface {
		CompressBlock(block []byte) ([]byte, error)
		DecompressBlock(block []byte, expected int) ([]byte, error)
	}

	plainCompressor  struct{}
	snappyCompressor struct{}
	gzipCompressor   struct{}
	zstdCompressor   struct {
		once sync.Once
		err  error
		enc  *zstd.Encoder
		dec  *zstd.Decoder
	}
)

func (plainCompressor) CompressBlock(block []byte) ([]byte, error) {
	return block, nil
}

func (plainCompressor) DecompressBlock(block []byte, expected int) ([]byte, error) {
	if len(block) != expected {
		return nil, errors.Errorf("plain: stream size is not correct it should be %d is %d", expected, len(block))
	}
	return block, nil
}

func (snappyCompressor) CompressBlock(block []byte) ([]byte, error) {
	return snappy.Encode(nil, block), nil
}

func (snappyCompressor) DecompressBlock(block []byte, expected int) ([]byte, error) {
	ret, err := snappy.Decode(nil, block)
	if err != nil {
		return nil, err
	}
	if len(ret) != expected {
		return nil, errors.Errorf("snappy: decompress size is not correct it should be %d is %d", expected, len(ret))
	}
	return ret, nil
}

func (gzipCompressor) CompressBlock(block []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := gzip.NewWriter(buf)
	if _, err := w.Write(block); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) DecompressBlock(block []byte, expected int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(block))
	if err != nil {
		return nil, err
	}

	ret := make([]byte, 0, expected)
	buf := bytes.NewBuffer(ret)
	if _, err := io.Copy(buf, io.LimitReader(r, int64(expected)+1)); err != nil {
		return nil, err
	}
	if buf.Len() != expected {
		return nil, errors.Errorf("gzip: decompress size is not correct it should be %d is %d", expected, buf.Len())
	}
	return buf.Bytes(), nil
}

func (c *zstdCompressor) init() error {
	c.once.Do(func() {
		if c.enc, c.err = zstd.NewWriter(nil); c.err != nil {
			return
		}
		c.dec, c.err = zstd.NewReader(nil)
	})
	return c.err
}

func (c *zstdCompressor) CompressBlock(block []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(block, make([]byte, 0, len(block)/2)), nil
}

func (c *zstdCompressor) DecompressBlock(block []byte, expected int) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	ret, err := c.dec.DecodeAll(block, make([]byte, 0, expected))
	if err != nil {
		return nil, err
	}
	if len(ret) != expected {
		return nil, errors.Errorf("zstd: decompress size is not correct it should be %d is %d", expected, len(ret))
	}
	return ret, nil
}

// RegisterBlockCompressor can plug new kind of block compressor to the library
func RegisterBlockCompressor(method format.CompressionCodec, compressor BlockCompressor) {
	compressorLock.Lock()
	defer compressorLock.Unlock()

	compressors[method] = compressor
}

func getBlockCompressor(method format.CompressionCodec) (BlockCompressor, error) {
	compressorLock.RLock()
	defer compressorLock.RUnlock()

	bc, ok := compressors[method]
	if !ok {
		return nil, errors.Errorf("the codec %q is not implemented", method)
	}
	return bc, nil
}

func init() {
	RegisterBlockCompressor(format.CompressionCodec_UNCOMPRESSED, plainCompressor{})
	RegisterBlockCompressor(format.CompressionCodec_SNAPPY, snappyCompressor{})
	RegisterBlockCompressor(format.CompressionCodec_GZIP, gzipCompressor{})
	RegisterBlockCompressor(format.CompressionCodec_ZSTD, &zstdCompressor{})
}
