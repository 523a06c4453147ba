package stringdict

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

type hybridDecoder struct {
	bitWidth     int
	rleValueSize int

	r *bytes.Reader

	rleCount uint32
	rleValue uint32

	bpCount  uint32
	bpRunPos uint8
	bpRun    [8]uint32
}

func newHybridDecoder(bitWidth int) *hybridDecoder {
	return &hybridDecoder{
		bitWidth:     bitWidth,
		rleValueSize: (bitWidth + 7) / 8,
	}
}

func (hd *hybridDecoder) init(r *bytes.Reader) {
	hd.r = r
	hd.rleCount = 0
	hd.bpCount = 0
	hd.bpRunPos = 0
}

func (hd *hybridDecoder) next() (next uint32, err error) {
	if hd.rleCount == 0 && hd.bpCount == 0 && hd.bpRunPos == 0 {
		if err = hd.readRunHeader(); err != nil {
			return 0, err
		}
	}

	switch {
	case hd.rleCount > 0:
		next = hd.rleValue
		hd.rleCount--
	case hd.bpCount > 0 || hd.bpRunPos > 0:
		if hd.bpRunPos == 0 {
			if err = hd.readBitPackedRun(); err != nil {
				return 0, err
			}
			hd.bpCount--
		}
		next = hd.bpRun[hd.bpRunPos]
		hd.bpRunPos = (hd.bpRunPos + 1) % 8
	default:
		return 0, io.EOF
	}

	return next, err
}

func (hd *hybridDecoder) readRLERunValue() error {
	v := make([]byte, hd.rleValueSize)
	if _, err := io.ReadFull(hd.r, v); err != nil {
		return err
	}

	hd.rleValue = 0
	for i := range v {
		hd.rleValue |= uint32(v[i]) << (8 * uint(i))
	}
	if bits.Len32(hd.rleValue) > hd.bitWidth {
		return errors.New("rle: RLE run value is too large")
	}
	return nil
}

func (hd *hybridDecoder) readBitPackedRun() error {
	data := make([]byte, hd.bitWidth)
	if _, err := io.ReadFull(hd.r, data); err != nil {
		return err
	}
	hd.bpRun = unpack8(data, hd.bitWidth)
	return nil
}

func (hd *hybridDecoder) readRunHeader() error {
	h, err := binary.ReadUvarint(hd.r)
	if err == io.EOF {
		return io.EOF
	}
	if err != nil || h > math.MaxUint32 {
		return errors.New("rle: invalid run header")
	}

	// The lower bit indicate if this is bitpack or rle
	if h&1 == 1 {
		hd.bpCount = uint32(h >> 1)
		if hd.bpCount == 0 {
			return errors.New("rle: empty bit-packed run")
		}
		hd.bpRunPos = 0
	} else {
		hd.rleCount = uint32(h >> 1)
		if hd.rleCount == 0 {
			return errors.New("rle: empty RLE run")
		}
		return hd.readRLERunValue()
	}
	return nil
}

// decodeHybrid reads exactly count values from a stream written by
// hybridEncoder.
func decodeHybrid(data []byte, count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	if len(data) == 0 {
		return nil, errors.Errorf("hybrid: empty stream, expected %d values", count)
	}

	bitWidth := int(data[0])
	if bitWidth > 32 {
		return nil, errors.Errorf("hybrid: invalid bit width %d", bitWidth)
	}

	ret := make([]uint32, count)
	if bitWidth == 0 {
		// every value is zero, nothing to read.
		return ret, nil
	}

	dec := newHybridDecoder(bitWidth)
	dec.init(bytes.NewReader(data[1:]))
	for i := range ret {
		v, err := dec.next()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, errors.Wrapf(err, "hybrid: reading value %d of %d", i, count)
		}
		ret[i] = v
	}

	return ret, nil
}
