package stringdict

import (
	"encoding/binary"
	"io"
	"math/bits"

	"github.com/pkg/errors"
)

// minRLERun is the shortest run of equal values written as an RLE run.
// Anything shorter is cheaper to bit-pack.
const minRLERun = 8

// hybridEncoder writes unsigned integers as a mix of RLE runs and bit-packed
// groups of eight values. The stream starts with one byte holding the bit
// width, every run starts with a uvarint header whose lowest bit is set for
// bit-packed runs (header>>1 groups follow) and unset for RLE runs (header>>1
// repetitions of one value stored in (bitWidth+7)/8 little endian bytes).
type hybridEncoder struct {
	w        io.Writer
	bitWidth int
	values   []uint32
}

func newHybridEncoder(w io.Writer, bitWidth int) *hybridEncoder {
	return &hybridEncoder{
		w:        w,
		bitWidth: bitWidth,
	}
}

func (he *hybridEncoder) encode(data ...uint32) error {
	for _, v := range data {
		if bits.Len32(v) > he.bitWidth {
			return errors.Errorf("hybrid: value %d does not fit into %d bits", v, he.bitWidth)
		}
	}
	he.values = append(he.values, data...)
	return nil
}

func (he *hybridEncoder) write(items ...[]byte) error {
	for i := range items {
		if err := writeFull(he.w, items[i]); err != nil {
			return err
		}
	}

	return nil
}

func (he *hybridEncoder) header(h uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	cnt := binary.PutUvarint(buf, h)
	return buf[:cnt]
}

func (he *hybridEncoder) rleEncode(count int, value uint32) error {
	v := make([]byte, (he.bitWidth+7)/8)
	for i := range v {
		v[i] = byte(value >> (8 * uint(i)))
	}
	return he.write(he.header(uint64(count)<<1), v)
}

// bpEncode writes data as bit-packed groups, padding the last group with zeros.
func (he *hybridEncoder) bpEncode(data []uint32) error {
	if len(data) == 0 {
		return nil
	}

	groups := (len(data) + 7) / 8
	res := make([]byte, 0, groups*he.bitWidth)
	for g := 0; g < groups; g++ {
		var toW [8]uint32
		copy(toW[:], data[g*8:])
		res = append(res, pack8(toW, he.bitWidth)...)
	}

	return he.write(he.header(uint64(groups)<<1|1), res)
}

// Close writes the bit width and all buffered values.
func (he *hybridEncoder) Close() error {
	if he.bitWidth < 0 || he.bitWidth > 32 {
		return errors.Errorf("hybrid: invalid bit width %d", he.bitWidth)
	}
	if err := he.write([]byte{byte(he.bitWidth)}); err != nil {
		return err
	}

	var pending []uint32
	values := he.values
	for i := 0; i < len(values); {
		j := i + 1
		for j < len(values) && values[j] == values[i] {
			j++
		}

		if j-i >= minRLERun {
			// bit-packed runs must hold a multiple of eight values, so the
			// start of the run tops up the pending group first.
			if r := len(pending) % 8; r != 0 {
				pending = append(pending, values[i:i+8-r]...)
				i += 8 - r
			}
			if j-i >= minRLERun {
				if err := he.bpEncode(pending); err != nil {
					return err
				}
				pending = pending[:0]
				if err := he.rleEncode(j-i, values[i]); err != nil {
					return err
				}
				i = j
				continue
			}
		}

		pending = append(pending, values[i:j]...)
		i = j
	}

	he.values = nil
	return he.bpEncode(pending)
}

// encodeHybrid is a shortcut for encoding a complete slice with the smallest
// bit width that fits all values.
func encodeHybrid(w io.Writer, values []uint32) error {
	var max uint32
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	enc := newHybridEncoder(w, bits.Len32(max))
	if err := enc.encode(values...); err != nil {
		return err
	}
	return enc.Close()
}
