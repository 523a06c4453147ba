package stringdict

// pack8 packs eight values of bitWidth bits each into bitWidth bytes, least
// significant bit first. Bits above bitWidth are ignored.
func pack8(in [8]uint32, bitWidth int) []byte {
	out := make([]byte, bitWidth)
	if bitWidth == 0 {
		return out
	}

	mask := uint64(1)<<uint(bitWidth) - 1
	var (
		acc  uint64
		bits uint
		pos  int
	)
	for _, v := range in {
		acc |= (uint64(v) & mask) << bits
		bits += uint(bitWidth)
		for bits >= 8 {
			out[pos] = byte(acc)
			pos++
			acc >>= 8
			bits -= 8
		}
	}

	return out
}

// unpack8 is the inverse of pack8. len(in) must be bitWidth.
func unpack8(in []byte, bitWidth int) [8]uint32 {
	var out [8]uint32
	if bitWidth == 0 {
		return out
	}

	mask := uint64(1)<<uint(bitWidth) - 1
	var (
		acc  uint64
		bits uint
		pos  int
	)
	for i := range out {
		for bits < uint(bitWidth) {
			acc |= uint64(in[pos]) << bits
			pos++
			bits += 8
		}
		out[i] = uint32(acc & mask)
		acc >>= uint(bitWidth)
		bits -= uint(bitWidth)
	}

	return out
}
