package stringdict

import (
	"io"

	"github.com/pkg/errors"
)

func writeFull(w io.Writer, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	cnt, err := w.Write(buf)
	if err != nil {
		return err
	}

	if cnt != len(buf) {
		return errors.Errorf("need to write %d byte wrote %d", len(buf), cnt)
	}

	return nil
}

// writePos counts the bytes written so stream offsets can be recorded.
type writePos struct {
	w   io.Writer
	pos int64
}

func (w *writePos) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}

func (w *writePos) Pos() int64 {
	return w.pos
}

func boolsToBits(in []bool) []uint32 {
	ret := make([]uint32, len(in))
	for i, b := range in {
		if b {
			ret[i] = 1
		}
	}
	return ret
}
