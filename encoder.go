package stringdict

import (
	"bytes"
	"math"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/fraugster/stringdict/dictschema"
	"github.com/fraugster/stringdict/format"
)

// DefaultMaxDictionarySize is the default upper bound for the blob of a
// candidate dictionary.
const DefaultMaxDictionarySize = 64 * 1024 * 1024

// EncoderOptions configures a DictionaryEncoder.
type EncoderOptions struct {
	// Threshold is the highest distinct/total ratio of a unit that is still
	// dictionary encoded. 0 disables dictionary encoding.
	Threshold float64
	// MaxDictionarySize bounds the blob of the candidate dictionary. A unit
	// whose candidate grows beyond it is written directly. 0 means
	// DefaultMaxDictionarySize.
	MaxDictionarySize int64

	Logger  log.Logger
	Metrics *Metrics
}

// EncodedStream is one serialized sub-stream of a unit.
type EncodedStream struct {
	Kind format.StreamKind
	Data []byte
}

// EncodedUnit is the outcome of closing a unit.
type EncodedUnit struct {
	Encoding      format.ColumnEncoding
	NumRows       int
	NullCount     int
	DistinctCount int
	// Dictionary is the frozen dictionary of a dictionary encoded unit. The
	// unit holds one reference to it.
	Dictionary *StringDictionary
	Streams    []EncodedStream
}

// Stream returns the payload of the stream of the given kind, or nil.
func (u *EncodedUnit) Stream(kind format.StreamKind) []byte {
	for _, s := range u.Streams {
		if s.Kind == kind {
			return s.Data
		}
	}
	return nil
}

// Release drops the unit's reference to its dictionary.
func (u *EncodedUnit) Release() {
	if u.Dictionary != nil {
		u.Dictionary.Release()
		u.Dictionary = nil
	}
}

// DictionaryEncoder accumulates the values of one character column and
// decides per unit whether to write them dictionary encoded or directly.
//
// Every accepted value is kept both as raw bytes and as an index into a
// candidate dictionary until CloseUnit makes the decision. The encoder is not
// safe for concurrent use.
type DictionaryEncoder struct {
	col         *dictschema.Column
	threshold   float64
	maxDictSize int64
	logger      log.Logger
	metrics     *Metrics

	dict     *StringDictionary
	overflow bool
	rows     []int32

	present   []bool
	nullCount int
	direct    []byte
	lengths   []uint32

	units int
}

// NewDictionaryEncoder returns an encoder for col. col may be nil for an
// unbounded string column.
func NewDictionaryEncoder(col *dictschema.Column, opts EncoderOptions) (*DictionaryEncoder, error) {
	if err := validateThreshold(opts.Threshold); err != nil {
		return nil, err
	}
	if opts.MaxDictionarySize == 0 {
		opts.MaxDictionarySize = DefaultMaxDictionarySize
	}
	if opts.MaxDictionarySize < 0 || opts.MaxDictionarySize > math.MaxInt32 {
		return nil, errors.Errorf("invalid maximum dictionary size %d", opts.MaxDictionarySize)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if col == nil {
		col = &dictschema.Column{Name: "_col0", Kind: dictschema.String}
	}

	e := &DictionaryEncoder{
		col:         col,
		threshold:   opts.Threshold,
		maxDictSize: opts.MaxDictionarySize,
		logger:      log.With(opts.Logger, "column", col.Name),
		metrics:     opts.Metrics,
	}
	e.Reset()
	return e, nil
}

// Column returns the column the encoder writes.
func (e *DictionaryEncoder) Column() *dictschema.Column {
	return e.col
}

// Accept adds one row to the current unit. Null rows only occupy a presence
// slot. Accept never fails: a candidate dictionary that outgrows its limits
// is dropped and the unit is written directly.
func (e *DictionaryEncoder) Accept(value []byte, isNull bool) {
	e.present = append(e.present, !isNull)
	if isNull {
		e.nullCount++
		return
	}

	start := len(e.direct)
	e.direct = appendNormalized(e.direct, e.col, value)
	v := e.direct[start:]
	e.lengths = append(e.lengths, uint32(len(v)))

	if e.overflow {
		return
	}

	idx, ok := e.dict.lookup(v)
	if !ok {
		if int64(e.dict.Size()+len(v)) > e.maxDictSize || e.dict.Count() >= math.MaxInt32-1 {
			e.dropCandidate()
			return
		}
		var err error
		if idx, err = e.dict.Insert(v); err != nil {
			// the candidate is never frozen before CloseUnit.
			panic(err)
		}
	}
	e.rows = append(e.rows, idx)
}

func (e *DictionaryEncoder) dropCandidate() {
	level.Warn(e.logger).Log(
		"msg", "candidate dictionary exceeds its limits, unit is written directly",
		"unit", e.units,
		"entries", e.dict.Count(),
		"bytes", e.dict.Size(),
		"max_bytes", e.maxDictSize,
	)
	e.metrics.dictionaryFallback()
	e.overflow = true
	e.dict = nil
	e.rows = nil
}

// NumRows returns the number of rows of the current unit.
func (e *DictionaryEncoder) NumRows() int {
	return len(e.present)
}

// BufferedSize returns a rough estimation of the memory held by the current
// unit.
func (e *DictionaryEncoder) BufferedSize() int64 {
	size := int64(len(e.direct)) + 4*int64(len(e.lengths)) + int64(len(e.present))
	if e.dict != nil {
		size += int64(e.dict.Size()) + 4*int64(len(e.rows))
	}
	return size
}

// CloseUnit decides the encoding of the current unit, serializes it and
// starts a new unit.
func (e *DictionaryEncoder) CloseUnit() (*EncodedUnit, error) {
	defer e.Reset()

	total := len(e.lengths)
	unit := &EncodedUnit{
		Encoding:  format.ColumnEncoding_DIRECT,
		NumRows:   len(e.present),
		NullCount: e.nullCount,
	}
	if e.dict != nil {
		unit.DistinctCount = e.dict.Count()
	}

	if e.nullCount > 0 {
		buf := &bytes.Buffer{}
		enc := newHybridEncoder(buf, 1)
		if err := enc.encode(boolsToBits(e.present)...); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, errors.Wrap(err, "encoding present stream failed")
		}
		unit.Streams = append(unit.Streams, EncodedStream{Kind: format.StreamKind_PRESENT, Data: buf.Bytes()})
	}

	var err error
	if !e.overflow && useDictionary(unit.DistinctCount, total, e.threshold) {
		err = e.writeDictionary(unit)
	} else {
		err = e.writeDirect(unit)
	}
	if err != nil {
		unit.Release()
		return nil, err
	}

	level.Debug(e.logger).Log(
		"msg", "unit closed",
		"unit", e.units,
		"encoding", unit.Encoding,
		"rows", unit.NumRows,
		"nulls", unit.NullCount,
		"distinct", unit.DistinctCount,
		"total", total,
		"threshold", e.threshold,
	)
	e.metrics.unitWritten(unit.Encoding, unit.DistinctCount)
	e.units++

	return unit, nil
}

func (e *DictionaryEncoder) writeDictionary(unit *EncodedUnit) error {
	mapping, err := e.dict.FinalizeSorted()
	if err != nil {
		return err
	}

	ranks := make([]uint32, len(e.rows))
	for i, idx := range e.rows {
		ranks[i] = uint32(mapping[idx])
	}
	offsets := make([]uint32, len(e.dict.Offsets()))
	for i, o := range e.dict.Offsets() {
		offsets[i] = uint32(o)
	}

	offsetBuf := &bytes.Buffer{}
	if err := encodeHybrid(offsetBuf, offsets); err != nil {
		return errors.Wrap(err, "encoding dictionary offsets failed")
	}
	rankBuf := &bytes.Buffer{}
	if err := encodeHybrid(rankBuf, ranks); err != nil {
		return errors.Wrap(err, "encoding dictionary ranks failed")
	}

	unit.Encoding = format.ColumnEncoding_DICTIONARY
	unit.Dictionary = e.dict
	unit.Streams = append(unit.Streams,
		EncodedStream{Kind: format.StreamKind_DICTIONARY_DATA, Data: e.dict.Blob()},
		EncodedStream{Kind: format.StreamKind_DICTIONARY_OFFSETS, Data: offsetBuf.Bytes()},
		EncodedStream{Kind: format.StreamKind_DATA, Data: rankBuf.Bytes()},
	)
	e.dict = nil
	return nil
}

func (e *DictionaryEncoder) writeDirect(unit *EncodedUnit) error {
	lengthBuf := &bytes.Buffer{}
	if err := encodeHybrid(lengthBuf, e.lengths); err != nil {
		return errors.Wrap(err, "encoding lengths failed")
	}

	unit.Streams = append(unit.Streams,
		EncodedStream{Kind: format.StreamKind_DATA, Data: e.direct},
		EncodedStream{Kind: format.StreamKind_LENGTH, Data: lengthBuf.Bytes()},
	)
	e.direct = nil
	return nil
}

// Reset discards the current unit and starts a new one with fresh tallies.
func (e *DictionaryEncoder) Reset() {
	e.dict = newStringDictionary()
	e.overflow = false
	e.rows = nil
	e.present = nil
	e.nullCount = 0
	e.direct = nil
	e.lengths = nil
}

// Abort discards the current unit without emitting anything.
func (e *DictionaryEncoder) Abort() {
	if len(e.present) > 0 {
		level.Debug(e.logger).Log("msg", "unit aborted", "unit", e.units, "rows", len(e.present))
	}
	e.Reset()
}
