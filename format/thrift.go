package format

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// fieldWriter writes the fields of one struct and keeps the first error.
type fieldWriter struct {
	ctx context.Context
	p   thrift.TProtocol
	err error
}

func newFieldWriter(ctx context.Context, p thrift.TProtocol, name string) *fieldWriter {
	w := &fieldWriter{ctx: ctx, p: p}
	w.err = p.WriteStructBegin(ctx, name)
	return w
}

func (w *fieldWriter) field(name string, typ thrift.TType, id int16, fn func() error) {
	if w.err != nil {
		return
	}
	if w.err = w.p.WriteFieldBegin(w.ctx, name, typ, id); w.err != nil {
		return
	}
	if w.err = fn(); w.err != nil {
		return
	}
	w.err = w.p.WriteFieldEnd(w.ctx)
}

func (w *fieldWriter) i32(name string, id int16, v int32) {
	w.field(name, thrift.I32, id, func() error { return w.p.WriteI32(w.ctx, v) })
}

func (w *fieldWriter) i64(name string, id int16, v int64) {
	w.field(name, thrift.I64, id, func() error { return w.p.WriteI64(w.ctx, v) })
}

func (w *fieldWriter) str(name string, id int16, v string) {
	w.field(name, thrift.STRING, id, func() error { return w.p.WriteString(w.ctx, v) })
}

func (w *fieldWriter) list(name string, id int16, n int, elem func(i int) thrift.TStruct) {
	w.field(name, thrift.LIST, id, func() error {
		if err := w.p.WriteListBegin(w.ctx, thrift.STRUCT, n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := elem(i).Write(w.ctx, w.p); err != nil {
				return err
			}
		}
		return w.p.WriteListEnd(w.ctx)
	})
}

func (w *fieldWriter) end() error {
	if w.err != nil {
		return w.err
	}
	if err := w.p.WriteFieldStop(w.ctx); err != nil {
		return err
	}
	return w.p.WriteStructEnd(w.ctx)
}

// readStruct walks the fields of a struct. Fields the callback does not
// handle are skipped, so older readers tolerate newer footers.
func readStruct(ctx context.Context, p thrift.TProtocol, fn func(id int16, typ thrift.TType) (bool, error)) error {
	if _, err := p.ReadStructBegin(ctx); err != nil {
		return err
	}

	for {
		_, typ, id, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if typ == thrift.STOP {
			break
		}

		handled, err := fn(id, typ)
		if err != nil {
			return err
		}
		if !handled {
			if err := p.Skip(ctx, typ); err != nil {
				return err
			}
		}

		if err := p.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}

	return p.ReadStructEnd(ctx)
}

type structPtr[T any] interface {
	*T
	thrift.TStruct
}

func readList[T any, PT structPtr[T]](ctx context.Context, p thrift.TProtocol) ([]*T, error) {
	_, size, err := p.ReadListBegin(ctx)
	if err != nil {
		return nil, err
	}

	var ret []*T
	if size > 0 {
		ret = make([]*T, 0, size)
	}
	for i := 0; i < size; i++ {
		v := new(T)
		if err := PT(v).Read(ctx, p); err != nil {
			return nil, err
		}
		ret = append(ret, v)
	}

	return ret, p.ReadListEnd(ctx)
}
