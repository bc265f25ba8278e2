package eventbus

import (
	"reflect"
	"unsafe"
	"weak"
)

// handlerRef is a non-owning reference to a subscribed handler and the key it
// is tracked under. Two refs made from the same handler pointer compare equal.
// A handler embedded as the first field of another one shares its address, so
// the pointer type is part of the identity.
type handlerRef struct {
	ptr weak.Pointer[byte]
	typ reflect.Type
}

// newHandlerRef returns a weak reference to h along with the raw address of
// the handler, which the caller uses to attach a cleanup.
func newHandlerRef(h Handler) (handlerRef, *byte, error) {
	if h == nil {
		return handlerRef{}, nil, ErrNilHandler
	}
	v := reflect.ValueOf(h)
	if v.Kind() != reflect.Pointer {
		return handlerRef{}, nil, ErrNotPointer
	}
	if v.IsNil() {
		return handlerRef{}, nil, ErrNilHandler
	}
	if v.Type().Elem().Size() == 0 {
		return handlerRef{}, nil, ErrZeroSizeHandler
	}
	addr := (*byte)(v.UnsafePointer())
	return handlerRef{ptr: weak.Make(addr), typ: v.Type()}, addr, nil
}

// value returns the handler if it is still reachable.
func (r handlerRef) value() (Handler, bool) {
	addr := r.ptr.Value()
	if addr == nil {
		return nil, false
	}
	h, ok := reflect.NewAt(r.typ.Elem(), unsafe.Pointer(addr)).Interface().(Handler)
	return h, ok
}

func (r handlerRef) alive() bool {
	return r.ptr.Value() != nil
}
