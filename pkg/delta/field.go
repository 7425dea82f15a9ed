package delta

import "github.com/cuemby/atelier/pkg/objects"

// SetFieldDelta undoes a scalar property write: writing back the captured
// old value restores the pre-mutation field. A code-generation facility
// could emit one of these per settable field; here each per-kind
// property-set operation constructs one by hand via NewSetFieldDelta.
type SetFieldDelta[O any, V any] struct {
	list     *objects.ObjList[O]
	ptr      objects.Ptr[O]
	oldValue V
	setField func(*O, V)
}

// NewSetFieldDelta builds the inverse of overwriting a scalar field with a
// new value, given the field's pre-mutation value and a setter.
func NewSetFieldDelta[O any, V any](list *objects.ObjList[O], ptr objects.Ptr[O], oldValue V, setField func(*O, V)) Delta {
	return SetFieldDelta[O, V]{list: list, ptr: ptr, oldValue: oldValue, setField: setField}
}

func (d SetFieldDelta[O, V]) Perform() {
	if obj, ok := d.list.GetMut(d.ptr); ok {
		d.setField(obj, d.oldValue)
	}
}
