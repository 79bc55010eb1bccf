package main

/*
#include <stdlib.h>
#include <string.h>
#include "margaux.h"
*/
import "C"

import (
	"unsafe"

	"github.com/margauxdb/margaux/pkg/types"
)

func allocValues(n int) *C.psr_value_t {
	if n == 0 {
		return nil
	}
	size := C.size_t(n) * C.size_t(unsafe.Sizeof(C.psr_value_t{}))
	return (*C.psr_value_t)(C.calloc(1, size))
}

func valueAt(base *C.psr_value_t, i int) *C.psr_value_t {
	return (*C.psr_value_t)(unsafe.Pointer(
		uintptr(unsafe.Pointer(base)) + uintptr(i)*unsafe.Sizeof(C.psr_value_t{})))
}

// fillValue writes v into out. Array and blob payloads are C-allocated and
// owned by out; the caller releases them with psr_value_free.
func fillValue(out *C.psr_value_t, v types.Value) {
	C.memset(unsafe.Pointer(out), 0, C.size_t(unsafe.Sizeof(C.psr_value_t{})))
	switch v.Kind() {
	case types.KindNull:
		out.tag = C.PSR_VALUE_NULL
	case types.KindInt:
		out.tag = C.PSR_VALUE_INT64
		i, _ := v.AsInt()
		out.int64_value = C.int64_t(i)
	case types.KindReal:
		out.tag = C.PSR_VALUE_DOUBLE
		f, _ := v.AsReal()
		out.double_value = C.double(f)
	case types.KindText:
		out.tag = C.PSR_VALUE_STRING
		s, _ := v.AsText()
		out.string_value = C.CString(s)
	case types.KindBlob:
		out.tag = C.PSR_VALUE_BLOB
		b, _ := v.AsBlob()
		out.blob_size = C.int64_t(len(b))
		if len(b) > 0 {
			out.blob_data = (*C.uint8_t)(C.CBytes(b))
		}
	case types.KindIntVector, types.KindRealVector, types.KindTextVector:
		n, _ := v.VectorLen()
		out.tag = C.PSR_VALUE_ARRAY
		out.count = C.int64_t(n)
		out.elements = allocValues(n)
		for i := 0; i < n; i++ {
			elem, _ := v.VectorElement(i)
			fillValue(valueAt(out.elements, i), elem)
		}
	}
}

// fillValueArray writes the values as one ARRAY value.
func fillValueArray(out *C.psr_value_t, vs []types.Value) {
	C.memset(unsafe.Pointer(out), 0, C.size_t(unsafe.Sizeof(C.psr_value_t{})))
	out.tag = C.PSR_VALUE_ARRAY
	out.count = C.int64_t(len(vs))
	out.elements = allocValues(len(vs))
	for i, v := range vs {
		fillValue(valueAt(out.elements, i), v)
	}
}

// goValue reads one boundary value into the core representation. ARRAY
// inputs must be homogeneous over int64, double or string.
func goValue(in *C.psr_value_t) (types.Value, bool) {
	if in == nil {
		return types.Null(), true
	}
	switch in.tag {
	case C.PSR_VALUE_NULL:
		return types.Null(), true
	case C.PSR_VALUE_INT64:
		return types.Int(int64(in.int64_value)), true
	case C.PSR_VALUE_DOUBLE:
		return types.Real(float64(in.double_value)), true
	case C.PSR_VALUE_STRING:
		if in.string_value == nil {
			return types.Null(), true
		}
		return types.Text(C.GoString(in.string_value)), true
	case C.PSR_VALUE_BLOB:
		if in.blob_data == nil || in.blob_size == 0 {
			return types.Blob(nil), true
		}
		return types.Blob(C.GoBytes(unsafe.Pointer(in.blob_data), C.int(in.blob_size))), true
	case C.PSR_VALUE_ARRAY:
		return goArrayValue(in)
	}
	return types.Null(), false
}

func goArrayValue(in *C.psr_value_t) (types.Value, bool) {
	n := int(in.count)
	if n == 0 {
		return types.IntVector(nil), true
	}
	first := valueAt(in.elements, 0)
	switch first.tag {
	case C.PSR_VALUE_INT64:
		out := make([]int64, n)
		for i := 0; i < n; i++ {
			e := valueAt(in.elements, i)
			if e.tag != C.PSR_VALUE_INT64 {
				return types.Null(), false
			}
			out[i] = int64(e.int64_value)
		}
		return types.IntVector(out), true
	case C.PSR_VALUE_DOUBLE:
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			e := valueAt(in.elements, i)
			if e.tag != C.PSR_VALUE_DOUBLE {
				return types.Null(), false
			}
			out[i] = float64(e.double_value)
		}
		return types.RealVector(out), true
	case C.PSR_VALUE_STRING:
		out := make([]string, n)
		for i := 0; i < n; i++ {
			e := valueAt(in.elements, i)
			if e.tag != C.PSR_VALUE_STRING || e.string_value == nil {
				return types.Null(), false
			}
			out[i] = C.GoString(e.string_value)
		}
		return types.TextVector(out), true
	}
	return types.Null(), false
}

func freeValueContents(v *C.psr_value_t) {
	if v == nil {
		return
	}
	switch v.tag {
	case C.PSR_VALUE_STRING:
		if v.string_value != nil {
			C.free(unsafe.Pointer(v.string_value))
		}
	case C.PSR_VALUE_BLOB:
		if v.blob_data != nil {
			C.free(unsafe.Pointer(v.blob_data))
		}
	case C.PSR_VALUE_ARRAY:
		for i := 0; i < int(v.count); i++ {
			freeValueContents(valueAt(v.elements, i))
		}
		if v.elements != nil {
			C.free(unsafe.Pointer(v.elements))
		}
	}
	C.memset(unsafe.Pointer(v), 0, C.size_t(unsafe.Sizeof(C.psr_value_t{})))
}

// psr_value_free releases the buffers owned by a value previously filled by
// the library. The struct itself belongs to the caller.
//
//export psr_value_free
func psr_value_free(v *C.psr_value_t) {
	freeValueContents(v)
}
