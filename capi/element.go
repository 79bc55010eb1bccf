package main

/*
#include <stdlib.h>
#include "margaux.h"
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/margauxdb/margaux/pkg/types"
)

func elementOf(h C.psr_handle_t) (*types.Element, bool) {
	v, ok := elements.get(uint64(h))
	if !ok {
		return nil, false
	}
	return v.(*types.Element), true
}

func timeSeriesOf(h C.psr_handle_t) (*types.TimeSeries, bool) {
	v, ok := timeSeries.get(uint64(h))
	if !ok {
		return nil, false
	}
	return v.(*types.TimeSeries), true
}

func goStrings(arr **C.char, n C.int64_t) []string {
	out := make([]string, int(n))
	for i := range out {
		p := *(**C.char)(unsafe.Pointer(
			uintptr(unsafe.Pointer(arr)) + uintptr(i)*unsafe.Sizeof(uintptr(0))))
		out[i] = C.GoString(p)
	}
	return out
}

// goValueList reads an ARRAY value element by element, keeping each
// element's own variant. Used where a column of values may mix nulls in.
func goValueList(in *C.psr_value_t) ([]types.Value, bool) {
	if in == nil || in.tag != C.PSR_VALUE_ARRAY {
		return nil, false
	}
	out := make([]types.Value, int(in.count))
	for i := range out {
		v, ok := goValue(valueAt(in.elements, i))
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

//export psr_element_new
func psr_element_new() C.psr_handle_t {
	return C.psr_handle_t(elements.put(types.NewElement()))
}

//export psr_element_free
func psr_element_free(h C.psr_handle_t) {
	elements.drop(uint64(h))
}

//export psr_element_clear
func psr_element_clear(h C.psr_handle_t) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	el.Clear()
	return C.PSR_OK
}

//export psr_element_set
func psr_element_set(h C.psr_handle_t, name *C.char, value *C.psr_value_t) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	v, ok := goValue(value)
	if !ok {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	el.Set(C.GoString(name), v)
	return C.PSR_OK
}

//export psr_element_set_null
func psr_element_set_null(h C.psr_handle_t, name *C.char) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	el.SetNull(C.GoString(name))
	return C.PSR_OK
}

//export psr_element_set_int64
func psr_element_set_int64(h C.psr_handle_t, name *C.char, v C.int64_t) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	el.SetInt(C.GoString(name), int64(v))
	return C.PSR_OK
}

//export psr_element_set_double
func psr_element_set_double(h C.psr_handle_t, name *C.char, v C.double) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	el.SetReal(C.GoString(name), float64(v))
	return C.PSR_OK
}

//export psr_element_set_string
func psr_element_set_string(h C.psr_handle_t, name, v *C.char) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	el.SetText(C.GoString(name), C.GoString(v))
	return C.PSR_OK
}

//export psr_element_set_blob
func psr_element_set_blob(h C.psr_handle_t, name *C.char, data *C.uint8_t, size C.int64_t) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	var b []byte
	if data != nil && size > 0 {
		b = C.GoBytes(unsafe.Pointer(data), C.int(size))
	}
	el.SetBlob(C.GoString(name), b)
	return C.PSR_OK
}

//export psr_element_set_int64_array
func psr_element_set_int64_array(h C.psr_handle_t, name *C.char, v *C.int64_t, count C.int64_t) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	out := make([]int64, int(count))
	for i := range out {
		out[i] = int64(*(*C.int64_t)(unsafe.Pointer(
			uintptr(unsafe.Pointer(v)) + uintptr(i)*unsafe.Sizeof(C.int64_t(0)))))
	}
	el.SetIntVector(C.GoString(name), out)
	return C.PSR_OK
}

//export psr_element_set_double_array
func psr_element_set_double_array(h C.psr_handle_t, name *C.char, v *C.double, count C.int64_t) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	out := make([]float64, int(count))
	for i := range out {
		out[i] = float64(*(*C.double)(unsafe.Pointer(
			uintptr(unsafe.Pointer(v)) + uintptr(i)*unsafe.Sizeof(C.double(0)))))
	}
	el.SetRealVector(C.GoString(name), out)
	return C.PSR_OK
}

//export psr_element_set_string_array
func psr_element_set_string_array(h C.psr_handle_t, name *C.char, v **C.char, count C.int64_t) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	el.SetTextVector(C.GoString(name), goStrings(v, count))
	return C.PSR_OK
}

//export psr_time_series_new
func psr_time_series_new() C.psr_handle_t {
	return C.psr_handle_t(timeSeries.put(types.NewTimeSeries()))
}

//export psr_time_series_free
func psr_time_series_free(h C.psr_handle_t) {
	timeSeries.drop(uint64(h))
}

//export psr_time_series_add_column
func psr_time_series_add_column(h C.psr_handle_t, name *C.char, values *C.psr_value_t) C.int32_t {
	ts, ok := timeSeriesOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	column, ok := goValueList(values)
	if !ok {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	ts.AddColumn(C.GoString(name), column)
	return C.PSR_OK
}

//export psr_element_add_time_series
func psr_element_add_time_series(h C.psr_handle_t, group *C.char, ts C.psr_handle_t) C.int32_t {
	el, ok := elementOf(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	series, ok := timeSeriesOf(ts)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	el.AddTimeSeries(C.GoString(group), series)
	return C.PSR_OK
}

//export psr_database_create_element
func psr_database_create_element(h C.psr_handle_t, collection *C.char, el C.psr_handle_t, outID *C.int64_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	element, ok := elementOf(el)
	if !ok {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	id, err := handle.db.CreateElement(context.Background(), C.GoString(collection), element)
	if err != nil {
		return handle.fail(err)
	}
	if outID != nil {
		*outID = C.int64_t(id)
	}
	handle.setError(nil)
	return C.PSR_OK
}

//export psr_database_create_elements
func psr_database_create_elements(h C.psr_handle_t, collection *C.char, els *C.psr_handle_t, count C.int64_t, outIDs *C.int64_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	batch := make([]*types.Element, int(count))
	for i := range batch {
		eh := *(*C.psr_handle_t)(unsafe.Pointer(
			uintptr(unsafe.Pointer(els)) + uintptr(i)*unsafe.Sizeof(C.psr_handle_t(0))))
		element, ok := elementOf(eh)
		if !ok {
			return C.PSR_ERROR_INVALID_ARGUMENT
		}
		batch[i] = element
	}
	ids, err := handle.db.CreateElements(context.Background(), C.GoString(collection), batch)
	if err != nil {
		return handle.fail(err)
	}
	if outIDs != nil {
		for i, id := range ids {
			*(*C.int64_t)(unsafe.Pointer(
				uintptr(unsafe.Pointer(outIDs)) + uintptr(i)*unsafe.Sizeof(C.int64_t(0)))) = C.int64_t(id)
		}
	}
	handle.setError(nil)
	return C.PSR_OK
}

//export psr_database_get_element_id
func psr_database_get_element_id(h C.psr_handle_t, collection, label *C.char, outID *C.int64_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	id, err := handle.db.GetElementID(context.Background(), C.GoString(collection), C.GoString(label))
	if err != nil {
		return handle.fail(err)
	}
	if outID != nil {
		*outID = C.int64_t(id)
	}
	handle.setError(nil)
	return C.PSR_OK
}

//export psr_database_update_element
func psr_database_update_element(h C.psr_handle_t, collection, label *C.char, el C.psr_handle_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	element, ok := elementOf(el)
	if !ok {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	return handle.fail(handle.db.UpdateElement(context.Background(),
		C.GoString(collection), types.ByLabel(C.GoString(label)), element))
}

//export psr_database_delete_element_by_id
func psr_database_delete_element_by_id(h C.psr_handle_t, collection *C.char, id C.int64_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.DeleteElement(context.Background(),
		C.GoString(collection), types.ByID(int64(id))))
}

//export psr_database_delete_element_by_label
func psr_database_delete_element_by_label(h C.psr_handle_t, collection, label *C.char) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.DeleteElement(context.Background(),
		C.GoString(collection), types.ByLabel(C.GoString(label))))
}

//export psr_database_delete_time_series
func psr_database_delete_time_series(h C.psr_handle_t, collection, group, label *C.char) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.DeleteTimeSeries(context.Background(),
		C.GoString(collection), C.GoString(group), C.GoString(label)))
}

//export psr_database_read_scalar
func psr_database_read_scalar(h C.psr_handle_t, collection, attr, label *C.char, out *C.psr_value_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	if out == nil {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	v, err := handle.db.ReadScalarByLabel(context.Background(),
		C.GoString(collection), C.GoString(attr), C.GoString(label))
	if err != nil {
		return handle.fail(err)
	}
	fillValue(out, v)
	handle.setError(nil)
	return C.PSR_OK
}

//export psr_database_read_vector
func psr_database_read_vector(h C.psr_handle_t, collection, attr, label *C.char, out *C.psr_value_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	if out == nil {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	vs, err := handle.db.ReadVectorByLabel(context.Background(),
		C.GoString(collection), C.GoString(attr), C.GoString(label))
	if err != nil {
		return handle.fail(err)
	}
	fillValueArray(out, vs)
	handle.setError(nil)
	return C.PSR_OK
}

//export psr_database_read_set
func psr_database_read_set(h C.psr_handle_t, collection, attr, label *C.char, out *C.psr_value_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	if out == nil {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	vs, err := handle.db.ReadSetByLabel(context.Background(),
		C.GoString(collection), C.GoString(attr), C.GoString(label))
	if err != nil {
		return handle.fail(err)
	}
	fillValueArray(out, vs)
	handle.setError(nil)
	return C.PSR_OK
}

//export psr_database_read_time_series_file
func psr_database_read_time_series_file(h C.psr_handle_t, collection, parameter *C.char, out *C.psr_value_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	if out == nil {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	path, err := handle.db.ReadTimeSeriesFile(context.Background(),
		C.GoString(collection), C.GoString(parameter))
	if err != nil {
		return handle.fail(err)
	}
	fillValue(out, types.Text(path))
	handle.setError(nil)
	return C.PSR_OK
}

//export psr_database_update_scalar
func psr_database_update_scalar(h C.psr_handle_t, collection, attr, label *C.char, value *C.psr_value_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	v, ok := goValue(value)
	if !ok {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	return handle.fail(handle.db.UpdateScalarParameter(context.Background(),
		C.GoString(collection), C.GoString(attr), C.GoString(label), v))
}

//export psr_database_update_vector
func psr_database_update_vector(h C.psr_handle_t, collection, attr, label *C.char, values *C.psr_value_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	vs, ok := goValueList(values)
	if !ok {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	return handle.fail(handle.db.UpdateVectorParameters(context.Background(),
		C.GoString(collection), C.GoString(attr), C.GoString(label), vs))
}

//export psr_database_update_set
func psr_database_update_set(h C.psr_handle_t, collection, attr, label *C.char, values *C.psr_value_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	vs, ok := goValueList(values)
	if !ok {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	return handle.fail(handle.db.UpdateSetParameters(context.Background(),
		C.GoString(collection), C.GoString(attr), C.GoString(label), vs))
}

//export psr_database_update_time_series_row
func psr_database_update_time_series_row(h C.psr_handle_t, collection, attr, label *C.char, value, dateTime *C.psr_value_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	v, ok := goValue(value)
	if !ok {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	dt, ok := goValue(dateTime)
	if !ok {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	return handle.fail(handle.db.UpdateTimeSeriesRow(context.Background(),
		C.GoString(collection), C.GoString(attr), C.GoString(label), v, dt))
}

//export psr_database_set_scalar_relation
func psr_database_set_scalar_relation(h C.psr_handle_t, collection, target, parentLabel, childLabel, relation *C.char) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.SetScalarRelation(context.Background(),
		C.GoString(collection), C.GoString(target),
		C.GoString(parentLabel), C.GoString(childLabel), C.GoString(relation)))
}

//export psr_database_set_vector_relation
func psr_database_set_vector_relation(h C.psr_handle_t, collection, target, parentLabel *C.char, children **C.char, count C.int64_t, relation *C.char) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.SetVectorRelation(context.Background(),
		C.GoString(collection), C.GoString(target), C.GoString(parentLabel),
		goStrings(children, count), C.GoString(relation)))
}

//export psr_database_set_set_relation
func psr_database_set_set_relation(h C.psr_handle_t, collection, target, parentLabel *C.char, children **C.char, count C.int64_t, relation *C.char) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.SetSetRelation(context.Background(),
		C.GoString(collection), C.GoString(target), C.GoString(parentLabel),
		goStrings(children, count), C.GoString(relation)))
}

//export psr_database_set_time_series_file
func psr_database_set_time_series_file(h C.psr_handle_t, collection, parameter, path *C.char) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.SetTimeSeriesFile(context.Background(),
		C.GoString(collection), C.GoString(parameter), C.GoString(path)))
}
