package main

/*
#include <stdlib.h>
#include "margaux.h"
*/
import "C"

import (
	"unsafe"

	"github.com/margauxdb/margaux/pkg/margaux"
)

// resultHandle owns the C copies of the column names for the lifetime of the
// result.
type resultHandle struct {
	res   *margaux.Result
	names []*C.char
}

func newResultHandle(res *margaux.Result) *resultHandle {
	h := &resultHandle{res: res, names: make([]*C.char, len(res.Columns))}
	for i, name := range res.Columns {
		h.names[i] = C.CString(name)
	}
	return h
}

func result(h C.psr_handle_t) (*resultHandle, bool) {
	v, ok := results.get(uint64(h))
	if !ok {
		return nil, false
	}
	return v.(*resultHandle), true
}

//export psr_result_row_count
func psr_result_row_count(h C.psr_handle_t) C.int64_t {
	r, ok := result(h)
	if !ok {
		return -1
	}
	return C.int64_t(r.res.RowCount())
}

//export psr_result_column_count
func psr_result_column_count(h C.psr_handle_t) C.int64_t {
	r, ok := result(h)
	if !ok {
		return -1
	}
	return C.int64_t(len(r.res.Columns))
}

// psr_result_column_name returns a string owned by the result handle.
//
//export psr_result_column_name
func psr_result_column_name(h C.psr_handle_t, col C.int64_t) *C.char {
	r, ok := result(h)
	if !ok || col < 0 || int(col) >= len(r.names) {
		return nil
	}
	return r.names[col]
}

//export psr_result_value
func psr_result_value(h C.psr_handle_t, row, col C.int64_t, out *C.psr_value_t) C.int32_t {
	r, ok := result(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	if out == nil {
		return C.PSR_ERROR_INVALID_ARGUMENT
	}
	if row < 0 || int(row) >= r.res.RowCount() ||
		col < 0 || int(col) >= len(r.res.Columns) {
		return C.PSR_ERROR_INDEX_OUT_OF_RANGE
	}
	fillValue(out, r.res.Rows[row][col])
	return C.PSR_OK
}

//export psr_result_free
func psr_result_free(h C.psr_handle_t) {
	v, ok := results.drop(uint64(h))
	if !ok {
		return
	}
	r := v.(*resultHandle)
	for _, name := range r.names {
		C.free(unsafe.Pointer(name))
	}
}
