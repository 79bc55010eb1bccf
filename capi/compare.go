package main

/*
#include <stdlib.h>
#include "margaux.h"
*/
import "C"

import (
	"context"
	"unsafe"
)

// stringArrayHandle owns the C copies of its strings for the lifetime of the
// handle.
type stringArrayHandle struct {
	strings []*C.char
}

func newStringArray(values []string) *stringArrayHandle {
	h := &stringArrayHandle{strings: make([]*C.char, len(values))}
	for i, s := range values {
		h.strings[i] = C.CString(s)
	}
	return h
}

func stringArray(h C.psr_handle_t) (*stringArrayHandle, bool) {
	v, ok := stringArrays.get(uint64(h))
	if !ok {
		return nil, false
	}
	return v.(*stringArrayHandle), true
}

//export psr_string_array_count
func psr_string_array_count(h C.psr_handle_t) C.int64_t {
	a, ok := stringArray(h)
	if !ok {
		return -1
	}
	return C.int64_t(len(a.strings))
}

// psr_string_array_get returns a string owned by the array handle.
//
//export psr_string_array_get
func psr_string_array_get(h C.psr_handle_t, i C.int64_t) *C.char {
	a, ok := stringArray(h)
	if !ok || i < 0 || int(i) >= len(a.strings) {
		return nil
	}
	return a.strings[i]
}

//export psr_string_array_free
func psr_string_array_free(h C.psr_handle_t) {
	v, ok := stringArrays.drop(uint64(h))
	if !ok {
		return
	}
	a := v.(*stringArrayHandle)
	for _, s := range a.strings {
		C.free(unsafe.Pointer(s))
	}
}

//export psr_database_element_labels
func psr_database_element_labels(h C.psr_handle_t, collection *C.char, outErr *C.int32_t) C.psr_handle_t {
	handle, ok := database(h)
	if !ok {
		setOutError(outErr, C.PSR_ERROR_NOT_OPEN)
		return 0
	}
	labels, err := handle.db.ElementLabels(context.Background(), C.GoString(collection))
	if err != nil {
		setOutError(outErr, handle.fail(err))
		return 0
	}
	handle.setError(nil)
	setOutError(outErr, C.PSR_OK)
	return C.psr_handle_t(stringArrays.put(newStringArray(labels)))
}

//export psr_database_collections
func psr_database_collections(h C.psr_handle_t, outErr *C.int32_t) C.psr_handle_t {
	handle, ok := database(h)
	if !ok {
		setOutError(outErr, C.PSR_ERROR_NOT_OPEN)
		return 0
	}
	handle.setError(nil)
	setOutError(outErr, C.PSR_OK)
	return C.psr_handle_t(stringArrays.put(newStringArray(handle.db.Collections())))
}

type compareFn func(ctx context.Context, collection string) ([]string, error)

func runCompare(a, b C.psr_handle_t, collection *C.char, outErr *C.int32_t,
	pick func(ha, hb *dbHandle) compareFn) C.psr_handle_t {
	ha, okA := database(a)
	hb, okB := database(b)
	if !okA || !okB {
		setOutError(outErr, C.PSR_ERROR_NOT_OPEN)
		return 0
	}
	diffs, err := pick(ha, hb)(context.Background(), C.GoString(collection))
	if err != nil {
		setOutError(outErr, ha.fail(err))
		return 0
	}
	ha.setError(nil)
	setOutError(outErr, C.PSR_OK)
	return C.psr_handle_t(stringArrays.put(newStringArray(diffs)))
}

//export psr_database_compare
func psr_database_compare(a, b C.psr_handle_t, outErr *C.int32_t) C.psr_handle_t {
	ha, okA := database(a)
	hb, okB := database(b)
	if !okA || !okB {
		setOutError(outErr, C.PSR_ERROR_NOT_OPEN)
		return 0
	}
	diffs, err := ha.db.CompareDatabases(context.Background(), hb.db)
	if err != nil {
		setOutError(outErr, ha.fail(err))
		return 0
	}
	ha.setError(nil)
	setOutError(outErr, C.PSR_OK)
	return C.psr_handle_t(stringArrays.put(newStringArray(diffs)))
}

//export psr_database_compare_scalar_parameters
func psr_database_compare_scalar_parameters(a, b C.psr_handle_t, collection *C.char, outErr *C.int32_t) C.psr_handle_t {
	return runCompare(a, b, collection, outErr, func(ha, hb *dbHandle) compareFn {
		return func(ctx context.Context, c string) ([]string, error) {
			return ha.db.CompareScalarParameters(ctx, hb.db, c)
		}
	})
}

//export psr_database_compare_scalar_relations
func psr_database_compare_scalar_relations(a, b C.psr_handle_t, collection *C.char, outErr *C.int32_t) C.psr_handle_t {
	return runCompare(a, b, collection, outErr, func(ha, hb *dbHandle) compareFn {
		return func(ctx context.Context, c string) ([]string, error) {
			return ha.db.CompareScalarRelations(ctx, hb.db, c)
		}
	})
}

//export psr_database_compare_vector_parameters
func psr_database_compare_vector_parameters(a, b C.psr_handle_t, collection *C.char, outErr *C.int32_t) C.psr_handle_t {
	return runCompare(a, b, collection, outErr, func(ha, hb *dbHandle) compareFn {
		return func(ctx context.Context, c string) ([]string, error) {
			return ha.db.CompareVectorParameters(ctx, hb.db, c)
		}
	})
}

//export psr_database_compare_vector_relations
func psr_database_compare_vector_relations(a, b C.psr_handle_t, collection *C.char, outErr *C.int32_t) C.psr_handle_t {
	return runCompare(a, b, collection, outErr, func(ha, hb *dbHandle) compareFn {
		return func(ctx context.Context, c string) ([]string, error) {
			return ha.db.CompareVectorRelations(ctx, hb.db, c)
		}
	})
}

//export psr_database_compare_set_parameters
func psr_database_compare_set_parameters(a, b C.psr_handle_t, collection *C.char, outErr *C.int32_t) C.psr_handle_t {
	return runCompare(a, b, collection, outErr, func(ha, hb *dbHandle) compareFn {
		return func(ctx context.Context, c string) ([]string, error) {
			return ha.db.CompareSetParameters(ctx, hb.db, c)
		}
	})
}

//export psr_database_compare_set_relations
func psr_database_compare_set_relations(a, b C.psr_handle_t, collection *C.char, outErr *C.int32_t) C.psr_handle_t {
	return runCompare(a, b, collection, outErr, func(ha, hb *dbHandle) compareFn {
		return func(ctx context.Context, c string) ([]string, error) {
			return ha.db.CompareSetRelations(ctx, hb.db, c)
		}
	})
}

//export psr_database_compare_time_series
func psr_database_compare_time_series(a, b C.psr_handle_t, collection *C.char, outErr *C.int32_t) C.psr_handle_t {
	return runCompare(a, b, collection, outErr, func(ha, hb *dbHandle) compareFn {
		return func(ctx context.Context, c string) ([]string, error) {
			return ha.db.CompareTimeSeries(ctx, hb.db, c)
		}
	})
}

//export psr_database_compare_time_series_files
func psr_database_compare_time_series_files(a, b C.psr_handle_t, collection *C.char, outErr *C.int32_t) C.psr_handle_t {
	return runCompare(a, b, collection, outErr, func(ha, hb *dbHandle) compareFn {
		return func(ctx context.Context, c string) ([]string, error) {
			return ha.db.CompareTimeSeriesFiles(ctx, hb.db, c)
		}
	})
}
