package main

/*
#include <stdlib.h>
#include "margaux.h"
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/margauxdb/margaux/pkg/margaux"
	"github.com/margauxdb/margaux/pkg/types"
)

// dbHandle pairs the Go database with the handle-owned last-error string.
type dbHandle struct {
	db      *margaux.Database
	lastErr *C.char
}

func (h *dbHandle) setError(err error) {
	if h.lastErr != nil {
		C.free(unsafe.Pointer(h.lastErr))
		h.lastErr = nil
	}
	if err != nil {
		h.lastErr = C.CString(err.Error())
	}
}

// errorCode flattens an error kind into the boundary enum. Detail beyond the
// code is retrievable as the handle's last-error string.
func errorCode(err error) C.int32_t {
	if err == nil {
		return C.PSR_OK
	}
	switch types.KindOf(err) {
	case types.NoSchemaLoaded:
		return C.PSR_ERROR_NOT_OPEN
	case types.CollectionNotFound, types.AttributeNotFound,
		types.ElementNotFound, types.FileNotFound:
		return C.PSR_ERROR_NOT_FOUND
	case types.InvalidSchema, types.InvalidIdentifier:
		return C.PSR_ERROR_SCHEMA_VALIDATION
	case types.TypeMismatch, types.InvalidType, types.InvalidValue,
		types.EmptyElement:
		return C.PSR_ERROR_INVALID_ARGUMENT
	case types.SqlSyntaxError:
		return C.PSR_ERROR_QUERY
	default:
		return C.PSR_ERROR_DATABASE
	}
}

func database(h C.psr_handle_t) (*dbHandle, bool) {
	v, ok := databases.get(uint64(h))
	if !ok {
		return nil, false
	}
	return v.(*dbHandle), true
}

// fail records the error on the handle and returns its code.
func (h *dbHandle) fail(err error) C.int32_t {
	h.setError(err)
	return errorCode(err)
}

func setOutError(out *C.int32_t, code C.int32_t) {
	if out != nil {
		*out = code
	}
}

func logLevelName(level C.int32_t) string {
	switch level {
	case C.PSR_LOG_DEBUG:
		return "debug"
	case C.PSR_LOG_INFO:
		return "info"
	case C.PSR_LOG_WARN:
		return "warn"
	case C.PSR_LOG_ERROR:
		return "error"
	default:
		return "off"
	}
}

func openDatabase(open func() (*margaux.Database, error), outErr *C.int32_t) C.psr_handle_t {
	db, err := open()
	if err != nil {
		setOutError(outErr, errorCode(err))
		return 0
	}
	setOutError(outErr, C.PSR_OK)
	return C.psr_handle_t(databases.put(&dbHandle{db: db}))
}

//export psr_database_open
func psr_database_open(path *C.char, readOnly C.int32_t, logLevel C.int32_t, outErr *C.int32_t) C.psr_handle_t {
	opts := margaux.Options{ReadOnly: readOnly != 0, LogLevel: logLevelName(logLevel)}
	return openDatabase(func() (*margaux.Database, error) {
		return margaux.Open(context.Background(), C.GoString(path), opts)
	}, outErr)
}

//export psr_database_from_schema
func psr_database_from_schema(path, schemaText *C.char, logLevel C.int32_t, outErr *C.int32_t) C.psr_handle_t {
	opts := margaux.Options{LogLevel: logLevelName(logLevel)}
	return openDatabase(func() (*margaux.Database, error) {
		return margaux.FromSchema(context.Background(), C.GoString(path), C.GoString(schemaText), opts)
	}, outErr)
}

//export psr_database_from_migrations
func psr_database_from_migrations(path, dir *C.char, logLevel C.int32_t, outErr *C.int32_t) C.psr_handle_t {
	opts := margaux.Options{LogLevel: logLevelName(logLevel)}
	return openDatabase(func() (*margaux.Database, error) {
		return margaux.FromMigrations(context.Background(), C.GoString(path), C.GoString(dir), opts)
	}, outErr)
}

//export psr_database_close
func psr_database_close(h C.psr_handle_t) C.int32_t {
	v, ok := databases.drop(uint64(h))
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	handle := v.(*dbHandle)
	err := handle.db.Close()
	if handle.lastErr != nil {
		C.free(unsafe.Pointer(handle.lastErr))
		handle.lastErr = nil
	}
	return errorCode(err)
}

// psr_database_last_error returns the message of the handle's most recent
// failure, or NULL. The string is owned by the handle.
//
//export psr_database_last_error
func psr_database_last_error(h C.psr_handle_t) *C.char {
	handle, ok := database(h)
	if !ok {
		return nil
	}
	return handle.lastErr
}

//export psr_database_is_healthy
func psr_database_is_healthy(h C.psr_handle_t) C.int32_t {
	handle, ok := database(h)
	if !ok || !handle.db.IsHealthy(context.Background()) {
		return 0
	}
	return 1
}

//export psr_database_execute
func psr_database_execute(h C.psr_handle_t, query *C.char, outErr *C.int32_t) C.psr_handle_t {
	handle, ok := database(h)
	if !ok {
		setOutError(outErr, C.PSR_ERROR_NOT_OPEN)
		return 0
	}
	res, err := handle.db.Execute(context.Background(), C.GoString(query))
	if err != nil {
		setOutError(outErr, handle.fail(err))
		return 0
	}
	handle.setError(nil)
	setOutError(outErr, C.PSR_OK)
	return C.psr_handle_t(results.put(newResultHandle(res)))
}

//export psr_database_begin_transaction
func psr_database_begin_transaction(h C.psr_handle_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.Begin(context.Background()))
}

//export psr_database_commit
func psr_database_commit(h C.psr_handle_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.Commit(context.Background()))
}

//export psr_database_rollback
func psr_database_rollback(h C.psr_handle_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.Rollback(context.Background()))
}

//export psr_database_savepoint
func psr_database_savepoint(h C.psr_handle_t, name *C.char) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	_, err := handle.db.Savepoint(context.Background(), C.GoString(name))
	return handle.fail(err)
}

//export psr_database_release_savepoint
func psr_database_release_savepoint(h C.psr_handle_t, name *C.char) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.ReleaseSavepoint(context.Background(), C.GoString(name)))
}

//export psr_database_rollback_to_savepoint
func psr_database_rollback_to_savepoint(h C.psr_handle_t, name *C.char) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.RollbackToSavepoint(context.Background(), C.GoString(name)))
}

//export psr_database_version
func psr_database_version(h C.psr_handle_t, out *C.int64_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	v, err := handle.db.Version(context.Background())
	if err != nil {
		return handle.fail(err)
	}
	if out != nil {
		*out = C.int64_t(v)
	}
	handle.setError(nil)
	return C.PSR_OK
}

//export psr_database_set_version
func psr_database_set_version(h C.psr_handle_t, v C.int64_t) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	return handle.fail(handle.db.SetVersion(context.Background(), int64(v)))
}

//export psr_database_migrate
func psr_database_migrate(h C.psr_handle_t, dir *C.char) C.int32_t {
	handle, ok := database(h)
	if !ok {
		return C.PSR_ERROR_NOT_OPEN
	}
	if _, err := handle.db.ApplyMigrations(context.Background(), C.GoString(dir)); err != nil {
		handle.setError(err)
		return C.PSR_ERROR_MIGRATION
	}
	handle.setError(nil)
	return C.PSR_OK
}
