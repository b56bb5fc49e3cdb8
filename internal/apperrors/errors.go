package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrConflict indicates that the operation conflicts with the current state of a resource.
var ErrConflict = errors.New("resource conflict")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

// ErrInvalidRevertTarget indicates an attempt to revert an expense to a version
// that carries no after-snapshot (e.g. a deletion entry).
var ErrInvalidRevertTarget = errors.New("version has no snapshot to revert to")

// ErrTransactionAborted indicates that a local storage transaction failed and
// was rolled back; no partial state was written.
var ErrTransactionAborted = errors.New("storage transaction aborted")

// ErrQueueOperationNotFound indicates a status update against a sync operation
// that has already been removed from the queue.
var ErrQueueOperationNotFound = errors.New("sync operation not found")

// ErrRateFetchFailed indicates the external rate provider returned a non-success
// response or a malformed payload. Callers recover via the cache fallback chain.
var ErrRateFetchFailed = errors.New("exchange rate fetch failed")
