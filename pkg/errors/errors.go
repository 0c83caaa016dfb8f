package errors

import "errors"

// ErrOptimisticLock means the record was modified by another operation since
// it was read; the caller should refresh and retry.
var ErrOptimisticLock = errors.New("record was modified by another operation, refresh and retry")

// ErrExaminerAtCapacity means a guarded exam insert found the examiner's
// per-day cap already reached at commit time.
var ErrExaminerAtCapacity = errors.New("examiner has reached the daily exam limit")
