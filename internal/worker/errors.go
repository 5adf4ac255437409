package worker

import "errors"

// ErrWorkerStopped — воркер остановлен.
var ErrWorkerStopped = errors.New("worker stopped")
