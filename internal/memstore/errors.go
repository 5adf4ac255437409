package memstore

import "github.com/shaiso/Alloy/internal/repo"

// Ошибки совпадают с ошибками repo: вызывающий код не различает хранилища.
var (
	ErrNotFound      = repo.ErrNotFound
	ErrAlreadyExists = repo.ErrAlreadyExists
)
