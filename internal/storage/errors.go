package storage

import "errors"

// ErrKeyNotFound is returned by Get when no value exists at the key.
var ErrKeyNotFound = errors.New("storage: key not found")
