package repository

import "errors"

// ErrVersionConflict is returned when a conditional write matched no row
// because the stored version or status moved on.
var ErrVersionConflict = errors.New("version conflict")
