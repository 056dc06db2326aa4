package service

import "errors"

// ErrOrderLocked means another allocation or reversal currently holds the
// order's lock. Callers retry later; the scheduler simply counts the order as
// failed and picks it up on the next sweep.
var ErrOrderLocked = errors.New("order locked by another operation")
