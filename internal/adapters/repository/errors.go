package repository

import "errors"

// Sentinel kinds for snapshot store errors.
var (
	ErrNoSnapshot  = errors.New("no dataset snapshot installed")
	ErrNilSnapshot = errors.New("nil dataset snapshot")
)
