package models

import "errors"

var (
	ErrInvalidName  = errors.New("invalid file name")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("file not found")
	ErrTooLarge     = errors.New("file too large")
	ErrStorageFault = errors.New("storage fault")
	ErrUnavailable  = errors.New("storage unavailable")
)
