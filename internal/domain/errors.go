package domain

import "errors"

var (
	ErrScanFailed     = errors.New("image scan failed")
	ErrSourceNotFound = errors.New("source image not found")
	ErrDecodeFailed   = errors.New("image decode failed")
	ErrEncodeFailed   = errors.New("image encode failed")
	ErrStorageFailed  = errors.New("storage operation failed")
)
