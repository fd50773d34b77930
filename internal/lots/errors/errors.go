package errors

import "errors"

var (
	ErrLotNotFound = errors.New("lot not found")

	ErrSpotNotFound = errors.New("spot not found")

	ErrInvalidID = errors.New("invalid lot or spot ID format")
)
