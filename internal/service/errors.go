package service

import "errors"

var (
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a requested record or image does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRetrainRunning is returned when a retrain is requested while one is in progress.
	ErrRetrainRunning = errors.New("retrain already running")
)
