package models

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrUsernameTaken = errors.New("username already taken")
	ErrGameBusy      = errors.New("game is being updated")
	ErrGameCompleted = errors.New("game already completed")
)
