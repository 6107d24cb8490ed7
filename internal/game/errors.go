package game

import "errors"

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrNameTaken      = errors.New("name already in use")
)
