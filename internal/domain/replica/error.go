package replica

import (
	"errors"
)

var (
	// ErrValidation причина отказа в записи; API отвечает 422
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("record not found")
)
