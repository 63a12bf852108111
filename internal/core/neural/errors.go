package neural

import "errors"

var (
	ErrLayout    = errors.New("invalid network layout")
	ErrInputSize = errors.New("input size does not match layer width")
	ErrShape     = errors.New("snapshot shape does not match network")
)
