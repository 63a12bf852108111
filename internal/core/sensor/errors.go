package sensor

import "errors"

var ErrConfig = errors.New("invalid sensor configuration")
