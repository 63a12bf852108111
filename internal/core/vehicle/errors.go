package vehicle

import "errors"

var (
	ErrSensorMismatch = errors.New("network input width does not match sensor ray count")
	ErrControlWidth   = errors.New("network must produce exactly 4 control outputs")
	ErrDimensions     = errors.New("vehicle width and height must be positive")
	ErrNoDriver       = errors.New("vehicle requires a driver")
	ErrSettings       = errors.New("vehicle position must be finite and kinematics finite and non-negative")
)
