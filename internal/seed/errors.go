package seed

import "errors"

// ErrInvalidCount rejects seed requests with an unusable officer count.
var ErrInvalidCount = errors.New("invalid seed count")
