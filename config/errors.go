package config

import "errors"

// ErrInvalidConfig wraps every configuration problem found by Load or Validate.
var ErrInvalidConfig = errors.New("invalid configuration")
