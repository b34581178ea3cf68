package models

import "errors"

// ErrInvalidPayload indicates a mutation payload failed validation.
var ErrInvalidPayload = errors.New("models: invalid payload")
