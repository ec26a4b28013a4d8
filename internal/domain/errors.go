package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("user is not authenticated")
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
)

// ValidationError is a client-side field validation failure. It never
// reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
