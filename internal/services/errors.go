// internal/services/errors.go
package services

import "errors"

var (
	ErrForbidden         = errors.New("forbidden")
	ErrUserNotFound      = errors.New("user not found")
	ErrGemstoneNotFound  = errors.New("gemstone not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrAlertNotFound     = errors.New("inventory alert not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
)
