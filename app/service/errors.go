package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrOrderNotFound       = errors.New("wallet order not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrTopUpCooldown       = errors.New("top-up cooldown is active")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
)
