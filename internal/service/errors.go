package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidSignature    = errors.New("invalid payment signature")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrOrderPersistence    = errors.New("error creating order")
	ErrGateway             = errors.New("payment gateway error")
	ErrCouponIssuance      = errors.New("gift coupon issuance failed")
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponExpired       = errors.New("coupon expired")
	ErrUnauthorized        = errors.New("unauthorized")
)

// ValidationError describes malformed request input. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
