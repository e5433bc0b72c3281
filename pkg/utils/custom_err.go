package utils

import "errors"

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidPlan         = errors.New("invalid subscription plan")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrBackendUnavailable  = errors.New("remote backend not configured")
	ErrInvalidOTP          = errors.New("invalid or expired code")
	ErrMailDelivery        = errors.New("mail delivery failed")
	ErrDatabaseError       = errors.New("database error")
	ErrDuplicateRecord     = errors.New("duplicate record")
	ErrInvalidImagePayload = errors.New("invalid image payload")
)

// AuthError carries a message meant to be shown to the user as-is.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }
