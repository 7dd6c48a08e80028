package dto

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jsamuelsen11/orderflow/internal/domain"
)

// validate is the shared validator instance. It is safe for concurrent use
// and caches struct metadata, so one instance serves all request types.
var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateUserRequest represents the JSON body for registering a new user.
type CreateUserRequest struct {
	Name  string `json:"name"  validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Validate checks the request against its field tags.
// Returns a *domain.ValidationError if any checks fail.
func (r *CreateUserRequest) Validate() error {
	return runValidation(r, map[string]string{
		"Name":  "name",
		"Email": "email",
	})
}

// CreateOrderRequest represents the JSON body for placing a new order.
type CreateOrderRequest struct {
	UserID      int64   `json:"user_id"      validate:"required,gt=0"`
	ProductName string  `json:"product_name" validate:"required"`
	Amount      float64 `json:"amount"       validate:"required,gt=0"`
}

// Validate checks the request against its field tags.
// Returns a *domain.ValidationError if any checks fail.
func (r *CreateOrderRequest) Validate() error {
	return runValidation(r, map[string]string{
		"UserID":      "user_id",
		"ProductName": "product_name",
		"Amount":      "amount",
	})
}

// runValidation runs the shared validator over the request and converts
// failures to a *domain.ValidationError keyed by JSON field name, so the
// problem-details rendering is uniform with domain-level validation.
func runValidation(req any, jsonNames map[string]string) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := jsonNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		fields[name] = tagMessage(fe)
	}
	return &domain.ValidationError{Fields: fields}
}

// tagMessage renders one failed validator tag as a human-readable message.
func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
