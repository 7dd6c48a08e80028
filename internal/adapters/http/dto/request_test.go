package dto

import (
	"errors"
	"testing"

	"github.com/jsamuelsen11/orderflow/internal/domain"
)

func TestCreateUserRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		req        CreateUserRequest
		wantFields []string
	}{
		{
			name: "valid",
			req:  CreateUserRequest{Name: "Ada Lovelace", Email: "ada@example.com"},
		},
		{
			name:       "missing name",
			req:        CreateUserRequest{Email: "ada@example.com"},
			wantFields: []string{"name"},
		},
		{
			name:       "malformed email",
			req:        CreateUserRequest{Name: "Ada", Email: "not-an-email"},
			wantFields: []string{"email"},
		},
		{
			name:       "everything missing",
			req:        CreateUserRequest{},
			wantFields: []string{"name", "email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate()
			assertValidation(t, err, tt.wantFields)
		})
	}
}

func TestCreateOrderRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		req        CreateOrderRequest
		wantFields []string
	}{
		{
			name: "valid",
			req:  CreateOrderRequest{UserID: 1, ProductName: "widget", Amount: 19.99},
		},
		{
			name:       "missing user",
			req:        CreateOrderRequest{ProductName: "widget", Amount: 19.99},
			wantFields: []string{"user_id"},
		},
		{
			name:       "negative amount",
			req:        CreateOrderRequest{UserID: 1, ProductName: "widget", Amount: -1},
			wantFields: []string{"amount"},
		},
		{
			name:       "blank product",
			req:        CreateOrderRequest{UserID: 1, Amount: 5},
			wantFields: []string{"product_name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate()
			assertValidation(t, err, tt.wantFields)
		})
	}
}

// assertValidation checks that err is nil when no fields are expected, and
// otherwise is a *domain.ValidationError naming exactly the expected fields.
func assertValidation(t *testing.T, err error, wantFields []string) {
	t.Helper()

	if len(wantFields) == 0 {
		if err != nil {
			t.Fatalf("Validate() = %v, want nil", err)
		}
		return
	}

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() = %v, want *domain.ValidationError", err)
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Error("error does not wrap domain.ErrValidation")
	}
	if len(verr.Fields) != len(wantFields) {
		t.Errorf("Fields = %v, want %d entries", verr.Fields, len(wantFields))
	}
	for _, field := range wantFields {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("Fields missing %q: %v", field, verr.Fields)
		}
	}
}
