package user

import (
	"strings"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/domain"
)

// msgRequired is the validation message for mandatory fields.
const msgRequired = "is required"

// User represents a registered customer able to place orders.
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

// Validate checks business rules for the User entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with
// per-field details, or nil if all rules pass.
func (u *User) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(u.Name) == "" {
		fields["name"] = msgRequired
	}
	email := strings.TrimSpace(u.Email)
	switch {
	case email == "":
		fields["email"] = msgRequired
	case !strings.Contains(email, "@"):
		fields["email"] = "must contain '@'"
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
