package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/domain"
)

// msgRequired is the validation message for mandatory fields.
const msgRequired = "is required"

// Order represents a purchase placed by a user. Orders are created as
// pending and driven through their lifecycle by the processing pipeline;
// nothing else writes their status.
type Order struct {
	ID          int64
	UserID      int64
	ProductName string
	Amount      float64
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks business rules for the Order entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with
// per-field details, or nil if all rules pass.
func (o *Order) Validate() error {
	fields := make(map[string]string)

	if o.UserID <= 0 {
		fields["user_id"] = fmt.Sprintf("must be positive, got %d", o.UserID)
	}
	if strings.TrimSpace(o.ProductName) == "" {
		fields["product_name"] = msgRequired
	}
	if o.Amount <= 0 {
		fields["amount"] = fmt.Sprintf("must be positive, got %v", o.Amount)
	}
	if !o.Status.IsValid() {
		fields["status"] = fmt.Sprintf("invalid: %q", o.Status)
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
