package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/loans"
)

// Charge is a locked balance a payment is matched against. For installments
// Amount is the loan principal and Terms carries the loan type.
type Charge struct {
	Kind   ledger.ChargeKind
	ID     int64
	Amount decimal.Decimal
	Status ledger.Status
	Terms  *loans.LoanType
}

// Owed is the full amount due on the charge.
func (c Charge) Owed() decimal.Decimal {
	if c.Terms != nil {
		return loans.Owed(c.Amount, *c.Terms)
	}
	return c.Amount
}

// Payment is an append-only payment row.
type Payment struct {
	ID        int64             `json:"id"`
	Kind      ledger.ChargeKind `json:"kind"`
	ChargeID  int64             `json:"charge_id"`
	Reference uuid.UUID         `json:"reference"`
	Amount    decimal.Decimal   `json:"amount"`
	CreatedAt time.Time         `json:"created_at"`
}

// PaymentInput is the request body for every payment endpoint.
type PaymentInput struct {
	Amount decimal.Decimal `json:"amount"`
}

// Request is one payment application. Key is an optional idempotency key.
type Request struct {
	Kind   ledger.ChargeKind
	ID     int64
	Amount decimal.Decimal
	Key    string
}
