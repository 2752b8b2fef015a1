package biz

import (
	"context"

	"github.com/shopspring/decimal"
)

// DebitRequest moves a stake out of the player's upstream balance. RoundID is
// the idempotency key; the engine never issues two debits for the same round.
type DebitRequest struct {
	RoundID    string
	Amount     decimal.Decimal
	UserID     string
	OperatorID string
	SessionID  string
	IP         string
}

// CreditRequest moves a payout back. TxnID references the debit transaction
// the payout belongs to.
type CreditRequest struct {
	RoundID    string
	Amount     decimal.Decimal
	TxnID      string
	UserID     string
	OperatorID string
	SessionID  string
	IP         string
}

// LedgerClient is the synchronous external balance service. Debit failure
// aborts the transition that requested it; Credit failure is non-fatal and
// handed to the Reconciler.
type LedgerClient interface {
	Debit(ctx context.Context, req *DebitRequest) (txnID string, err error)
	Credit(ctx context.Context, req *CreditRequest) error
}
