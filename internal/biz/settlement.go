package biz

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OutcomeWin  = "WIN"
	OutcomeLoss = "LOSS"
)

// SettlementRecord is the write-once audit row for one resolved round (GRID)
// or one resolved spin (CHAIN).
type SettlementRecord struct {
	RoundID    string
	MatchID    string
	UserID     string
	OperatorID string
	Stake      decimal.Decimal
	MaxMult    float64
	Outcome    string
}

// SettlementRecorder persists records to the durable audit store. Writes are
// fire-and-forget from the engine's point of view; the implementation routes
// failures to the reconciliation queue.
type SettlementRecorder interface {
	Record(ctx context.Context, rec *SettlementRecord)
}

// Correction kinds queued for out-of-band reconciliation.
const (
	CorrectionCreditFailed     = "credit_failed"
	CorrectionDebitOrphaned    = "debit_orphaned"
	CorrectionSettlementFailed = "settlement_failed"
)

// CreditCorrection is one entry of the append-only pending-corrections log:
// a ledger or audit write that failed and must be replayed out-of-band
// instead of being silently lost.
type CreditCorrection struct {
	Kind       string          `json:"kind"`
	RoundID    string          `json:"round_id"`
	UserID     string          `json:"user_id"`
	OperatorID string          `json:"operator_id"`
	Amount     decimal.Decimal `json:"amount"`
	TxnID      string          `json:"txn_id"`
	Reason     string          `json:"reason"`
	At         time.Time       `json:"at"`
}

// Reconciler appends corrections to the durable queue. Best effort; a failed
// append is logged by the implementation.
type Reconciler interface {
	PendingCredit(ctx context.Context, c *CreditCorrection)
}

func now() time.Time { return time.Now() }
