package data

import (
	"context"
	"time"

	"go.uber.org/zap"
	"xorm.io/xorm"

	"github.com/cloudstok/mines-game-backend/internal/biz"
)

// Settlement is the append-only audit row, one per resolved round or spin.
type Settlement struct {
	ID         int64     `xorm:"pk autoincr 'id'"`
	BetID      string    `xorm:"varchar(64) index 'bet_id'"`
	LobbyID    string    `xorm:"varchar(64) index 'lobby_id'"`
	UserID     string    `xorm:"varchar(64) index 'user_id'"`
	OperatorID string    `xorm:"varchar(64) 'operator_id'"`
	BetAmount  float64   `xorm:"'bet_amount'"`
	MaxMult    float64   `xorm:"'max_mult'"`
	Status     string    `xorm:"varchar(8) 'status'"`
	CreatedAt  time.Time `xorm:"created 'created_at'"`
}

func (Settlement) TableName() string { return "settlement" }

type settlementRecorder struct {
	db  *xorm.Engine
	rq  biz.Reconciler
	log *zap.Logger
}

// NewSettlementRecorder writes audit rows to mysql. A failed insert is not
// retried here; it is logged and queued as a pending correction so the
// outcome is replayable instead of lost.
func NewSettlementRecorder(data *Data, rq biz.Reconciler, logger *zap.Logger) biz.SettlementRecorder {
	return &settlementRecorder{db: data.db, rq: rq, log: logger}
}

func (r *settlementRecorder) Record(ctx context.Context, rec *biz.SettlementRecord) {
	row := &Settlement{
		BetID:      rec.RoundID,
		LobbyID:    rec.MatchID,
		UserID:     rec.UserID,
		OperatorID: rec.OperatorID,
		BetAmount:  rec.Stake.Round(2).InexactFloat64(),
		MaxMult:    rec.MaxMult,
		Status:     rec.Outcome,
	}
	if _, err := r.db.Context(ctx).Insert(row); err != nil {
		r.log.Error("Record",
			zap.Error(err),
			zap.String("roundId", rec.RoundID),
			zap.String("userId", rec.UserID),
		)
		r.rq.PendingCredit(ctx, &biz.CreditCorrection{
			Kind:       biz.CorrectionSettlementFailed,
			RoundID:    rec.RoundID,
			UserID:     rec.UserID,
			OperatorID: rec.OperatorID,
			Amount:     rec.Stake,
			Reason:     err.Error(),
			At:         time.Now(),
		})
	}
}
