package biz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/google/wire"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cloudstok/mines-game-backend/internal/conf"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(NewRoundEngine)

// RoundEngine owns the lifecycle of in-flight wagers: it validates player
// actions, moves money through the ledger, keeps the cached round and
// session consistent, and emits settlement records on terminal outcomes.
//
// Same-player actions are serialized by an in-process keyed mutex held for
// the whole read-transition-write sequence; concurrent writers on other
// processes are caught by the round version check in SetRound, so a lost
// update is rejected instead of silently double-applied.
type RoundEngine struct {
	cfg    *conf.Game
	repo   SessionRepo
	ledger LedgerClient
	rec    SettlementRecorder
	rq     Reconciler
	locks  *keyedMutex
	rng    RNG
	log    *zap.Logger
}

func NewRoundEngine(
	cfg *conf.Game,
	repo SessionRepo,
	ledger LedgerClient,
	rec SettlementRecorder,
	rq Reconciler,
	logger *zap.Logger,
) *RoundEngine {
	return &RoundEngine{
		cfg:    cfg,
		repo:   repo,
		ledger: ledger,
		rec:    rec,
		rq:     rq,
		locks:  newKeyedMutex(),
		rng:    stdRNG{},
		log:    logger,
	}
}

// Connect caches the session the transport authenticated. The engine owns it
// from here until Disconnect.
func (e *RoundEngine) Connect(ctx context.Context, s *PlayerSession) error {
	s.Balance = s.Balance.Round(2)
	if err := e.repo.SetSession(ctx, s); err != nil {
		e.log.Error("Connect", zap.Error(err), zap.String("sessionId", s.SessionID))
		return ErrStoreUnavailable
	}
	return nil
}

// StartParams carries the validated SG arguments.
type StartParams struct {
	Variant   Variant
	Stake     decimal.Decimal
	BoardSize int
	MineCount int
}

// StartRound debits the stake and creates the round. Valid only when the
// player has no active round; a refused debit aborts with no state change.
func (e *RoundEngine) StartRound(ctx context.Context, sessionID string, p StartParams) (*StartResult, error) {
	s, err := e.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(s.PlayerKey())
	defer unlock()

	stake := p.Stake.Round(2)
	if stake.LessThan(decimal.NewFromFloat(e.cfg.MinStake)) ||
		stake.GreaterThan(decimal.NewFromFloat(e.cfg.MaxStake)) {
		return nil, ErrInvalidStake
	}
	if s.Balance.LessThan(stake) {
		return nil, ErrInsufficientBalance
	}
	if p.Variant == VariantGrid {
		if p.BoardSize == 0 {
			p.BoardSize = e.cfg.BoardSize
		}
		if p.BoardSize != e.cfg.BoardSize ||
			p.MineCount < e.cfg.MinMines || p.MineCount > e.cfg.MaxMines ||
			p.MineCount >= p.BoardSize*p.BoardSize {
			return nil, ErrInvalidStake
		}
	}
	if cur, err := e.repo.GetRound(ctx, s.PlayerKey()); err != nil {
		return nil, ErrStoreUnavailable
	} else if cur != nil {
		if !cur.Terminal() {
			return nil, ErrRoundInProgress
		}
		// closed round whose cleanup never landed
		if err := e.repo.DeleteRound(ctx, s.PlayerKey()); err != nil {
			return nil, ErrStoreUnavailable
		}
	}

	matchID := uuid.Must(uuid.NewV7()).String()
	round := &RoundState{
		State:   PhaseActive,
		Variant: p.Variant,
		MatchID: matchID,
		RoundID: matchID + "_1",
		Stake:   stake,
		Bank:    decimal.Zero,
	}
	switch p.Variant {
	case VariantChain:
		round.Chain = NewChainData(e.cfg)
	case VariantGrid:
		round.Grid = NewGridData(p.BoardSize, p.MineCount, e.cfg.GridRTP, e.rng)
	default:
		return nil, ErrInvalidAction
	}

	txnID, err := e.ledger.Debit(ctx, &DebitRequest{
		RoundID:    round.RoundID,
		Amount:     stake,
		UserID:     s.UserID,
		OperatorID: s.OperatorID,
		SessionID:  s.SessionID,
		IP:         s.IP,
	})
	if err != nil {
		e.log.Error("StartRound", zap.Error(err),
			zap.String("roundId", round.RoundID), zap.String("userId", s.UserID))
		return nil, ErrBetCancelled
	}
	round.TxnID = txnID
	s.LastTxnID = txnID

	if err := e.repo.SetRound(ctx, s.PlayerKey(), round); err != nil {
		// The stake is already debited; queue it for reconciliation before
		// surfacing the failure.
		e.log.Error("StartRound", zap.Error(err), zap.String("roundId", round.RoundID))
		e.rq.PendingCredit(context.WithoutCancel(ctx), &CreditCorrection{
			Kind:       CorrectionDebitOrphaned,
			RoundID:    round.RoundID,
			UserID:     s.UserID,
			OperatorID: s.OperatorID,
			Amount:     stake,
			TxnID:      txnID,
			Reason:     err.Error(),
			At:         now(),
		})
		return nil, ErrStoreUnavailable
	}

	s.Balance = s.Balance.Sub(stake).Round(2)
	if err := e.repo.SetSession(ctx, s); err != nil {
		e.log.Error("StartRound", zap.Error(err), zap.String("sessionId", s.SessionID))
	}
	return &StartResult{
		Round:   round.Snapshot(),
		Balance: s.Balance.InexactFloat64(),
	}, nil
}

// Spin advances a CHAIN round by one draw. Each resolved spin is a
// settleable unit and emits exactly one settlement record.
func (e *RoundEngine) Spin(ctx context.Context, sessionID string) (*SpinResult, error) {
	s, err := e.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(s.PlayerKey())
	defer unlock()

	round, err := e.activeRound(ctx, s, VariantChain)
	if err != nil {
		return nil, err
	}

	round.RoundID = NextRoundID(round.RoundID)
	spin := round.Chain.Spin(e.rng)

	var win decimal.Decimal
	if spin.BonusMult > 0 {
		win = e.capPayout(round.Stake.Mul(decimal.NewFromFloat(spin.BonusMult)))
	}

	// Persist before any money moves: a rejected write must leave no payout
	// or audit row behind.
	round.Recompute()
	closed := round.Chain.Empty()
	if closed {
		round.State = PhaseTerminal
	}
	if err := e.repo.SetRound(ctx, s.PlayerKey(), round); err != nil {
		e.log.Error("Spin", zap.Error(err), zap.String("roundId", round.RoundID))
		return nil, e.storeErr(err)
	}
	if closed {
		if err := e.repo.DeleteRound(ctx, s.PlayerKey()); err != nil {
			e.log.Error("Spin", zap.Error(err), zap.String("roundId", round.RoundID))
		}
	}

	if win.IsPositive() {
		e.credit(ctx, s, round, win)
	}
	outcome := OutcomeLoss
	if spin.SpinMult > 0 {
		outcome = OutcomeWin
	}
	e.settle(&SettlementRecord{
		RoundID:    round.RoundID,
		MatchID:    round.MatchID,
		UserID:     s.UserID,
		OperatorID: s.OperatorID,
		Stake:      round.Stake,
		MaxMult:    spin.SpinMult,
		Outcome:    outcome,
	})

	res := &SpinResult{
		MatchID:    round.MatchID,
		RoundID:    round.RoundID,
		Bank:       round.Bank.Round(2).InexactFloat64(),
		Sections:   *round.Chain.sections(),
		Result:     spin.Section,
		DarkGem:    spin.DarkGem,
		Stone:      spin.Stone,
		Multiplier: round.Multiplier,
		SpinMult:   spin.SpinMult,
		WinAmount:  win.InexactFloat64(),
		Balance:    s.Balance.InexactFloat64(),
		Closed:     closed,
		Stake:      round.Stake.InexactFloat64(),
	}
	if closed {
		res.Bank, res.Multiplier = 0, 0
		res.MatchID = ""
	}
	return res, nil
}

// Reveal flips one GRID cell. A mine ends the round as a loss; clearing the
// last safe cell cashes the bank out automatically.
func (e *RoundEngine) Reveal(ctx context.Context, sessionID string, row, col int) (*RevealResult, error) {
	s, err := e.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(s.PlayerKey())
	defer unlock()

	round, err := e.activeRound(ctx, s, VariantGrid)
	if err != nil {
		return nil, err
	}

	round.RoundID = NextRoundID(round.RoundID)
	mine, ok := round.Grid.Reveal(row, col)
	if !ok {
		return nil, ErrInvalidAction
	}

	res := &RevealResult{
		MatchID: round.MatchID,
		RoundID: round.RoundID,
		Row:     row,
		Col:     col,
		Mine:    mine,
		Reveals: round.Grid.Revealed,
		Balance: s.Balance.InexactFloat64(),
	}

	if mine {
		if err := e.claimTerminal(ctx, s, round); err != nil {
			return nil, err
		}
		e.settle(&SettlementRecord{
			RoundID:    round.RoundID,
			MatchID:    round.MatchID,
			UserID:     s.UserID,
			OperatorID: s.OperatorID,
			Stake:      round.Stake,
			MaxMult:    0,
			Outcome:    OutcomeLoss,
		})
		if err := e.repo.DeleteRound(ctx, s.PlayerKey()); err != nil {
			e.log.Error("Reveal", zap.Error(err), zap.String("roundId", round.RoundID))
		}
		res.Closed = true
		res.Mines = round.Grid.mineMask()
		return res, nil
	}

	round.Recompute()
	res.Multiplier = round.Multiplier
	res.Bank = round.Bank.Round(2).InexactFloat64()

	if round.Grid.Cleared() {
		payout := e.capPayout(round.Bank)
		if err := e.claimTerminal(ctx, s, round); err != nil {
			return nil, err
		}
		e.credit(ctx, s, round, payout)
		e.settle(&SettlementRecord{
			RoundID:    round.RoundID,
			MatchID:    round.MatchID,
			UserID:     s.UserID,
			OperatorID: s.OperatorID,
			Stake:      round.Stake,
			MaxMult:    round.Multiplier,
			Outcome:    OutcomeWin,
		})
		if err := e.repo.DeleteRound(ctx, s.PlayerKey()); err != nil {
			e.log.Error("Reveal", zap.Error(err), zap.String("roundId", round.RoundID))
		}
		res.Closed = true
		res.WinAmount = payout.InexactFloat64()
		res.Balance = s.Balance.InexactFloat64()
		res.Mines = round.Grid.mineMask()
		return res, nil
	}

	if err := e.repo.SetRound(ctx, s.PlayerKey(), round); err != nil {
		e.log.Error("Reveal", zap.Error(err), zap.String("roundId", round.RoundID))
		return nil, e.storeErr(err)
	}
	return res, nil
}

// CashOutAll credits the full bank and closes the round. The GRID variant
// rejects an empty bank; CHAIN pays whatever the bank holds.
func (e *RoundEngine) CashOutAll(ctx context.Context, sessionID string) (*CashOutResult, error) {
	s, err := e.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(s.PlayerKey())
	defer unlock()

	round, err := e.activeRound(ctx, s, "")
	if err != nil {
		return nil, err
	}
	return e.cashOutLocked(ctx, s, round)
}

func (e *RoundEngine) cashOutLocked(ctx context.Context, s *PlayerSession, round *RoundState) (*CashOutResult, error) {
	if round.Variant == VariantGrid && !round.Bank.IsPositive() {
		return nil, ErrZeroBank
	}

	// Fresh id so the cash-out credit never reuses a spin's idempotency key.
	round.RoundID = NextRoundID(round.RoundID)
	payout := e.capPayout(round.Bank)
	if err := e.claimTerminal(ctx, s, round); err != nil {
		return nil, err
	}

	e.credit(ctx, s, round, payout)

	if round.Variant == VariantGrid {
		outcome := OutcomeWin
		if !payout.IsPositive() {
			outcome = OutcomeLoss
		}
		e.settle(&SettlementRecord{
			RoundID:    round.RoundID,
			MatchID:    round.MatchID,
			UserID:     s.UserID,
			OperatorID: s.OperatorID,
			Stake:      round.Stake,
			MaxMult:    round.Multiplier,
			Outcome:    outcome,
		})
	}

	if err := e.repo.DeleteRound(ctx, s.PlayerKey()); err != nil {
		e.log.Error("cashOut", zap.Error(err), zap.String("roundId", round.RoundID))
	}
	return &CashOutResult{
		Payout:  payout.InexactFloat64(),
		MatchID: "",
		Balance: s.Balance.InexactFloat64(),
		Closed:  true,
	}, nil
}

// CashOutPartial pops the newest step off every non-empty section and pays
// the summed deltas. CHAIN only.
func (e *RoundEngine) CashOutPartial(ctx context.Context, sessionID string) (*CashOutResult, error) {
	s, err := e.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(s.PlayerKey())
	defer unlock()

	round, err := e.activeRound(ctx, s, VariantChain)
	if err != nil {
		return nil, err
	}

	round.RoundID = NextRoundID(round.RoundID)
	mult := round.Chain.PopTails()
	payout := e.capPayout(round.Stake.Mul(decimal.NewFromFloat(mult)))

	round.Recompute()
	closed := round.Chain.Empty()
	if closed {
		round.State = PhaseTerminal
	}
	if err := e.repo.SetRound(ctx, s.PlayerKey(), round); err != nil {
		e.log.Error("CashOutPartial", zap.Error(err), zap.String("roundId", round.RoundID))
		return nil, e.storeErr(err)
	}
	if closed {
		if err := e.repo.DeleteRound(ctx, s.PlayerKey()); err != nil {
			e.log.Error("CashOutPartial", zap.Error(err), zap.String("roundId", round.RoundID))
		}
	}
	e.credit(ctx, s, round, payout)

	res := &CashOutResult{
		Payout:     payout.InexactFloat64(),
		MatchID:    round.MatchID,
		RoundID:    round.RoundID,
		Bank:       round.Bank.Round(2).InexactFloat64(),
		Multiplier: round.Multiplier,
		Sections:   round.Chain.sections(),
		Balance:    s.Balance.InexactFloat64(),
		Closed:     closed,
	}
	if closed {
		res.MatchID = ""
	}
	return res, nil
}

// Disconnect force-cashes any active round best-effort, then drops the
// session. The session is deleted regardless of the cash-out outcome.
func (e *RoundEngine) Disconnect(ctx context.Context, sessionID string) {
	s, err := e.repo.GetSession(ctx, sessionID)
	if err != nil || s == nil {
		if err != nil {
			e.log.Error("Disconnect", zap.Error(err), zap.String("sessionId", sessionID))
		}
		return
	}
	unlock := e.locks.Lock(s.PlayerKey())
	defer unlock()

	if round, err := e.repo.GetRound(ctx, s.PlayerKey()); err == nil && round != nil && round.State == PhaseActive {
		if _, err := e.cashOutLocked(ctx, s, round); err != nil {
			e.log.Warn("Disconnect",
				zap.Error(err),
				zap.String("roundId", round.RoundID),
				zap.String("userId", s.UserID),
			)
		}
	}
	if err := e.repo.DeleteSession(ctx, sessionID); err != nil {
		e.log.Error("Disconnect", zap.Error(err), zap.String("sessionId", sessionID))
	}
}

// Reconnect returns a snapshot of any cached round without mutating it.
func (e *RoundEngine) Reconnect(ctx context.Context, sessionID string) (*RoundSnapshot, error) {
	s, err := e.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	round, err := e.repo.GetRound(ctx, s.PlayerKey())
	if err != nil {
		return nil, ErrStoreUnavailable
	}
	if round == nil {
		return nil, nil
	}
	return round.Snapshot(), nil
}

// Odds answers the read-only MD query: the multiplier ladder for a board
// configuration. It never touches stored state.
func (e *RoundEngine) Odds(size, mines int) ([]float64, error) {
	if size == 0 {
		size = e.cfg.BoardSize
	}
	if size != e.cfg.BoardSize || mines < e.cfg.MinMines || mines > e.cfg.MaxMines || mines >= size*size {
		return nil, ErrInvalidAction
	}
	return GridOddsTable(size, mines, e.cfg.GridRTP), nil
}

// Session returns the cached session for a connection, ErrInvalidSession
// when none is cached.
func (e *RoundEngine) Session(ctx context.Context, sessionID string) (*PlayerSession, error) {
	return e.session(ctx, sessionID)
}

func (e *RoundEngine) session(ctx context.Context, sessionID string) (*PlayerSession, error) {
	s, err := e.repo.GetSession(ctx, sessionID)
	if err != nil {
		e.log.Error("session", zap.Error(err), zap.String("sessionId", sessionID))
		return nil, ErrStoreUnavailable
	}
	if s == nil {
		return nil, ErrInvalidSession
	}
	return s, nil
}

// activeRound loads the player's round and checks phase and, when variant is
// non-empty, the variant the action belongs to.
func (e *RoundEngine) activeRound(ctx context.Context, s *PlayerSession, variant Variant) (*RoundState, error) {
	round, err := e.repo.GetRound(ctx, s.PlayerKey())
	if err != nil {
		e.log.Error("activeRound", zap.Error(err), zap.String("userId", s.UserID))
		return nil, ErrStoreUnavailable
	}
	if round == nil || round.State != PhaseActive {
		return nil, ErrRoundNotFound
	}
	if variant != "" && round.Variant != variant {
		return nil, ErrInvalidAction
	}
	return round, nil
}

// credit pays a payout through the ledger and applies it to the cached
// balance. A ledger failure is logged and queued for reconciliation but does
// not block the round (accepted divergence until reconciled out-of-band).
func (e *RoundEngine) credit(ctx context.Context, s *PlayerSession, round *RoundState, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	err := e.ledger.Credit(ctx, &CreditRequest{
		RoundID:    round.RoundID,
		Amount:     amount,
		TxnID:      round.TxnID,
		UserID:     s.UserID,
		OperatorID: s.OperatorID,
		SessionID:  s.SessionID,
		IP:         s.IP,
	})
	if err != nil {
		e.log.Error("credit",
			zap.Error(err),
			zap.String("roundId", round.RoundID),
			zap.String("userId", s.UserID),
			zap.String("amount", amount.String()),
		)
		e.rq.PendingCredit(context.WithoutCancel(ctx), &CreditCorrection{
			Kind:       CorrectionCreditFailed,
			RoundID:    round.RoundID,
			UserID:     s.UserID,
			OperatorID: s.OperatorID,
			Amount:     amount,
			TxnID:      round.TxnID,
			Reason:     err.Error(),
			At:         now(),
		})
	}
	s.Balance = s.Balance.Add(amount).Round(2)
	if err := e.repo.SetSession(ctx, s); err != nil {
		e.log.Error("credit", zap.Error(err), zap.String("sessionId", s.SessionID))
	}
}

// claimTerminal closes the round through the version check before any money
// moves; the loser of a duplicate terminal action gets ErrRoundConflict
// instead of a second payout.
func (e *RoundEngine) claimTerminal(ctx context.Context, s *PlayerSession, round *RoundState) error {
	round.State = PhaseTerminal
	if err := e.repo.SetRound(ctx, s.PlayerKey(), round); err != nil {
		e.log.Error("claimTerminal", zap.Error(err), zap.String("roundId", round.RoundID))
		return e.storeErr(err)
	}
	return nil
}

func (e *RoundEngine) capPayout(amount decimal.Decimal) decimal.Decimal {
	return decimal.Min(amount, decimal.NewFromFloat(e.cfg.MaxCashout)).Round(2)
}

func (e *RoundEngine) settle(rec *SettlementRecord) {
	go e.rec.Record(context.Background(), rec)
}

func (e *RoundEngine) storeErr(err error) error {
	if errors.Is(err, ErrRoundConflict) {
		return ErrRoundConflict
	}
	return ErrStoreUnavailable
}
