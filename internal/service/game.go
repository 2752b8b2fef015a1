package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/wire"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cloudstok/mines-game-backend/internal/biz"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewGameService)

// Pusher delivers outbound notifications. The websocket server implements it;
// the service never touches connections directly.
type Pusher interface {
	Push(sessionID, event string, payload any)
	Broadcast(event string, payload any)
}

// GameService translates the inbound colon-delimited action protocol into
// round-engine calls and engine results into outbound events.
type GameService struct {
	engine *biz.RoundEngine
	pusher Pusher
	log    *zap.Logger
}

func NewGameService(engine *biz.RoundEngine, logger *zap.Logger) *GameService {
	return &GameService{engine: engine, log: logger}
}

// SetPusher is called once by the transport during startup.
func (s *GameService) SetPusher(p Pusher) { s.pusher = p }

// OnSessionOpen caches the authenticated session and replays any open round
// so a reconnecting player resumes where they left off.
func (s *GameService) OnSessionOpen(ctx context.Context, sess *biz.PlayerSession) {
	if err := s.engine.Connect(ctx, sess); err != nil {
		s.pushError(sess.SessionID, err)
		return
	}
	s.pushInfo(sess)
	snap, err := s.engine.Reconnect(ctx, sess.SessionID)
	if err != nil {
		s.log.Error("OnSessionOpen", zap.Error(err), zap.String("sessionId", sess.SessionID))
		return
	}
	if snap != nil {
		s.pusher.Push(sess.SessionID, "game_status", snap)
	}
}

func (s *GameService) OnSessionClose(ctx context.Context, sessionID string) {
	s.engine.Disconnect(ctx, sessionID)
}

// HandleMessage dispatches one inbound action. Opcodes: SG start round, SP
// chain spin, RC grid reveal, COA/CO full cash-out, COP partial cash-out,
// MD read-only odds query.
func (s *GameService) HandleMessage(ctx context.Context, sessionID, msg string) {
	parts := strings.Split(strings.TrimSpace(msg), ":")
	switch parts[0] {
	case "SG":
		s.startGame(ctx, sessionID, parts[1:])
	case "SP":
		s.spin(ctx, sessionID)
	case "RC":
		s.revealCell(ctx, sessionID, parts[1:])
	case "COA", "CO":
		s.cashOutAll(ctx, sessionID)
	case "COP":
		s.cashOutPartial(ctx, sessionID)
	case "MD":
		s.minesMultiplier(sessionID, parts[1:])
	default:
		s.pushError(sessionID, biz.ErrInvalidAction)
	}
}

func (s *GameService) startGame(ctx context.Context, sessionID string, args []string) {
	if len(args) < 1 {
		s.pushError(sessionID, biz.ErrInvalidStake)
		return
	}
	stake, err := decimal.NewFromString(args[0])
	if err != nil {
		s.pushError(sessionID, biz.ErrInvalidStake)
		return
	}
	params := biz.StartParams{Variant: biz.VariantChain, Stake: stake}
	if len(args) >= 3 {
		size, err1 := strconv.Atoi(args[1])
		mines, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			s.pushError(sessionID, biz.ErrInvalidStake)
			return
		}
		params.Variant = biz.VariantGrid
		params.BoardSize = size
		params.MineCount = mines
	}

	res, err := s.engine.StartRound(ctx, sessionID, params)
	if err != nil {
		s.pushError(sessionID, err)
		return
	}
	s.pusher.Push(sessionID, "game_started", res.Round)
	s.pushBalance(ctx, sessionID)
}

func (s *GameService) spin(ctx context.Context, sessionID string) {
	res, err := s.engine.Spin(ctx, sessionID)
	if err != nil {
		s.pushError(sessionID, err)
		return
	}
	s.pusher.Push(sessionID, "spin_result", res)
	if res.WinAmount > 0 {
		s.pushBalance(ctx, sessionID)
	}
	s.pusher.Broadcast("bets", map[string]any{
		"betId":      res.RoundID,
		"userId":     maskUserID(s.sessionUser(ctx, sessionID)),
		"payout":     res.SpinMult,
		"Profit":     res.Stake*res.SpinMult - res.Stake,
		"created_at": time.Now(),
	})
}

func (s *GameService) revealCell(ctx context.Context, sessionID string, args []string) {
	if len(args) < 2 {
		s.pushError(sessionID, biz.ErrInvalidAction)
		return
	}
	row, err1 := strconv.Atoi(args[0])
	col, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		s.pushError(sessionID, biz.ErrInvalidAction)
		return
	}
	res, err := s.engine.Reveal(ctx, sessionID, row, col)
	if err != nil {
		s.pushError(sessionID, err)
		return
	}
	s.pusher.Push(sessionID, "revealed_cell", res)
	if res.WinAmount > 0 {
		s.pushBalance(ctx, sessionID)
	}
}

func (s *GameService) cashOutAll(ctx context.Context, sessionID string) {
	res, err := s.engine.CashOutAll(ctx, sessionID)
	if err != nil {
		s.pushError(sessionID, err)
		return
	}
	s.pusher.Push(sessionID, "cash_out_complete", map[string]any{
		"payout":  res.Payout,
		"matchId": res.MatchID,
	})
	s.pushBalance(ctx, sessionID)
}

func (s *GameService) cashOutPartial(ctx context.Context, sessionID string) {
	res, err := s.engine.CashOutPartial(ctx, sessionID)
	if err != nil {
		s.pushError(sessionID, err)
		return
	}
	s.pusher.Push(sessionID, "cash_out_partial", res)
	s.pushBalance(ctx, sessionID)
}

func (s *GameService) minesMultiplier(sessionID string, args []string) {
	if len(args) < 1 {
		s.pushError(sessionID, biz.ErrInvalidAction)
		return
	}
	mines, err := strconv.Atoi(args[0])
	if err != nil {
		s.pushError(sessionID, biz.ErrInvalidAction)
		return
	}
	size := 0
	if len(args) >= 2 {
		if size, err = strconv.Atoi(args[1]); err != nil {
			s.pushError(sessionID, biz.ErrInvalidAction)
			return
		}
	}
	table, err := s.engine.Odds(size, mines)
	if err != nil {
		s.pushError(sessionID, err)
		return
	}
	s.pusher.Push(sessionID, "mines_multiplier", map[string]any{
		"mineCount":   mines,
		"multipliers": table,
	})
}

func (s *GameService) pushBalance(ctx context.Context, sessionID string) {
	sess, err := s.engine.Session(ctx, sessionID)
	if err != nil || sess == nil {
		return
	}
	s.pushInfo(sess)
}

func (s *GameService) pushInfo(sess *biz.PlayerSession) {
	s.pusher.Push(sess.SessionID, "info", map[string]any{
		"user_id":     sess.UserID,
		"operator_id": sess.OperatorID,
		"balance":     sess.Balance.Round(2).InexactFloat64(),
	})
}

func (s *GameService) pushError(sessionID string, err error) {
	s.pusher.Push(sessionID, "betError", errMessage(err))
}

// errMessage keeps the player-facing wording stable regardless of internal
// error detail.
func errMessage(err error) string {
	switch {
	case errors.Is(err, biz.ErrInvalidSession):
		return "Invalid Player Details"
	case errors.Is(err, biz.ErrRoundNotFound):
		return "Game Details not found"
	case errors.Is(err, biz.ErrRoundInProgress):
		return "Game already in progress"
	case errors.Is(err, biz.ErrInsufficientBalance):
		return "Insufficient Balance"
	case errors.Is(err, biz.ErrInvalidStake):
		return "Invalid Bet"
	case errors.Is(err, biz.ErrBetCancelled):
		return "Bet Cancelled by Upstream"
	case errors.Is(err, biz.ErrZeroBank):
		return "Nothing to cash out"
	case errors.Is(err, biz.ErrRoundConflict):
		return "Action rejected, please retry"
	case errors.Is(err, biz.ErrInvalidAction):
		return "Invalid Action"
	default:
		return "Service unavailable, please retry"
	}
}

func (s *GameService) sessionUser(ctx context.Context, sessionID string) string {
	sess, err := s.engine.Session(ctx, sessionID)
	if err != nil || sess == nil {
		return ""
	}
	return sess.UserID
}

// maskUserID hides the middle of the id on the public bets feed.
func maskUserID(userID string) string {
	if len(userID) < 4 {
		return "**"
	}
	return userID[:2] + "**" + userID[len(userID)-2:]
}
