package biz

import (
	"context"

	"github.com/shopspring/decimal"
)

// PlayerSession is the cached identity and balance of one connected player.
// The transport layer creates and deletes it; every balance-affecting
// mutation in between belongs to the round engine.
type PlayerSession struct {
	UserID     string          `json:"user_id"`
	OperatorID string          `json:"operator_id"`
	SessionID  string          `json:"session_id"`
	IP         string          `json:"ip"`
	Balance    decimal.Decimal `json:"balance"`
	LastTxnID  string          `json:"txn_id"`
}

// PlayerKey identifies the player across connections; the round cache is
// keyed by it so a reconnect finds the open round.
func (s *PlayerSession) PlayerKey() string {
	return s.UserID + ":" + s.OperatorID
}

// SessionRepo abstracts the keyed session store (redis, PL:/GM: keys).
// Get methods return (nil, nil) when the key is absent. SetRound performs a
// compare-and-set on RoundState.Version and returns ErrRoundConflict when a
// concurrent writer got there first; on success it bumps Version in place and
// refreshes the round TTL.
type SessionRepo interface {
	GetSession(ctx context.Context, sessionID string) (*PlayerSession, error)
	SetSession(ctx context.Context, s *PlayerSession) error
	DeleteSession(ctx context.Context, sessionID string) error

	GetRound(ctx context.Context, playerKey string) (*RoundState, error)
	SetRound(ctx context.Context, playerKey string, r *RoundState) error
	DeleteRound(ctx context.Context, playerKey string) error
}
