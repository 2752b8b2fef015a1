package biz

import "errors"

var (
	ErrInvalidSession      = errors.New("invalid player details")
	ErrRoundNotFound       = errors.New("game details not found")
	ErrRoundInProgress     = errors.New("round already in progress")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidStake        = errors.New("invalid bet")
	ErrBetCancelled        = errors.New("bet cancelled by upstream")
	ErrZeroBank            = errors.New("nothing to cash out")
	ErrInvalidAction       = errors.New("invalid action")
	ErrRoundConflict       = errors.New("concurrent round update")
	ErrStoreUnavailable    = errors.New("session store unavailable")
)
