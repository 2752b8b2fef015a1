package biz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Variant string

const (
	VariantChain Variant = "CHAIN"
	VariantGrid  Variant = "GRID"
)

// RoundPhase is stored with the round payload so transition preconditions are
// checkable without inferring state from key presence.
type RoundPhase int8

const (
	PhaseIdle RoundPhase = iota
	PhaseActive
	PhaseTerminal
)

// RoundState is the full cached state of one open wager. Ladder tables and
// bonus sets are embedded so a serialized round restores byte-for-byte on
// reconnect regardless of config changes.
type RoundState struct {
	State      RoundPhase      `json:"state"`
	Version    int64           `json:"version"`
	Variant    Variant         `json:"variant"`
	MatchID    string          `json:"matchId"`
	RoundID    string          `json:"roundId"`
	Stake      decimal.Decimal `json:"bet"`
	Bank       decimal.Decimal `json:"bank"`
	Multiplier float64         `json:"multiplier"`
	TxnID      string          `json:"txn_id"`

	Chain *ChainData `json:"chain,omitempty"`
	Grid  *GridData  `json:"grid,omitempty"`
}

// Recompute rederives Multiplier and Bank from the variant payload. Bank is
// never set independently of this derivation outside an explicit cash-out.
func (r *RoundState) Recompute() {
	switch r.Variant {
	case VariantChain:
		r.Multiplier = r.Chain.Multiplier()
	case VariantGrid:
		r.Multiplier = r.Grid.Multiplier()
	}
	r.Bank = r.Stake.Mul(decimal.NewFromFloat(r.Multiplier))
}

// Terminal reports whether the round has been closed and only awaits
// cleanup. Every terminal transition claims the round through the version
// check before paying, so a stored Terminal round is safe to delete.
func (r *RoundState) Terminal() bool {
	return r.State == PhaseTerminal
}

// NextRoundID bumps the monotonic suffix: "<matchId>_3" -> "<matchId>_4".
func NextRoundID(roundID string) string {
	i := strings.LastIndexByte(roundID, '_')
	if i < 0 {
		return roundID + "_1"
	}
	n, err := strconv.ParseInt(roundID[i+1:], 10, 64)
	if err != nil {
		return roundID + "_1"
	}
	return fmt.Sprintf("%s_%d", roundID[:i], n+1)
}
